package worker

import (
	"context"
)

// PageFetcher downloads one article page.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// FetchResult pairs an article URL with its downloaded HTML.
type FetchResult struct {
	URL   string
	HTML  string
	Error error
}

// GetError implements Result.
func (r *FetchResult) GetError() error {
	return r.Error
}

// FetchJob downloads one URL on the pool.
type FetchJob struct {
	URL     string
	Fetcher PageFetcher
}

// Execute implements Job.
func (j *FetchJob) Execute(ctx context.Context) Result {
	html, err := j.Fetcher.FetchPage(ctx, j.URL)
	return &FetchResult{URL: j.URL, HTML: html, Error: err}
}

// FetchAll downloads a batch of article URLs with the given concurrency.
// Results come back keyed by URL; failed downloads carry their error.
func FetchAll(ctx context.Context, fetcher PageFetcher, urls []string, concurrency int) map[string]*FetchResult {
	if len(urls) == 0 {
		return map[string]*FetchResult{}
	}
	if concurrency > len(urls) {
		concurrency = len(urls)
	}

	pool := NewPool(concurrency)
	pool.Start()

	// Propagate caller cancellation into the pool.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pool.Shutdown()
		case <-done:
		}
	}()

	for _, u := range urls {
		pool.Submit(&FetchJob{URL: u, Fetcher: fetcher})
	}

	out := make(map[string]*FetchResult, len(urls))
	for _, result := range pool.Wait() {
		if fr, ok := result.(*FetchResult); ok {
			out[fr.URL] = fr
		}
	}
	return out
}
