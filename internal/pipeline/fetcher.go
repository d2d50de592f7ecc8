package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/railwatch/railwatch/internal/cache"
	"github.com/railwatch/railwatch/internal/model"
	"github.com/railwatch/railwatch/internal/util"
	"github.com/railwatch/railwatch/internal/worker"
)

// Fetcher downloads article pages politely: robots.txt compliance,
// per-domain rate limiting, and a cache so repeated runs skip pages already
// seen.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	cache      *cache.LayeredCache
	log        zerolog.Logger
}

// NewFetcher builds a fetcher from the HTTP and cache configuration. The
// cache may be nil.
func NewFetcher(httpCfg model.HTTPConfig, cacheCfg model.CacheConfig, log zerolog.Logger) *Fetcher {
	var pageCache *cache.LayeredCache
	if cacheCfg.Enabled {
		pageCache = cache.NewLayeredCache(cacheCfg.TTL, cacheCfg.Dir, cacheCfg.TTL)
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: httpCfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: httpCfg.UserAgent,
		maxBytes:  httpCfg.MaxBodyBytes,
		robots:    util.NewRobotsChecker(httpCfg.UserAgent, httpCfg.Timeout),
		limiter:   worker.NewLimiter(httpCfg.RatePerHost, httpCfg.RateBurst),
		cache:     pageCache,
		log:       log,
	}
}

// FetchPage retrieves the HTML body of one article URL. Implements
// worker.PageFetcher so batches run on the pool.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) (string, error) {
	if f.cache != nil {
		if body, found := f.cache.Get(cache.Key(rawURL)); found {
			f.log.Debug().Str("url", rawURL).Msg("cache hit")
			return string(body), nil
		}
	}

	allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("robots check: %w", err)
	}
	if !allowed {
		return "", fmt.Errorf("disallowed by robots.txt: %s", rawURL)
	}
	if crawlDelay > 10*time.Second {
		crawlDelay = 10 * time.Second
	}

	if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	maxBytes := f.maxBytes
	if maxBytes <= 0 {
		maxBytes = 4 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if f.cache != nil {
		if err := f.cache.Set(cache.Key(rawURL), body, 0); err != nil {
			f.log.Warn().Err(err).Str("url", rawURL).Msg("cache write failed")
		}
	}

	return string(body), nil
}
