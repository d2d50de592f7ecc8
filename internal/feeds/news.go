// Package feeds discovers candidate news coverage through Google News RSS
// searches and direct local-outlet feeds.
package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/railwatch/railwatch/internal/dedup"
	"github.com/railwatch/railwatch/internal/model"
)

// Searcher runs the configured search terms against Google News and pulls
// any direct RSS feeds, merging the results into one deduplicated list.
type Searcher struct {
	cfg       model.FeedsConfig
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
	log       zerolog.Logger
}

// NewSearcher creates a Searcher. The HTTP client is shared across all feed
// requests.
func NewSearcher(cfg model.FeedsConfig, httpCfg model.HTTPConfig, log zerolog.Logger) *Searcher {
	return &Searcher{
		cfg:       cfg,
		client:    &http.Client{Timeout: httpCfg.Timeout},
		parser:    gofeed.NewParser(),
		userAgent: httpCfg.UserAgent,
		log:       log,
	}
}

// BuildGoogleNewsURL returns the RSS search URL for a query restricted to
// the last daysBack days.
func BuildGoogleNewsURL(query string, daysBack int) string {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s when:%dd", query, daysBack))
	q.Set("hl", "en-US")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")
	return "https://news.google.com/rss/search?" + q.Encode()
}

// FetchFeed retrieves and parses one feed URL. The source label is attached
// to every returned article.
func (s *Searcher) FetchFeed(ctx context.Context, feedURL, source string) ([]model.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed %s: HTTP %d", feedURL, resp.StatusCode)
	}

	feed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	articles := make([]model.Article, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Link == "" {
			continue
		}
		var published *time.Time
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed
		}
		articles = append(articles, model.Article{
			Title:     entry.Title,
			URL:       entry.Link,
			Published: published,
			Source:    source,
			Summary:   entry.Description,
		})
	}
	return articles, nil
}

// FetchAll runs every search term and every local feed, deduplicating
// articles across feeds by normalized URL. A failing feed is logged and
// skipped; the run continues with the rest.
func (s *Searcher) FetchAll(ctx context.Context) []model.Article {
	type namedFeed struct {
		url    string
		source string
	}

	feedList := make([]namedFeed, 0, len(s.cfg.SearchTerms)+len(s.cfg.LocalFeeds))
	for _, term := range s.cfg.SearchTerms {
		feedList = append(feedList, namedFeed{
			url:    BuildGoogleNewsURL(term, s.cfg.DaysBackNews),
			source: "google-news: " + term,
		})
	}
	for _, feedURL := range s.cfg.LocalFeeds {
		feedList = append(feedList, namedFeed{url: feedURL, source: feedURL})
	}

	seen := make(map[string]bool)
	var out []model.Article
	for _, f := range feedList {
		articles, err := s.FetchFeed(ctx, f.url, f.source)
		if err != nil {
			s.log.Warn().Err(err).Str("feed", f.source).Msg("feed fetch failed")
			continue
		}
		for _, a := range articles {
			key := dedup.NormalizeSourceID(a.URL)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, a)
		}
		s.log.Debug().Str("feed", f.source).Int("articles", len(articles)).Msg("feed fetched")
	}
	return out
}
