package feeds

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"net/http"

	"github.com/rs/zerolog"

	"github.com/railwatch/railwatch/internal/model"
)

func TestBuildGoogleNewsURL(t *testing.T) {
	got := BuildGoogleNewsURL("Brightline death", 7)

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("Parse(%q): %v", got, err)
	}
	if u.Host != "news.google.com" || u.Path != "/rss/search" {
		t.Errorf("unexpected endpoint %s%s", u.Host, u.Path)
	}
	q := u.Query()
	if q.Get("q") != "Brightline death when:7d" {
		t.Errorf("q = %q", q.Get("q"))
	}
	if q.Get("hl") != "en-US" || q.Get("gl") != "US" || q.Get("ceid") != "US:en" {
		t.Errorf("locale params wrong: %v", q)
	}
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>test</title>
<item>
  <title>Person struck by train in Boca Raton</title>
  <link>https://example.com/story-1</link>
  <pubDate>Mon, 10 Mar 2024 14:00:00 GMT</pubDate>
  <description>A pedestrian was killed Sunday.</description>
</item>
<item>
  <title>Same story, tracking link</title>
  <link>https://example.com/story-1?utm_source=rss</link>
</item>
<item>
  <title>No link</title>
</item>
</channel></rss>`

func testSearcher(serverURL string) *Searcher {
	return NewSearcher(
		model.FeedsConfig{LocalFeeds: []string{serverURL}, DaysBackNews: 7},
		model.HTTPConfig{UserAgent: "test-agent"},
		zerolog.Nop(),
	)
}

func TestFetchFeed(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	defer srv.Close()

	s := testSearcher(srv.URL)
	articles, err := s.FetchFeed(context.Background(), srv.URL, "local")
	if err != nil {
		t.Fatalf("FetchFeed: %v", err)
	}
	if gotAgent != "test-agent" {
		t.Errorf("user agent = %q", gotAgent)
	}
	// The linkless item is dropped, the duplicate URL is not (dedupe is
	// cross-feed and happens in FetchAll).
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}
	a := articles[0]
	if !strings.Contains(a.Title, "Boca Raton") || a.URL != "https://example.com/story-1" {
		t.Errorf("unexpected first article %+v", a)
	}
	if a.Published == nil {
		t.Error("pubDate should be parsed")
	}
	if a.Source != "local" {
		t.Errorf("source = %q", a.Source)
	}
}

func TestFetchFeed_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	s := testSearcher(srv.URL)
	if _, err := s.FetchFeed(context.Background(), srv.URL, "local"); err == nil {
		t.Error("expected error on HTTP 403")
	}
}

func TestFetchAll_DeduplicatesAcrossItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testFeed))
	}))
	defer srv.Close()

	s := testSearcher(srv.URL)
	articles := s.FetchAll(context.Background())

	// story-1 and story-1?utm_source=rss normalize to the same identifier.
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if articles[0].URL != "https://example.com/story-1" {
		t.Errorf("kept %q, want the first occurrence", articles[0].URL)
	}
}

func TestFetchAll_SkipsFailingFeed(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testFeed))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer bad.Close()

	s := NewSearcher(
		model.FeedsConfig{LocalFeeds: []string{bad.URL, good.URL}},
		model.HTTPConfig{UserAgent: "test-agent"},
		zerolog.Nop(),
	)
	articles := s.FetchAll(context.Background())
	if len(articles) != 1 {
		t.Errorf("got %d articles, want 1 from the healthy feed", len(articles))
	}
}
