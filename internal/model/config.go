package model

import (
	"fmt"
	"time"
)

// Config is the complete runtime configuration for railwatch.
type Config struct {
	Match       MatchConfig       `yaml:"match"`
	HTTP        HTTPConfig        `yaml:"http"`
	Cache       CacheConfig       `yaml:"cache"`
	Feeds       FeedsConfig       `yaml:"feeds"`
	Filter      FilterConfig      `yaml:"filter"`
	LLM         LLMConfig         `yaml:"llm"`
	FRA         FRAConfig         `yaml:"fra"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Notify      NotifyConfig      `yaml:"notify"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
}

// MatchConfig holds the deduplication thresholds. All thresholds are on the
// 0-100 similarity scale.
type MatchConfig struct {
	DateToleranceDays int `yaml:"date_tolerance_days"` // max days between dates to compare at all
	NameThreshold     int `yaml:"name_threshold"`      // full-ratio gate for the name factor
	LocationThreshold int `yaml:"location_threshold"`  // gate for city and full-location factors
	MinCandidateScore int `yaml:"min_candidate_score"` // composite floor to become a candidate
	ExactScore        int `yaml:"exact_score"`         // composite score classified as "exact"
}

// Validate rejects configurations that would make scoring meaningless.
// Invalid thresholds are programmer error and fail at construction time.
func (c MatchConfig) Validate() error {
	if c.DateToleranceDays < 0 {
		return fmt.Errorf("date_tolerance_days must be >= 0, got %d", c.DateToleranceDays)
	}
	if c.NameThreshold < 0 || c.NameThreshold > 100 {
		return fmt.Errorf("name_threshold must be in [0,100], got %d", c.NameThreshold)
	}
	if c.LocationThreshold < 0 || c.LocationThreshold > 100 {
		return fmt.Errorf("location_threshold must be in [0,100], got %d", c.LocationThreshold)
	}
	if c.MinCandidateScore <= 0 {
		return fmt.Errorf("min_candidate_score must be > 0, got %d", c.MinCandidateScore)
	}
	if c.ExactScore < c.MinCandidateScore {
		return fmt.Errorf("exact_score (%d) must be >= min_candidate_score (%d)", c.ExactScore, c.MinCandidateScore)
	}
	return nil
}

// HTTPConfig controls outbound article fetching.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	RatePerHost  float64       `yaml:"rate_per_host"` // requests per second per domain
	RateBurst    int           `yaml:"rate_burst"`
}

// CacheConfig controls caching of fetched article bodies.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"` // empty disables the disk layer
	TTL     time.Duration `yaml:"ttl"`
}

// FeedsConfig lists the news sources to search.
type FeedsConfig struct {
	SearchTerms  []string `yaml:"search_terms"` // Google News queries
	LocalFeeds   []string `yaml:"local_feeds"`  // direct RSS feed URLs
	DaysBackNews int      `yaml:"days_back_news"`
}

// FilterConfig holds the keyword pre-filter word lists.
type FilterConfig struct {
	RequiredKeywords  []string `yaml:"required_keywords"`
	IncidentKeywords  []string `yaml:"incident_keywords"`
	ExclusionKeywords []string `yaml:"exclusion_keywords"`
}

// LLMConfig selects and configures the extraction provider.
type LLMConfig struct {
	Provider        string  `yaml:"provider"` // openai, anthropic, "" = disabled
	Model           string  `yaml:"model"`
	APIKey          string  `yaml:"-"` // from environment only, never persisted
	BaseURL         string  `yaml:"base_url"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	MaxTokens       int     `yaml:"max_tokens"`
	MinConfidence   float64 `yaml:"min_confidence"`
	MaxArticleChars int     `yaml:"max_article_chars"`
	MaxIncidentAge  int     `yaml:"max_incident_age_days"`
}

// FRAConfig configures the government casualty database client.
type FRAConfig struct {
	BaseURL     string   `yaml:"base_url"`
	AppToken    string   `yaml:"-"` // from environment only
	Railroads   []string `yaml:"railroads"`
	State       string   `yaml:"state"`
	DaysBackFRA int      `yaml:"days_back_fra"`
}

// LedgerConfig locates the incident ledger.
type LedgerConfig struct {
	Path string `yaml:"path"` // SQLite database file
}

// NotifyConfig configures draft notification email. Disabled unless both
// SMTP credentials and a recipient are present.
type NotifyConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	From     string `yaml:"from"`
	Password string `yaml:"-"` // from environment only
	To       string `yaml:"to"`
}

// ConcurrencyConfig bounds parallel article fetching. The matching core
// itself is single-threaded.
type ConcurrencyConfig struct {
	FetchWorkers int `yaml:"fetch_workers"`
}

// OutputConfig controls CLI output behavior.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Match: MatchConfig{
			DateToleranceDays: 1,
			NameThreshold:     85,
			LocationThreshold: 80,
			MinCandidateScore: 40,
			ExactScore:        70,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "railwatch/0.1 (+https://github.com/railwatch/railwatch)",
			MaxBodyBytes: 2_000_000,
			RatePerHost:  1.0,
			RateBurst:    3,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Feeds: FeedsConfig{
			SearchTerms: []string{
				"Brightline train death",
				"Brightline fatality",
				"Brightline pedestrian killed",
				"Brightline accident Florida",
			},
			LocalFeeds: []string{
				"https://www.sun-sentinel.com/feed/",
				"https://www.orlandosentinel.com/feed/",
				"https://www.palmbeachpost.com/rss/",
				"https://www.tcpalm.com/rss/",
				"https://www.wptv.com/news/rss/",
			},
			DaysBackNews: 7,
		},
		Filter: FilterConfig{
			RequiredKeywords: []string{
				"brightline", "virgin trains",
			},
			IncidentKeywords: []string{
				"death", "dead", "died", "dies", "killed", "fatal",
				"fatality", "struck", "hit by train", "collision",
			},
			ExclusionKeywords: []string{
				"lawsuit", "anniversary", "memorial", "study",
				"expansion", "ridership", "earnings",
			},
		},
		LLM: LLMConfig{
			Provider:        "",
			Model:           "",
			TimeoutSeconds:  60,
			MaxTokens:       1024,
			MinConfidence:   0.7,
			MaxArticleChars: 32_000,
			MaxIncidentAge:  30,
		},
		FRA: FRAConfig{
			BaseURL: "https://data.transportation.gov/resource/rash-pd2d.json",
			Railroads: []string{
				"Brightline Train",
				"Florida East Coast Railway Company",
			},
			State:       "FLORIDA",
			DaysBackFRA: 90,
		},
		Ledger: LedgerConfig{
			Path: "railwatch.db",
		},
		Notify: NotifyConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
		Concurrency: ConcurrencyConfig{
			FetchWorkers: 4,
		},
		Output: OutputConfig{},
	}
}

// Validate checks the whole configuration, failing fast on programmer error.
func (c *Config) Validate() error {
	if err := c.Match.Validate(); err != nil {
		return fmt.Errorf("match: %w", err)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http: timeout must be > 0")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http: max_body_bytes must be > 0")
	}
	if c.LLM.MinConfidence < 0 || c.LLM.MinConfidence > 1 {
		return fmt.Errorf("llm: min_confidence must be in [0,1], got %f", c.LLM.MinConfidence)
	}
	if c.Concurrency.FetchWorkers <= 0 {
		return fmt.Errorf("concurrency: fetch_workers must be > 0")
	}
	return nil
}
