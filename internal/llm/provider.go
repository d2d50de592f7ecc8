// Package llm extracts structured incident data from article text through a
// pluggable completion provider.
package llm

import (
	"context"
	"strings"
)

// Provider defines the interface for LLM completion backends.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a prompt and returns the raw model output
	Complete(ctx context.Context, prompt string) (string, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Config holds LLM provider configuration.
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests, in seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults. The provider is disabled until
// explicitly configured.
func DefaultConfig() Config {
	return Config{
		Provider:  "",
		Model:     "",
		Timeout:   60,
		MaxTokens: 1024,
	}
}

// systemPrompt keeps the model on task across providers.
const systemPrompt = "You extract structured facts about rail incidents from news articles. You respond with valid JSON only."

// BuildExtractionPrompt constructs the extraction prompt for one article.
// The incident date is the date the incident occurred, which is almost never
// the publish date; the publish date is supplied so the model can resolve
// phrases like "on Monday" or "yesterday".
func BuildExtractionPrompt(articleText, publishDate string) string {
	if publishDate == "" {
		publishDate = "Unknown"
	}
	var b strings.Builder
	b.WriteString(`You are analyzing a news article about a potential passenger-rail fatality in Florida.

CRITICAL INSTRUCTIONS:
1. Extract the INCIDENT DATE - the date when the incident actually occurred - NOT the article publish date.
2. Look for phrases like "on Monday", "yesterday", "last Tuesday", "on January 15", etc. and calculate the actual incident date based on the article publish date provided.
3. If the article is a retrospective piece (memorial, anniversary, lawsuit update, or general commentary about past deaths), set is_retrospective to true.
4. Only extract data if this is about an actual train death/fatality.
5. If the article mentions multiple incidents, extract only the PRIMARY/MOST RECENT one.

Article text:
`)
	b.WriteString(articleText)
	b.WriteString("\n\nArticle publish date (for calculating relative dates): ")
	b.WriteString(publishDate)
	b.WriteString(`

Extract the following information. If something is not mentioned or unclear, use null.

Respond with ONLY valid JSON (no markdown, no explanation) matching this exact schema:
{
    "incident_date": "YYYY-MM-DD or null",
    "incident_time": "HH:MM (24hr format) or null",
    "location_full": "full crossing/intersection/location description or null",
    "location_city": "city name only or null",
    "victim_name": "full name or null",
    "victim_age": null or integer,
    "victim_gender": "Male" or "Female" or "Unknown" or null,
    "mode": "Pedestrian" or "Vehicle" or "Bicycle" or "Unknown",
    "details": "brief circumstances in 1-2 sentences (max 150 chars) or null",
    "is_suicide": "Confirmed" or "Suspected" or "Unknown",
    "is_retrospective": true or false,
    "confidence": 0.0 to 1.0
}

Confidence scoring guide:
- 1.0: Explicit train death with clear date, location, and details
- 0.8-0.9: Death confirmed but missing some details
- 0.6-0.7: Likely a train death but some ambiguity
- 0.3-0.5: Possibly relevant but unclear
- 0.0-0.2: Not about a train death, or about injuries not deaths`)
	return b.String()
}

// stripCodeFence removes a surrounding markdown code fence, if present.
// Models occasionally wrap JSON output despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
