package model

import "time"

// Article is a news item discovered via RSS search.
type Article struct {
	Title     string
	URL       string
	Published *time.Time
	Source    string // feed name or query that surfaced it
	Summary   string
}

// ParsedArticle is the extracted text content of an article page.
type ParsedArticle struct {
	URL       string
	Title     string
	Text      string
	Published *time.Time
}

// ExtractedIncident is the structured guess an LLM produces from article
// text. Confidence below the configured floor and retrospective pieces are
// rejected before a record is built from it.
type ExtractedIncident struct {
	IncidentDate  *time.Time
	IncidentTime  string // "HH:MM", 24h
	LocationFull  string
	LocationCity  string
	VictimName    string
	VictimAge     *int
	VictimGender  string // Male/Female/Unknown
	Mode          string // Pedestrian/Vehicle/Bicycle/Unknown
	Details       string
	Suicide       string // Confirmed/Suspected/Unknown
	Confidence    float64
	Retrospective bool // memorial, anniversary, lawsuit coverage
}
