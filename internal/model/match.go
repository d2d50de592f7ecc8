package model

// MatchType classifies how a new record matched an existing one.
type MatchType string

const (
	MatchExact        MatchType = "exact"         // composite score cleared the exact threshold
	MatchDateName     MatchType = "date_name"     // date plus a name factor
	MatchDateLocation MatchType = "date_location" // date plus a location factor only
	MatchNone         MatchType = "no_match"
)

// MatchResult is the outcome of reconciling one new record against the pool.
// Factors is the auditable trace of every comparison that contributed, e.g.
// "date", "name(92%)", "city(100%)".
type MatchResult struct {
	IsMatch bool            `json:"is_match"`
	Type    MatchType       `json:"match_type"`
	Matched *IncidentRecord `json:"-"`
	Score   int             `json:"match_score"` // additive, may exceed 100
	Factors []string        `json:"match_factors"`
}
