package model

import (
	"strconv"
	"strings"
	"time"
)

// IncidentRecord is the canonical, source-agnostic shape every raw record is
// normalized into before matching. Any field may be absent; a record with no
// incident date can never be matched against.
type IncidentRecord struct {
	IncidentDate *time.Time // date the event occurred, not the publish date
	LocationCity string     // normalized municipality name
	LocationFull string     // free-text address / crossing description
	VictimName   string
	VictimAge    *int
	SourceIDs    []string // URLs or official incident numbers evidencing this record
	Row          int64    // ledger row handle, 0 if not yet persisted
}

// Persisted reports whether the record already has a ledger position.
func (r IncidentRecord) Persisted() bool {
	return r.Row != 0
}

// LedgerRow is the raw shape read back from the ledger store. Every field is
// text as stored; normalization happens in RecordFromLedgerRow.
type LedgerRow struct {
	ID           int64
	Date         string
	Status       string
	IncidentNum  string // official government incident number, may be empty
	LocationFull string
	LocationCity string
	Name         string
	Age          string
	Sources      string // comma-separated
	Lat          string
	Lon          string
}

// HasIncidentNumber reports whether the row carries an official identifier.
func (r LedgerRow) HasIncidentNumber() bool {
	return strings.TrimSpace(r.IncidentNum) != ""
}

// NeedsCoordinates reports whether the row is missing lat/lon.
func (r LedgerRow) NeedsCoordinates() bool {
	return strings.TrimSpace(r.Lat) == "" || strings.TrimSpace(r.Lon) == ""
}

// dateFormats is the ordered list of accepted date layouts. First parse wins.
var dateFormats = []string{
	"01/02/2006",
	"01/02/06",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseFlexibleDate parses a date string against the known layouts. It never
// fails: unparseable input yields nil.
func ParseFlexibleDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// FormatLedgerDate renders a date in the ledger's MM/DD/YYYY convention.
func FormatLedgerDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("01/02/2006")
}

// SplitSources splits a comma-separated source field, trimming each piece and
// dropping empties.
func SplitSources(s string) []string {
	var out []string
	for _, piece := range strings.Split(s, ",") {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

// RecordFromLedgerRow normalizes a persisted ledger row. Malformed fields
// degrade to absent; the row always yields a comparable record.
func RecordFromLedgerRow(row LedgerRow) IncidentRecord {
	rec := IncidentRecord{
		IncidentDate: ParseFlexibleDate(row.Date),
		LocationCity: strings.TrimSpace(row.LocationCity),
		LocationFull: strings.TrimSpace(row.LocationFull),
		VictimName:   strings.TrimSpace(row.Name),
		SourceIDs:    SplitSources(row.Sources),
		Row:          row.ID,
	}
	if age, err := strconv.Atoi(strings.TrimSpace(row.Age)); err == nil {
		rec.VictimAge = &age
	}
	if num := strings.TrimSpace(row.IncidentNum); num != "" {
		rec.SourceIDs = append(rec.SourceIDs, num)
	}
	return rec
}

// RecordFromExtracted converts an LLM extraction into a matchable record,
// attaching the article URL as its source.
func RecordFromExtracted(inc ExtractedIncident, sourceURL string) IncidentRecord {
	rec := IncidentRecord{
		IncidentDate: inc.IncidentDate,
		LocationCity: strings.TrimSpace(inc.LocationCity),
		LocationFull: strings.TrimSpace(inc.LocationFull),
		VictimName:   strings.TrimSpace(inc.VictimName),
		VictimAge:    inc.VictimAge,
	}
	if sourceURL != "" {
		rec.SourceIDs = []string{sourceURL}
	}
	return rec
}

// RecordFromFRA converts a government record. FRA records carry a county but
// no city and no victim name, so the county stands in as the city field and
// the official incident number is the only source identifier.
func RecordFromFRA(fra FRARecord) IncidentRecord {
	rec := IncidentRecord{
		IncidentDate: fra.IncidentDate,
		LocationCity: strings.TrimSpace(fra.CountyName),
		VictimAge:    fra.Age,
	}
	if fra.IncidentNumber != "" {
		rec.SourceIDs = []string{fra.IncidentNumber}
	}
	return rec
}
