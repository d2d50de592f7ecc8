package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/railwatch/railwatch/internal/dedup"
	"github.com/railwatch/railwatch/internal/model"
)

// OfficialIndex is the FRA surface the backfill pass needs.
type OfficialIndex interface {
	AllFatalities(ctx context.Context) ([]model.FRARecord, error)
	ByIncidentNumber(ctx context.Context, number string) (*model.FRARecord, error)
}

// CoordinateStore is the ledger surface the backfill pass writes to.
type CoordinateStore interface {
	Rows() ([]model.LedgerRow, error)
	SetCoordinates(rowID int64, lat, lon string) error
	SetOfficialRecord(rowID int64, incidentNumber, lat, lon string) error
}

// ReviewMatch is one candidate pairing surfaced for human review. Action is
// empty when the report is written; a reviewer fills it in before the report
// is applied back to the ledger.
type ReviewMatch struct {
	Row            int64  `json:"row"`
	Date           string `json:"date"`
	Name           string `json:"name,omitempty"`
	City           string `json:"city,omitempty"`
	IncidentNumber string `json:"incident_number"`
	OfficialDate   string `json:"official_date"`
	County         string `json:"county"`
	Confidence     string `json:"confidence"`
	Note           string `json:"note"`
	Latitude       string `json:"latitude,omitempty"`
	Longitude      string `json:"longitude,omitempty"`
	MapsLink       string `json:"maps_link,omitempty"`
	Action         string `json:"action"`
}

// Approved reports whether a reviewer marked this match for application.
func (m ReviewMatch) Approved() bool {
	switch strings.ToUpper(strings.TrimSpace(m.Action)) {
	case "APPROVE", "APPROVED", "YES", "Y":
		return true
	}
	return false
}

// BackfillReport summarizes one reconciliation pass over the whole ledger.
type BackfillReport struct {
	TotalRows         int           `json:"total_rows"`
	AlreadyComplete   int           `json:"already_complete"`
	CoordinatesFilled int           `json:"coordinates_filled"`
	NumberNotFound    int           `json:"number_not_found"`
	AutoApplied       int           `json:"auto_applied"`
	NeedsReview       []ReviewMatch `json:"needs_review"`
	NoCandidates      int           `json:"no_candidates"`
}

// Backfiller reconciles the full ledger against the official casualty
// database: rows that already carry an incident number get coordinates
// filled in; rows without one go through the geographic resolver, applying
// the single unambiguous candidates and reporting the rest for review.
type Backfiller struct {
	store    CoordinateStore
	official OfficialIndex
	counties *dedup.CountyIndex
	log      zerolog.Logger
}

// NewBackfiller builds a backfiller over the given store and FRA index.
func NewBackfiller(store CoordinateStore, official OfficialIndex, log zerolog.Logger) *Backfiller {
	return &Backfiller{
		store:    store,
		official: official,
		counties: dedup.NewCountyIndex(),
		log:      log,
	}
}

// Run executes one backfill pass.
func (b *Backfiller) Run(ctx context.Context) (*BackfillReport, error) {
	officialRecords, err := b.official.AllFatalities(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch official records: %w", err)
	}
	byNumber := make(map[string]model.FRARecord, len(officialRecords))
	for _, rec := range officialRecords {
		byNumber[rec.IncidentNumber] = rec
	}

	rows, err := b.store.Rows()
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	report := &BackfillReport{TotalRows: len(rows)}
	for _, row := range rows {
		if !row.NeedsCoordinates() {
			report.AlreadyComplete++
			continue
		}

		if row.HasIncidentNumber() {
			b.fillCoordinates(ctx, row, byNumber, report)
			continue
		}

		b.resolveWithoutNumber(row, officialRecords, report)
	}
	return report, nil
}

// fillCoordinates handles rows that already know their official record.
func (b *Backfiller) fillCoordinates(ctx context.Context, row model.LedgerRow, byNumber map[string]model.FRARecord, report *BackfillReport) {
	number := row.IncidentNum
	rec, ok := byNumber[number]
	if !ok {
		// The bulk query is scoped to configured railroads; an explicitly
		// recorded number may still resolve directly.
		if fetched, err := b.official.ByIncidentNumber(ctx, number); err == nil && fetched != nil {
			rec, ok = *fetched, true
		}
	}

	if !ok || !rec.HasCoordinates() {
		report.NumberNotFound++
		b.log.Debug().Int64("row", row.ID).Str("incident_number", number).Msg("no coordinates in official database")
		return
	}

	lat := strconv.FormatFloat(*rec.Latitude, 'f', -1, 64)
	lon := strconv.FormatFloat(*rec.Longitude, 'f', -1, 64)
	if err := b.store.SetCoordinates(row.ID, lat, lon); err != nil {
		b.log.Error().Err(err).Int64("row", row.ID).Msg("set coordinates failed")
		return
	}
	report.CoordinatesFilled++
}

// resolveWithoutNumber runs the geographic resolver for a row lacking an
// official identifier.
func (b *Backfiller) resolveWithoutNumber(row model.LedgerRow, officialRecords []model.FRARecord, report *BackfillReport) {
	rec := model.RecordFromLedgerRow(row)
	candidates := b.counties.FindCandidates(rec, officialRecords)
	if len(candidates) == 0 {
		report.NoCandidates++
		return
	}

	for _, cand := range candidates {
		if cand.AutoApply {
			lat, lon := "", ""
			if cand.Record.HasCoordinates() {
				lat = strconv.FormatFloat(*cand.Record.Latitude, 'f', -1, 64)
				lon = strconv.FormatFloat(*cand.Record.Longitude, 'f', -1, 64)
			}
			if err := b.store.SetOfficialRecord(row.ID, cand.Record.IncidentNumber, lat, lon); err != nil {
				b.log.Error().Err(err).Int64("row", row.ID).Msg("auto-apply failed")
				continue
			}
			report.AutoApplied++
			b.log.Info().
				Int64("row", row.ID).
				Str("incident_number", cand.Record.IncidentNumber).
				Str("note", cand.Note).
				Msg("official record auto-applied")
			continue
		}

		match := ReviewMatch{
			Row:            row.ID,
			Date:           row.Date,
			Name:           row.Name,
			City:           row.LocationCity,
			IncidentNumber: cand.Record.IncidentNumber,
			OfficialDate:   model.FormatLedgerDate(cand.Record.IncidentDate),
			County:         cand.Record.CountyName,
			Confidence:     string(cand.Confidence),
			Note:           cand.Note,
			MapsLink:       cand.Record.GoogleMapsLink(),
		}
		if cand.Record.HasCoordinates() {
			match.Latitude = strconv.FormatFloat(*cand.Record.Latitude, 'f', -1, 64)
			match.Longitude = strconv.FormatFloat(*cand.Record.Longitude, 'f', -1, 64)
		}
		report.NeedsReview = append(report.NeedsReview, match)
	}
}

// WriteJSON renders the report as indented JSON.
func (r *BackfillReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteMarkdown renders the report as a human-readable review document.
func (r *BackfillReport) WriteMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# Ledger reconciliation report\n\n")
	fmt.Fprintf(w, "- Rows: %d\n", r.TotalRows)
	fmt.Fprintf(w, "- Already complete: %d\n", r.AlreadyComplete)
	fmt.Fprintf(w, "- Coordinates filled from incident numbers: %d\n", r.CoordinatesFilled)
	fmt.Fprintf(w, "- Incident numbers without coordinates: %d\n", r.NumberNotFound)
	fmt.Fprintf(w, "- Auto-applied matches: %d\n", r.AutoApplied)
	fmt.Fprintf(w, "- Rows with no candidates: %d\n\n", r.NoCandidates)

	if len(r.NeedsReview) == 0 {
		fmt.Fprintf(w, "No matches need review.\n")
		return nil
	}

	fmt.Fprintf(w, "## Matches needing review\n\n")
	fmt.Fprintf(w, "| Row | Ledger date | Name | City | Incident # | Official date | County | Confidence | Note |\n")
	fmt.Fprintf(w, "|-----|-------------|------|------|------------|---------------|--------|------------|------|\n")
	for _, m := range r.NeedsReview {
		fmt.Fprintf(w, "| %d | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			m.Row, m.Date, m.Name, m.City, m.IncidentNumber, m.OfficialDate, m.County, m.Confidence, m.Note)
	}
	fmt.Fprintf(w, "\nTo apply a match, set \"action\": \"APPROVE\" on its entry in the JSON\nreport and run `railwatch apply <report.json>`.\n")
	return nil
}
