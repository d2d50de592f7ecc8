package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// OfficialWriter is the ledger surface the apply pass writes to.
type OfficialWriter interface {
	SetOfficialRecord(rowID int64, incidentNumber, lat, lon string) error
}

// ApplyResult summarizes one apply pass over a reviewed report.
type ApplyResult struct {
	Applied []ReviewMatch `json:"applied"`
	Skipped int           `json:"skipped"` // unmarked, rejected, or malformed entries
}

// ReadReviewReport decodes a backfill report a reviewer has annotated.
func ReadReviewReport(r io.Reader) (*BackfillReport, error) {
	var report BackfillReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("parse review report: %w", err)
	}
	return &report, nil
}

// ApplyApproved writes every approved review match back to the ledger:
// the official incident number plus coordinates when the record carried
// them. Matches without an approval mark, and approved matches missing an
// incident number, are skipped and counted.
func ApplyApproved(store OfficialWriter, matches []ReviewMatch, log zerolog.Logger) (*ApplyResult, error) {
	result := &ApplyResult{}
	for _, m := range matches {
		if !m.Approved() {
			result.Skipped++
			continue
		}
		if m.IncidentNumber == "" || m.Row == 0 {
			result.Skipped++
			log.Warn().Int64("row", m.Row).Msg("approved match missing incident number, skipped")
			continue
		}
		if err := store.SetOfficialRecord(m.Row, m.IncidentNumber, m.Latitude, m.Longitude); err != nil {
			return result, fmt.Errorf("apply row %d: %w", m.Row, err)
		}
		result.Applied = append(result.Applied, m)
		log.Info().
			Int64("row", m.Row).
			Str("incident_number", m.IncidentNumber).
			Msg("approved match applied")
	}
	return result, nil
}
