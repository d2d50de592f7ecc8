package dedup

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/railwatch/railwatch/internal/model"
)

// Deduper reconciles new incident records against an in-memory pool of
// existing records. The pool is built once per run from the ledger snapshot
// and grows only through AddRecord, which the caller invokes after the
// corresponding external persistence succeeds. The pool is ordered by
// insertion; equal top scores resolve to the earliest-inserted record, so
// results are deterministic for a given load order.
type Deduper struct {
	records []model.IncidentRecord
	cfg     model.MatchConfig
}

// New builds a Deduper over the existing pool. Invalid thresholds are
// programmer error and are rejected here rather than mid-scan.
func New(existing []model.IncidentRecord, cfg model.MatchConfig) (*Deduper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("match config: %w", err)
	}
	pool := make([]model.IncidentRecord, len(existing))
	copy(pool, existing)
	return &Deduper{records: pool, cfg: cfg}, nil
}

// Records returns the current pool. Callers must not mutate it.
func (d *Deduper) Records() []model.IncidentRecord {
	return d.records
}

// AddRecord appends a newly persisted record to the pool so that later
// records in the same run can match it without re-reading the ledger.
func (d *Deduper) AddRecord(rec model.IncidentRecord) {
	d.records = append(d.records, rec)
}

// AttachSources merges additional source identifiers into a pool record,
// mirroring a merge already persisted to the ledger. Later records in the
// same run carrying one of these identifiers then short-circuit on source
// identity instead of re-scoring.
func (d *Deduper) AttachSources(rec *model.IncidentRecord, sources []string) {
	if rec == nil {
		return
	}
	rec.SourceIDs = MergeSources(rec.SourceIDs, sources)
}

// FindMatch scores the new record against every comparable pool record and
// returns the best candidate's classification, or no_match. Dates are the
// mandatory anchor: a record without a date is never matched, and pairs
// whose dates differ by more than the tolerance are never scored.
func (d *Deduper) FindMatch(rec model.IncidentRecord) model.MatchResult {
	if rec.IncidentDate == nil {
		return model.MatchResult{
			IsMatch: false,
			Type:    model.MatchNone,
			Factors: []string{"missing_date"},
		}
	}

	type candidate struct {
		record  *model.IncidentRecord
		score   int
		factors []string
	}
	var candidates []candidate

	for i := range d.records {
		existing := &d.records[i]
		if existing.IncidentDate == nil {
			continue
		}
		dateDiff := DaysApart(*rec.IncidentDate, *existing.IncidentDate)
		if dateDiff > d.cfg.DateToleranceDays {
			continue
		}

		score := 0
		factors := []string{"date"}

		// Same-day events are far more likely to be the same incident than
		// adjacent-day ones, which arise from reporting-lag ambiguity.
		if dateDiff == 0 {
			score += 25
		} else {
			score += 15
		}

		if rec.VictimName != "" && existing.VictimName != "" {
			nameSim := Ratio(rec.VictimName, existing.VictimName)
			if nameSim >= d.cfg.NameThreshold {
				score += 50
				factors = append(factors, fmt.Sprintf("name(%d%%)", nameSim))
			} else if nameSim >= 70 {
				// Looser secondary gate: reward "John" matching "John Smith"
				// without letting weak resemblance alone drive a match.
				partialSim := PartialRatio(rec.VictimName, existing.VictimName)
				if partialSim >= 90 {
					score += 35
					factors = append(factors, fmt.Sprintf("name_partial(%d%%)", partialSim))
				}
			}
		}

		if rec.LocationCity != "" && existing.LocationCity != "" {
			citySim := Ratio(rec.LocationCity, existing.LocationCity)
			if citySim >= d.cfg.LocationThreshold {
				score += 30
				factors = append(factors, fmt.Sprintf("city(%d%%)", citySim))
			}
		}

		if rec.LocationFull != "" && existing.LocationFull != "" {
			locSim := PartialRatio(rec.LocationFull, existing.LocationFull)
			if locSim >= d.cfg.LocationThreshold {
				score += 20
				factors = append(factors, fmt.Sprintf("location(%d%%)", locSim))
			}
		}

		// Date alone, even exact, is never sufficient: at least one of name
		// or location must also have cleared its threshold.
		if score >= d.cfg.MinCandidateScore {
			candidates = append(candidates, candidate{existing, score, factors})
		}
	}

	if len(candidates) == 0 {
		return model.MatchResult{IsMatch: false, Type: model.MatchNone}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}

	matchType := model.MatchDateLocation
	if best.score >= d.cfg.ExactScore {
		matchType = model.MatchExact
	} else if hasNameFactor(best.factors) {
		matchType = model.MatchDateName
	}

	return model.MatchResult{
		IsMatch: true,
		Type:    matchType,
		Matched: best.record,
		Score:   best.score,
		Factors: best.factors,
	}
}

// CheckSourceExists scans the pool for a record already carrying the given
// source identifier. An identical source reference always means the same
// incident, regardless of field similarity, so callers run this before
// FindMatch. Linear scan over records and their identifier lists.
func (d *Deduper) CheckSourceExists(id string) *model.IncidentRecord {
	want := NormalizeSourceID(id)
	if want == "" {
		return nil
	}
	for i := range d.records {
		for _, existing := range d.records[i].SourceIDs {
			if NormalizeSourceID(existing) == want {
				return &d.records[i]
			}
		}
	}
	return nil
}

// MergeSources combines existing and new source identifiers, preserving
// first-seen order and original casing while deduplicating by normalized
// value.
func MergeSources(existing, added []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range append(append([]string{}, existing...), added...) {
		norm := NormalizeSourceID(id)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, id)
	}
	return out
}

// trackingParams are query parameters that vary per referral without
// changing which page a URL identifies.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"fbclid":       true,
	"gclid":        true,
}

// NormalizeSourceID canonicalizes a source identifier for comparison:
// lowercased, trimmed, trailing slash stripped, and for URLs the tracking
// query parameters removed. Non-URL identifiers (official incident numbers)
// get the string treatment only.
func NormalizeSourceID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if u, err := url.Parse(id); err == nil && u.Scheme != "" && u.Host != "" {
		q := u.Query()
		for param := range trackingParams {
			q.Del(param)
		}
		u.RawQuery = q.Encode()
		u.Fragment = ""
		id = u.String()
	}
	return strings.TrimRight(strings.ToLower(id), "/")
}

func hasNameFactor(factors []string) bool {
	for _, f := range factors {
		if strings.Contains(f, "name") {
			return true
		}
	}
	return false
}
