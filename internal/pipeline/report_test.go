package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/railwatch/railwatch/internal/model"
)

type fakeCoordStore struct {
	rows     []model.LedgerRow
	coords   map[int64]string
	official map[int64]string
}

func newFakeCoordStore(rows ...model.LedgerRow) *fakeCoordStore {
	return &fakeCoordStore{
		rows:     rows,
		coords:   make(map[int64]string),
		official: make(map[int64]string),
	}
}

func (s *fakeCoordStore) Rows() ([]model.LedgerRow, error) { return s.rows, nil }

func (s *fakeCoordStore) SetCoordinates(rowID int64, lat, lon string) error {
	s.coords[rowID] = lat + "," + lon
	return nil
}

func (s *fakeCoordStore) SetOfficialRecord(rowID int64, incidentNumber, lat, lon string) error {
	s.official[rowID] = incidentNumber
	if lat != "" {
		s.coords[rowID] = lat + "," + lon
	}
	return nil
}

type fakeOfficialIndex struct {
	all      []model.FRARecord
	byNumber map[string]model.FRARecord
}

func (f *fakeOfficialIndex) AllFatalities(ctx context.Context) ([]model.FRARecord, error) {
	return f.all, nil
}

func (f *fakeOfficialIndex) ByIncidentNumber(ctx context.Context, number string) (*model.FRARecord, error) {
	if rec, ok := f.byNumber[number]; ok {
		return &rec, nil
	}
	return nil, nil
}

func TestBackfillFillsCoordinatesFromIncidentNumber(t *testing.T) {
	store := newFakeCoordStore(
		model.LedgerRow{ID: 1, Date: "03/10/2024", IncidentNum: "FEC0324101"},
		model.LedgerRow{ID: 2, Date: "01/05/2024", IncidentNum: "FEC0124001", Lat: "26.37", Lon: "-80.10"},
	)
	official := &fakeOfficialIndex{all: []model.FRARecord{{
		IncidentNumber: "FEC0324101",
		IncidentDate:   mustDate(2024, 3, 10),
		CountyName:     "Brevard",
		Latitude:       floatPtr(28.08),
		Longitude:      floatPtr(-80.61),
	}}}

	b := NewBackfiller(store, official, zerolog.Nop())
	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.CoordinatesFilled != 1 {
		t.Errorf("CoordinatesFilled = %d, want 1", report.CoordinatesFilled)
	}
	if report.AlreadyComplete != 1 {
		t.Errorf("AlreadyComplete = %d, want 1", report.AlreadyComplete)
	}
	if got := store.coords[1]; got != "28.08,-80.61" {
		t.Errorf("row 1 coords = %q", got)
	}
	if _, ok := store.coords[2]; ok {
		t.Error("complete row was rewritten")
	}
}

func TestBackfillFallsBackToDirectLookup(t *testing.T) {
	store := newFakeCoordStore(
		model.LedgerRow{ID: 1, Date: "06/02/2023", IncidentNum: "FEC0623077"},
	)
	// Not in the bulk query results, only via direct lookup.
	official := &fakeOfficialIndex{
		byNumber: map[string]model.FRARecord{
			"FEC0623077": {
				IncidentNumber: "FEC0623077",
				Latitude:       floatPtr(27.45),
				Longitude:      floatPtr(-80.33),
			},
		},
	}

	b := NewBackfiller(store, official, zerolog.Nop())
	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.CoordinatesFilled != 1 {
		t.Errorf("CoordinatesFilled = %d, want 1", report.CoordinatesFilled)
	}
	if got := store.coords[1]; got != "27.45,-80.33" {
		t.Errorf("coords = %q", got)
	}
}

func TestBackfillCountsUnresolvableNumbers(t *testing.T) {
	store := newFakeCoordStore(
		model.LedgerRow{ID: 1, Date: "03/10/2024", IncidentNum: "UNKNOWN999"},
	)
	official := &fakeOfficialIndex{}

	b := NewBackfiller(store, official, zerolog.Nop())
	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.NumberNotFound != 1 {
		t.Errorf("NumberNotFound = %d, want 1", report.NumberNotFound)
	}
	if len(store.coords) != 0 {
		t.Errorf("coords written for unresolved number: %v", store.coords)
	}
}

func TestBackfillAutoAppliesSingleSameDayCandidate(t *testing.T) {
	store := newFakeCoordStore(
		model.LedgerRow{ID: 5, Date: "03/10/2024", LocationCity: "Melbourne", Age: "45"},
	)
	official := &fakeOfficialIndex{all: []model.FRARecord{{
		IncidentNumber: "FEC0324101",
		IncidentDate:   mustDate(2024, 3, 10),
		CountyName:     "BREVARD",
		Age:            intPtr(45),
		Latitude:       floatPtr(28.08),
		Longitude:      floatPtr(-80.61),
	}}}

	b := NewBackfiller(store, official, zerolog.Nop())
	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.AutoApplied != 1 {
		t.Errorf("AutoApplied = %d, want 1", report.AutoApplied)
	}
	if got := store.official[5]; got != "FEC0324101" {
		t.Errorf("official number for row 5 = %q", got)
	}
	if got := store.coords[5]; got != "28.08,-80.61" {
		t.Errorf("coords for row 5 = %q", got)
	}
	if len(report.NeedsReview) != 0 {
		t.Errorf("NeedsReview = %v, want empty", report.NeedsReview)
	}
}

func TestBackfillSurfacesAmbiguousCandidatesForReview(t *testing.T) {
	store := newFakeCoordStore(
		model.LedgerRow{ID: 8, Date: "03/10/2024", LocationCity: "Boca Raton", Name: "Jane Doe"},
	)
	official := &fakeOfficialIndex{all: []model.FRARecord{
		{
			IncidentNumber: "FEC0324101",
			IncidentDate:   mustDate(2024, 3, 10),
			CountyName:     "PALM BEACH",
		},
		{
			IncidentNumber: "FEC0324102",
			IncidentDate:   mustDate(2024, 3, 10),
			CountyName:     "BROWARD",
		},
	}}

	b := NewBackfiller(store, official, zerolog.Nop())
	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.AutoApplied != 0 {
		t.Errorf("AutoApplied = %d, want 0: ambiguous dates must never auto-apply", report.AutoApplied)
	}
	if len(report.NeedsReview) != 2 {
		t.Fatalf("NeedsReview = %d entries, want 2", len(report.NeedsReview))
	}
	for _, m := range report.NeedsReview {
		if m.Confidence != "HIGH" {
			t.Errorf("confidence = %q, want HIGH", m.Confidence)
		}
		if m.Row != 8 {
			t.Errorf("row = %d, want 8", m.Row)
		}
	}
	// Boca Raton is in Palm Beach County; only that candidate notes the match.
	if !strings.Contains(report.NeedsReview[0].Note, "location match") {
		t.Errorf("Palm Beach candidate note = %q, want location match", report.NeedsReview[0].Note)
	}
	if strings.Contains(report.NeedsReview[1].Note, "location match") {
		t.Errorf("Broward candidate note = %q, unexpected location match", report.NeedsReview[1].Note)
	}
}

func TestBackfillCountsRowsWithNoCandidates(t *testing.T) {
	store := newFakeCoordStore(
		model.LedgerRow{ID: 3, Date: "07/04/2024", LocationCity: "Miami"},
	)
	official := &fakeOfficialIndex{all: []model.FRARecord{{
		IncidentNumber: "FEC0124050",
		IncidentDate:   mustDate(2024, 1, 15),
		CountyName:     "MIAMI-DADE",
	}}}

	b := NewBackfiller(store, official, zerolog.Nop())
	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.NoCandidates != 1 {
		t.Errorf("NoCandidates = %d, want 1", report.NoCandidates)
	}
}

func TestBackfillReportMarkdown(t *testing.T) {
	report := &BackfillReport{
		TotalRows:       3,
		AlreadyComplete: 1,
		AutoApplied:     1,
		NeedsReview: []ReviewMatch{{
			Row:            8,
			Date:           "03/10/2024",
			Name:           "Jane Doe",
			City:           "Boca Raton",
			IncidentNumber: "FEC0324101",
			OfficialDate:   "03/10/2024",
			County:         "PALM BEACH",
			Confidence:     "HIGH",
			Note:           "exact date + location match",
		}},
	}

	var buf strings.Builder
	if err := report.WriteMarkdown(&buf); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Rows: 3",
		"Auto-applied matches: 1",
		"Matches needing review",
		"FEC0324101",
		"HIGH",
		"exact date + location match",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q\n%s", want, out)
		}
	}

	empty := &BackfillReport{TotalRows: 1, AlreadyComplete: 1}
	buf.Reset()
	if err := empty.WriteMarkdown(&buf); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	if !strings.Contains(buf.String(), "No matches need review") {
		t.Errorf("empty report output = %q", buf.String())
	}
}
