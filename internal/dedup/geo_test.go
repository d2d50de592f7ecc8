package dedup

import (
	"strings"
	"testing"

	"github.com/railwatch/railwatch/internal/model"
)

func intPtr(n int) *int { return &n }

func TestLocationMatchesCounty(t *testing.T) {
	idx := NewCountyIndex()

	tests := []struct {
		location string
		county   string
		want     bool
	}{
		{"Boca Raton", "Palm Beach", true},   // city listed under the county
		{"Miami", "Miami-Dade", true},        // county name contains the city
		{"Fort Lauderdale", "Broward", true}, // via county city list
		{"Orlando", "Palm Beach", false},
		{"", "Broward", false},
		{"Boca Raton", "", false},
		{"crossing near Boca Raton", "Palm Beach", true}, // substring of a longer location
	}
	for _, tt := range tests {
		if got := idx.LocationMatchesCounty(tt.location, tt.county); got != tt.want {
			t.Errorf("LocationMatchesCounty(%q, %q) = %v, want %v", tt.location, tt.county, got, tt.want)
		}
	}
}

func TestFindCandidates_SingleSameDay(t *testing.T) {
	idx := NewCountyIndex()
	draft := model.IncidentRecord{
		IncidentDate: date(2024, 3, 10),
		LocationCity: "Boca Raton",
		VictimAge:    intPtr(45),
	}
	official := []model.FRARecord{
		{IncidentNumber: "HQ001", IncidentDate: date(2024, 3, 10), CountyName: "PALM BEACH", Age: intPtr(45)},
		{IncidentNumber: "HQ002", IncidentDate: date(2024, 4, 1), CountyName: "BROWARD"},
	}

	cands := idx.FindCandidates(draft, official)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	c := cands[0]
	if c.Confidence != VeryHigh {
		t.Errorf("confidence = %s, want %s", c.Confidence, VeryHigh)
	}
	if !c.AutoApply {
		t.Error("lone same-day record should auto-apply")
	}
	if !strings.Contains(c.Note, "only record on this date") {
		t.Errorf("note = %q, missing same-date rationale", c.Note)
	}
	if !strings.Contains(c.Note, "age match") {
		t.Errorf("note = %q, missing age corroboration", c.Note)
	}
	if !strings.Contains(c.Note, "location match") {
		t.Errorf("note = %q, missing location corroboration", c.Note)
	}
}

func TestFindCandidates_MultipleSameDayNeverAutoApplies(t *testing.T) {
	// Two official records on the same date: both are surfaced for review
	// and neither is chosen automatically, however well one corroborates.
	idx := NewCountyIndex()
	draft := model.IncidentRecord{
		IncidentDate: date(2024, 3, 10),
		LocationCity: "Boca Raton",
		VictimAge:    intPtr(45),
	}
	official := []model.FRARecord{
		{IncidentNumber: "HQ001", IncidentDate: date(2024, 3, 10), CountyName: "PALM BEACH", Age: intPtr(45)},
		{IncidentNumber: "HQ002", IncidentDate: date(2024, 3, 10), CountyName: "BROWARD"},
	}

	cands := idx.FindCandidates(draft, official)
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}
	for _, c := range cands {
		if c.Confidence != High {
			t.Errorf("candidate %s confidence = %s, want %s", c.Record.IncidentNumber, c.Confidence, High)
		}
		if c.AutoApply {
			t.Errorf("candidate %s must not auto-apply on an ambiguous date", c.Record.IncidentNumber)
		}
	}
}

func TestFindCandidates_AdjacentDay(t *testing.T) {
	idx := NewCountyIndex()
	draft := model.IncidentRecord{IncidentDate: date(2024, 3, 10)}
	official := []model.FRARecord{
		{IncidentNumber: "HQ003", IncidentDate: date(2024, 3, 11), CountyName: "BROWARD"},
	}

	cands := idx.FindCandidates(draft, official)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	if cands[0].Confidence != Medium {
		t.Errorf("confidence = %s, want %s", cands[0].Confidence, Medium)
	}
	if cands[0].AutoApply {
		t.Error("adjacent-day candidate must not auto-apply")
	}
	if !strings.Contains(cands[0].Note, "03/11/2024") {
		t.Errorf("note = %q, should carry the official date", cands[0].Note)
	}
}

func TestFindCandidates_NearbyDateWithCounty(t *testing.T) {
	idx := NewCountyIndex()
	draft := model.IncidentRecord{
		IncidentDate: date(2024, 3, 10),
		LocationCity: "Fort Lauderdale",
	}
	official := []model.FRARecord{
		{IncidentNumber: "HQ004", IncidentDate: date(2024, 3, 13), CountyName: "BROWARD"},
		// Same offset but wrong county: excluded at this tier.
		{IncidentNumber: "HQ005", IncidentDate: date(2024, 3, 13), CountyName: "VOLUSIA"},
	}

	cands := idx.FindCandidates(draft, official)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	if cands[0].Record.IncidentNumber != "HQ004" {
		t.Errorf("candidate = %s, want HQ004", cands[0].Record.IncidentNumber)
	}
	if cands[0].Confidence != Low {
		t.Errorf("confidence = %s, want %s", cands[0].Confidence, Low)
	}
}

func TestFindCandidates_NoDateNoCandidates(t *testing.T) {
	idx := NewCountyIndex()
	official := []model.FRARecord{
		{IncidentNumber: "HQ001", IncidentDate: date(2024, 3, 10)},
	}
	if cands := idx.FindCandidates(model.IncidentRecord{}, official); cands != nil {
		t.Errorf("dateless draft produced candidates: %+v", cands)
	}
}

func TestFindCandidates_TooFarApart(t *testing.T) {
	idx := NewCountyIndex()
	draft := model.IncidentRecord{
		IncidentDate: date(2024, 3, 10),
		LocationCity: "Boca Raton",
	}
	official := []model.FRARecord{
		{IncidentNumber: "HQ006", IncidentDate: date(2024, 3, 20), CountyName: "PALM BEACH"},
	}
	if cands := idx.FindCandidates(draft, official); len(cands) != 0 {
		t.Errorf("ten-day gap produced candidates: %+v", cands)
	}
}
