package dedup

import (
	"fmt"
	"strings"

	"github.com/railwatch/railwatch/internal/model"
)

// Confidence is the tier assigned by the co-location resolver. The tiers are
// deliberately coarser than the composite score: government records carry no
// victim name, so the name-weighted scorer cannot apply and results below
// VeryHigh are surfaced for manual review rather than auto-applied.
type Confidence string

const (
	VeryHigh Confidence = "VERY HIGH"
	High     Confidence = "HIGH"
	Medium   Confidence = "MEDIUM"
	Low      Confidence = "LOW"
)

// FRACandidate pairs a government record with the confidence of it being the
// same incident as a given ledger record. AutoApply is true only for a
// lone exact-date match; everything else requires human disposition.
type FRACandidate struct {
	Record     model.FRARecord
	Confidence Confidence
	Note       string
	AutoApply  bool
}

// CountyIndex maps lower-cased county names to their known constituent
// cities, for reconciling county-level government records against
// city-level ledger records.
type CountyIndex struct {
	counties map[string][]string
}

// floridaCounties covers the rail corridor's jurisdictions.
var floridaCounties = map[string][]string{
	"broward": {
		"fort lauderdale", "hollywood", "pompano beach", "deerfield beach",
		"coral springs", "pembroke pines", "miramar", "davie", "plantation",
		"sunrise", "lauderhill", "dania beach", "hallandale", "oakland park",
		"wilton manors", "lauderdale lakes", "tamarac", "margate", "coconut creek",
	},
	"palm beach": {
		"west palm beach", "boca raton", "boynton beach", "delray beach",
		"lake worth", "jupiter", "palm beach gardens", "wellington",
		"royal palm beach", "greenacres", "riviera beach", "lantana",
		"lake park", "mangonia park", "palm springs", "hypoluxo",
	},
	"miami-dade": {
		"miami", "hialeah", "miami beach", "homestead", "north miami",
		"coral gables", "aventura", "doral", "miami gardens", "north miami beach",
		"opa-locka", "miami shores", "sunny isles", "hallandale beach",
	},
	"brevard": {
		"melbourne", "palm bay", "titusville", "cocoa", "rockledge",
		"cocoa beach", "satellite beach", "indian harbour beach", "merritt island",
	},
	"orange": {
		"orlando", "winter park", "apopka", "ocoee", "winter garden",
	},
	"volusia": {
		"daytona beach", "deltona", "port orange", "ormond beach", "deland",
		"new smyrna beach", "edgewater",
	},
	"indian river": {
		"vero beach", "sebastian", "indian river shores", "fellsmere",
	},
	"st. lucie": {
		"port st. lucie", "fort pierce",
	},
	"martin": {
		"stuart", "jensen beach", "palm city", "indiantown",
	},
}

// NewCountyIndex returns the index for the Florida rail corridor.
func NewCountyIndex() *CountyIndex {
	return &CountyIndex{counties: floridaCounties}
}

// NewCountyIndexWith builds an index over a custom county-to-cities mapping.
// Keys and values are matched case-insensitively.
func NewCountyIndexWith(mapping map[string][]string) *CountyIndex {
	counties := make(map[string][]string, len(mapping))
	for county, cities := range mapping {
		lowered := make([]string, len(cities))
		for i, c := range cities {
			lowered[i] = strings.ToLower(strings.TrimSpace(c))
		}
		counties[strings.ToLower(strings.TrimSpace(county))] = lowered
	}
	return &CountyIndex{counties: counties}
}

// LocationMatchesCounty reports whether a city name is consistent with a
// county: either string contains the other ("Miami-Dade" appears literally
// in some ledger rows), or the city is listed under any county key that is
// a substring of the given county string.
func (x *CountyIndex) LocationMatchesCounty(city, county string) bool {
	city = strings.ToLower(strings.TrimSpace(city))
	county = strings.ToLower(strings.TrimSpace(county))
	if city == "" || county == "" {
		return false
	}
	if strings.Contains(county, city) || strings.Contains(city, county) {
		return true
	}
	for key, cities := range x.counties {
		if !strings.Contains(county, key) {
			continue
		}
		for _, c := range cities {
			if strings.Contains(city, c) || strings.Contains(c, city) {
				return true
			}
		}
	}
	return false
}

// FindCandidates reconciles one ledger record that lacks an official
// identifier against the available government records. Tiers, in order:
//
//  1. Exactly one record on the same date: VERY HIGH, eligible for
//     automatic action.
//  2. Several records on the same date: every one surfaced as HIGH with its
//     corroborating factors noted; the resolver never picks among them.
//  3. No same-day record: records at exactly one day off are MEDIUM.
//  4. Records within three days that also pass the county check are LOW.
//
// A ledger record without a date gets no candidates.
func (x *CountyIndex) FindCandidates(rec model.IncidentRecord, fraRecords []model.FRARecord) []FRACandidate {
	if rec.IncidentDate == nil {
		return nil
	}

	var sameDay []model.FRARecord
	for _, fra := range fraRecords {
		if fra.IncidentDate != nil && DaysApart(*rec.IncidentDate, *fra.IncidentDate) == 0 {
			sameDay = append(sameDay, fra)
		}
	}

	if len(sameDay) == 1 {
		fra := sameDay[0]
		note := "only record on this date"
		if agesMatch(rec, fra) {
			note += " + age match"
		}
		if x.LocationMatchesCounty(rec.LocationCity, fra.CountyName) {
			note += " + location match"
		}
		return []FRACandidate{{Record: fra, Confidence: VeryHigh, Note: note, AutoApply: true}}
	}

	if len(sameDay) > 1 {
		out := make([]FRACandidate, 0, len(sameDay))
		for _, fra := range sameDay {
			// Zero corroborating factors still surfaces as HIGH: the
			// resolver cannot disambiguate same-day records and must show
			// them all for review.
			note := "exact date"
			if x.LocationMatchesCounty(rec.LocationCity, fra.CountyName) {
				note += " + location match"
			}
			if agesMatch(rec, fra) {
				note += " + age match"
			}
			out = append(out, FRACandidate{Record: fra, Confidence: High, Note: note})
		}
		return out
	}

	var out []FRACandidate
	for _, fra := range fraRecords {
		if fra.IncidentDate == nil {
			continue
		}
		diff := DaysApart(*rec.IncidentDate, *fra.IncidentDate)
		switch {
		case diff == 1:
			note := fmt.Sprintf("date off by 1 day (%s)", model.FormatLedgerDate(fra.IncidentDate))
			if x.LocationMatchesCounty(rec.LocationCity, fra.CountyName) {
				note += " + location match"
			}
			if agesMatch(rec, fra) {
				note += " + age match"
			}
			out = append(out, FRACandidate{Record: fra, Confidence: Medium, Note: note})
		case diff <= 3 && x.LocationMatchesCounty(rec.LocationCity, fra.CountyName):
			out = append(out, FRACandidate{
				Record:     fra,
				Confidence: Low,
				Note:       fmt.Sprintf("date off by %d days + location match", diff),
			})
		}
	}
	return out
}

func agesMatch(rec model.IncidentRecord, fra model.FRARecord) bool {
	return rec.VictimAge != nil && fra.Age != nil && *rec.VictimAge == *fra.Age
}
