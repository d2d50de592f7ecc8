package model

import (
	"fmt"
	"time"
)

// FRARecord is a row from the FRA casualty database (Form 55a). Government
// records never include a victim name and locate incidents at county level
// only; matching them against the ledger goes through the geographic
// co-location resolver rather than name-weighted scoring.
type FRARecord struct {
	IncidentNumber string
	IncidentDate   *time.Time
	Time           string
	CountyName     string
	StateName      string
	Latitude       *float64
	Longitude      *float64
	Age            *int
	InjuryIllness  string
	TypeOfPerson   string // Trespasser, Passenger, ...
	Narrative      string
	RailroadName   string
}

// HasCoordinates reports whether the record carries a usable lat/lon pair.
func (r FRARecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// GoogleMapsLink returns a maps URL for the record's coordinates, or "".
// The link is an opaque string as far as matching is concerned.
func (r FRARecord) GoogleMapsLink() string {
	if !r.HasCoordinates() {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps?q=%v,%v", *r.Latitude, *r.Longitude)
}
