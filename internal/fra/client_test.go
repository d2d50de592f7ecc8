package fra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/railwatch/railwatch/internal/model"
)

const testResponse = `[
  {
    "incident_number": "HQ2024001",
    "date": "2024-03-10T00:00:00.000",
    "time": "06:45",
    "county_name": "PALM BEACH",
    "state_name": "FLORIDA",
    "latitude": "26.3587",
    "longitude": "-80.0831",
    "age_of_person": "45",
    "injury_illness": "Fatal",
    "type_of_person": "Trespasser",
    "narrative": "Struck by train at crossing.",
    "railroad_name": "Brightline Train"
  },
  {
    "incident_number": "HQ2024002",
    "date": "2024-03-11T00:00:00.000",
    "county_name": "BROWARD",
    "state_name": "FLORIDA",
    "injury_illness": "Injury",
    "railroad_name": "Brightline Train"
  },
  {
    "incident_number": "HQ2024003",
    "date": "bad-date",
    "county_name": "BROWARD",
    "age_of_person": "unknown",
    "injury_illness": "Fatal",
    "railroad_name": "Brightline Train"
  }
]`

func testClient(serverURL string) *Client {
	c := NewClient(model.FRAConfig{
		BaseURL:     serverURL,
		Railroads:   []string{"Brightline Train", "Florida East Coast Railway Company"},
		State:       "FLORIDA",
		DaysBackFRA: 90,
	}, 5*time.Second, zerolog.Nop())
	c.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestRecentFatalities(t *testing.T) {
	var gotWhere, gotOrder string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWhere = r.URL.Query().Get("$where")
		gotOrder = r.URL.Query().Get("$order")
		w.Write([]byte(testResponse))
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).RecentFatalities(context.Background())
	if err != nil {
		t.Fatalf("RecentFatalities: %v", err)
	}

	// The injury row is dropped; the malformed row survives with nil fields.
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.IncidentNumber != "HQ2024001" || first.CountyName != "PALM BEACH" {
		t.Errorf("unexpected first record %+v", first)
	}
	if first.IncidentDate == nil || first.IncidentDate.Format("2006-01-02") != "2024-03-10" {
		t.Errorf("date = %v", first.IncidentDate)
	}
	if first.Age == nil || *first.Age != 45 {
		t.Errorf("age = %v", first.Age)
	}
	if !first.HasCoordinates() {
		t.Error("coordinates should be parsed")
	}

	malformed := records[1]
	if malformed.IncidentDate != nil || malformed.Age != nil || malformed.HasCoordinates() {
		t.Errorf("malformed fields should be nil: %+v", malformed)
	}

	for _, want := range []string{
		"railroad_name='Brightline Train'",
		"railroad_name='Florida East Coast Railway Company'",
		"date >= '2023-12-16'",
		"upper(state_name)='FLORIDA'",
	} {
		if !strings.Contains(gotWhere, want) {
			t.Errorf("$where = %q, missing %q", gotWhere, want)
		}
	}
	if gotOrder != "date DESC" {
		t.Errorf("$order = %q", gotOrder)
	}
}

func TestByIncidentNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Query().Get("$where"), "incident_number='HQ2024001'") {
			w.Write([]byte("[]"))
			return
		}
		w.Write([]byte(testResponse[:strings.Index(testResponse, "},")+1] + "]"))
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL).ByIncidentNumber(context.Background(), "HQ2024001")
	if err != nil {
		t.Fatalf("ByIncidentNumber: %v", err)
	}
	if rec == nil || rec.IncidentNumber != "HQ2024001" {
		t.Errorf("rec = %+v", rec)
	}

	missing, err := testClient(srv.URL).ByIncidentNumber(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("ByIncidentNumber: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown number, got %+v", missing)
	}
}

func TestQuery_SendsAppToken(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-App-Token")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.cfg.AppToken = "secret"
	if _, err := c.RecentFatalities(context.Background()); err != nil {
		t.Fatalf("RecentFatalities: %v", err)
	}
	if gotToken != "secret" {
		t.Errorf("X-App-Token = %q", gotToken)
	}
}

func TestQuery_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).RecentFatalities(context.Background()); err == nil {
		t.Error("expected error on HTTP 429")
	}
}
