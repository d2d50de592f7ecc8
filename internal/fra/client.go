// Package fra queries the federal casualty database (Form 55a) through the
// Socrata Open Data API at data.transportation.gov.
package fra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/railwatch/railwatch/internal/model"
)

// sodaRecord is the wire shape of one casualty row. Every field arrives as
// a string; numerics are parsed leniently because the dataset has gaps.
type sodaRecord struct {
	IncidentNumber string `json:"incident_number"`
	Date           string `json:"date"` // ISO: 2024-01-15T00:00:00.000
	Time           string `json:"time"`
	CountyName     string `json:"county_name"`
	StateName      string `json:"state_name"`
	Latitude       string `json:"latitude"`
	Longitude      string `json:"longitude"`
	AgeOfPerson    string `json:"age_of_person"`
	InjuryIllness  string `json:"injury_illness"`
	TypeOfPerson   string `json:"type_of_person"`
	Narrative      string `json:"narrative"`
	RailroadName   string `json:"railroad_name"`
}

// Client fetches casualty records for the configured railroads.
type Client struct {
	cfg    model.FRAConfig
	client *http.Client
	log    zerolog.Logger
	now    func() time.Time
}

// NewClient creates a client. The app token is optional; without one the
// API applies shared rate limits.
func NewClient(cfg model.FRAConfig, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    log,
		now:    time.Now,
	}
}

// buildWhere constructs the SoQL filter over railroad names and a date
// cutoff. Railroad naming in the dataset is inconsistent, so every
// configured variant is OR'd together.
func (c *Client) buildWhere(cutoff string) string {
	conditions := make([]string, 0, len(c.cfg.Railroads))
	for _, name := range c.cfg.Railroads {
		conditions = append(conditions, fmt.Sprintf("railroad_name='%s'", strings.ReplaceAll(name, "'", "''")))
	}
	where := "(" + strings.Join(conditions, " OR ") + ")"
	if cutoff != "" {
		where += fmt.Sprintf(" AND date >= '%s'", cutoff)
	}
	if c.cfg.State != "" {
		where += fmt.Sprintf(" AND upper(state_name)='%s'", strings.ToUpper(c.cfg.State))
	}
	return where
}

// RecentFatalities returns fatal records from the last DaysBackFRA days,
// newest first.
func (c *Client) RecentFatalities(ctx context.Context) ([]model.FRARecord, error) {
	cutoff := c.now().UTC().AddDate(0, 0, -c.cfg.DaysBackFRA).Format("2006-01-02")
	return c.query(ctx, c.buildWhere(cutoff))
}

// AllFatalities returns every fatal record for the configured railroads.
// Used by the backfill command to reconcile the whole ledger.
func (c *Client) AllFatalities(ctx context.Context) ([]model.FRARecord, error) {
	return c.query(ctx, c.buildWhere(""))
}

// ByIncidentNumber fetches one record by its official identifier.
func (c *Client) ByIncidentNumber(ctx context.Context, number string) (*model.FRARecord, error) {
	where := fmt.Sprintf("incident_number='%s'", strings.ReplaceAll(number, "'", "''"))
	records, err := c.query(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (c *Client) query(ctx context.Context, where string) ([]model.FRARecord, error) {
	params := url.Values{}
	params.Set("$where", where)
	params.Set("$order", "date DESC")
	params.Set("$limit", "1000")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build FRA request: %w", err)
	}
	if c.cfg.AppToken != "" {
		req.Header.Set("X-App-Token", c.cfg.AppToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query FRA: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FRA API: HTTP %d", resp.StatusCode)
	}

	var rows []sodaRecord
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode FRA response: %w", err)
	}

	records := make([]model.FRARecord, 0, len(rows))
	for _, row := range rows {
		// Only fatalities; the dataset also carries injuries.
		injury := strings.ToLower(row.InjuryIllness)
		if !strings.Contains(injury, "fatal") && !strings.Contains(injury, "death") {
			continue
		}
		records = append(records, rowToRecord(row))
	}
	c.log.Debug().Int("rows", len(rows)).Int("fatalities", len(records)).Msg("FRA query complete")
	return records, nil
}

// rowToRecord converts a wire row, tolerating missing or malformed
// numerics and dates.
func rowToRecord(row sodaRecord) model.FRARecord {
	rec := model.FRARecord{
		IncidentNumber: row.IncidentNumber,
		Time:           row.Time,
		CountyName:     row.CountyName,
		StateName:      row.StateName,
		InjuryIllness:  row.InjuryIllness,
		TypeOfPerson:   row.TypeOfPerson,
		Narrative:      row.Narrative,
		RailroadName:   row.RailroadName,
	}

	if len(row.Date) >= 10 {
		if parsed, err := time.Parse("2006-01-02", row.Date[:10]); err == nil {
			rec.IncidentDate = &parsed
		}
	}
	if v, err := strconv.ParseFloat(row.Latitude, 64); err == nil {
		rec.Latitude = &v
	}
	if v, err := strconv.ParseFloat(row.Longitude, 64); err == nil {
		rec.Longitude = &v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(row.AgeOfPerson)); err == nil {
		rec.Age = &v
	}
	return rec
}
