// Package ledger provides SQLite persistence for the incident ledger.
package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/railwatch/railwatch/internal/dedup"
	"github.com/railwatch/railwatch/internal/model"
)

// Draft is the writable shape of a new ledger row. Fields are stored as
// text in the ledger's conventions (MM/DD/YYYY dates, comma-joined sources).
type Draft struct {
	Date         string
	Status       string
	IncidentNum  string
	LocationFull string
	LocationCity string
	Name         string
	Age          string
	Sources      []string
	Details      string
	Mode         string
	Gender       string
	Suicide      string
}

// Store handles SQLite persistence. Safe for concurrent use via an internal
// mutex; the matching pipeline itself writes from one goroutine but the
// notifier and CLI may read concurrently.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// StatusDraft marks rows appended by the pipeline and not yet reviewed.
const StatusDraft = "DRAFT"

// Open creates a Store at the given database path, creating tables on first
// use. ":memory:" is supported for tests.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS incidents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT,
		status TEXT NOT NULL DEFAULT 'DRAFT',
		incident_number TEXT,
		location_full TEXT,
		location_city TEXT,
		victim_name TEXT,
		victim_age TEXT,
		victim_gender TEXT,
		mode TEXT,
		details TEXT,
		suicide TEXT,
		sources TEXT,
		latitude TEXT,
		longitude TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_incidents_date ON incidents(date);
	CREATE INDEX IF NOT EXISTS idx_incidents_number ON incidents(incident_number);
	CREATE INDEX IF NOT EXISTS idx_incidents_status ON incidents(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Rows returns every ledger row in insertion order.
func (s *Store) Rows() ([]model.LedgerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, COALESCE(date,''), COALESCE(status,''), COALESCE(incident_number,''),
		       COALESCE(location_full,''), COALESCE(location_city,''), COALESCE(victim_name,''),
		       COALESCE(victim_age,''), COALESCE(sources,''), COALESCE(latitude,''), COALESCE(longitude,'')
		FROM incidents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var out []model.LedgerRow
	for rows.Next() {
		var r model.LedgerRow
		if err := rows.Scan(&r.ID, &r.Date, &r.Status, &r.IncidentNum, &r.LocationFull,
			&r.LocationCity, &r.Name, &r.Age, &r.Sources, &r.Lat, &r.Lon); err != nil {
			return nil, fmt.Errorf("scan incident row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Records returns the ledger normalized into matchable records, in
// insertion order. Row handles refer back to ledger ids.
func (s *Store) Records() ([]model.IncidentRecord, error) {
	rows, err := s.Rows()
	if err != nil {
		return nil, err
	}
	records := make([]model.IncidentRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.RecordFromLedgerRow(row))
	}
	return records, nil
}

// AppendDraft inserts a new draft row and returns its ledger id.
func (s *Store) AppendDraft(d Draft) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := d.Status
	if status == "" {
		status = StatusDraft
	}

	res, err := s.db.Exec(`
		INSERT INTO incidents
			(date, status, incident_number, location_full, location_city,
			 victim_name, victim_age, victim_gender, mode, details, suicide, sources)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Date, status, d.IncidentNum, d.LocationFull, d.LocationCity,
		d.Name, d.Age, d.Gender, d.Mode, d.Details, d.Suicide,
		strings.Join(d.Sources, ", "))
	if err != nil {
		return 0, fmt.Errorf("insert draft: %w", err)
	}
	return res.LastInsertId()
}

// MergeSources folds new source identifiers into an existing row, skipping
// identifiers already present under normalization.
func (s *Store) MergeSources(rowID int64, sources []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing string
	err := s.db.QueryRow(`SELECT COALESCE(sources,'') FROM incidents WHERE id = ?`, rowID).Scan(&existing)
	if err != nil {
		return fmt.Errorf("read sources for row %d: %w", rowID, err)
	}

	merged := dedup.MergeSources(model.SplitSources(existing), sources)
	_, err = s.db.Exec(`UPDATE incidents SET sources = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		strings.Join(merged, ", "), rowID)
	if err != nil {
		return fmt.Errorf("update sources for row %d: %w", rowID, err)
	}
	return nil
}

// SetOfficialRecord attaches a government incident number and, when
// available, coordinates to an existing row.
func (s *Store) SetOfficialRecord(rowID int64, incidentNumber, lat, lon string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE incidents
		SET incident_number = ?,
		    latitude = CASE WHEN ? <> '' THEN ? ELSE latitude END,
		    longitude = CASE WHEN ? <> '' THEN ? ELSE longitude END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		incidentNumber, lat, lat, lon, lon, rowID)
	if err != nil {
		return fmt.Errorf("set official record on row %d: %w", rowID, err)
	}
	return nil
}

// SetCoordinates stores lat/lon on a row without touching anything else.
func (s *Store) SetCoordinates(rowID int64, lat, lon string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE incidents SET latitude = ?, longitude = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		lat, lon, rowID)
	if err != nil {
		return fmt.Errorf("set coordinates on row %d: %w", rowID, err)
	}
	return nil
}
