package sitetraffic

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// ResultStore Persists computed simulation results across sessions
type ResultStore interface {
	Load(projectID, date string, hour int) (*SimulationResult, bool)
	Save(projectID string, result *SimulationResult) error
}

// FSResultStore Stores one JSON file per result under
// <root>/<project>/<date>/<hour>.json
type FSResultStore struct {
	Root string
}

// NewFSResultStore creates store over given directory
func NewFSResultStore(root string) *FSResultStore {
	return &FSResultStore{Root: root}
}

func (s *FSResultStore) fname(projectID, date string, hour int) string {
	return filepath.Join(s.Root, projectID, date, fmt.Sprintf("%d.json", hour))
}

// Load returns the stored result if present and readable
func (s *FSResultStore) Load(projectID, date string, hour int) (*SimulationResult, bool) {
	data, err := os.ReadFile(s.fname(projectID, date, hour))
	if err != nil {
		return nil, false
	}
	result := &SimulationResult{}
	if err := json.Unmarshal(data, result); err != nil {
		os.Remove(s.fname(projectID, date, hour))
		return nil, false
	}
	return result, true
}

// Save persists the result, replacing any previous entry
func (s *FSResultStore) Save(projectID string, result *SimulationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "Can't encode result")
	}
	return writeFileAtomic(s.fname(projectID, result.Date, result.Hour), data)
}

// SQLiteResultStore Stores results in a single sqlite database. Suited for
// deployments where one file per hour is too many small files.
type SQLiteResultStore struct {
	db *sql.DB
}

// NewSQLiteResultStore opens (and if needed bootstraps) the database at fname
func NewSQLiteResultStore(fname string) (*SQLiteResultStore, error) {
	db, err := sql.Open("sqlite", fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open results database")
	}
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS simulation_results (
		project_id TEXT NOT NULL,
		date       TEXT NOT NULL,
		hour       INTEGER NOT NULL,
		payload    TEXT NOT NULL,
		PRIMARY KEY (project_id, date, hour)
	);`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "Can't create results table")
	}
	return &SQLiteResultStore{db: db}, nil
}

// Load returns the stored result if present and decodable
func (s *SQLiteResultStore) Load(projectID, date string, hour int) (*SimulationResult, bool) {
	var payload string
	err := s.db.QueryRow(`
	SELECT payload FROM simulation_results
	WHERE project_id = ? AND date = ? AND hour = ?;`, projectID, date, hour).Scan(&payload)
	if err != nil {
		return nil, false
	}
	result := &SimulationResult{}
	if err := json.Unmarshal([]byte(payload), result); err != nil {
		return nil, false
	}
	return result, true
}

// Save persists the result, replacing any previous entry
func (s *SQLiteResultStore) Save(projectID string, result *SimulationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "Can't encode result")
	}
	_, err = s.db.Exec(`
	INSERT OR REPLACE INTO simulation_results (project_id, date, hour, payload)
	VALUES (?, ?, ?, ?);`, projectID, result.Date, result.Hour, string(payload))
	if err != nil {
		return errors.Wrap(err, "Can't store result")
	}
	return nil
}

// Close releases the underlying database handle
func (s *SQLiteResultStore) Close() error {
	return s.db.Close()
}
