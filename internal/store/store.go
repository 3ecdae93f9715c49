// internal/store/store.go
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"mzflow/pkg/api"
)

// Store is the on-disk project checkpoint. Detection results are saved
// per sample so an interrupted run resumes without reprocessing, and
// the final feature table is kept alongside them.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) a project database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open project %s: %w", path, err)
	}
	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate project %s: %w", path, err)
	}
	logger.Info("project store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sample_sets (
		sample_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		saved_at DATETIME NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS feature_tables (
		run_id TEXT PRIMARY KEY,
		saved_at DATETIME NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		params TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sample_sets_run ON sample_sets(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun registers a run and its parameter snapshot.
func (s *Store) RecordRun(runID string, params any) error {
	blob, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO runs (run_id, started_at, params) VALUES (?, ?, ?)`,
		runID, time.Now().UTC(), string(blob))
	return err
}

// SaveSampleSet checkpoints one sample's refined traces. A re-run of
// the same sample overwrites the previous checkpoint.
func (s *Store) SaveSampleSet(runID string, set *api.SampleSetV1) error {
	blob, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode sample %s: %w", set.SampleID, err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO sample_sets (sample_id, run_id, saved_at, payload) VALUES (?, ?, ?, ?)`,
		set.SampleID, runID, time.Now().UTC(), string(blob))
	if err != nil {
		return fmt.Errorf("save sample %s: %w", set.SampleID, err)
	}
	return nil
}

// LoadSampleSet returns the checkpoint for sampleID, or ok=false when
// the sample has not been processed yet.
func (s *Store) LoadSampleSet(sampleID string) (*api.SampleSetV1, bool, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM sample_sets WHERE sample_id = ?`, sampleID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load sample %s: %w", sampleID, err)
	}
	var set api.SampleSetV1
	if err := json.Unmarshal([]byte(payload), &set); err != nil {
		return nil, false, fmt.Errorf("decode sample %s: %w", sampleID, err)
	}
	return &set, true, nil
}

// SampleIDs lists the checkpointed samples in lexical order.
func (s *Store) SampleIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT sample_id FROM sample_sets ORDER BY sample_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveTable stores the consensus feature table for a run.
func (s *Store) SaveTable(runID string, table *api.FeatureTableV1) error {
	blob, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO feature_tables (run_id, saved_at, payload) VALUES (?, ?, ?)`,
		runID, time.Now().UTC(), string(blob))
	if err != nil {
		return fmt.Errorf("save table: %w", err)
	}
	return nil
}

// LoadTable returns the feature table saved for runID, or ok=false.
func (s *Store) LoadTable(runID string) (*api.FeatureTableV1, bool, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM feature_tables WHERE run_id = ?`, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load table: %w", err)
	}
	var table api.FeatureTableV1
	if err := json.Unmarshal([]byte(payload), &table); err != nil {
		return nil, false, fmt.Errorf("decode table: %w", err)
	}
	return &table, true, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
