// Package sqlite provides a RunStore backed by SQLite: serverless,
// file-based and zero configuration, suited for single-process deployments
// that want run history to survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/graphflow/graph"
	"github.com/smallnest/graphflow/store"
)

// RunStore implements store.RunStore using SQLite. The full run record is
// stored as JSON, with the fields the queries need lifted into columns.
type RunStore struct {
	db        *sql.DB
	tableName string
}

var _ store.RunStore = (*RunStore)(nil)

// Options configures the SQLite connection.
type Options struct {
	Path      string
	TableName string // Default "runs"
}

// NewRunStore opens the database and initializes the schema.
func NewRunStore(opts Options) (*RunStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "runs"
	}

	s := &RunStore{db: db, tableName: tableName}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the runs table if it doesn't exist.
func (s *RunStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			graph_id TEXT NOT NULL,
			status TEXT NOT NULL,
			record TEXT NOT NULL,
			started_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_graph_id ON %s (graph_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// Save stores a run record, replacing any record with the same ID.
func (s *RunStore) Save(ctx context.Context, run *graph.Run) error {
	record, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, graph_id, status, record, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			graph_id = excluded.graph_id,
			status = excluded.status,
			record = excluded.record,
			started_at = excluded.started_at
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		run.ID,
		run.GraphID,
		string(run.Status),
		string(record),
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get returns the run with the given identifier.
func (s *RunStore) Get(ctx context.Context, id string) (*graph.Run, error) {
	query := fmt.Sprintf("SELECT record FROM %s WHERE id = ?", s.tableName)

	var record string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&record)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var run graph.Run
	if err := json.Unmarshal([]byte(record), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// List returns all stored runs ordered by start time.
func (s *RunStore) List(ctx context.Context) ([]*graph.Run, error) {
	query := fmt.Sprintf("SELECT record FROM %s ORDER BY started_at ASC, id ASC", s.tableName)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*graph.Run
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		var run graph.Run
		if err := json.Unmarshal([]byte(record), &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}
