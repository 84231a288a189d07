// Package postgres provides a RunStore backed by PostgreSQL, for
// production deployments that archive run history. Records are stored as
// JSONB with the queried fields lifted into columns.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/graphflow/graph"
	"github.com/smallnest/graphflow/store"
)

// DBPool is the connection-pool surface the store needs. pgxpool.Pool
// implements it; pgxmock implements it for tests.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// RunStore implements store.RunStore using PostgreSQL.
type RunStore struct {
	pool      DBPool
	tableName string
}

var _ store.RunStore = (*RunStore)(nil)

// Options configures the Postgres connection.
type Options struct {
	ConnString string
	TableName  string // Default "runs"
}

// NewRunStore creates a Postgres-backed run store with a new pool.
func NewRunStore(ctx context.Context, opts Options) (*RunStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	tableName := opts.TableName
	if tableName == "" {
		tableName = "runs"
	}
	return &RunStore{pool: pool, tableName: tableName}, nil
}

// NewRunStoreWithPool creates a run store with an existing pool. Useful
// for testing with mocks.
func NewRunStoreWithPool(pool DBPool, tableName string) *RunStore {
	if tableName == "" {
		tableName = "runs"
	}
	return &RunStore{pool: pool, tableName: tableName}
}

// InitSchema creates the runs table if it doesn't exist.
func (s *RunStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			graph_id TEXT NOT NULL,
			status TEXT NOT NULL,
			record JSONB NOT NULL,
			started_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_graph_id ON %s (graph_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *RunStore) Close() {
	s.pool.Close()
}

// Save stores a run record, replacing any record with the same ID.
func (s *RunStore) Save(ctx context.Context, run *graph.Run) error {
	record, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, graph_id, status, record, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			graph_id = EXCLUDED.graph_id,
			status = EXCLUDED.status,
			record = EXCLUDED.record,
			started_at = EXCLUDED.started_at
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		run.ID,
		run.GraphID,
		string(run.Status),
		record,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get returns the run with the given identifier.
func (s *RunStore) Get(ctx context.Context, id string) (*graph.Run, error) {
	query := fmt.Sprintf("SELECT record FROM %s WHERE id = $1", s.tableName)

	var record []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var run graph.Run
	if err := json.Unmarshal(record, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// List returns all stored runs ordered by start time.
func (s *RunStore) List(ctx context.Context) ([]*graph.Run, error) {
	query := fmt.Sprintf("SELECT record FROM %s ORDER BY started_at ASC, id ASC", s.tableName)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*graph.Run
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		var run graph.Run
		if err := json.Unmarshal(record, &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}
