// Package store defines the identifier-keyed stores the boundary layer
// uses to keep graphs and run records alive between calls.
//
// The reference behavior is volatile, process-lifetime storage (see
// store/memory). Run records are plain data and serialize as JSON, so
// durable substitutions exist for three backends:
//   - store/sqlite: file-based, zero configuration
//   - store/redis: in-memory with optional TTL
//   - store/postgres: production-grade relational storage
//
// Graphs carry compiled routing functions and therefore only live in the
// in-memory store; their declarative definitions are the unit the boundary
// layer persists if it needs durable graphs.
package store

import (
	"context"
	"errors"

	"github.com/smallnest/graphflow/graph"
)

// ErrNotFound is returned when a graph or run identifier is unknown.
var ErrNotFound = errors.New("not found")

// GraphStore keeps compiled graphs by identifier.
type GraphStore interface {
	// Put stores a graph under its identifier.
	Put(ctx context.Context, g *graph.Graph) error

	// Get returns the graph with the given identifier, or ErrNotFound.
	Get(ctx context.Context, id string) (*graph.Graph, error)

	// List returns all stored graphs.
	List(ctx context.Context) ([]*graph.Graph, error)
}

// RunStore keeps run records by identifier.
type RunStore interface {
	// Save stores a run record, replacing any record with the same ID.
	Save(ctx context.Context, run *graph.Run) error

	// Get returns the run with the given identifier, or ErrNotFound.
	Get(ctx context.Context, id string) (*graph.Run, error)

	// List returns all stored runs ordered by start time.
	List(ctx context.Context) ([]*graph.Run, error)
}
