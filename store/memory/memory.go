// Package memory provides the in-memory graph and run stores: the
// reference process-lifetime storage behavior. Both are safe for
// concurrent use and suited for testing, development and single-process
// deployments; data is lost when the process terminates.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/smallnest/graphflow/graph"
	"github.com/smallnest/graphflow/store"
)

// GraphStore is a mutex-guarded map of graph id to compiled graph.
type GraphStore struct {
	mu     sync.RWMutex
	graphs map[string]*graph.Graph
	order  []string
}

var _ store.GraphStore = (*GraphStore)(nil)

// NewGraphStore creates an empty in-memory graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{graphs: make(map[string]*graph.Graph)}
}

// Put stores a graph under its identifier.
func (s *GraphStore) Put(_ context.Context, g *graph.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.graphs[g.ID()]; !exists {
		s.order = append(s.order, g.ID())
	}
	s.graphs[g.ID()] = g
	return nil
}

// Get returns the graph with the given identifier.
func (s *GraphStore) Get(_ context.Context, id string) (*graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[id]
	if !ok {
		return nil, fmt.Errorf("graph %s: %w", id, store.ErrNotFound)
	}
	return g, nil
}

// List returns all stored graphs in insertion order.
func (s *GraphStore) List(_ context.Context) ([]*graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*graph.Graph, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.graphs[id])
	}
	return out, nil
}

// RunStore is a mutex-guarded map of run id to run record.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*graph.Run
}

var _ store.RunStore = (*RunStore)(nil)

// NewRunStore creates an empty in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*graph.Run)}
}

// Save stores a run record, replacing any record with the same ID.
func (s *RunStore) Save(_ context.Context, run *graph.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// Get returns the run with the given identifier.
func (s *RunStore) Get(_ context.Context, id string) (*graph.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, store.ErrNotFound)
	}
	return run, nil
}

// List returns all stored runs ordered by start time.
func (s *RunStore) List(_ context.Context) ([]*graph.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*graph.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}
