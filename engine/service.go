// Package engine wires the graph runner, the tool registry and the graph
// and run stores into the programmatic service the boundary layer calls:
// create a graph, run it, fetch and enumerate the results.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/smallnest/graphflow/graph"
	"github.com/smallnest/graphflow/log"
	"github.com/smallnest/graphflow/store"
	"github.com/smallnest/graphflow/store/memory"
	"github.com/smallnest/graphflow/tool"
)

// GraphSummary describes a stored graph for enumeration.
type GraphSummary struct {
	GraphID   string `json:"graph_id"`
	Name      string `json:"name"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// RunSummary describes a stored run for enumeration.
type RunSummary struct {
	RunID     string       `json:"run_id"`
	GraphID   string       `json:"graph_id"`
	Status    graph.Status `json:"status"`
	StartedAt time.Time    `json:"started_at"`
}

// Service is the boundary-facing facade over the execution engine.
// Separate callers may run graphs concurrently; each run owns its state
// exclusively, while the registry and the stores are shared.
type Service struct {
	registry *tool.Registry
	runner   *graph.Runner
	graphs   store.GraphStore
	runs     store.RunStore
	logger   log.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithGraphStore replaces the default in-memory graph store.
func WithGraphStore(s store.GraphStore) ServiceOption {
	return func(svc *Service) { svc.graphs = s }
}

// WithRunStore replaces the default in-memory run store.
func WithRunStore(s store.RunStore) ServiceOption {
	return func(svc *Service) { svc.runs = s }
}

// WithServiceLogger sets the logger.
func WithServiceLogger(logger log.Logger) ServiceOption {
	return func(svc *Service) { svc.logger = logger }
}

// WithRunner replaces the default runner, for callers that need per-node
// timeouts or a different default step budget.
func WithRunner(r *graph.Runner) ServiceOption {
	return func(svc *Service) { svc.runner = r }
}

// NewService creates a service around the given registry. Stores default
// to the in-memory implementations.
func NewService(registry *tool.Registry, opts ...ServiceOption) *Service {
	svc := &Service{
		registry: registry,
		graphs:   memory.NewGraphStore(),
		runs:     memory.NewRunStore(),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.runner == nil {
		svc.runner = graph.NewRunner(registry, graph.WithLogger(svc.logger))
	}
	return svc
}

// CreateGraph compiles a declarative definition and stores the graph,
// returning its generated identifier. Validation errors escape here and
// never during a run.
func (s *Service) CreateGraph(ctx context.Context, spec Spec) (string, error) {
	g, err := spec.Build(s.registry)
	if err != nil {
		return "", err
	}
	for _, w := range g.Warnings() {
		s.logger.Warn("graph %s: %s", g.ID(), w)
	}
	if err := s.graphs.Put(ctx, g); err != nil {
		return "", fmt.Errorf("failed to store graph: %w", err)
	}
	s.logger.Info("graph %s (%s) created with %d nodes", g.ID(), g.Name(), len(g.Nodes()))
	return g.ID(), nil
}

// RegisterGraph stores an already compiled graph, for workflows built
// programmatically rather than from a declarative definition.
func (s *Service) RegisterGraph(ctx context.Context, g *graph.Graph) (string, error) {
	if err := s.graphs.Put(ctx, g); err != nil {
		return "", fmt.Errorf("failed to store graph: %w", err)
	}
	return g.ID(), nil
}

// RunGraph executes a stored graph with the caller-supplied initial state
// and step budget (maxSteps <= 0 selects the default). The run record is
// persisted before it is returned, failed runs included.
func (s *Service) RunGraph(ctx context.Context, graphID string, initial graph.State, maxSteps int) (*graph.Run, error) {
	g, err := s.graphs.Get(ctx, graphID)
	if err != nil {
		return nil, err
	}

	run := s.runner.Run(ctx, g, initial, maxSteps)

	if err := s.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to store run %s: %w", run.ID, err)
	}
	s.logger.Info("run %s of graph %s finished: %s (%d steps)", run.ID, graphID, run.Status, run.Steps())
	return run, nil
}

// GetRun returns a stored run record.
func (s *Service) GetRun(ctx context.Context, runID string) (*graph.Run, error) {
	return s.runs.Get(ctx, runID)
}

// GetGraph returns a stored graph.
func (s *Service) GetGraph(ctx context.Context, graphID string) (*graph.Graph, error) {
	return s.graphs.Get(ctx, graphID)
}

// ListGraphs enumerates stored graphs.
func (s *Service) ListGraphs(ctx context.Context) ([]GraphSummary, error) {
	graphs, err := s.graphs.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]GraphSummary, 0, len(graphs))
	for _, g := range graphs {
		out = append(out, GraphSummary{
			GraphID:   g.ID(),
			Name:      g.Name(),
			NodeCount: len(g.Nodes()),
			EdgeCount: len(g.Edges()) + len(g.RoutedNodes()),
		})
	}
	return out, nil
}

// ListRuns enumerates stored runs.
func (s *Service) ListRuns(ctx context.Context) ([]RunSummary, error) {
	runs, err := s.runs.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunSummary{
			RunID:     run.ID,
			GraphID:   run.GraphID,
			Status:    run.Status,
			StartedAt: run.StartedAt,
		})
	}
	return out, nil
}

// ListTools returns the tool name to description mapping of the registry.
func (s *Service) ListTools() map[string]string {
	return s.registry.Tools()
}

// ListRouters returns the router name to description mapping of the
// registry.
func (s *Service) ListRouters() map[string]string {
	return s.registry.Routers()
}
