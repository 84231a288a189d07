package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/graphflow/log"
)

// DefaultMaxSteps is the step budget applied when a run does not specify
// its own.
const DefaultMaxSteps = 50

// Runner executes compiled graphs. A single Runner may serve many
// concurrent runs; each run owns its state and trace exclusively and runs
// strictly sequentially, one node at a time.
type Runner struct {
	resolver    ToolResolver
	logger      log.Logger
	maxSteps    int
	nodeTimeout time.Duration
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used for per-step diagnostics.
func WithLogger(logger log.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithMaxSteps sets the default step budget for runs that do not specify
// one.
func WithMaxSteps(n int) RunnerOption {
	return func(r *Runner) { r.maxSteps = n }
}

// WithNodeTimeout bounds each tool invocation by a wall-clock timeout. A
// tool body that blocks past the deadline fails the run; without it a tool
// with no yield point could block the engine indefinitely.
func WithNodeTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.nodeTimeout = d }
}

// NewRunner creates a Runner that resolves node tools through the given
// resolver.
func NewRunner(resolver ToolResolver, opts ...RunnerOption) *Runner {
	r := &Runner{
		resolver: resolver,
		logger:   log.Default(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the graph from its entry point, threading state from node
// to node and recording one trace entry per invocation, until a finish
// point, the END sentinel, a dead end, a failure, or the step budget.
// maxSteps <= 0 selects the Runner's default budget.
//
// Run never returns an error: every failure terminates the run with status
// failed and is recorded on the returned Run. The number of invocations
// never exceeds the step budget; the budget is checked before each
// invocation.
func (r *Runner) Run(ctx context.Context, g *Graph, initial State, maxSteps int) *Run {
	if maxSteps <= 0 {
		maxSteps = r.maxSteps
	}

	run := &Run{
		ID:        uuid.NewString(),
		GraphID:   g.ID(),
		StartedAt: time.Now(),
	}

	state := initial
	if state == nil {
		state = State{}
	}

	current := g.EntryPoint()
	r.logger.Debug("run %s: graph %s starting at %s, budget %d", run.ID, g.ID(), current, maxSteps)

	for step := 0; step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("run %s: cancelled before node %s: %v", run.ID, current, err)
			run.fail(current, state, fmt.Errorf("run cancelled: %w", err))
			return run
		}

		node, _ := g.Node(current)
		fn, err := r.resolver.ResolveTool(node.Tool)
		if err != nil {
			r.logger.Warn("run %s: node %s: %v", run.ID, current, err)
			run.fail(current, state, err)
			return run
		}

		started := time.Now()
		next, err := r.invoke(ctx, fn, state)
		if err != nil {
			r.logger.Warn("run %s: node %s failed after %d steps: %v", run.ID, current, step, err)
			run.fail(current, state, &ToolError{Node: current, Err: err})
			return run
		}
		state = next

		entry := TraceEntry{
			Step:      step,
			Node:      current,
			Timestamp: started,
			Duration:  time.Since(started),
			State:     state.Clone(),
		}

		if g.IsFinishPoint(current) {
			run.Trace = append(run.Trace, entry)
			run.finish(StatusCompleted, state)
			r.logger.Debug("run %s: completed at finish point %s in %d steps", run.ID, current, run.Steps())
			return run
		}

		target, hasRoute := g.route(ctx, current, state)
		if !hasRoute {
			// Dead end: natural termination.
			run.Trace = append(run.Trace, entry)
			run.finish(StatusCompleted, state)
			r.logger.Debug("run %s: completed at dead end %s in %d steps", run.ID, current, run.Steps())
			return run
		}

		entry.Next = target
		run.Trace = append(run.Trace, entry)

		if target == END {
			run.finish(StatusCompleted, state)
			r.logger.Debug("run %s: completed via END after %s in %d steps", run.ID, current, run.Steps())
			return run
		}
		if _, exists := g.Node(target); !exists {
			// Plain edges are validated at compile time, so only a router
			// can produce an unknown target.
			run.fail(current, state, &RoutingError{Node: current, Target: target})
			r.logger.Warn("run %s: %v", run.ID, run.Err)
			return run
		}

		current = target
	}

	run.finish(StatusMaxStepsExceeded, state)
	r.logger.Info("run %s: step budget %d exhausted at node %s", run.ID, maxSteps, current)
	return run
}

// invoke calls the tool, recovering panics and applying the per-node
// timeout when one is configured.
func (r *Runner) invoke(ctx context.Context, fn ToolFunc, state State) (State, error) {
	if r.nodeTimeout <= 0 {
		return safeCall(ctx, fn, state)
	}

	ctx, cancel := context.WithTimeout(ctx, r.nodeTimeout)
	defer cancel()

	type result struct {
		state State
		err   error
	}
	// The tool runs on a private copy: if it ignores ctx and outlives the
	// deadline, the abandoned goroutine must not keep mutating the map the
	// run record retains.
	done := make(chan result, 1)
	go func() {
		s, err := safeCall(ctx, fn, state.Clone())
		done <- result{state: s, err: err}
	}()

	select {
	case res := <-done:
		return res.state, res.err
	case <-ctx.Done():
		// The tool body keeps running in the background; its result is
		// discarded.
		return nil, ctx.Err()
	}
}

func safeCall(ctx context.Context, fn ToolFunc, state State) (out State, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, state)
}
