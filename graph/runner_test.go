package graph

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/graphflow/log"
)

func newTestRunner(resolver ToolResolver, opts ...RunnerOption) *Runner {
	opts = append([]RunnerOption{WithLogger(log.NopLogger{})}, opts...)
	return NewRunner(resolver, opts...)
}

func TestRunLinearPipeline(t *testing.T) {
	resolver := mapResolver{
		"greet": func(_ context.Context, state State) (State, error) {
			state["greeting"] = "hello " + state.GetString("name")
			return state, nil
		},
		"shout": func(_ context.Context, state State) (State, error) {
			state["greeting"] = state.GetString("greeting") + "!"
			return state, nil
		},
	}

	g, err := NewBuilder("greeter").
		AddNode("greet", "greet", "").
		AddNode("shout", "shout", "").
		AddEdge("greet", "shout").
		SetEntryPoint("greet").
		AddFinishPoint("shout").
		Compile()
	require.NoError(t, err)

	run := newTestRunner(resolver).Run(context.Background(), g, State{"name": "world"}, 10)

	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, "hello world!", run.FinalState.GetString("greeting"))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, g.ID(), run.GraphID)
	assert.Empty(t, run.FailedNode)
	assert.Empty(t, run.Error)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	// The finish point is invoked and traced before the run completes.
	require.Equal(t, 2, run.Steps())
	assert.Equal(t, 0, run.Trace[0].Step)
	assert.Equal(t, "greet", run.Trace[0].Node)
	assert.Equal(t, "shout", run.Trace[0].Next)
	assert.Equal(t, 1, run.Trace[1].Step)
	assert.Equal(t, "shout", run.Trace[1].Node)
	assert.Empty(t, run.Trace[1].Next)
}

func TestRunTraceSnapshotsAreIsolated(t *testing.T) {
	resolver := mapResolver{
		"bump": func(_ context.Context, state State) (State, error) {
			state["n"] = state.GetInt("n") + 1
			return state, nil
		},
	}

	g, err := NewBuilder("counter").
		AddNode("first", "bump", "").
		AddNode("second", "bump", "").
		AddEdge("first", "second").
		SetEntryPoint("first").
		AddFinishPoint("second").
		Compile()
	require.NoError(t, err)

	run := newTestRunner(resolver).Run(context.Background(), g, State{"n": 0}, 10)

	require.Equal(t, StatusCompleted, run.Status)
	require.Equal(t, 2, run.Steps())
	// Each snapshot keeps the value at its own step, not the final one.
	assert.Equal(t, 1, run.Trace[0].State.GetInt("n"))
	assert.Equal(t, 2, run.Trace[1].State.GetInt("n"))
	assert.Equal(t, 2, run.FinalState.GetInt("n"))
}

func TestRunConditionalLoop(t *testing.T) {
	resolver := mapResolver{
		"bump_score": func(_ context.Context, state State) (State, error) {
			state["score"] = state.GetInt("score") + 20
			return state, nil
		},
	}

	build := func(threshold int) *Graph {
		g, err := NewBuilder("loop").
			AddNode("bump", "bump_score", "").
			AddConditionalEdge("bump", func(_ context.Context, state State) string {
				if state.GetInt("score") >= threshold {
					return END
				}
				return "bump"
			}).
			SetEntryPoint("bump").
			Compile()
		require.NoError(t, err)
		return g
	}

	t.Run("budget exhausted", func(t *testing.T) {
		run := newTestRunner(resolver).Run(context.Background(), build(110), State{"score": 40}, 3)

		assert.Equal(t, StatusMaxStepsExceeded, run.Status)
		require.Equal(t, 3, run.Steps())
		assert.Equal(t, 100, run.FinalState.GetInt("score"))
		// The loop guard is not a failure.
		assert.Empty(t, run.FailedNode)
		assert.Empty(t, run.Error)
		for i, entry := range run.Trace {
			assert.Equal(t, i, entry.Step)
			assert.Equal(t, "bump", entry.Node)
			assert.Equal(t, "bump", entry.Next)
		}
	})

	t.Run("router terminates on the last allowed step", func(t *testing.T) {
		run := newTestRunner(resolver).Run(context.Background(), build(100), State{"score": 40}, 3)

		assert.Equal(t, StatusCompleted, run.Status)
		require.Equal(t, 3, run.Steps())
		assert.Equal(t, 100, run.FinalState.GetInt("score"))
		assert.Equal(t, END, run.Trace[2].Next)
	})
}

func TestRunToolNotFound(t *testing.T) {
	g, err := NewBuilder("g").
		AddNode("a", "unregistered", "").
		SetEntryPoint("a").
		AddFinishPoint("a").
		Compile()
	require.NoError(t, err)

	run := newTestRunner(mapResolver{}).Run(context.Background(), g, State{"input": 1}, 10)

	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "a", run.FailedNode)
	assert.ErrorIs(t, run.Err, ErrToolNotFound)
	assert.Contains(t, run.Error, "unregistered")
	// A failed attempt leaves no trace entry.
	assert.Zero(t, run.Steps())
	// The state from before the attempt is retained.
	assert.Equal(t, 1, run.FinalState.GetInt("input"))
}

func TestRunToolError(t *testing.T) {
	boom := errors.New("boom")
	resolver := mapResolver{
		"ok": func(_ context.Context, state State) (State, error) {
			state["ok"] = true
			return state, nil
		},
		"fail": func(context.Context, State) (State, error) {
			return nil, boom
		},
	}

	g, err := NewBuilder("g").
		AddNode("a", "ok", "").
		AddNode("b", "fail", "").
		AddEdge("a", "b").
		SetEntryPoint("a").
		AddFinishPoint("b").
		Compile()
	require.NoError(t, err)

	run := newTestRunner(resolver).Run(context.Background(), g, State{}, 10)

	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "b", run.FailedNode)
	assert.ErrorIs(t, run.Err, boom)

	var terr *ToolError
	require.ErrorAs(t, run.Err, &terr)
	assert.Equal(t, "b", terr.Node)

	// Only the successful step is traced; the failing attempt is not.
	require.Equal(t, 1, run.Steps())
	assert.Equal(t, "a", run.Trace[0].Node)
	assert.Equal(t, true, run.FinalState["ok"])
}

func TestRunRouterUnknownTarget(t *testing.T) {
	resolver := mapResolver{"noop": passThrough}

	g, err := NewBuilder("g").
		AddNode("a", "noop", "").
		AddConditionalEdge("a", func(context.Context, State) string { return "nowhere" }).
		SetEntryPoint("a").
		Compile()
	require.NoError(t, err)

	run := newTestRunner(resolver).Run(context.Background(), g, State{}, 10)

	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "a", run.FailedNode)

	var rerr *RoutingError
	require.ErrorAs(t, run.Err, &rerr)
	assert.Equal(t, "a", rerr.Node)
	assert.Equal(t, "nowhere", rerr.Target)

	// The node itself executed fine, so its invocation is traced.
	require.Equal(t, 1, run.Steps())
	assert.Equal(t, "nowhere", run.Trace[0].Next)
}

func TestRunDeadEndCompletes(t *testing.T) {
	resolver := mapResolver{"noop": passThrough}

	g, err := NewBuilder("g").
		AddNode("a", "noop", "").
		SetEntryPoint("a").
		Compile()
	require.NoError(t, err)
	require.NotEmpty(t, g.Warnings())

	run := newTestRunner(resolver).Run(context.Background(), g, State{}, 10)

	assert.Equal(t, StatusCompleted, run.Status)
	require.Equal(t, 1, run.Steps())
	assert.Empty(t, run.Trace[0].Next)
}

func TestRunEndSentinelEdge(t *testing.T) {
	resolver := mapResolver{"noop": passThrough}

	g, err := NewBuilder("g").
		AddNode("a", "noop", "").
		AddEdge("a", END).
		SetEntryPoint("a").
		Compile()
	require.NoError(t, err)

	run := newTestRunner(resolver).Run(context.Background(), g, State{}, 10)

	assert.Equal(t, StatusCompleted, run.Status)
	require.Equal(t, 1, run.Steps())
	assert.Equal(t, END, run.Trace[0].Next)
}

func TestRunNilInitialState(t *testing.T) {
	resolver := mapResolver{
		"init": func(_ context.Context, state State) (State, error) {
			state["seen"] = true
			return state, nil
		},
	}

	g, err := NewBuilder("g").
		AddNode("a", "init", "").
		SetEntryPoint("a").
		AddFinishPoint("a").
		Compile()
	require.NoError(t, err)

	run := newTestRunner(resolver).Run(context.Background(), g, nil, 10)

	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, true, run.FinalState["seen"])
}

func TestRunDefaultBudget(t *testing.T) {
	calls := 0
	resolver := mapResolver{
		"spin": func(_ context.Context, state State) (State, error) {
			calls++
			return state, nil
		},
	}

	g, err := NewBuilder("g").
		AddNode("a", "spin", "").
		AddEdge("a", "a").
		SetEntryPoint("a").
		Compile()
	require.NoError(t, err)

	run := newTestRunner(resolver, WithMaxSteps(5)).Run(context.Background(), g, State{}, 0)

	assert.Equal(t, StatusMaxStepsExceeded, run.Status)
	assert.Equal(t, 5, calls)
	assert.Equal(t, 5, run.Steps())
}

func TestRunCancellation(t *testing.T) {
	resolver := mapResolver{"noop": passThrough}

	g, err := NewBuilder("g").
		AddNode("a", "noop", "").
		AddEdge("a", "a").
		SetEntryPoint("a").
		Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := newTestRunner(resolver).Run(ctx, g, State{}, 10)

	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "a", run.FailedNode)
	assert.ErrorIs(t, run.Err, context.Canceled)
	assert.Zero(t, run.Steps())
}

func TestRunNodeTimeout(t *testing.T) {
	resolver := mapResolver{
		"stall": func(ctx context.Context, state State) (State, error) {
			select {
			case <-time.After(time.Second):
				return state, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}

	g, err := NewBuilder("g").
		AddNode("a", "stall", "").
		SetEntryPoint("a").
		AddFinishPoint("a").
		Compile()
	require.NoError(t, err)

	runner := newTestRunner(resolver, WithNodeTimeout(10*time.Millisecond))
	run := runner.Run(context.Background(), g, State{}, 10)

	assert.Equal(t, StatusFailed, run.Status)
	assert.ErrorIs(t, run.Err, context.DeadlineExceeded)
	assert.Zero(t, run.Steps())
}

func TestRunNodeTimeoutAbandonedToolCannotMutateRecord(t *testing.T) {
	// A tool that ignores ctx and keeps writing past the deadline. The
	// runner abandons it on timeout; the record it returns must not be
	// touched by the still-running goroutine.
	resolver := mapResolver{
		"busy": func(_ context.Context, state State) (State, error) {
			deadline := time.Now().Add(200 * time.Millisecond)
			for i := 0; time.Now().Before(deadline); i++ {
				state["n"] = i
			}
			return state, nil
		},
	}

	g, err := NewBuilder("g").
		AddNode("a", "busy", "").
		SetEntryPoint("a").
		AddFinishPoint("a").
		Compile()
	require.NoError(t, err)

	runner := newTestRunner(resolver, WithNodeTimeout(10*time.Millisecond))
	run := runner.Run(context.Background(), g, State{"n": -1}, 10)

	require.Equal(t, StatusFailed, run.Status)
	assert.ErrorIs(t, run.Err, context.DeadlineExceeded)

	// The retained state is the one from before the attempt and stays
	// stable while the abandoned goroutine is still writing its copy.
	assert.Equal(t, -1, run.FinalState.GetInt("n"))
	first, err := json.Marshal(run)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, -1, run.FinalState.GetInt("n"))
	second, err := json.Marshal(run)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunPanicRecovery(t *testing.T) {
	resolver := mapResolver{
		"explode": func(context.Context, State) (State, error) {
			panic("kaboom")
		},
	}

	g, err := NewBuilder("g").
		AddNode("a", "explode", "").
		SetEntryPoint("a").
		AddFinishPoint("a").
		Compile()
	require.NoError(t, err)

	run := newTestRunner(resolver).Run(context.Background(), g, State{}, 10)

	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "a", run.FailedNode)
	assert.Contains(t, run.Error, "kaboom")
	assert.Zero(t, run.Steps())
}

func TestRunDeterministic(t *testing.T) {
	resolver := mapResolver{
		"bump": func(_ context.Context, state State) (State, error) {
			state["n"] = state.GetInt("n") + 1
			return state, nil
		},
	}

	g, err := NewBuilder("g").
		AddNode("a", "bump", "").
		AddNode("b", "bump", "").
		AddEdge("a", "b").
		AddConditionalEdge("b", func(_ context.Context, state State) string {
			if state.GetInt("n") >= 4 {
				return END
			}
			return "a"
		}).
		SetEntryPoint("a").
		Compile()
	require.NoError(t, err)

	runner := newTestRunner(resolver)
	first := runner.Run(context.Background(), g, State{"n": 0}, 20)
	second := runner.Run(context.Background(), g, State{"n": 0}, 20)

	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.Steps(), second.Steps())
	assert.Equal(t, first.FinalState, second.FinalState)
	for i := range first.Trace {
		assert.Equal(t, first.Trace[i].Node, second.Trace[i].Node)
		assert.Equal(t, first.Trace[i].Next, second.Trace[i].Next)
		assert.Equal(t, first.Trace[i].State, second.Trace[i].State)
	}
}
