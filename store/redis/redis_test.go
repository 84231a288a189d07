package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/graphflow/graph"
	"github.com/smallnest/graphflow/store"
)

func newTestStore(t *testing.T, opts Options) (*miniredis.Miniredis, *RunStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	opts.Addr = mr.Addr()
	s := NewRunStore(opts)
	t.Cleanup(func() { s.Close() })
	return mr, s
}

func TestRedisRunStore(t *testing.T) {
	_, s := newTestStore(t, Options{})
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Second)
	run := &graph.Run{
		ID:         "run-1",
		GraphID:    "graph-1",
		Status:     graph.StatusMaxStepsExceeded,
		FinalState: graph.State{"score": 100.0},
		Trace: []graph.TraceEntry{
			{Step: 0, Node: "bump", Timestamp: started, State: graph.State{"score": 60.0}, Next: "bump"},
			{Step: 1, Node: "bump", Timestamp: started, State: graph.State{"score": 80.0}, Next: "bump"},
		},
		StartedAt: started,
	}

	require.NoError(t, s.Save(ctx, run))

	loaded, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, loaded.ID)
	assert.Equal(t, graph.StatusMaxStepsExceeded, loaded.Status)
	assert.Equal(t, 100, loaded.FinalState.GetInt("score"))
	require.Len(t, loaded.Trace, 2)
	assert.Equal(t, "bump", loaded.Trace[1].Node)
}

func TestRedisRunStoreGetMissing(t *testing.T) {
	_, s := newTestStore(t, Options{})

	_, err := s.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisRunStoreList(t *testing.T) {
	_, s := newTestStore(t, Options{})
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.Save(ctx, &graph.Run{ID: "run-2", GraphID: "g", Status: graph.StatusCompleted, StartedAt: now}))
	require.NoError(t, s.Save(ctx, &graph.Run{ID: "run-1", GraphID: "g", Status: graph.StatusCompleted, StartedAt: now.Add(-time.Hour)}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-1", list[0].ID)
	assert.Equal(t, "run-2", list[1].ID)
}

func TestRedisRunStoreListOrdersTiesByID(t *testing.T) {
	_, s := newTestStore(t, Options{})
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Save(ctx, &graph.Run{ID: "r2", GraphID: "g", Status: graph.StatusCompleted, StartedAt: started}))
	require.NoError(t, s.Save(ctx, &graph.Run{ID: "r1", GraphID: "g", Status: graph.StatusCompleted, StartedAt: started}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r1", list[0].ID)
	assert.Equal(t, "r2", list[1].ID)
}

func TestRedisRunStoreListEmpty(t *testing.T) {
	_, s := newTestStore(t, Options{})

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRedisRunStoreKeyPrefix(t *testing.T) {
	mr, s := newTestStore(t, Options{Prefix: "wf:"})
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &graph.Run{ID: "run-1", GraphID: "g", Status: graph.StatusCompleted, StartedAt: time.Now()}))

	assert.True(t, mr.Exists("wf:run:run-1"))
	assert.True(t, mr.Exists("wf:runs"))
}

func TestRedisRunStoreTTL(t *testing.T) {
	mr, s := newTestStore(t, Options{TTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &graph.Run{ID: "run-1", GraphID: "g", Status: graph.StatusCompleted, StartedAt: time.Now()}))
	require.NoError(t, s.Save(ctx, &graph.Run{ID: "run-2", GraphID: "g", Status: graph.StatusCompleted, StartedAt: time.Now()}))

	// Expire one record; List drops it and cleans the index.
	mr.FastForward(30 * time.Second)
	mr.Del("graphflow:run:run-1")

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "run-2", list[0].ID)

	ids, err := mr.SMembers("graphflow:runs")
	require.NoError(t, err)
	assert.Equal(t, []string{"run-2"}, ids)
}
