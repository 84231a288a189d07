// Package redis provides a RunStore backed by Redis, with an optional TTL
// for run records. Suited for high-throughput deployments where run
// history is a rolling window rather than an archive.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallnest/graphflow/graph"
	"github.com/smallnest/graphflow/store"
)

// RunStore implements store.RunStore using Redis. Records are stored as
// JSON values under a key prefix; an index set tracks all run IDs so List
// does not need SCAN.
type RunStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ store.RunStore = (*RunStore)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "graphflow:"
	TTL      time.Duration // Expiration for run records, default 0 (no expiration)
}

// NewRunStore creates a Redis-backed run store.
func NewRunStore(opts Options) *RunStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "graphflow:"
	}

	return &RunStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

// Close closes the underlying client.
func (s *RunStore) Close() error {
	return s.client.Close()
}

func (s *RunStore) runKey(id string) string {
	return fmt.Sprintf("%srun:%s", s.prefix, id)
}

func (s *RunStore) indexKey() string {
	return s.prefix + "runs"
}

// Save stores a run record, replacing any record with the same ID.
func (s *RunStore) Save(ctx context.Context, run *graph.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.runKey(run.ID), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), run.ID)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.indexKey(), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run to redis: %w", err)
	}
	return nil
}

// Get returns the run with the given identifier.
func (s *RunStore) Get(ctx context.Context, id string) (*graph.Run, error) {
	data, err := s.client.Get(ctx, s.runKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("run %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load run from redis: %w", err)
	}

	var run graph.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// List returns all stored runs ordered by start time. Records evicted by
// the TTL are dropped from the index as they are discovered.
func (s *RunStore) List(ctx context.Context) ([]*graph.Run, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(ids) == 0 {
		return []*graph.Run{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.runKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}

	runs := make([]*graph.Run, 0, len(values))
	for i, v := range values {
		if v == nil {
			// Expired record; drop the stale index entry.
			s.client.SRem(ctx, s.indexKey(), ids[i])
			continue
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		var run graph.Run
		if err := json.Unmarshal([]byte(str), &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run %s: %w", ids[i], err)
		}
		runs = append(runs, &run)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}
