package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yuiseki/data-gather/internal/model"
)

// RunCache handles Redis operations for run-state snapshots. Snapshots
// let a respondent refresh the UI (or the server restart) without losing
// an in-flight run: the service replays the recorded submissions through
// the deterministic flow resolver.
type RunCache interface {
	Set(ctx context.Context, state *model.RunState) error
	Get(ctx context.Context, runID string) (*model.RunState, error)
	Delete(ctx context.Context, runID string) error
}

type runCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunCache creates a new run cache
func NewRunCache(client *redis.Client) RunCache {
	return &runCache{
		client: client,
		ttl:    24 * time.Hour, // Abandoned runs expire after 24h
	}
}

func (c *runCache) key(runID string) string {
	return fmt.Sprintf("run:%s", runID)
}

func (c *runCache) Set(ctx context.Context, state *model.RunState) error {
	state.UpdatedAt = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(state.ID), data, c.ttl).Err()
}

func (c *runCache) Get(ctx context.Context, runID string) (*model.RunState, error) {
	data, err := c.client.Get(ctx, c.key(runID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state model.RunState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *runCache) Delete(ctx context.Context, runID string) error {
	return c.client.Del(ctx, c.key(runID)).Err()
}
