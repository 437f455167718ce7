package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"courseforge/internal/domain"
	"courseforge/internal/domain/model"

	"github.com/go-redis/redis/v8"
)

// JobStatusCache absorbs the client polling traffic on job status.
// Entries expire quickly and are dropped eagerly on any state transition,
// so a poller never sees a resolution later than one TTL.
type JobStatusCache struct {
	client *Client
	ttl    time.Duration
}

func NewJobStatusCache(client *Client, ttl time.Duration) *JobStatusCache {
	return &JobStatusCache{client: client, ttl: ttl}
}

func statusKey(jobID string) string { return "gen:job_status:" + jobID }

func (c *JobStatusCache) Get(ctx context.Context, jobID string) (*model.JobStatusSnapshot, error) {
	data, err := c.client.Get(ctx, statusKey(jobID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var snap model.JobStatusSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *JobStatusCache) Store(ctx context.Context, jobID string, snap *model.JobStatusSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statusKey(jobID), data, c.ttl)
}

func (c *JobStatusCache) Drop(ctx context.Context, jobID string) error {
	return c.client.Del(ctx, statusKey(jobID))
}
