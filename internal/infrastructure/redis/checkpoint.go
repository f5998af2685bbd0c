package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CheckpointStore persists the sweeper's high-water mark so restarts do not
// rescan the whole journal.
type CheckpointStore struct {
	client *redis.Client
	key    string
}

func NewCheckpointStore(client *redis.Client, key string) *CheckpointStore {
	return &CheckpointStore{client: client, key: key}
}

// Get returns the stored checkpoint, or the zero time when none exists yet.
func (s *CheckpointStore) Get(ctx context.Context) (time.Time, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt checkpoint value %q: %w", val, err)
	}
	return ts, nil
}

func (s *CheckpointStore) Set(ctx context.Context, ts time.Time) error {
	if err := s.client.Set(ctx, s.key, ts.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("failed to store checkpoint: %w", err)
	}
	return nil
}
