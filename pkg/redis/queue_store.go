package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/crowdqueue/backend/pkg/models"
)

const queueKey = "queue:shared"

// QueueStore keeps the shared queue as one JSON blob under a single key, so
// every instance of the service sees the same queue. Save is a compare-and-set
// on the state's version, run inside a WATCH transaction: a write based on a
// stale read fails with models.ErrVersionConflict instead of silently
// clobbering another instance's commit.
type QueueStore struct {
	client *redis.Client
}

func NewQueueStore(client *redis.Client) *QueueStore {
	return &QueueStore{client: client}
}

func (s *QueueStore) Load(ctx context.Context) (*models.QueueState, error) {
	stateJSON, err := s.client.Get(ctx, queueKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &models.QueueState{}, nil
		}
		return nil, fmt.Errorf("failed to get queue state: %w", err)
	}

	var state models.QueueState
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue state: %w", err)
	}

	return &state, nil
}

func (s *QueueStore) Save(ctx context.Context, state *models.QueueState) error {
	next := *state
	next.Version = state.Version + 1
	stateJSON, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to marshal queue state: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		currentJSON, err := tx.Get(ctx, queueKey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			// No state yet: only a write based on the empty state may land.
			if state.Version != 0 {
				return models.ErrVersionConflict
			}
		case err != nil:
			return err
		default:
			var current models.QueueState
			if err := json.Unmarshal(currentJSON, &current); err != nil {
				return fmt.Errorf("failed to unmarshal queue state: %w", err)
			}
			if current.Version != state.Version {
				return models.ErrVersionConflict
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, queueKey, stateJSON, 0) // 0 means no expiration
			return nil
		})
		return err
	}, queueKey)

	if err != nil {
		// The key changing under WATCH is the same stale-read race as a
		// version mismatch.
		if errors.Is(err, redis.TxFailedErr) {
			return models.ErrVersionConflict
		}
		if errors.Is(err, models.ErrVersionConflict) {
			return models.ErrVersionConflict
		}
		return fmt.Errorf("failed to store queue state: %w", err)
	}

	return nil
}
