package queue

import (
	"context"
	"sync"

	"github.com/crowdqueue/backend/pkg/models"
)

// MemoryStore keeps the queue in process memory. State lives only as long as
// the running process, so it is only correct for single-instance deployments;
// a scaled-out deployment must use the Redis-backed store instead.
type MemoryStore struct {
	mu    sync.RWMutex
	state models.QueueState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*models.QueueState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneState(&m.state), nil
}

func (m *MemoryStore) Save(ctx context.Context, state *models.QueueState) error {
	clone := cloneState(state)
	m.mu.Lock()
	defer m.mu.Unlock()

	if state.Version != m.state.Version {
		return models.ErrVersionConflict
	}
	clone.Version++
	m.state = *clone
	return nil
}
