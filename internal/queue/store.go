package queue

import (
	"context"

	"github.com/crowdqueue/backend/pkg/models"
)

// Store holds the single shared QueueState. Implementations must provide
// read-your-writes consistency: a Load following a successful Save observes
// that Save (or a later one).
type Store interface {
	// Load returns the latest committed state. A store with no state yet
	// returns an empty QueueState, not an error.
	Load(ctx context.Context) (*models.QueueState, error)

	// Save replaces the entire state, but only if the stored version still
	// matches state.Version (the version the caller loaded). A write based
	// on a stale read fails with models.ErrVersionConflict; the caller
	// reloads and retries. This compare-and-set is what keeps concurrent
	// mutations from different service instances from losing updates.
	Save(ctx context.Context, state *models.QueueState) error
}

func cloneState(state *models.QueueState) *models.QueueState {
	clone := &models.QueueState{
		Tracks:      make([]models.QueuedTrack, len(state.Tracks)),
		LastUpdated: state.LastUpdated,
		Version:     state.Version,
	}
	copy(clone.Tracks, state.Tracks)
	return clone
}
