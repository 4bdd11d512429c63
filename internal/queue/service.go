package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crowdqueue/backend/pkg/events"
	"github.com/crowdqueue/backend/pkg/models"
)

// DefaultCapacity is the queue ceiling used when none is configured.
const DefaultCapacity = 30

// maxSaveRetries bounds how often one mutation re-runs after losing a
// version race against another service instance. Conflicts are transient, so
// the bound is generous; exhausting it means the store is pathologically
// contended and surfaces as a backend failure.
const maxSaveRetries = 32

var (
	ErrInvalidInput   = errors.New("invalid track input")
	ErrDuplicateTrack = errors.New("track is already in the queue")
	ErrQueueFull      = errors.New("queue is at capacity")
	ErrTrackNotFound  = errors.New("track is not in the queue")
)

// errUnchanged is returned by an update closure to report that the operation
// turned out to be a no-op: nothing is committed and the cursor keeps its
// value, so pollers are not woken for an identical queue.
var errUnchanged = errors.New("queue unchanged")

// Archiver records tracks that have left the queue. Archiving is best-effort;
// a failure never rolls back the queue mutation that triggered it.
type Archiver interface {
	ArchiveTracks(ctx context.Context, tracks []models.QueuedTrack) error
}

// Service implements the queue operations on top of a Store. Every mutation
// is a read-modify-write of the whole state, committed with the store's
// versioned compare-and-set and retried on conflict, so concurrent
// admissions cannot lose updates or overshoot capacity even when several
// service instances share one store. mu additionally serializes writers
// within one process, which keeps local contention off the store.
type Service struct {
	store    Store
	capacity int
	events   *events.KafkaClient
	archive  Archiver

	mu  sync.Mutex
	now func() time.Time
}

func NewService(store Store, capacity int, events *events.KafkaClient, archive Archiver) *Service {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Service{
		store:    store,
		capacity: capacity,
		events:   events,
		archive:  archive,
		now:      time.Now,
	}
}

// Get returns the current state with tracks sorted by votes descending.
func (s *Service) Get(ctx context.Context) (*models.QueueState, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	sortByVotes(state.Tracks)
	return state, nil
}

// GetIfUpdated returns the sorted state if the queue changed after since,
// or nil if the caller's cursor is still current. An empty queue with a
// fresh timestamp is a change, not "no change".
func (s *Service) GetIfUpdated(ctx context.Context, since int64) (*models.QueueState, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	if state.LastUpdated <= since {
		return nil, nil
	}
	sortByVotes(state.Tracks)
	return state, nil
}

// update runs one serialized read-modify-write: load the state, apply the
// mutation, bump the cursor, save. A save that lost a version race reloads
// and re-applies against the fresh state, so apply must be restartable. An
// apply returning errUnchanged commits nothing.
func (s *Service) update(ctx context.Context, apply func(state *models.QueueState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		state, err := s.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load queue: %w", err)
		}

		if err := apply(state); err != nil {
			if errors.Is(err, errUnchanged) {
				return nil
			}
			return err
		}

		state.LastUpdated = bumpTimestamp(state.LastUpdated, s.now())

		err = s.store.Save(ctx, state)
		if err == nil {
			return nil
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			return fmt.Errorf("failed to save queue: %w", err)
		}
	}

	return fmt.Errorf("failed to save queue: %w", models.ErrVersionConflict)
}

// Add admits a single track. Rejected with ErrDuplicateTrack if its Spotify
// id is already queued, or ErrQueueFull at capacity.
func (s *Service) Add(ctx context.Context, input models.TrackInput) (*models.QueuedTrack, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var track models.QueuedTrack
	err := s.update(ctx, func(state *models.QueueState) error {
		if hasSpotifyID(state.Tracks, input.SpotifyTrackID) {
			return ErrDuplicateTrack
		}
		if len(state.Tracks) >= s.capacity {
			return ErrQueueFull
		}

		track = s.admit(input, s.now())
		state.Tracks = append(state.Tracks, track)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypeTrackAdded, events.TrackAddedPayload{
		EntryID:        track.ID,
		SpotifyTrackID: track.SpotifyTrackID,
		Name:           track.Name,
		Artists:        track.Artists,
		AddedBy:        track.AddedBy,
	})

	return &track, nil
}

// AddBulk admits inputs in order, skipping Spotify ids already queued (or
// admitted earlier in the same call) and stopping silently once the queue is
// full. With replaceAll the existing queue is discarded first, votes
// included. The returned slice holds only the tracks actually admitted.
// A merge that admits nothing leaves the queue, and the cursor, untouched.
func (s *Service) AddBulk(ctx context.Context, inputs []models.TrackInput, replaceAll bool) ([]models.QueuedTrack, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no tracks provided", ErrInvalidInput)
	}
	for i, input := range inputs {
		if err := validateInput(input); err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
	}

	var admitted []models.QueuedTrack
	var dropped []models.QueuedTrack
	err := s.update(ctx, func(state *models.QueueState) error {
		admitted = nil
		dropped = nil

		if replaceAll {
			dropped = state.Tracks
			state.Tracks = nil
		}

		seen := make(map[string]bool, len(state.Tracks)+len(inputs))
		for _, t := range state.Tracks {
			seen[t.SpotifyTrackID] = true
		}

		for _, input := range inputs {
			if len(state.Tracks) >= s.capacity {
				break
			}
			if seen[input.SpotifyTrackID] {
				continue
			}
			track := s.admit(input, s.now())
			state.Tracks = append(state.Tracks, track)
			admitted = append(admitted, track)
			seen[input.SpotifyTrackID] = true
		}

		if !replaceAll && len(admitted) == 0 {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !replaceAll && len(admitted) == 0 {
		return []models.QueuedTrack{}, nil
	}

	s.archiveTracks(ctx, dropped)
	s.publish(ctx, events.EventTypeTracksReplaced, events.TracksReplacedPayload{
		Admitted: len(admitted),
		Replaced: replaceAll,
	})

	if admitted == nil {
		admitted = []models.QueuedTrack{}
	}
	return admitted, nil
}

// Remove drops the entry with the given Spotify id. ErrTrackNotFound if absent.
func (s *Service) Remove(ctx context.Context, spotifyTrackID string) error {
	if strings.TrimSpace(spotifyTrackID) == "" {
		return fmt.Errorf("%w: spotify_track_id is required", ErrInvalidInput)
	}

	var removed models.QueuedTrack
	err := s.update(ctx, func(state *models.QueueState) error {
		idx := -1
		for i, t := range state.Tracks {
			if t.SpotifyTrackID == spotifyTrackID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrTrackNotFound
		}

		removed = state.Tracks[idx]
		state.Tracks = append(state.Tracks[:idx], state.Tracks[idx+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	s.archiveTracks(ctx, []models.QueuedTrack{removed})
	s.publish(ctx, events.EventTypeTrackRemoved, events.TrackRemovedPayload{
		EntryIDs: []string{removed.ID},
	})

	return nil
}

// RemoveByIDs drops every entry whose internal id is listed and reports how
// many were removed. Unknown ids are ignored. The cursor moves only when at
// least one entry actually left the queue.
func (s *Service) RemoveByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no ids provided", ErrInvalidInput)
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var removed []models.QueuedTrack
	err := s.update(ctx, func(state *models.QueueState) error {
		removed = nil

		kept := state.Tracks[:0]
		for _, t := range state.Tracks {
			if wanted[t.ID] {
				removed = append(removed, t)
			} else {
				kept = append(kept, t)
			}
		}
		if len(removed) == 0 {
			return errUnchanged
		}

		state.Tracks = kept
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(removed) == 0 {
		return 0, nil
	}

	removedIDs := make([]string, len(removed))
	for i, t := range removed {
		removedIDs[i] = t.ID
	}
	s.archiveTracks(ctx, removed)
	s.publish(ctx, events.EventTypeTrackRemoved, events.TrackRemovedPayload{
		EntryIDs: removedIDs,
	})

	return len(removed), nil
}

// Upvote increments the vote count of the entry with the given Spotify id
// and returns the updated entry. Votes are anonymous and unthrottled.
func (s *Service) Upvote(ctx context.Context, spotifyTrackID string) (*models.QueuedTrack, error) {
	if strings.TrimSpace(spotifyTrackID) == "" {
		return nil, fmt.Errorf("%w: spotify_track_id is required", ErrInvalidInput)
	}

	var updated models.QueuedTrack
	err := s.update(ctx, func(state *models.QueueState) error {
		idx := -1
		for i, t := range state.Tracks {
			if t.SpotifyTrackID == spotifyTrackID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrTrackNotFound
		}

		state.Tracks[idx].Votes++
		updated = state.Tracks[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypeTrackUpvoted, events.TrackUpvotedPayload{
		SpotifyTrackID: updated.SpotifyTrackID,
		Votes:          updated.Votes,
	})

	return &updated, nil
}

// Clear empties the queue. Always counts as an update, even when the queue
// was already empty.
func (s *Service) Clear(ctx context.Context) error {
	var dropped []models.QueuedTrack
	err := s.update(ctx, func(state *models.QueueState) error {
		dropped = state.Tracks
		state.Tracks = nil
		return nil
	})
	if err != nil {
		return err
	}

	s.archiveTracks(ctx, dropped)
	s.publish(ctx, events.EventTypeQueueCleared, events.QueueClearedPayload{
		Dropped: len(dropped),
	})

	return nil
}

func (s *Service) admit(input models.TrackInput, now time.Time) models.QueuedTrack {
	addedAt := now.UnixMilli()
	return models.QueuedTrack{
		ID:             newEntryID(input.SpotifyTrackID, addedAt),
		SpotifyTrackID: input.SpotifyTrackID,
		Name:           input.Name,
		Artists:        input.Artists,
		AlbumName:      input.AlbumName,
		AlbumArt:       input.AlbumArt,
		DurationMS:     input.DurationMS,
		Votes:          0,
		AddedAt:        addedAt,
		AddedBy:        input.AddedBy,
	}
}

func (s *Service) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, eventType, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", eventType, err)
	}
}

func (s *Service) archiveTracks(ctx context.Context, tracks []models.QueuedTrack) {
	if s.archive == nil || len(tracks) == 0 {
		return
	}
	if err := s.archive.ArchiveTracks(ctx, tracks); err != nil {
		log.Printf("Warning: failed to archive %d tracks: %v", len(tracks), err)
	}
}

func validateInput(input models.TrackInput) error {
	if strings.TrimSpace(input.SpotifyTrackID) == "" {
		return fmt.Errorf("%w: spotify_track_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.DurationMS < 0 {
		return fmt.Errorf("%w: duration_ms must not be negative", ErrInvalidInput)
	}
	return nil
}

// newEntryID builds the internal entry id from the catalog id, the admission
// time, and a random suffix. The suffix keeps ids distinct when the same
// track is re-added after removal or when a bulk call admits many tracks in
// the same millisecond.
func newEntryID(spotifyTrackID string, addedAt int64) string {
	return fmt.Sprintf("%s-%d-%s", spotifyTrackID, addedAt, uuid.New().String()[:8])
}

func hasSpotifyID(tracks []models.QueuedTrack, spotifyTrackID string) bool {
	for _, t := range tracks {
		if t.SpotifyTrackID == spotifyTrackID {
			return true
		}
	}
	return false
}

// sortByVotes orders tracks by votes descending. The sort is stable so equal
// vote counts keep insertion order.
func sortByVotes(tracks []models.QueuedTrack) {
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Votes > tracks[j].Votes
	})
}

// bumpTimestamp returns the wall clock in epoch milliseconds, nudged forward
// when two mutations land inside the same millisecond so the cursor protocol
// always observes a strictly increasing value.
func bumpTimestamp(prev int64, now time.Time) int64 {
	ts := now.UnixMilli()
	if ts <= prev {
		return prev + 1
	}
	return ts
}
