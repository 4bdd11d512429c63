package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrVersionConflict reports that a conditional write of the queue state lost
// a race: another writer committed after the caller loaded its copy. Callers
// reload and retry.
var ErrVersionConflict = errors.New("queue state version conflict")

// User is a Spotify-authenticated visitor. Stored so added_by references
// resolve to a display name in the UI.
type User struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey"`
	SpotifyID   string    `json:"spotify_id" gorm:"unique"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TrackInput is a normalized track description as submitted by a caller.
// It never carries an id, vote count, or admission time; those are assigned
// by the queue on admission. Optional fields stay absent rather than being
// defaulted so display layers can pick their own fallback text.
type TrackInput struct {
	SpotifyTrackID string `json:"spotify_track_id"`
	Name           string `json:"name"`
	Artists        string `json:"artists"`
	AlbumName      string `json:"album_name"`
	AlbumArt       string `json:"album_art,omitempty"`
	DurationMS     int    `json:"duration_ms"`
	AddedBy        string `json:"added_by,omitempty"`
}

// QueuedTrack is a track admitted to the shared queue.
type QueuedTrack struct {
	ID             string `json:"id"`
	SpotifyTrackID string `json:"spotify_track_id"`
	Name           string `json:"name"`
	Artists        string `json:"artists"`
	AlbumName      string `json:"album_name"`
	AlbumArt       string `json:"album_art,omitempty"`
	DurationMS     int    `json:"duration_ms"`
	Votes          int    `json:"votes"`
	AddedAt        int64  `json:"added_at"` // epoch milliseconds
	AddedBy        string `json:"added_by,omitempty"`
}

// QueueState is the canonical stored state: tracks in insertion order plus
// the timestamp of the last committed mutation (epoch milliseconds). Version
// counts committed writes; stores use it to reject writes based on a stale
// read, so read-modify-write stays serialized even across service instances.
type QueueState struct {
	Tracks      []QueuedTrack `json:"tracks"`
	LastUpdated int64         `json:"last_updated"`
	Version     int64         `json:"version"`
}

// PlayedTrack is an archived queue entry, recorded when a track leaves the
// queue (removed by the host or swept by a clear/replace).
type PlayedTrack struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey"`
	QueueEntryID   string    `json:"queue_entry_id"`
	SpotifyTrackID string    `json:"spotify_track_id"`
	Name           string    `json:"name"`
	Artists        string    `json:"artists"`
	AlbumName      string    `json:"album_name"`
	Votes          int       `json:"votes"`
	AddedBy        string    `json:"added_by"`
	ArchivedAt     time.Time `json:"archived_at"`
}
