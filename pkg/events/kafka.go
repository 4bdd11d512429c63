package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type EventType string

const (
	EventTypeTrackAdded     EventType = "track_added"
	EventTypeTracksReplaced EventType = "tracks_replaced"
	EventTypeTrackRemoved   EventType = "track_removed"
	EventTypeTrackUpvoted   EventType = "track_upvoted"
	EventTypeQueueCleared   EventType = "queue_cleared"
)

// Event is the envelope written to the queue-events topic. Consumers (stats
// jobs, now-playing displays) decode Payload based on Type.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// KafkaClient publishes queue change events. This service only produces;
// consumers live in separate jobs.
type KafkaClient struct {
	writer *kafka.Writer
}

func NewKafkaClient(brokers []string, topic string) *KafkaClient {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &KafkaClient{writer: writer}
}

func (k *KafkaClient) PublishEvent(ctx context.Context, eventType EventType, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payloadJSON,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(uuid.New().String()),
		Value: eventJSON,
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (k *KafkaClient) Close() error {
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

// Event payload types
type TrackAddedPayload struct {
	EntryID        string `json:"entry_id"`
	SpotifyTrackID string `json:"spotify_track_id"`
	Name           string `json:"name"`
	Artists        string `json:"artists"`
	AddedBy        string `json:"added_by,omitempty"`
}

type TracksReplacedPayload struct {
	Admitted int  `json:"admitted"`
	Replaced bool `json:"replaced"`
}

type TrackRemovedPayload struct {
	EntryIDs []string `json:"entry_ids"`
}

type TrackUpvotedPayload struct {
	SpotifyTrackID string `json:"spotify_track_id"`
	Votes          int    `json:"votes"`
}

type QueueClearedPayload struct {
	Dropped int `json:"dropped"`
}
