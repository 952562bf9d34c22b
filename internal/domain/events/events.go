// Package events defines the domain events emitted after a dream has been aggregated.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dreamlog-backend/internal/domain/dream"
)

// Event types.
const (
	TypePatternAnalyzed   = "dream.pattern.analyzed"
	TypeNightmareRecorded = "nightmare.recorded"
	TypeCycleCreated      = "cycle.created"
	TypeCycleMatched      = "cycle.matched"
)

// Event is an immutable notification that something happened to a user's pattern ledgers.
type Event struct {
	ID          string                 `json:"event_id"`
	Type        string                 `json:"event_type"`
	UserID      string                 `json:"user_id"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

func newEvent(eventType, userID, aggregateID string, at time.Time, data map[string]interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		UserID:      userID,
		AggregateID: aggregateID,
		OccurredAt:  at.UTC(),
		Data:        data,
	}
}

// PatternAnalyzed is emitted once per analyzed dream.
func PatternAnalyzed(userID, dreamID string, p dream.DreamPattern, at time.Time) Event {
	return newEvent(TypePatternAnalyzed, userID, dreamID, at, map[string]interface{}{
		"type":       string(p.Type),
		"themes":     p.Themes,
		"confidence": p.Confidence,
	})
}

// NightmareRecorded is emitted when a nightmare was appended to the ledger.
func NightmareRecorded(userID, dreamID string, at time.Time) Event {
	return newEvent(TypeNightmareRecorded, userID, dreamID, at, nil)
}

// CycleCreated is emitted when a dream founded a new cycle.
func CycleCreated(userID, cycleID, dreamID string, elements []string, at time.Time) Event {
	return newEvent(TypeCycleCreated, userID, cycleID, at, map[string]interface{}{
		"dream_id":        dreamID,
		"common_elements": elements,
	})
}

// CycleMatched is emitted when a dream joined an existing cycle.
func CycleMatched(userID, cycleID, dreamID string, similarity float64, at time.Time) Event {
	return newEvent(TypeCycleMatched, userID, cycleID, at, map[string]interface{}{
		"dream_id":   dreamID,
		"similarity": similarity,
	})
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, events []Event) error
}

// NopPublisher drops every event. It is used when event publishing is disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, []Event) error { return nil }
