// Package events defines the envelope published to caregivers.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Source is stamped on every envelope this process publishes.
const Source = "eldercare"

type Event struct {
	EventID   string          `json:"event_id"`
	Source    string          `json:"source"`
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	TypeEmergency     = "emergency.raised"
	TypeReminderFired = "reminder.fired"
)

// New wraps payload in an envelope with a fresh id.
func New(eventType string, payload any, at time.Time) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		EventID:   uuid.New().String(),
		Source:    Source,
		EventType: eventType,
		Timestamp: at.UTC(),
		Payload:   raw,
	}, nil
}
