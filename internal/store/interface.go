package store

import (
	"context"
	"errors"
	"time"

	"github.com/tnikhil-24/ElderCare/internal/intent"
	"github.com/tnikhil-24/ElderCare/internal/reminder"
)

// Source is how a health record was captured.
type Source string

const (
	SourceVoice  Source = "voice"
	SourceText   Source = "text"
	SourceButton Source = "button"
)

// HealthRecord is one append-only measurement.
type HealthRecord struct {
	ID        string        `json:"id"`
	Metric    intent.Metric `json:"metric"`
	Value     float64       `json:"value"`
	Timestamp time.Time     `json:"timestamp"`
	Source    Source        `json:"source"`
	Note      string        `json:"note,omitempty"`
}

// RecordStore is consumed by the dispatcher and the API.
type RecordStore interface {
	Append(ctx context.Context, r HealthRecord) error
	// Query returns records of metric taken at or after since, oldest first.
	// An empty metric matches every kind.
	Query(ctx context.Context, metric intent.Metric, since time.Time) ([]HealthRecord, error)
}

// DataStore is everything the service persists. The concrete implementations
// are *Store (pgx-backed) and *Memory.
type DataStore interface {
	RecordStore
	reminder.Persistence
	Close()
}

// ErrStore matches every failure of the persistence layer.
var ErrStore = errors.New("store unavailable")

// Error carries the failed operation. errors.Is(err, ErrStore) holds for it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "store: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrStore
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
