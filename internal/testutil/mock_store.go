package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/tnikhil-24/ElderCare/internal/intent"
	"github.com/tnikhil-24/ElderCare/internal/reminder"
	"github.com/tnikhil-24/ElderCare/internal/store"
)

// MockStore is a thread-safe in-memory implementation of store.DataStore for testing.
// Set the *Err fields to make the matching call fail with a store error.
type MockStore struct {
	mu sync.Mutex

	Records   []store.HealthRecord
	Reminders []reminder.Reminder

	AppendErr error
	QueryErr  error
	LoadErr   error
	SaveErr   error

	QueryCalls  int
	SaveCalls   int
}

func NewMockStore() *MockStore {
	return &MockStore{
		Records: make([]store.HealthRecord, 0),
	}
}

func (m *MockStore) Append(_ context.Context, r store.HealthRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return &store.Error{Op: "append record", Err: m.AppendErr}
	}
	m.Records = append(m.Records, r)
	return nil
}

func (m *MockStore) Query(_ context.Context, metric intent.Metric, since time.Time) ([]store.HealthRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCalls++
	if m.QueryErr != nil {
		return nil, &store.Error{Op: "query records", Err: m.QueryErr}
	}
	var results []store.HealthRecord
	for _, r := range m.Records {
		if (metric == "" || r.Metric == metric) && !r.Timestamp.Before(since) {
			results = append(results, r)
		}
	}
	return results, nil
}

func (m *MockStore) LoadReminders(_ context.Context) ([]reminder.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, &store.Error{Op: "load reminders", Err: m.LoadErr}
	}
	return append([]reminder.Reminder(nil), m.Reminders...), nil
}

func (m *MockStore) SaveReminders(_ context.Context, rs []reminder.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return &store.Error{Op: "save reminders", Err: m.SaveErr}
	}
	m.Reminders = append([]reminder.Reminder(nil), rs...)
	return nil
}

func (m *MockStore) Close() {}

// SetAppendErr changes the append failure while other goroutines use the store.
func (m *MockStore) SetAppendErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendErr = err
}

// GetRecords returns a copy of the appended records.
func (m *MockStore) GetRecords() []store.HealthRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.HealthRecord(nil), m.Records...)
}

// GetSaveCalls returns the number of SaveReminders calls.
func (m *MockStore) GetSaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SaveCalls
}
