package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tnikhil-24/ElderCare/internal/intent"
	"github.com/tnikhil-24/ElderCare/internal/reminder"
)

// Memory keeps records and the reminder book in process. It is used when no
// database is configured; contents are lost on exit.
type Memory struct {
	mu        sync.Mutex
	records   []HealthRecord
	reminders []reminder.Reminder
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, r HealthRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *Memory) Query(_ context.Context, metric intent.Metric, since time.Time) ([]HealthRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HealthRecord
	for _, r := range m.records {
		if metric != "" && r.Metric != metric {
			continue
		}
		if r.Timestamp.Before(since) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) LoadReminders(_ context.Context) ([]reminder.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]reminder.Reminder(nil), m.reminders...), nil
}

func (m *Memory) SaveReminders(_ context.Context, rs []reminder.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders = append([]reminder.Reminder(nil), rs...)
	return nil
}

func (m *Memory) Close() {}
