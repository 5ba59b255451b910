package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/tnikhil-24/ElderCare/internal/intent"
	"github.com/tnikhil-24/ElderCare/internal/reminder"
)

func skipWithoutDB(t *testing.T) string {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	return url
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	url := skipWithoutDB(t)
	ctx := context.Background()
	s, err := New(ctx, url)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIntegration_AppendAndQueryRecords(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Microsecond)
	id := "int-rec-" + start.Format("20060102150405.000000")

	err := s.Append(ctx, HealthRecord{
		ID:        id,
		Metric:    intent.MetricGlucose,
		Value:     145,
		Timestamp: start,
		Source:    SourceText,
		Note:      "morning",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	results, err := s.Query(ctx, intent.MetricGlucose, start)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	found := false
	for _, r := range results {
		if r.ID == id {
			found = true
			if r.Value != 145 || r.Note != "morning" || r.Source != SourceText {
				t.Errorf("unexpected record: %+v", r)
			}
		}
	}
	if !found {
		t.Errorf("expected record %s in results", id)
	}

	// Cleanup.
	s.pool.Exec(ctx, "DELETE FROM health_records WHERE id = $1", id)
}

func TestIntegration_ReminderSnapshot(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	prev, err := s.LoadReminders(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() { s.SaveReminders(context.Background(), prev) })

	now := time.Now().UTC().Truncate(time.Microsecond)
	due := now.Add(-time.Minute)
	book := []reminder.Reminder{
		{
			ID: "int-rem-1", Subject: "metformin", Kind: reminder.KindMedication,
			Rule:      reminder.Daily(reminder.TimeOfDay{Hour: 8}),
			CreatedAt: now, NextFire: now.Add(time.Hour), Enabled: true, State: reminder.StateDue,
			DueAt: &due, Missed: 2,
		},
		{
			ID: "int-rem-2", Subject: "doctor", Kind: reminder.KindGeneral,
			Rule:      reminder.Once(now.Add(24 * time.Hour)),
			CreatedAt: now, NextFire: now.Add(24 * time.Hour), Enabled: true, State: reminder.StateScheduled,
		},
	}
	if err := s.SaveReminders(ctx, book); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LoadReminders(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(got))
	}
	if got[0].ID != "int-rem-1" || got[0].Missed != 2 || got[0].DueAt == nil {
		t.Errorf("pending occurrence not kept: %+v", got[0])
	}
	if got[0].Rule.Anchor == nil || got[0].Rule.Anchor.Hour != 8 {
		t.Errorf("rule not kept: %+v", got[0].Rule)
	}
	if got[1].LastFired != nil {
		t.Errorf("expected nil last_fired, got %v", got[1].LastFired)
	}
}
