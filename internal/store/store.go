package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tnikhil-24/ElderCare/internal/intent"
	"github.com/tnikhil-24/ElderCare/internal/reminder"
)

const schema = `
CREATE TABLE IF NOT EXISTS health_records (
	id          TEXT PRIMARY KEY,
	metric      TEXT NOT NULL,
	value       DOUBLE PRECISION NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	source      TEXT NOT NULL,
	note        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS health_records_metric_time ON health_records (metric, recorded_at);

CREATE TABLE IF NOT EXISTS reminders (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	message    TEXT NOT NULL DEFAULT '',
	rule       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	next_fire  TIMESTAMPTZ NOT NULL,
	last_fired TIMESTAMPTZ,
	enabled    BOOLEAN NOT NULL,
	state      TEXT NOT NULL,
	due_at     TIMESTAMPTZ,
	missed     INTEGER NOT NULL DEFAULT 0,
	retry_at   TIMESTAMPTZ
);
`

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Append inserts one health record.
func (s *Store) Append(ctx context.Context, r HealthRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO health_records (id, metric, value, recorded_at, source, note) VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, string(r.Metric), r.Value, r.Timestamp, string(r.Source), r.Note,
	)
	if err != nil {
		return wrap("append record", err)
	}
	slog.Debug("record appended", "metric", r.Metric, "record_id", r.ID)
	return nil
}

// Query returns records filtered by metric and time.
func (s *Store) Query(ctx context.Context, metric intent.Metric, since time.Time) ([]HealthRecord, error) {
	q := `SELECT id, metric, value, recorded_at, source, note FROM health_records WHERE recorded_at >= $1`
	args := []any{since}
	if metric != "" {
		q += ` AND metric = $2`
		args = append(args, string(metric))
	}
	q += ` ORDER BY recorded_at`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, wrap("query records", err)
	}
	defer rows.Close()

	var results []HealthRecord
	for rows.Next() {
		var (
			r         HealthRecord
			kind, src string
		)
		if err := rows.Scan(&r.ID, &kind, &r.Value, &r.Timestamp, &src, &r.Note); err != nil {
			return nil, wrap("scan record", err)
		}
		r.Metric = intent.Metric(kind)
		r.Source = Source(src)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("query records", err)
	}
	return results, nil
}

// LoadReminders reads the whole reminder book.
func (s *Store) LoadReminders(ctx context.Context) ([]reminder.Reminder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, subject, kind, message, rule, created_at, next_fire, last_fired,
		       enabled, state, due_at, missed, retry_at
		FROM reminders
		ORDER BY next_fire, id
	`)
	if err != nil {
		return nil, wrap("load reminders", err)
	}
	defer rows.Close()

	var results []reminder.Reminder
	for rows.Next() {
		var (
			r           reminder.Reminder
			kind, state string
			rule        []byte
		)
		if err := rows.Scan(&r.ID, &r.Subject, &kind, &r.Message, &rule, &r.CreatedAt, &r.NextFire,
			&r.LastFired, &r.Enabled, &state, &r.DueAt, &r.Missed, &r.RetryAt); err != nil {
			return nil, wrap("scan reminder", err)
		}
		if err := json.Unmarshal(rule, &r.Rule); err != nil {
			return nil, wrap("decode reminder rule", err)
		}
		r.Kind = reminder.Kind(kind)
		r.State = reminder.State(state)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("load reminders", err)
	}
	return results, nil
}

// SaveReminders replaces the stored book with rs in one transaction.
func (s *Store) SaveReminders(ctx context.Context, rs []reminder.Reminder) error {
	rows := make([][]any, len(rs))
	for i, r := range rs {
		rule, err := json.Marshal(r.Rule)
		if err != nil {
			return wrap("encode reminder rule", err)
		}
		rows[i] = []any{r.ID, r.Subject, string(r.Kind), r.Message, rule, r.CreatedAt, r.NextFire,
			r.LastFired, r.Enabled, string(r.State), r.DueAt, r.Missed, r.RetryAt}
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM reminders`); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"reminders"},
			[]string{"id", "subject", "kind", "message", "rule", "created_at", "next_fire",
				"last_fired", "enabled", "state", "due_at", "missed", "retry_at"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if err != nil {
		return wrap("save reminders", err)
	}

	slog.Debug("reminders saved", "count", len(rs))
	return nil
}
