// Package reminder keeps the reminder book and decides when reminders come due.
package reminder

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindMedication Kind = "medication"
	KindMetric     Kind = "metric"
	KindGeneral    Kind = "general"
)

// State is the lifecycle position of a reminder. An acknowledged occurrence
// moves a periodic reminder straight back to StateScheduled.
type State string

const (
	StateScheduled State = "scheduled"
	StateDue       State = "due"
	StateDisabled  State = "disabled"
)

type RuleKind string

const (
	RuleOnce     RuleKind = "once"
	RulePeriodic RuleKind = "periodic"
)

// Rule says when a reminder fires.
//
// A one-shot rule fires once at At. A periodic rule fires every Interval; At,
// when set, fixes the phase of the grid. With an Anchor the grid is laid on
// the anchor's wall-clock time and Interval must be a whole number of days.
type Rule struct {
	Kind     RuleKind      `json:"kind" yaml:"kind"`
	At       time.Time     `json:"at,omitempty" yaml:"at,omitempty"`
	Interval time.Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
	Anchor   *TimeOfDay    `json:"anchor,omitempty" yaml:"anchor,omitempty"`
}

func Once(at time.Time) Rule {
	return Rule{Kind: RuleOnce, At: at}
}

func Every(d time.Duration) Rule {
	return Rule{Kind: RulePeriodic, Interval: d}
}

// Daily fires every day at the given wall-clock time.
func Daily(tod TimeOfDay) Rule {
	return Rule{Kind: RulePeriodic, Interval: 24 * time.Hour, Anchor: &tod}
}

func (r Rule) OneShot() bool {
	return r.Kind == RuleOnce
}

// TimeOfDay is a wall-clock time in the scheduler's location.
type TimeOfDay struct {
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`
}

// ParseTimeOfDay reads "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// on returns the instant of t on the calendar day of day, in loc.
func (t TimeOfDay) on(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc)
}

type Reminder struct {
	ID        string     `json:"id"`
	Subject   string     `json:"subject"`
	Kind      Kind       `json:"kind"`
	Message   string     `json:"message,omitempty"`
	Rule      Rule       `json:"rule"`
	CreatedAt time.Time  `json:"created_at"`
	NextFire  time.Time  `json:"next_fire"`
	LastFired *time.Time `json:"last_fired,omitempty"`
	Enabled   bool       `json:"enabled"`
	State     State      `json:"state"`

	// The unacknowledged occurrence while State is StateDue.
	DueAt   *time.Time `json:"due_at,omitempty"`
	Missed  int        `json:"missed,omitempty"`
	RetryAt *time.Time `json:"retry_at,omitempty"`
}

// Overdue reports whether r is scheduled but its next fire time has passed.
// The scheduler never leaves a reminder overdue after a tick.
func (r Reminder) Overdue(now time.Time) bool {
	return r.Enabled && r.State == StateScheduled && !r.NextFire.After(now)
}

// EventID identifies the pending occurrence, or "" when nothing is pending.
func (r Reminder) EventID() string {
	if r.DueAt == nil {
		return ""
	}
	return eventID(r.ID, *r.DueAt)
}

func eventID(reminderID string, at time.Time) string {
	return reminderID + "@" + at.UTC().Format(time.RFC3339)
}

// Event is one due occurrence handed to the dispatcher.
type Event struct {
	ID         string    `json:"id"`
	ReminderID string    `json:"reminder_id"`
	Subject    string    `json:"subject"`
	Kind       Kind      `json:"kind"`
	Message    string    `json:"message,omitempty"`
	Scheduled  time.Time `json:"scheduled"`
	// Missed counts the occurrences this event stands for; it is above 1
	// after downtime or while an earlier occurrence went unacknowledged.
	Missed      int  `json:"missed"`
	Redelivered bool `json:"redelivered"`
}

// Draft is the caller-supplied part of a new reminder.
type Draft struct {
	Subject string
	Kind    Kind
	Message string
	Rule    Rule
}

// ValidationError rejects a reminder at creation; nothing is scheduled.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid reminder: %s %s", e.Field, e.Reason)
}

var (
	ErrNotFound = errors.New("reminder not found")
	ErrNotDue   = errors.New("reminder has no pending occurrence")
)

func (d Draft) validate() error {
	if strings.TrimSpace(d.Subject) == "" {
		return &ValidationError{Field: "subject", Reason: "is required"}
	}
	switch d.Kind {
	case KindMedication, KindMetric, KindGeneral:
	case "":
	default:
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("%q is not a reminder kind", d.Kind)}
	}
	switch d.Rule.Kind {
	case RuleOnce:
		if d.Rule.At.IsZero() {
			return &ValidationError{Field: "rule.at", Reason: "is required for a one-shot reminder"}
		}
	case RulePeriodic:
		if d.Rule.Interval <= 0 {
			return &ValidationError{Field: "rule.interval", Reason: "must be positive"}
		}
		if a := d.Rule.Anchor; a != nil {
			if !a.valid() {
				return &ValidationError{Field: "rule.anchor", Reason: fmt.Sprintf("%s is not a time of day", a)}
			}
			if d.Rule.Interval%(24*time.Hour) != 0 {
				return &ValidationError{Field: "rule.interval", Reason: "must be whole days when anchored"}
			}
		}
	default:
		return &ValidationError{Field: "rule.kind", Reason: "is required"}
	}
	return nil
}
