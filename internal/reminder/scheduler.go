package reminder

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Persistence stores the reminder book as one snapshot.
type Persistence interface {
	LoadReminders(ctx context.Context) ([]Reminder, error)
	SaveReminders(ctx context.Context, rs []Reminder) error
}

type Config struct {
	Tick     time.Duration
	Buffer   int
	Location *time.Location
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Scheduler owns the reminder book. Due occurrences are published on
// Events() and repeated on every tick until acknowledged with Ack.
type Scheduler struct {
	store Persistence
	tick  time.Duration
	loc   *time.Location
	now   func() time.Time

	mu        sync.Mutex
	reminders map[string]*Reminder

	events chan Event
	done   chan struct{}
}

func NewScheduler(p Persistence, cfg Config) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = 30 * time.Second
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		store:     p,
		tick:      cfg.Tick,
		loc:       cfg.Location,
		now:       cfg.Now,
		reminders: make(map[string]*Reminder),
		events:    make(chan Event, cfg.Buffer),
		done:      make(chan struct{}),
	}
}

// Events is the stream of due occurrences.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// Location is the zone anchored reminders are laid out in.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// Add validates d and schedules it.
func (s *Scheduler) Add(d Draft) (Reminder, error) {
	if err := d.validate(); err != nil {
		return Reminder{}, err
	}
	if d.Kind == "" {
		d.Kind = KindGeneral
	}
	now := s.now()

	r := &Reminder{
		ID:        uuid.NewString(),
		Subject:   d.Subject,
		Kind:      d.Kind,
		Message:   d.Message,
		Rule:      d.Rule,
		CreatedAt: now,
		NextFire:  d.Rule.first(now, s.loc),
		Enabled:   true,
		State:     StateScheduled,
	}

	s.mu.Lock()
	s.reminders[r.ID] = r
	s.mu.Unlock()

	slog.Info("reminder added", "reminder_id", r.ID, "subject", r.Subject, "next_fire", r.NextFire)
	return *r, nil
}

func (s *Scheduler) Get(id string) (Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return Reminder{}, false
	}
	return *r, true
}

// List returns every reminder, soonest first. Disabled reminders are included.
func (s *Scheduler) List() []Reminder {
	s.mu.Lock()
	out := make([]Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		out = append(out, *r)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextFire.Equal(out[j].NextFire) {
			return out[i].NextFire.Before(out[j].NextFire)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Disable stops a reminder and drops any unacknowledged occurrence.
func (s *Scheduler) Disable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return ErrNotFound
	}
	r.Enabled = false
	r.State = StateDisabled
	clearPending(r)
	return nil
}

// Enable re-arms a disabled reminder from the current time.
func (s *Scheduler) Enable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return ErrNotFound
	}
	if r.Enabled {
		return nil
	}
	now := s.now()
	r.Enabled = true
	r.State = StateScheduled
	switch {
	case r.Rule.OneShot():
		r.NextFire = r.Rule.first(now, s.loc)
	case !r.NextFire.After(now):
		_, r.NextFire = r.Rule.catchUp(r.NextFire, now, s.loc)
	}
	return nil
}

// Delete removes a reminder. Only an explicit request deletes.
func (s *Scheduler) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[id]; !ok {
		return ErrNotFound
	}
	delete(s.reminders, id)
	return nil
}

// Snooze holds back redelivery of the pending occurrence for d.
func (s *Scheduler) Snooze(id string, d time.Duration) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	if r.DueAt == nil {
		return time.Time{}, ErrNotDue
	}
	until := s.now().Add(d)
	r.RetryAt = &until
	return until, nil
}

// Pending reports whether eventID is still waiting for acknowledgment.
func (s *Scheduler) Pending(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findPending(eventID) != nil
}

// Ack confirms delivery of an occurrence. It returns false when the event is
// unknown or was already acknowledged.
func (s *Scheduler) Ack(eventID string) (Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.findPending(eventID)
	if r == nil {
		return Reminder{}, false
	}
	fired := *r.DueAt
	r.LastFired = &fired
	clearPending(r)
	if r.Rule.OneShot() {
		r.Enabled = false
		r.State = StateDisabled
	} else {
		r.State = StateScheduled
	}
	return *r, true
}

func (s *Scheduler) findPending(eventID string) *Reminder {
	for _, r := range s.reminders {
		if r.DueAt != nil && r.EventID() == eventID {
			return r
		}
	}
	return nil
}

func clearPending(r *Reminder) {
	r.DueAt = nil
	r.Missed = 0
	r.RetryAt = nil
}

// Tick brings the book up to now and publishes what is due. Occurrences that
// were already pending are published again unless snoozed.
func (s *Scheduler) Tick(now time.Time) []Event {
	s.mu.Lock()
	var out []Event
	for _, r := range s.reminders {
		if !r.Enabled {
			continue
		}
		switch r.State {
		case StateScheduled:
			if r.NextFire.After(now) {
				continue
			}
			due := r.NextFire
			r.State = StateDue
			r.DueAt = &due
			if r.Rule.OneShot() {
				r.Missed = 1
			} else {
				r.Missed, r.NextFire = r.Rule.catchUp(due, now, s.loc)
			}
			out = append(out, eventFor(r, false))

		case StateDue:
			// Fold occurrences that passed while unacknowledged into the
			// pending one.
			if !r.Rule.OneShot() && !r.NextFire.After(now) {
				var k int
				k, r.NextFire = r.Rule.catchUp(r.NextFire, now, s.loc)
				r.Missed += k
			}
			if r.RetryAt != nil && r.RetryAt.After(now) {
				continue
			}
			r.RetryAt = nil
			out = append(out, eventFor(r, true))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Scheduled.Equal(out[j].Scheduled) {
			return out[i].Scheduled.Before(out[j].Scheduled)
		}
		return out[i].ReminderID < out[j].ReminderID
	})

	for _, e := range out {
		select {
		case s.events <- e:
		default:
			// The next tick publishes it again.
			slog.Warn("reminder event buffer full", "event_id", e.ID)
		}
	}
	return out
}

func eventFor(r *Reminder, redelivered bool) Event {
	return Event{
		ID:          r.EventID(),
		ReminderID:  r.ID,
		Subject:     r.Subject,
		Kind:        r.Kind,
		Message:     r.Message,
		Scheduled:   *r.DueAt,
		Missed:      r.Missed,
		Redelivered: redelivered,
	}
}

// Load replaces the book with the persisted snapshot.
func (s *Scheduler) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	rs, err := s.store.LoadReminders(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = make(map[string]*Reminder, len(rs))
	for i := range rs {
		r := rs[i]
		s.reminders[r.ID] = &r
	}
	slog.Info("reminders loaded", "count", len(rs))
	return nil
}

// Save writes the whole book as one snapshot.
func (s *Scheduler) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	rs := s.List()
	return s.store.SaveReminders(ctx, rs)
}

// Start ticks immediately, which catches up after downtime, and then on
// every interval until ctx is cancelled. The book is saved on the way out.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		s.Tick(s.now())
		for {
			select {
			case <-ticker.C:
				s.Tick(s.now())
			case <-ctx.Done():
				saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := s.Save(saveCtx); err != nil {
					slog.Error("failed to save reminders", "error", err)
				}
				cancel()
				return
			}
		}
	}()
}

// Wait blocks until the scheduler has stopped and saved.
func (s *Scheduler) Wait() {
	<-s.done
}
