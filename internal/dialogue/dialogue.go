// Package dialogue tracks the one outstanding slot request of a session.
package dialogue

import (
	"time"

	"github.com/tnikhil-24/ElderCare/internal/intent"
)

// DefaultTimeout is how long a pending request survives user inactivity.
const DefaultTimeout = 60 * time.Second

// Context is the short-lived state of an unresolved intent. The zero value is
// an empty context.
type Context struct {
	Pending     intent.Intent
	Expect      intent.Slot
	Attempts    int
	LastUpdated time.Time
}

// Active reports whether a slot request is outstanding.
func (c Context) Active() bool {
	return c.Pending.Pending()
}

type Manager struct {
	timeout time.Duration
}

func NewManager(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{timeout: timeout}
}

func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// IsExpired reports whether c is older than the inactivity timeout.
func (m *Manager) IsExpired(c Context, now time.Time) bool {
	return c.Active() && now.Sub(c.LastUpdated) > m.timeout
}

// Current returns c, or an empty context when c has expired.
func (m *Manager) Current(c Context, now time.Time) Context {
	if !c.Active() || m.IsExpired(c, now) {
		return Context{}
	}
	return c
}

// Update applies the outcome of one turn to the context.
//
// A pending intent replaces whatever was outstanding; asking again for the
// same value counts as another attempt. Help and emergency leave the context
// as it was, and so do reminder announcements. Anything else resolves it.
func (m *Manager) Update(c Context, in intent.Intent, now time.Time) Context {
	switch {
	case in.Pending():
		attempts := 0
		if c.Active() && c.Pending.Equal(in) {
			attempts = c.Attempts + 1
		}
		return Context{
			Pending:     in,
			Expect:      in.ExpectedSlot(),
			Attempts:    attempts,
			LastUpdated: now,
		}
	case in.SafetyCritical(), in.Kind() == intent.KindReminderDue:
		return c
	default:
		return Context{}
	}
}
