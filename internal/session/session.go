// Package session holds the per-user conversation state. A Session is not
// safe for concurrent use; the engine serialises access to it.
package session

import (
	"github.com/tnikhil-24/ElderCare/internal/dialogue"
	"github.com/tnikhil-24/ElderCare/internal/gateway"
	"github.com/tnikhil-24/ElderCare/internal/profile"
	"github.com/tnikhil-24/ElderCare/internal/reminder"
)

// DefaultWindow is how many turns are kept in memory.
const DefaultWindow = 40

type Session struct {
	Context   dialogue.Context
	Profile   *profile.Profile
	Reminders *reminder.Scheduler

	turns  []gateway.Turn
	window int
}

func New(p *profile.Profile, book *reminder.Scheduler, window int) *Session {
	if window <= 0 {
		window = DefaultWindow
	}
	if p == nil {
		p = profile.Default()
	}
	return &Session{Profile: p, Reminders: book, window: window}
}

// AddTurn appends a turn, dropping the oldest beyond the window.
func (s *Session) AddTurn(role gateway.Role, text string) {
	s.turns = append(s.turns, gateway.Turn{Role: role, Text: text})
	if over := len(s.turns) - s.window; over > 0 {
		s.turns = append([]gateway.Turn(nil), s.turns[over:]...)
	}
}

// Recent returns up to n of the latest turns, oldest first.
func (s *Session) Recent(n int) []gateway.Turn {
	if n <= 0 {
		return nil
	}
	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}
	return append([]gateway.Turn(nil), s.turns[start:]...)
}

func (s *Session) TurnCount() int {
	return len(s.turns)
}
