// Package engine runs the conversation: user turns and reminder
// announcements go through the same dispatcher, one at a time.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tnikhil-24/ElderCare/internal/dialogue"
	"github.com/tnikhil-24/ElderCare/internal/dispatch"
	"github.com/tnikhil-24/ElderCare/internal/gateway"
	"github.com/tnikhil-24/ElderCare/internal/intent"
	"github.com/tnikhil-24/ElderCare/internal/metrics"
	"github.com/tnikhil-24/ElderCare/internal/normalize"
	"github.com/tnikhil-24/ElderCare/internal/parser"
	"github.com/tnikhil-24/ElderCare/internal/reminder"
	"github.com/tnikhil-24/ElderCare/internal/session"
)

// DefaultGatewayTimeout bounds one language model call.
const DefaultGatewayTimeout = 15 * time.Second

// Announcement is a reminder spoken to the user.
type Announcement struct {
	EventID     string    `json:"event_id"`
	ReminderID  string    `json:"reminder_id"`
	Text        string    `json:"text"`
	Scheduled   time.Time `json:"scheduled"`
	Redelivered bool      `json:"redelivered"`
}

// Deliverer puts an announcement in front of the user. A nil error means the
// user has it and the occurrence can be acknowledged. ErrHeld means a client
// will collect it later and acknowledge it through Engine.Acknowledge.
type Deliverer interface {
	Deliver(ctx context.Context, a Announcement) error
}

// FiredObserver hears about every acknowledged reminder.
type FiredObserver interface {
	ReminderFired(ctx context.Context, r reminder.Reminder) error
}

type Config struct {
	DialogueTimeout time.Duration
	GatewayTimeout  time.Duration
	Deliverer       Deliverer
	Observer        FiredObserver
	Metrics         *metrics.Metrics
	Now             func() time.Time
}

// Reply is the outcome of one user turn.
type Reply struct {
	Text    string        `json:"response"`
	Intent  intent.Intent `json:"-"`
	Goodbye bool          `json:"goodbye,omitempty"`
}

type Engine struct {
	// mu serialises every use of session and dispatcher.
	mu         sync.Mutex
	session    *session.Session
	dialogue   *dialogue.Manager
	parser     *parser.Parser
	dispatcher *dispatch.Dispatcher

	deliverer Deliverer
	observer  FiredObserver
	metrics   *metrics.Metrics
	gwTimeout time.Duration
	now       func() time.Time
	done      chan struct{}
	// gen counts committed turns. A delegated turn that comes back to a
	// newer generation leaves the dialogue context alone.
	gen uint64
}

func New(s *session.Session, d *dispatch.Dispatcher, cfg Config) *Engine {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = DefaultGatewayTimeout
	}
	if cfg.Deliverer == nil {
		cfg.Deliverer = NewQueue(0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		session:    s,
		dialogue:   dialogue.NewManager(cfg.DialogueTimeout),
		parser:     parser.New(s.Profile.Vocabulary()),
		dispatcher: d,
		deliverer:  cfg.Deliverer,
		observer:   cfg.Observer,
		metrics:    cfg.Metrics,
		gwTimeout:  cfg.GatewayTimeout,
		now:        cfg.Now,
		done:       make(chan struct{}),
	}
}

// Reminders is the session's reminder book, which has its own locking.
func (e *Engine) Reminders() *reminder.Scheduler {
	return e.session.Reminders
}

// Context returns the live dialogue context.
func (e *Engine) Context() dialogue.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dialogue.Current(e.session.Context, e.now())
}

// Greeting is the first thing said in an interactive conversation.
func (e *Engine) Greeting() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return "Hello " + e.session.Profile.Name + "! I'm ElderCare, your health companion. " +
		"You can ask me to record your glucose, list your medications, or just chat. Say help to hear more."
}

// HandleTurn answers one utterance. A language model call is made without
// holding the lock so reminders keep flowing while it is outstanding.
func (e *Engine) HandleTurn(ctx context.Context, text string) Reply {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.dialogue.Current(e.session.Context, e.now())
	if !c.Active() && e.session.Context.Active() {
		slog.Debug("dialogue context expired", "pending", e.session.Context.Pending.String())
	}
	e.session.Context = c

	in := e.parser.Parse(normalize.Tokens(text), text, c)
	e.metrics.Intent(string(in.Kind()))
	slog.Debug("intent resolved", "intent", in.String())

	p := e.dispatcher.Route(ctx, in, e.session)
	if p.Err != nil {
		e.metrics.StoreFailure("query")
	}

	var reply string
	current := true
	if p.Delegate != nil {
		req := *p.Delegate
		gen := e.gen
		e.mu.Unlock()
		reply = e.delegate(ctx, req)
		e.mu.Lock()
		current = e.gen == gen
	} else {
		var err error
		reply, err = e.dispatcher.Apply(ctx, p)
		switch up := p.UpdatedProfile(); {
		case err != nil && up != nil:
			e.metrics.StoreFailure("save_profile")
		case err != nil:
			e.metrics.StoreFailure("append_record")
		case up != nil:
			e.session.Profile = up
			e.parser = parser.New(up.Vocabulary())
			slog.Info("profile updated", "field", string(in.Field()))
		}
	}

	if current {
		next := in
		if p.Await.Pending() {
			next = p.Await
		}
		e.session.Context = e.dialogue.Update(e.session.Context, next, e.now())
	} else {
		slog.Debug("dialogue moved on during gateway call, keeping context", "pending", e.session.Context.Pending.String())
	}
	e.gen++
	e.session.AddTurn(gateway.RoleUser, text)
	e.session.AddTurn(gateway.RoleAssistant, reply)

	return Reply{Text: reply, Intent: in, Goodbye: p.Goodbye}
}

func (e *Engine) delegate(ctx context.Context, req gateway.Request) string {
	gctx, cancel := context.WithTimeout(ctx, e.gwTimeout)
	defer cancel()

	start := time.Now()
	reply, err := e.dispatcher.Delegate(gctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		var ge *gateway.Error
		if errors.As(err, &ge) {
			outcome = string(ge.Kind)
		}
	}
	e.metrics.Gateway(outcome, time.Since(start))
	return reply
}

// Start consumes due reminders until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	book := e.session.Reminders
	go func() {
		defer close(e.done)
		if book == nil {
			<-ctx.Done()
			return
		}
		events := book.Events()
		for {
			select {
			case ev := <-events:
				e.deliver(ctx, ev)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Wait blocks until the reminder loop has stopped and every caregiver alert
// has been sent.
func (e *Engine) Wait() {
	<-e.done
	e.dispatcher.Wait()
}

// deliver announces one occurrence and acknowledges it once the user has
// it. A failed delivery leaves the occurrence pending for the next tick.
func (e *Engine) deliver(ctx context.Context, ev reminder.Event) {
	book := e.session.Reminders
	if !book.Pending(ev.ID) {
		slog.Debug("skipping stale reminder event", "event_id", ev.ID)
		return
	}

	e.mu.Lock()
	p := e.dispatcher.Route(ctx, intent.ReminderDue(ev.ReminderID), e.session)
	e.mu.Unlock()
	if p.Response == "" {
		return
	}
	e.metrics.ReminderPublished(ev.Redelivered)

	a := Announcement{
		EventID:     ev.ID,
		ReminderID:  ev.ReminderID,
		Text:        p.Response,
		Scheduled:   ev.Scheduled,
		Redelivered: ev.Redelivered,
	}
	if err := e.deliverer.Deliver(ctx, a); err != nil {
		if errors.Is(err, ErrHeld) {
			slog.Debug("announcement held for collection", "reminder_id", ev.ReminderID)
			return
		}
		slog.Warn("reminder delivery failed, will retry", "reminder_id", ev.ReminderID, "error", err)
		return
	}
	e.Acknowledge(ctx, a)
}

// Acknowledge marks a delivered announcement as heard. It reports false when
// the occurrence is no longer pending, so a client can skip duplicates.
func (e *Engine) Acknowledge(ctx context.Context, a Announcement) bool {
	book := e.session.Reminders
	if book == nil {
		return false
	}
	r, ok := book.Ack(a.EventID)
	if !ok {
		return false
	}
	e.metrics.ReminderAcked()
	slog.Info("reminder delivered", "reminder_id", r.ID, "subject", r.Subject, "scheduled", a.Scheduled)

	e.mu.Lock()
	e.session.AddTurn(gateway.RoleAssistant, a.Text)
	e.mu.Unlock()

	if e.observer != nil {
		if err := e.observer.ReminderFired(ctx, r); err != nil {
			slog.Warn("failed to publish reminder event", "reminder_id", r.ID, "error", err)
		}
	}
	return true
}
