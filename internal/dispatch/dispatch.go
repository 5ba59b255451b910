// Package dispatch maps a resolved intent to a reply.
//
// Local handlers do not write anywhere. They return a Plan describing the
// reply and the side effects it needs; Apply carries the effects out. Free
// form requests are delegated to the language model gateway.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tnikhil-24/ElderCare/internal/gateway"
	"github.com/tnikhil-24/ElderCare/internal/intent"
	"github.com/tnikhil-24/ElderCare/internal/profile"
	"github.com/tnikhil-24/ElderCare/internal/session"
	"github.com/tnikhil-24/ElderCare/internal/store"
)

// FallbackReply is said whenever the gateway cannot answer.
const FallbackReply = "I'm having trouble thinking right now. Can we try again in a moment?"

// DefaultNotifyTimeout bounds one caregiver alert.
const DefaultNotifyTimeout = 10 * time.Second

// SaveFailedReply replaces a reply whose record could not be stored.
const SaveFailedReply = "I'm sorry, I couldn't save that right now. Please try again in a little while."

type EffectKind string

const (
	EffectAppendRecord     EffectKind = "append_record"
	EffectNotifyCaregivers EffectKind = "notify_caregivers"
	EffectSaveProfile      EffectKind = "save_profile"
)

type Effect struct {
	Kind    EffectKind
	Record  store.HealthRecord
	Alert   Alert
	Profile *profile.Profile
}

// Alert asks for the caregivers to be told about an emergency.
type Alert struct {
	UserName string            `json:"user_name"`
	Text     string            `json:"text"`
	Contacts []profile.Contact `json:"contacts"`
	At       time.Time         `json:"at"`
}

// Notifier delivers caregiver alerts.
type Notifier interface {
	NotifyCaregivers(ctx context.Context, a Alert) error
}

// Plan is the outcome of routing one intent.
type Plan struct {
	Intent   intent.Intent
	Response string
	Effects  []Effect
	// Await is a pending intent the dialogue context should wait on.
	Await intent.Intent
	// Delegate is set when the reply must come from the gateway.
	Delegate *gateway.Request
	// Goodbye ends an interactive conversation.
	Goodbye bool
	// Err is a store failure met while routing; the reply already covers it.
	Err error
}

// UpdatedProfile is the profile the plan saves, or nil.
func (p Plan) UpdatedProfile() *profile.Profile {
	for _, e := range p.Effects {
		if e.Kind == EffectSaveProfile {
			return e.Profile
		}
	}
	return nil
}

type Config struct {
	ContextTurns int
	Source       store.Source
	// ProfilePath is where profile changes are written. Empty keeps them in
	// memory only.
	ProfilePath   string
	NotifyTimeout time.Duration
	Now           func() time.Time
}

type Dispatcher struct {
	records       store.RecordStore
	gw            gateway.Gateway
	notifier      Notifier
	turns         int
	source        store.Source
	profilePath   string
	notifyTimeout time.Duration
	now           func() time.Time

	alerts sync.WaitGroup
}

func New(records store.RecordStore, gw gateway.Gateway, n Notifier, cfg Config) *Dispatcher {
	if gw == nil {
		gw = gateway.Unavailable{}
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 10
	}
	if cfg.Source == "" {
		cfg.Source = store.SourceText
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dispatcher{
		records:       records,
		gw:            gw,
		notifier:      n,
		turns:         cfg.ContextTurns,
		source:        cfg.Source,
		profilePath:   cfg.ProfilePath,
		notifyTimeout: cfg.NotifyTimeout,
		now:           cfg.Now,
	}
}

// Route decides how to answer in. It reads s but never changes it.
func (d *Dispatcher) Route(ctx context.Context, in intent.Intent, s *session.Session) Plan {
	p := Plan{Intent: in}
	switch in.Kind() {
	case intent.KindRecordMetric:
		d.recordMetric(in, s, &p)
	case intent.KindRecordMedicationTaken:
		d.medicationTaken(in, s, &p)
	case intent.KindListMedications:
		p.Response = listMedications(s.Profile)
	case intent.KindHealthSummary:
		p.Response, p.Err = d.healthSummary(ctx)
	case intent.KindEmergency:
		d.emergency(s, &p)
	case intent.KindHelp:
		p.Response = helpText
	case intent.KindGoodbye:
		p.Response = "Goodbye! Take care of yourself, and remember I'm here whenever you need me."
		p.Goodbye = true
	case intent.KindListReminders:
		p.Response = listReminders(s)
	case intent.KindUpdateProfile:
		d.updateProfile(in, s, &p)
	case intent.KindReminderDue:
		p.Response = announce(s, in.ReminderID())
	case intent.KindFreeForm:
		p.Delegate = d.request(in.Text(), s)
	default:
		p.Response = "I didn't catch that. Could you say it again?"
	}
	return p
}

func (d *Dispatcher) request(text string, s *session.Session) *gateway.Request {
	return &gateway.Request{
		Turns:   s.Recent(d.turns),
		Text:    text,
		Profile: s.Profile.Summary(),
	}
}

// Delegate asks the gateway. The reply is never empty: any failure yields
// FallbackReply together with the error.
func (d *Dispatcher) Delegate(ctx context.Context, req gateway.Request) (string, error) {
	reply, err := d.gw.Complete(ctx, req)
	if err != nil {
		var ge *gateway.Error
		if !errors.As(err, &ge) {
			err = &gateway.Error{Kind: gateway.KindNetwork, Err: err}
		}
		slog.Warn("gateway failed, using fallback", "error", err)
		return FallbackReply, err
	}
	if reply == "" {
		return FallbackReply, &gateway.Error{Kind: gateway.KindMalformed}
	}
	return reply, nil
}

// Apply performs the plan's effects and returns the final reply. A failed
// record or profile write changes the reply and is returned. Caregiver
// alerts are sent in the background so the reply never waits on them; use
// Wait to let them finish.
func (d *Dispatcher) Apply(ctx context.Context, p Plan) (string, error) {
	reply := p.Response
	var firstErr error
	fail := func(err error) {
		reply = SaveFailedReply
		if firstErr == nil {
			firstErr = err
		}
	}
	for _, e := range p.Effects {
		switch e.Kind {
		case EffectAppendRecord:
			if d.records == nil {
				continue
			}
			if err := d.records.Append(ctx, e.Record); err != nil {
				slog.Error("failed to append health record", "metric", e.Record.Metric, "error", err)
				fail(err)
			}
		case EffectSaveProfile:
			if d.profilePath == "" || e.Profile == nil {
				continue
			}
			if err := e.Profile.Save(d.profilePath); err != nil {
				slog.Error("failed to save profile", "path", d.profilePath, "error", err)
				fail(err)
			}
		case EffectNotifyCaregivers:
			if d.notifier == nil {
				slog.Warn("emergency raised but no caregiver notifier configured")
				continue
			}
			d.notify(ctx, e.Alert)
		}
	}
	return reply, firstErr
}

func (d *Dispatcher) notify(ctx context.Context, a Alert) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.notifyTimeout)
	d.alerts.Add(1)
	go func() {
		defer d.alerts.Done()
		defer cancel()
		if err := d.notifier.NotifyCaregivers(nctx, a); err != nil {
			slog.Error("failed to notify caregivers", "error", err)
			return
		}
		slog.Info("caregivers notified", "user", a.UserName)
	}()
}

// Wait blocks until every caregiver alert started by Apply has finished.
func (d *Dispatcher) Wait() {
	d.alerts.Wait()
}
