// Package notify publishes caregiver events to NATS JetStream and fans
// emergency alerts out to every configured channel.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tnikhil-24/ElderCare/internal/dispatch"
	"github.com/tnikhil-24/ElderCare/internal/events"
	"github.com/tnikhil-24/ElderCare/internal/reminder"
)

const (
	StreamName           = "ELDERCARE"
	SubjectEmergency     = "eldercare.emergency"
	SubjectReminderFired = "eldercare.reminder.fired"
)

var streamSubjects = []string{"eldercare.emergency", "eldercare.reminder.>"}

// publisher is the part of jetstream.JetStream the bus needs.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

type Bus struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	pub publisher
}

// Connect dials NATS and keeps reconnecting in the background.
func Connect(natsURL string) (*Bus, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("eldercare"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	return &Bus{nc: nc, js: js, pub: js}, nil
}

// Start makes sure the caregiver stream exists. A missing stream is logged
// and publishing falls back to whatever the server accepts.
func (b *Bus) Start(ctx context.Context) error {
	if err := b.ensureStream(ctx, StreamName, streamSubjects); err != nil {
		slog.Warn("stream not available", "stream", StreamName, "error", err)
		return err
	}
	return nil
}

func (b *Bus) ensureStream(ctx context.Context, name string, subjects []string) error {
	if _, err := b.js.Stream(ctx, name); err == nil {
		return nil
	}

	_, err := b.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:      name,
		Subjects:  subjects,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}

	slog.Info("created stream", "name", name, "subjects", subjects)
	return nil
}

// NotifyCaregivers publishes an emergency envelope.
func (b *Bus) NotifyCaregivers(ctx context.Context, a dispatch.Alert) error {
	return b.publish(ctx, SubjectEmergency, events.TypeEmergency, a, a.At)
}

type firedPayload struct {
	ReminderID string        `json:"reminder_id"`
	Subject    string        `json:"subject"`
	Kind       reminder.Kind `json:"kind"`
	Message    string        `json:"message"`
	Scheduled  *time.Time    `json:"scheduled,omitempty"`
}

// ReminderFired publishes that r was delivered and acknowledged.
func (b *Bus) ReminderFired(ctx context.Context, r reminder.Reminder) error {
	p := firedPayload{
		ReminderID: r.ID,
		Subject:    r.Subject,
		Kind:       r.Kind,
		Message:    r.Message,
		Scheduled:  r.LastFired,
	}
	return b.publish(ctx, SubjectReminderFired, events.TypeReminderFired, p, time.Now())
}

func (b *Bus) publish(ctx context.Context, subject, eventType string, payload any, at time.Time) error {
	e, err := events.New(eventType, payload, at)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	if _, err := b.pub.Publish(ctx, subject, data, jetstream.WithMsgID(e.EventID)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	slog.Debug("event published", "subject", subject, "event_id", e.EventID)
	return nil
}

// Close drains pending publishes and closes the connection.
func (b *Bus) Close() {
	if b.nc == nil {
		return
	}
	if err := b.nc.Drain(); err != nil {
		slog.Warn("NATS drain failed", "error", err)
	}
}

// Fanout delivers an alert to every notifier. One failing channel does not
// stop the others.
type Fanout []dispatch.Notifier

func (f Fanout) NotifyCaregivers(ctx context.Context, a dispatch.Alert) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.NotifyCaregivers(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
