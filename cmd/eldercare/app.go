package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tnikhil-24/ElderCare/internal/config"
	"github.com/tnikhil-24/ElderCare/internal/dispatch"
	"github.com/tnikhil-24/ElderCare/internal/engine"
	"github.com/tnikhil-24/ElderCare/internal/gateway"
	"github.com/tnikhil-24/ElderCare/internal/metrics"
	"github.com/tnikhil-24/ElderCare/internal/notify"
	"github.com/tnikhil-24/ElderCare/internal/profile"
	"github.com/tnikhil-24/ElderCare/internal/reminder"
	"github.com/tnikhil-24/ElderCare/internal/session"
	slackalert "github.com/tnikhil-24/ElderCare/internal/slack"
	"github.com/tnikhil-24/ElderCare/internal/store"
)

// app is everything one running assistant needs.
type app struct {
	store    store.DataStore
	bus      *notify.Bus
	book     *reminder.Scheduler
	engine   *engine.Engine
	registry *prometheus.Registry
}

func buildApp(ctx context.Context, cfg *config.Config, source store.Source, deliverer engine.Deliverer) (*app, error) {
	a := &app{registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(a.registry)

	// Step 1: Storage. Postgres when configured, memory otherwise.
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.store = db
		slog.Info("database connected")
	} else {
		a.store = store.NewMemory()
		slog.Warn("DATABASE_URL not set, health records are kept in memory only")
	}

	// Step 2: Profile and reminder book.
	p, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		a.close()
		return nil, err
	}
	a.book = reminder.NewScheduler(a.store, reminder.Config{Tick: cfg.ReminderTick})
	if err := a.book.Load(ctx); err != nil {
		slog.Error("failed to load reminders, starting with an empty book", "error", err)
	}
	if len(a.book.List()) == 0 {
		if err := seed(a.book, p); err != nil {
			a.close()
			return nil, err
		}
	}

	// Step 3: Caregiver channels.
	var channels notify.Fanout
	if cfg.NatsURL != "" {
		bus, err := notify.Connect(cfg.NatsURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.bus = bus
		if err := bus.Start(ctx); err != nil {
			slog.Warn("caregiver stream unavailable, publishing anyway", "error", err)
		}
		channels = append(channels, bus)
	}
	if cfg.SlackEnabled() {
		channels = append(channels, slackalert.NewAlerter(cfg.SlackBotToken, cfg.SlackAlertChannel))
		slog.Info("Slack caregiver alerts enabled", "channel", cfg.SlackAlertChannel)
	}
	var notifier dispatch.Notifier
	if len(channels) > 0 {
		notifier = channels
	}

	// Step 4: Language model.
	var gw gateway.Gateway = gateway.Unavailable{}
	if cfg.LLMAPIKey != "" {
		gw = gateway.NewClient(gateway.Config{
			BaseURL:     cfg.LLMBaseURL,
			APIKey:      cfg.LLMAPIKey,
			Model:       cfg.LLMModel,
			Timeout:     cfg.LLMTimeout,
			Temperature: &cfg.LLMTemperature,
		})
	} else {
		slog.Warn("no language model API key, open conversation will use the fallback reply")
	}

	// Step 5: Engine.
	d := dispatch.New(a.store, gw, notifier, dispatch.Config{
		ContextTurns: cfg.ContextTurns,
		Source:       source,
		ProfilePath:  cfg.ProfilePath,
	})
	s := session.New(p, a.book, 0)
	ecfg := engine.Config{
		DialogueTimeout: cfg.DialogueTimeout,
		GatewayTimeout:  cfg.LLMTimeout,
		Deliverer:       deliverer,
		Metrics:         m,
	}
	if a.bus != nil {
		ecfg.Observer = a.bus
	}
	a.engine = engine.New(s, d, ecfg)
	return a, nil
}

// seed fills an empty book from the profile.
func seed(book *reminder.Scheduler, p *profile.Profile) error {
	drafts, err := p.SeedReminders()
	if err != nil {
		return err
	}
	for _, d := range drafts {
		if _, err := book.Add(d); err != nil {
			return fmt.Errorf("seed reminder %s: %w", d.Subject, err)
		}
	}
	slog.Info("seeded reminders from profile", "count", len(drafts))
	return nil
}

// start runs the reminder scheduler and the engine's reminder loop.
func (a *app) start(ctx context.Context) {
	a.book.Start(ctx)
	a.engine.Start(ctx)
}

// wait blocks until both loops have stopped and caregiver alerts are out;
// the book is saved by then.
func (a *app) wait() {
	a.book.Wait()
	a.engine.Wait()
}

func (a *app) close() {
	if a.bus != nil {
		a.bus.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

const shutdownTimeout = 10 * time.Second
