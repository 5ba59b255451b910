package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tnikhil-24/ElderCare/internal/engine"
	"github.com/tnikhil-24/ElderCare/internal/intent"
	"github.com/tnikhil-24/ElderCare/internal/reminder"
	"github.com/tnikhil-24/ElderCare/internal/store"
)

const defaultSnooze = 10 * time.Minute

type Server struct {
	engine  *engine.Engine
	records store.RecordStore
	queue   *engine.Queue
	router  chi.Router
	http    *http.Server
	port    int
}

// NewServer wires the HTTP API. queue is where the engine delivers reminder
// announcements for clients to collect; gatherer backs /metrics and may be
// nil.
func NewServer(e *engine.Engine, records store.RecordStore, queue *engine.Queue, gatherer prometheus.Gatherer, port int) *Server {
	srv := &Server{
		engine:  e,
		records: records,
		queue:   queue,
		port:    port,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", srv.handleHealth)
		r.Post("/turns", srv.handleTurn)
		r.Get("/reminders", srv.handleListReminders)
		r.Post("/reminders", srv.handleCreateReminder)
		r.Delete("/reminders/{id}", srv.handleDisableReminder)
		r.Post("/reminders/{id}/enable", srv.handleEnableReminder)
		r.Post("/reminders/{id}/snooze", srv.handleSnoozeReminder)
		r.Get("/announcements", srv.handleAnnouncements)
		r.Get("/records", srv.handleRecords)
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	srv.router = r
	return srv
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	slog.Info("starting HTTP API", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"service": "eldercare",
	}
	if book := s.engine.Reminders(); book != nil {
		body["reminders"] = len(book.List())
	}
	if s.queue != nil {
		body["announcements"] = s.queue.Len()
	}
	writeJSON(w, http.StatusOK, body)
}

type turnRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	Response string      `json:"response"`
	Intent   intent.Kind `json:"intent"`
	Goodbye  bool        `json:"goodbye,omitempty"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	reply := s.engine.HandleTurn(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, turnResponse{
		Response: reply.Text,
		Intent:   reply.Intent.Kind(),
		Goodbye:  reply.Goodbye,
	})
}

func (s *Server) book(w http.ResponseWriter) *reminder.Scheduler {
	book := s.engine.Reminders()
	if book == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "reminders are not enabled"})
	}
	return book
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	book := s.book(w)
	if book == nil {
		return
	}
	writeJSON(w, http.StatusOK, book.List())
}

// reminderRequest describes a new reminder. Exactly one of At, Every or
// Daily picks the rule; Every may be combined with At to set its phase.
type reminderRequest struct {
	Subject string        `json:"subject"`
	Kind    reminder.Kind `json:"kind"`
	Message string        `json:"message"`
	At      *time.Time    `json:"at"`
	Every   string        `json:"every"`
	Daily   string        `json:"daily"`
}

func (req reminderRequest) draft() (reminder.Draft, error) {
	d := reminder.Draft{Subject: req.Subject, Kind: req.Kind, Message: req.Message}
	switch {
	case req.Daily != "":
		tod, err := reminder.ParseTimeOfDay(req.Daily)
		if err != nil {
			return d, &reminder.ValidationError{Field: "rule.anchor", Reason: "must be HH:MM"}
		}
		d.Rule = reminder.Daily(tod)
	case req.Every != "":
		iv, err := time.ParseDuration(req.Every)
		if err != nil {
			return d, &reminder.ValidationError{Field: "rule.interval", Reason: "must be a duration such as 4h"}
		}
		d.Rule = reminder.Every(iv)
		if req.At != nil {
			d.Rule.At = *req.At
		}
	case req.At != nil:
		d.Rule = reminder.Once(*req.At)
	}
	return d, nil
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	book := s.book(w)
	if book == nil {
		return
	}

	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	d, err := req.draft()
	if err == nil {
		var created reminder.Reminder
		created, err = book.Add(d)
		if err == nil {
			s.persist(r.Context(), book)
			writeJSON(w, http.StatusCreated, created)
			return
		}
	}

	var ve *reminder.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error(), "field": ve.Field})
		return
	}
	slog.Error("create reminder failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// handleDisableReminder disables a reminder, or removes it for good with
// ?purge=true.
func (s *Server) handleDisableReminder(w http.ResponseWriter, r *http.Request) {
	book := s.book(w)
	if book == nil {
		return
	}
	id := chi.URLParam(r, "id")

	status, op := "disabled", book.Disable
	if r.URL.Query().Get("purge") == "true" {
		status, op = "deleted", book.Delete
	}
	s.changeReminder(w, r, book, id, status, op)
}

func (s *Server) handleEnableReminder(w http.ResponseWriter, r *http.Request) {
	book := s.book(w)
	if book == nil {
		return
	}
	s.changeReminder(w, r, book, chi.URLParam(r, "id"), "enabled", book.Enable)
}

func (s *Server) changeReminder(w http.ResponseWriter, r *http.Request, book *reminder.Scheduler, id, status string, op func(string) error) {
	if err := op(id); err != nil {
		if errors.Is(err, reminder.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "reminder not found"})
			return
		}
		slog.Error("reminder update failed", "reminder_id", id, "status", status, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	s.persist(r.Context(), book)
	writeJSON(w, http.StatusOK, map[string]string{"status": status, "id": id})
}

type snoozeRequest struct {
	Minutes int `json:"minutes"`
}

func (s *Server) handleSnoozeReminder(w http.ResponseWriter, r *http.Request) {
	book := s.book(w)
	if book == nil {
		return
	}
	id := chi.URLParam(r, "id")

	d := defaultSnooze
	var req snoozeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
	}
	if req.Minutes < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "minutes must be positive"})
		return
	}
	if req.Minutes > 0 {
		d = time.Duration(req.Minutes) * time.Minute
	}

	until, err := book.Snooze(id, d)
	switch {
	case errors.Is(err, reminder.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reminder not found"})
	case errors.Is(err, reminder.ErrNotDue):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "reminder is not due"})
	case err != nil:
		slog.Error("snooze reminder failed", "reminder_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "until": until})
	}
}

// handleAnnouncements hands queued announcements to the client and
// acknowledges them. Occurrences acknowledged in the meantime are skipped.
func (s *Server) handleAnnouncements(w http.ResponseWriter, r *http.Request) {
	out := []engine.Announcement{}
	if s.queue != nil {
		for _, a := range s.queue.Drain() {
			if s.engine.Acknowledge(r.Context(), a) {
				out = append(out, a)
			}
		}
	}
	if len(out) > 0 {
		s.persist(r.Context(), s.engine.Reminders())
	}
	writeJSON(w, http.StatusOK, out)
}

var knownMetrics = map[intent.Metric]bool{
	intent.MetricGlucose:             true,
	intent.MetricSleep:               true,
	intent.MetricMedicationAdherence: true,
	intent.MetricMood:                true,
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "records are not enabled"})
		return
	}

	metric := intent.Metric(r.URL.Query().Get("kind"))
	if metric != "" && !knownMetrics[metric] {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown kind"})
		return
	}
	since := time.Now().Add(-7 * 24 * time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be RFC3339"})
			return
		}
		since = t
	}

	recs, err := s.records.Query(r.Context(), metric, since)
	if err != nil {
		slog.Error("query records failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if recs == nil {
		recs = []store.HealthRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// persist saves the book after a change made over the API. A failed save is
// retried by the scheduler's own save on shutdown.
func (s *Server) persist(ctx context.Context, book *reminder.Scheduler) {
	if err := book.Save(ctx); err != nil {
		slog.Warn("failed to save reminders", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
