// Package metrics exposes Prometheus collectors for the assistant.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics methods are safe to call on a nil receiver, which records nothing.
type Metrics struct {
	intents            *prometheus.CounterVec
	remindersDue       prometheus.Counter
	remindersRedeliver prometheus.Counter
	remindersAcked     prometheus.Counter
	gatewayRequests    *prometheus.CounterVec
	gatewayLatency     prometheus.Histogram
	storeFailures      *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg and panics on a duplicate
// registration.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eldercare",
			Name:      "intents_total",
			Help:      "Resolved intents by kind.",
		}, []string{"kind"}),
		remindersDue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eldercare",
			Name:      "reminders_due_total",
			Help:      "Reminder occurrences that came due.",
		}),
		remindersRedeliver: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eldercare",
			Name:      "reminders_redelivered_total",
			Help:      "Unacknowledged reminder occurrences published again.",
		}),
		remindersAcked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eldercare",
			Name:      "reminders_acked_total",
			Help:      "Reminder occurrences acknowledged after delivery.",
		}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eldercare",
			Name:      "gateway_requests_total",
			Help:      "Language model requests by outcome.",
		}, []string{"outcome"}),
		gatewayLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eldercare",
			Name:      "gateway_latency_seconds",
			Help:      "Language model round trip time.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eldercare",
			Name:      "store_failures_total",
			Help:      "Failed persistence operations.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.intents, m.remindersDue, m.remindersRedeliver, m.remindersAcked,
		m.gatewayRequests, m.gatewayLatency, m.storeFailures)
	return m
}

func (m *Metrics) Intent(kind string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(kind).Inc()
}

// ReminderPublished counts a due occurrence; redelivered ones separately.
func (m *Metrics) ReminderPublished(redelivered bool) {
	if m == nil {
		return
	}
	if redelivered {
		m.remindersRedeliver.Inc()
		return
	}
	m.remindersDue.Inc()
}

func (m *Metrics) ReminderAcked() {
	if m == nil {
		return
	}
	m.remindersAcked.Inc()
}

// Gateway records one request. outcome is "ok" or the failure kind.
func (m *Metrics) Gateway(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(outcome).Inc()
	m.gatewayLatency.Observe(d.Seconds())
}

func (m *Metrics) StoreFailure(op string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(op).Inc()
}
