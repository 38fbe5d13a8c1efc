// Package metrics defines and registers the custom Prometheus metrics of the
// user portal API. It is the single source of truth for metric names, labels
// and help strings.
//
// Metrics are registered with the default registry at package init through
// promauto; HTTP request metrics come from echoprometheus in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "userportal"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// SignUpsTotal counts accounts created through sign-up.
var SignUpsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "signups_total",
		Help:      "Total number of successful sign-ups.",
	},
)

// SignInsTotal counts sign-in attempts.
// Label:
//   - result: "success", "failure" or "throttled"
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "signins_total",
		Help:      "Total number of sign-in attempts, by result.",
	},
	[]string{"result"},
)

// TokensRejectedTotal counts requests rejected by the Auth middleware.
// Label:
//   - reason: "missing_header", "malformed_header", "expired" or "invalid"
var TokensRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "tokens_rejected_total",
		Help:      "Total number of requests rejected for missing or invalid bearer tokens.",
	},
	[]string{"reason"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts auth events persisted to the audit trail.
// Label:
//   - type: the event type (e.g. "sign_in_failure")
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "events_total",
		Help:      "Total number of auth events recorded.",
	},
	[]string{"type"},
)

// AuditErrorsTotal counts auth events that could not be recorded.
// Label:
//   - reason: short description (e.g. "insert_failed", "invalid_type")
var AuditErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "errors_total",
		Help:      "Total number of auth events that failed to be recorded.",
	},
	[]string{"reason"},
)

// AuditQueueDepth tracks the events waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "queue_depth",
		Help:      "Current number of auth events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditRecordDuration measures how long recording one event takes.
var AuditRecordDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "record_duration_seconds",
		Help:      "Duration of persisting a single auth event.",
		Buckets:   prometheus.DefBuckets,
	},
)
