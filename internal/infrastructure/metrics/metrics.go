// Package metrics defines and registers the custom Prometheus metrics for the
// credential API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default registry through promauto when the
// package is first imported. HTTP request metrics come from the echoprometheus
// middleware and are not declared here.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "credential"

// ── Credential operations ─────────────────────────────────────────────────────

// OperationsTotal counts credential use cases by outcome.
// Labels:
//   - operation: "register", "login", "forgot_password", "reset_password", "verify_email"
//   - result: "success" or a short failure reason (e.g. "invalid_credentials", "duplicate_email")
var OperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of credential operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// HashDuration measures PBKDF2 derivation time for hash and verify calls.
// Label:
//   - op: "hash" or "verify"
var HashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hashing and verification.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
	},
	[]string{"op"},
)

// SessionsIssuedTotal counts signed session tokens.
var SessionsIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_issued_total",
		Help:      "Total number of session tokens issued.",
	},
)

// ── Notifications ─────────────────────────────────────────────────────────────

// NotificationsTotal counts notification delivery attempts.
// Labels:
//   - kind: "verification" or "password_reset"
//   - result: "sent", "failed", or "dropped" (worker queue full)
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of notifications, by kind and delivery result.",
	},
	[]string{"kind", "result"},
)

// NotificationQueueDepth tracks pending notifications in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
