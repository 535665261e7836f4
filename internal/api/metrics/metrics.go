// Package metrics defines the custom Prometheus metrics of the auth portal.
// It is the single source of truth for metric names, labels, and help strings.
//
// All metrics register with the default Prometheus registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authportal"

// Result label values shared by the counters below.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDenied  = "denied"
	ResultError   = "error"
)

// ── Authentication ────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts password-step attempts.
// Label:
//   - result: "success", "failure" (bad credentials) or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of password login attempts, by result.",
	},
	[]string{"result"},
)

// TwoFactorVerificationsTotal counts 2FA code submissions.
// Label:
//   - result: "success", "failure" (wrong, expired or replaced code) or "error"
var TwoFactorVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "two_factor_verifications_total",
		Help:      "Total number of 2FA verifications, by result.",
	},
	[]string{"result"},
)

// PasswordResetsTotal counts password-reset steps.
// Labels:
//   - stage: "request" or "complete"
//   - result: "success", "failure" or "error"
var PasswordResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Total number of password reset requests and completions, by stage and result.",
	},
	[]string{"stage", "result"},
)

// AdminPanelAccessTotal counts admin panel views.
// Label:
//   - result: "success", "denied" or "error"
var AdminPanelAccessTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admin_panel_access_total",
		Help:      "Total number of admin panel access attempts, by result.",
	},
	[]string{"result"},
)

// ── Audit ─────────────────────────────────────────────────────────────────────

// AuditSinkErrorsTotal counts audit lines that could not be written to the
// text log. The structured entry is stored regardless.
var AuditSinkErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_sink_errors_total",
		Help:      "Total number of audit lines the text log failed to write.",
	},
)

// ── Mail ──────────────────────────────────────────────────────────────────────

// MailDeliveriesTotal counts outgoing messages.
// Labels:
//   - driver: "smtp" or "log"
//   - result: "success" or "failure"
var MailDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_deliveries_total",
		Help:      "Total number of email deliveries, by driver and result.",
	},
	[]string{"driver", "result"},
)

// MailQueueDepth tracks the messages waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of emails pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// MailDeliveryDuration measures how long a single delivery takes.
var MailDeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_delivery_duration_seconds",
		Help:      "Duration of a single email delivery attempt.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"driver"},
)
