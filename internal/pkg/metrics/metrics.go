// Package metrics defines and registers the custom Prometheus metrics of the
// LMS API. It is the single source of truth for metric names, labels, and help
// strings. All metrics are registered with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lms"

// ── Authentication ───────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_input", "unauthenticated", "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokensIssuedTotal counts signed tokens.
// Label:
//   - policy: "login" or "short_lived"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of bearer tokens issued, by expiry policy.",
	},
	[]string{"policy"},
)

// TokenVerificationsTotal counts bearer token checks.
// Label:
//   - result: "ok" or the rejection reason (e.g. "token_expired", "subject_not_found")
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of bearer token verifications, by result.",
	},
	[]string{"result"},
)

// AuthorizationDecisionsTotal counts role checks.
// Label:
//   - decision: "allow" or "deny"
var AuthorizationDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_decisions_total",
		Help:      "Total number of role authorization decisions.",
	},
	[]string{"decision"},
)

// DataIntegrityFaultsTotal counts stored records that could not be interpreted.
var DataIntegrityFaultsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "data_integrity_faults_total",
		Help:      "Total number of malformed stored credentials encountered.",
	},
)

// IdentityCacheTotal counts identity cache lookups.
// Label:
//   - result: "hit", "miss", "error"
var IdentityCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_cache_total",
		Help:      "Total number of identity cache lookups, by result.",
	},
	[]string{"result"},
)

// ── Audit trail ──────────────────────────────────────────────────────────────

// AuditEventsTotal counts audit events that reached the store.
// Labels:
//   - type: the event type (e.g. "login_failed")
//   - result: "stored" or "error"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events processed, by type and result.",
	},
	[]string{"type", "result"},
)

// AuditEventsDroppedTotal counts events discarded because a worker queue was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped because the worker queue was full.",
	},
)

// AuditQueueDepth tracks events waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
