// Package metrics defines and registers the custom Prometheus metrics of the
// gatekeeper API. It is the single source of truth for metric names, labels,
// and help strings.
//
// All collectors register with the default registry through promauto, so
// importing the package is enough; /metrics serves them next to the HTTP
// metrics collected by echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gatekeeper"

// ── Account metrics ───────────────────────────────────────────────────────────

// SignupsTotal counts signup attempts.
// Label:
//   - result: "created", "exists", "invalid" or "error"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "not_registered", "banned", "incorrect_password" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Gate metrics ──────────────────────────────────────────────────────────────

// AuthRejectionsTotal counts requests refused by the authentication or
// authorization gate.
// Label:
//   - reason: "missing_token", "expired", "invalid", "verification",
//     "user_not_found", "banned", "lookup_failed" or "insufficient_role"
var AuthRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_rejections_total",
		Help:      "Total number of requests rejected by the auth gates, by reason.",
	},
	[]string{"reason"},
)

// IdentityLookupDuration measures the per-request account status lookup
// performed by the authentication gate (cache or store).
var IdentityLookupDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "identity_lookup_duration_seconds",
		Help:      "Duration of the account status lookup done on every authenticated request.",
		Buckets:   prometheus.DefBuckets,
	},
)
