// Package metrics provides Prometheus metrics for the project management API.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "pm"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// RateLimitedTotal counts requests rejected by the per-user limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total requests rejected by the rate limiter",
		},
	)
)

// Workspace metrics
var (
	// WorkspacesCreated counts created workspaces.
	WorkspacesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workspace",
			Name:      "created_total",
			Help:      "Total workspaces created",
		},
	)

	// InvitesIssued counts issued invites by kind (token, link).
	InvitesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workspace",
			Name:      "invites_issued_total",
			Help:      "Total workspace invites issued",
		},
		[]string{"kind"},
	)

	// InvitesAccepted counts accept attempts by kind and outcome
	// (joined, already_member, invalid, not_found).
	InvitesAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workspace",
			Name:      "invites_accepted_total",
			Help:      "Total workspace invite accept attempts",
		},
		[]string{"kind", "outcome"},
	)

	// RoleChanges counts roster role changes.
	RoleChanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workspace",
			Name:      "role_changes_total",
			Help:      "Total member role changes",
		},
	)
)

// Task metrics
var (
	// TasksCreated counts created tasks.
	TasksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "created_total",
			Help:      "Total tasks created",
		},
	)

	// AIGenerations counts AI draft generation calls by outcome (ok, empty, error).
	AIGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "ai_generations_total",
			Help:      "Total AI task draft generations",
		},
		[]string{"outcome"},
	)

	// StatsDuration tracks dashboard aggregation latency.
	StatsDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "aggregation_duration_seconds",
			Help:      "Workspace stats aggregation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Invite kinds and outcomes used as label values.
const (
	InviteKindToken = "token"
	InviteKindLink  = "link"

	OutcomeJoined        = "joined"
	OutcomeAlreadyMember = "already_member"
	OutcomeInvalid       = "invalid"
	OutcomeNotFound      = "not_found"
)

// Handler exposes the default registry for gin.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
