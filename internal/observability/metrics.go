// Package observability holds ForgeDB's Prometheus collectors and OpenTelemetry setup.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forgedb_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by cache name and result (hit, miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forgedb_cache_lookups_total",
		Help: "Cache lookups by cache and result",
	}, []string{"cache", "result"})

	// ReviewsCreated counts reviews by issue type.
	ReviewsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forgedb_reviews_created_total",
		Help: "Total number of reviews created",
	}, []string{"issue_type"})

	// ReviewsDeleted counts reviews removed by admins.
	ReviewsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forgedb_reviews_deleted_total",
		Help: "Total number of reviews deleted",
	})

	// ReactionTransitions counts reaction toggles by requested type and transition.
	ReactionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forgedb_reaction_transitions_total",
		Help: "Reaction toggles by reaction type and resulting transition",
	}, []string{"reaction", "transition"})

	// VerificationEmails counts verification emails by outcome (sent, failed).
	VerificationEmails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forgedb_verification_emails_total",
		Help: "Verification emails by outcome",
	}, []string{"outcome"})

	// LiveConnections is the gauge of WebSocket clients watching mods.
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forgedb_live_connections",
		Help: "Number of WebSocket clients subscribed to mod updates",
	})

	// LiveDrops counts live events dropped because a client's buffer was full.
	LiveDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forgedb_live_backpressure_drops_total",
		Help: "Live events dropped due to backpressure",
	})
)
