// Package metrics exposes Prometheus collectors for tier classification,
// social lookups and notification delivery.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	socialLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reach",
		Subsystem: "social",
		Name:      "lookups_total",
		Help:      "Social profile lookups by platform and outcome.",
	}, []string{"platform", "outcome"})

	socialCandidates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reach",
		Subsystem: "social",
		Name:      "candidate_requests_total",
		Help:      "Outbound analytics API requests per identifier candidate, by HTTP status class.",
	}, []string{"platform", "status"})

	socialLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reach",
		Subsystem: "social",
		Name:      "lookup_duration_seconds",
		Help:      "End-to-end social profile lookup latency.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"platform"})

	socialCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reach",
		Subsystem: "social",
		Name:      "cache_total",
		Help:      "Normalized profile cache hits and misses.",
	}, []string{"result"})

	tierCalculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reach",
		Subsystem: "tier",
		Name:      "calculations_total",
		Help:      "Tier classifications by resulting tier and matched rule.",
	}, []string{"tier", "rule"})

	tierRecomputeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reach",
		Subsystem: "tier",
		Name:      "recompute_creators_total",
		Help:      "Creators processed by the batch recompute job, by outcome.",
	}, []string{"outcome"})

	pushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reach",
		Subsystem: "push",
		Name:      "deliveries_total",
		Help:      "Push notification deliveries by outcome.",
	}, []string{"outcome"})
)

// SocialLookup records a finished lookup.
func SocialLookup(platform, outcome string, d time.Duration) {
	socialLookups.WithLabelValues(platform, outcome).Inc()
	socialLatency.WithLabelValues(platform).Observe(d.Seconds())
}

// SocialCandidate records one outbound candidate request.
func SocialCandidate(platform, status string) {
	socialCandidates.WithLabelValues(platform, status).Inc()
}

// SocialCache records a cache lookup result ("hit" or "miss").
func SocialCache(result string) {
	socialCache.WithLabelValues(result).Inc()
}

// TierCalculated records one classification.
func TierCalculated(tier, rule string) {
	tierCalculations.WithLabelValues(tier, rule).Inc()
}

// TierRecomputed records one creator processed by the batch job.
func TierRecomputed(outcome string) {
	tierRecomputeRuns.WithLabelValues(outcome).Inc()
}

// PushDelivered records a push delivery attempt.
func PushDelivered(outcome string) {
	pushDeliveries.WithLabelValues(outcome).Inc()
}
