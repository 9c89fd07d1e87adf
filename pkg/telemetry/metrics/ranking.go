package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"relief-hq/relief/pkg/config"
)

// RankingMetrics tracks slot rankings.
//
// Metrics:
//   - relief_engine_rankings_total: rankings by policy and whether any candidate was allowed
//   - relief_engine_ranking_duration_seconds: wall time of a full slot ranking
//   - relief_engine_ranking_candidates: candidates evaluated per ranking
//   - relief_engine_last_ranking_candidates: candidates of the most recent ranking by state
type RankingMetrics struct {
	rankingsTotal   *prometheus.CounterVec
	rankingDuration *prometheus.HistogramVec
	candidates      *prometheus.HistogramVec
	lastCandidates  *prometheus.GaugeVec
}

// NewRankingMetrics creates and registers ranking metrics with the
// provided registry.
func NewRankingMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RankingMetrics {
	rm := &RankingMetrics{
		rankingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rankings_total",
				Help:      "Total number of slot rankings",
			},
			[]string{"policy_id", "filled"},
		),

		rankingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ranking_duration_seconds",
				Help:      "Duration of a slot ranking in seconds",
				// A ranking fans out one decision per candidate.
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"policy_id"},
		),

		candidates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ranking_candidates",
				Help:      "Number of candidates evaluated per slot ranking",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
			},
			[]string{"policy_id"},
		),

		lastCandidates: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "last_ranking_candidates",
				Help:      "Candidates of the most recent slot ranking by state",
			},
			[]string{"policy_id", "state"},
		),
	}

	registry.MustRegister(
		rm.rankingsTotal,
		rm.rankingDuration,
		rm.candidates,
		rm.lastCandidates,
	)

	return rm
}

// RecordRanking records a completed slot ranking.
func (rm *RankingMetrics) RecordRanking(policyID string, ranked, rejected int, duration time.Duration) {
	filled := "false"
	if ranked > 0 {
		filled = "true"
	}
	rm.rankingsTotal.WithLabelValues(policyID, filled).Inc()
	rm.rankingDuration.WithLabelValues(policyID).Observe(duration.Seconds())
	rm.candidates.WithLabelValues(policyID).Observe(float64(ranked + rejected))
	rm.lastCandidates.WithLabelValues(policyID, OutcomeAllowed).Set(float64(ranked))
	rm.lastCandidates.WithLabelValues(policyID, OutcomeRejected).Set(float64(rejected))
}
