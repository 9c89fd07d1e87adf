package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"relief-hq/relief/pkg/config"
	"relief-hq/relief/pkg/policy/engine"
)

// Outcome label values.
const (
	OutcomeAllowed  = "allowed"
	OutcomeRejected = "rejected"
)

// DecisionMetrics tracks per-candidate decisions.
//
// Metrics:
//   - relief_engine_decisions_total: decisions by policy and outcome
//   - relief_engine_decision_duration_seconds: time spent in one decision
//   - relief_engine_decision_score: final score of allowed candidates
//   - relief_engine_rejections_total: rejected candidates by reason
//   - relief_engine_rule_blocks_total: rejections caused by a golden rule
//   - relief_engine_rules_applied_total: golden rules that fired
//   - relief_engine_steps_matched_total: ladder steps that matched
type DecisionMetrics struct {
	decisionsTotal   *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
	decisionScore    *prometheus.HistogramVec
	rejectionsTotal  *prometheus.CounterVec
	ruleBlocksTotal  *prometheus.CounterVec
	rulesApplied     *prometheus.CounterVec
	stepsMatched     *prometheus.CounterVec
}

// NewDecisionMetrics creates and registers decision metrics with the
// provided registry.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Total number of candidate decisions",
			},
			[]string{"policy_id", "outcome"},
		),

		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_duration_seconds",
				Help:      "Duration of a single candidate decision in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"policy_id"},
		),

		decisionScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_score",
				Help:      "Final score of allowed candidates",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"policy_id"},
		),

		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rejections_total",
				Help:      "Total number of rejected candidates by reason",
			},
			[]string{"policy_id", "reason"},
		),

		ruleBlocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_blocks_total",
				Help:      "Total number of candidates blocked by a golden rule",
			},
			[]string{"policy_id", "rule_id"},
		),

		rulesApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_applied_total",
				Help:      "Total number of golden rules applied to a decision",
			},
			[]string{"policy_id", "rule_id"},
		),

		stepsMatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "steps_matched_total",
				Help:      "Total number of priority ladder steps matched",
			},
			[]string{"policy_id", "step"},
		),
	}

	registry.MustRegister(
		dm.decisionsTotal,
		dm.decisionDuration,
		dm.decisionScore,
		dm.rejectionsTotal,
		dm.ruleBlocksTotal,
		dm.rulesApplied,
		dm.stepsMatched,
	)

	return dm
}

// RecordDecision records a decision outcome and its duration. The score is
// only observed for allowed candidates.
func (dm *DecisionMetrics) RecordDecision(policyID string, allowed bool, duration time.Duration, score float64) {
	outcome := OutcomeRejected
	if allowed {
		outcome = OutcomeAllowed
		dm.decisionScore.WithLabelValues(policyID).Observe(score)
	}
	dm.decisionsTotal.WithLabelValues(policyID, outcome).Inc()
	dm.decisionDuration.WithLabelValues(policyID).Observe(duration.Seconds())
}

// RecordRejection records a rejected candidate.
func (dm *DecisionMetrics) RecordRejection(policyID, reason string) {
	dm.rejectionsTotal.WithLabelValues(policyID, reason).Inc()
}

// RecordBlock records a candidate blocked by ruleID.
func (dm *DecisionMetrics) RecordBlock(policyID, ruleID string) {
	dm.ruleBlocksTotal.WithLabelValues(policyID, ruleID).Inc()
}

// RecordRuleApplied records a golden rule that fired.
func (dm *DecisionMetrics) RecordRuleApplied(policyID, ruleID string) {
	dm.rulesApplied.WithLabelValues(policyID, ruleID).Inc()
}

// RecordStepMatched records a matched ladder step.
func (dm *DecisionMetrics) RecordStepMatched(policyID, step string) {
	dm.stepsMatched.WithLabelValues(policyID, step).Inc()
}

// RejectionReason maps a trace rejection code to a bounded label value.
// Rule rejections carry the rule id, which is reported separately by
// rule_blocks_total, so they collapse to "rule".
func RejectionReason(rejection string) string {
	switch {
	case rejection == "":
		return "unknown"
	case strings.HasPrefix(rejection, engine.RejectRulePrefix):
		return "rule"
	default:
		return rejection
	}
}
