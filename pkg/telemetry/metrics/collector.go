package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"relief-hq/relief/pkg/config"
	"relief-hq/relief/pkg/policy/engine"
)

// otherLabel replaces label values once the cardinality limit is reached.
const otherLabel = "other"

// DefaultMaxCardinality bounds the number of distinct rule and step label
// sets per collector.
const DefaultMaxCardinality = 10000

// Collector records Prometheus metrics for decisions, slot rankings and
// policy loads. It implements engine.Observer and engine.BatchObserver, so
// it can be passed to engine.WithObserver directly.
//
// All metrics are registered on a private registry; nothing is added to the
// global default registry.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	decisionMetrics *DecisionMetrics
	rankingMetrics  *RankingMetrics
	policyMetrics   *PolicyMetrics

	cardinalityLimiter *CardinalityLimiter
}

var (
	_ engine.Observer      = (*Collector)(nil)
	_ engine.BatchObserver = (*Collector)(nil)
)

// NewCollector creates a collector. If registry is nil a new one is
// created. Empty namespace, subsystem and buckets fall back to the config
// defaults.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(DefaultMaxCardinality),
	}
	c.decisionMetrics = NewDecisionMetrics(&c.config, registry)
	c.rankingMetrics = NewRankingMetrics(&c.config, registry)
	c.policyMetrics = NewPolicyMetrics(&c.config, registry)
	return c
}

// ObserveDecision records one candidate decision.
func (c *Collector) ObserveDecision(_ context.Context, t *engine.DecisionTrace, elapsed time.Duration) {
	if !c.config.Enabled || t == nil {
		return
	}

	c.decisionMetrics.RecordDecision(t.PolicyID, t.Allowed, elapsed, t.Score)
	if !t.Allowed {
		c.decisionMetrics.RecordRejection(t.PolicyID, RejectionReason(t.Rejection))
		if t.BlockedBy != "" {
			c.decisionMetrics.RecordBlock(t.PolicyID, c.limit("block", t.PolicyID, t.BlockedBy))
		}
	}
	for _, rule := range t.RulesApplied {
		c.decisionMetrics.RecordRuleApplied(t.PolicyID, c.limit("rule", t.PolicyID, rule))
	}
	for _, step := range t.StepsMatched {
		c.decisionMetrics.RecordStepMatched(t.PolicyID, c.limit("step", t.PolicyID, step))
	}
}

// ObserveBatch records one slot ranking.
func (c *Collector) ObserveBatch(_ context.Context, r *engine.Ranking, elapsed time.Duration) {
	if !c.config.Enabled || r == nil {
		return
	}
	c.rankingMetrics.RecordRanking(r.PolicyID, len(r.Ranked), len(r.Rejected), elapsed)
}

// RecordPolicyLoad records a policy load attempt. Its signature matches
// manager.LoadHook once the registry size has been extracted.
func (c *Collector) RecordPolicyLoad(op string, policies int, elapsed time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	c.policyMetrics.RecordLoad(op, policies, elapsed, err)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteToTextfile writes all collected metrics to path in the Prometheus
// text format, for pickup by the node exporter textfile collector. The
// parent directory is created if needed.
func (c *Collector) WriteToTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// limit returns value, or otherLabel when recording it would exceed the
// cardinality limit.
func (c *Collector) limit(kind, policyID, value string) string {
	if c.cardinalityLimiter.Allow(kind + ":" + policyID + ":" + value) {
		return value
	}
	return otherLabel
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet may be recorded: it either was seen
// before or there is room for it.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
