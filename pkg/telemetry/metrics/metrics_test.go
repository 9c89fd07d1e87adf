package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"relief-hq/relief/pkg/config"
	"relief-hq/relief/pkg/policy/engine"
	"relief-hq/relief/pkg/roster"
)

func testConfig() config.MetricsConfig {
	return config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		Subsystem:       "engine",
		DurationBuckets: []float64{0.001, 0.01, 0.1},
	}
}

func testSlot() roster.Slot {
	return roster.Slot{
		Date:     roster.NewDate(2024, time.March, 4),
		Period:   3,
		AbsentID: "t-01",
		ClassID:  "7a",
		Subject:  "math",
	}
}

func allowedTrace(candidate string, score float64) *engine.DecisionTrace {
	return &engine.DecisionTrace{
		PolicyID:     "default",
		CandidateID:  candidate,
		Slot:         testSlot(),
		Allowed:      true,
		Score:        score,
		RulesApplied: []string{"prefer-same-subject"},
		StepsMatched: []string{"Same subject"},
	}
}

func blockedTrace(candidate, rule string) *engine.DecisionTrace {
	return &engine.DecisionTrace{
		PolicyID:     "default",
		CandidateID:  candidate,
		Slot:         testSlot(),
		Rejection:    engine.RejectRulePrefix + rule,
		BlockedBy:    rule,
		RulesApplied: []string{rule},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(testConfig(), registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_Defaults(t *testing.T) {
	collector := NewCollector(config.MetricsConfig{Enabled: true}, nil)

	if collector.Registry() == nil {
		t.Fatal("Expected a registry to be created")
	}
	if collector.config.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("Namespace = %q, want %q", collector.config.Namespace, config.DefaultMetricsNamespace)
	}
	if collector.config.Subsystem != config.DefaultMetricsSubsystem {
		t.Errorf("Subsystem = %q, want %q", collector.config.Subsystem, config.DefaultMetricsSubsystem)
	}
	if len(collector.config.DurationBuckets) != len(config.DefaultDurationBuckets) {
		t.Errorf("DurationBuckets = %v", collector.config.DurationBuckets)
	}

	collector.ObserveDecision(context.Background(), allowedTrace("t-02", 40), time.Millisecond)
	n, err := testutil.GatherAndCount(collector.Registry(), "relief_engine_decisions_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 relief_engine_decisions_total series, got %d", n)
	}
}

func TestCollector_ObserveDecision(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	ctx := context.Background()

	collector.ObserveDecision(ctx, allowedTrace("t-02", 42), 2*time.Millisecond)
	collector.ObserveDecision(ctx, allowedTrace("t-03", 17), time.Millisecond)
	collector.ObserveDecision(ctx, blockedTrace("t-04", "no-stay-coverage"), time.Millisecond)
	collector.ObserveDecision(ctx, &engine.DecisionTrace{
		PolicyID:  "default",
		Slot:      testSlot(),
		Rejection: engine.RejectOffDuty,
	}, time.Millisecond)
	collector.ObserveDecision(ctx, nil, time.Millisecond)

	dm := collector.decisionMetrics
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"allowed decisions", testutil.ToFloat64(dm.decisionsTotal.WithLabelValues("default", OutcomeAllowed)), 2},
		{"rejected decisions", testutil.ToFloat64(dm.decisionsTotal.WithLabelValues("default", OutcomeRejected)), 2},
		{"rule rejections", testutil.ToFloat64(dm.rejectionsTotal.WithLabelValues("default", "rule")), 1},
		{"off duty rejections", testutil.ToFloat64(dm.rejectionsTotal.WithLabelValues("default", engine.RejectOffDuty)), 1},
		{"rule blocks", testutil.ToFloat64(dm.ruleBlocksTotal.WithLabelValues("default", "no-stay-coverage")), 1},
		{"rules applied", testutil.ToFloat64(dm.rulesApplied.WithLabelValues("default", "prefer-same-subject")), 2},
		{"blocking rule applied", testutil.ToFloat64(dm.rulesApplied.WithLabelValues("default", "no-stay-coverage")), 1},
		{"steps matched", testutil.ToFloat64(dm.stepsMatched.WithLabelValues("default", "Same subject")), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(dm.decisionDuration); n != 1 {
		t.Errorf("Expected 1 duration series, got %d", n)
	}
	if n := testutil.CollectAndCount(dm.decisionScore); n != 1 {
		t.Errorf("Expected 1 score series, got %d", n)
	}
}

func TestCollector_ObserveBatch(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	ctx := context.Background()

	collector.ObserveBatch(ctx, &engine.Ranking{
		PolicyID: "default",
		Slot:     testSlot(),
		Ranked:   []*engine.DecisionTrace{allowedTrace("t-02", 42), allowedTrace("t-03", 17)},
		Rejected: []*engine.DecisionTrace{blockedTrace("t-04", "no-stay-coverage")},
	}, 5*time.Millisecond)
	collector.ObserveBatch(ctx, &engine.Ranking{
		PolicyID: "default",
		Slot:     testSlot(),
		Rejected: []*engine.DecisionTrace{blockedTrace("t-04", "no-stay-coverage")},
	}, time.Millisecond)

	rm := collector.rankingMetrics
	if got := testutil.ToFloat64(rm.rankingsTotal.WithLabelValues("default", "true")); got != 1 {
		t.Errorf("filled rankings = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rm.rankingsTotal.WithLabelValues("default", "false")); got != 1 {
		t.Errorf("unfilled rankings = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rm.lastCandidates.WithLabelValues("default", OutcomeAllowed)); got != 0 {
		t.Errorf("last allowed = %v, want 0", got)
	}
	if got := testutil.ToFloat64(rm.lastCandidates.WithLabelValues("default", OutcomeRejected)); got != 1 {
		t.Errorf("last rejected = %v, want 1", got)
	}
}

func TestCollector_RecordPolicyLoad(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordPolicyLoad("load", 3, 10*time.Millisecond, nil)
	collector.RecordPolicyLoad("reload", 0, time.Millisecond, errors.New("invalid policy"))

	pm := collector.policyMetrics
	if got := testutil.ToFloat64(pm.loadsTotal.WithLabelValues("load", "success")); got != 1 {
		t.Errorf("successful loads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pm.loadsTotal.WithLabelValues("reload", "error")); got != 1 {
		t.Errorf("failed reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pm.loaded); got != 3 {
		t.Errorf("policies loaded = %v, want 3 (failed reload must keep it)", got)
	}
	if got := testutil.ToFloat64(pm.lastLoad); got == 0 {
		t.Error("last load timestamp not set")
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.ObserveDecision(context.Background(), allowedTrace("t-02", 42), time.Millisecond)
	collector.ObserveBatch(context.Background(), &engine.Ranking{PolicyID: "default"}, time.Millisecond)
	collector.RecordPolicyLoad("load", 1, time.Millisecond, nil)

	if n := testutil.CollectAndCount(collector.decisionMetrics.decisionsTotal); n != 0 {
		t.Errorf("Expected no decision series when disabled, got %d", n)
	}
	if n := testutil.CollectAndCount(collector.rankingMetrics.rankingsTotal); n != 0 {
		t.Errorf("Expected no ranking series when disabled, got %d", n)
	}
	if n := testutil.CollectAndCount(collector.policyMetrics.loadsTotal); n != 0 {
		t.Errorf("Expected no load series when disabled, got %d", n)
	}
}

func TestCollector_CardinalityLimit(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.cardinalityLimiter = NewCardinalityLimiter(1)

	collector.ObserveDecision(context.Background(), blockedTrace("t-02", "first"), time.Millisecond)
	collector.ObserveDecision(context.Background(), blockedTrace("t-03", "second"), time.Millisecond)

	dm := collector.decisionMetrics
	if got := testutil.ToFloat64(dm.ruleBlocksTotal.WithLabelValues("default", "first")); got != 1 {
		t.Errorf("first rule blocks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(dm.ruleBlocksTotal.WithLabelValues("default", otherLabel)); got != 1 {
		t.Errorf("other rule blocks = %v, want 1", got)
	}
}

func TestCollector_WriteToTextfile(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.ObserveDecision(context.Background(), allowedTrace("t-02", 42), time.Millisecond)

	path := filepath.Join(t.TempDir(), "textfile", "relief.prom")
	if err := collector.WriteToTextfile(path); err != nil {
		t.Fatalf("WriteToTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := `test_engine_decisions_total{outcome="allowed",policy_id="default"} 1`
	if !strings.Contains(string(data), want) {
		t.Errorf("textfile missing %q:\n%s", want, data)
	}
}

func TestRejectionReason(t *testing.T) {
	tests := []struct {
		rejection string
		want      string
	}{
		{"", "unknown"},
		{engine.RejectOffDuty, engine.RejectOffDuty},
		{engine.RejectDailyCap, engine.RejectDailyCap},
		{engine.RejectRulePrefix + "no-class-pull", "rule"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := RejectionReason(tt.rejection); got != tt.want {
				t.Errorf("RejectionReason(%q) = %q, want %q", tt.rejection, got, tt.want)
			}
		})
	}
}

func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(2)

	if !limiter.Allow("a") || !limiter.Allow("b") {
		t.Fatal("Expected first two label sets to be allowed")
	}
	if limiter.Allow("c") {
		t.Error("Expected third label set to be rejected")
	}
	if !limiter.Allow("a") {
		t.Error("Expected known label set to stay allowed")
	}
	if got := limiter.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}
