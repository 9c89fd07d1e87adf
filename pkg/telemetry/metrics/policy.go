package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"relief-hq/relief/pkg/config"
)

// PolicyMetrics tracks policy loading.
//
// Metrics:
//   - relief_engine_policy_loads_total: load attempts by operation and status
//   - relief_engine_policy_load_duration_seconds: duration of a load attempt
//   - relief_engine_policies_loaded: policies in the active registry
//   - relief_engine_policy_last_load_timestamp_seconds: time of the last successful load
type PolicyMetrics struct {
	loadsTotal   *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	loaded       prometheus.Gauge
	lastLoad     prometheus.Gauge
}

// NewPolicyMetrics creates and registers policy metrics with the provided registry.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_loads_total",
				Help:      "Total number of policy load attempts",
			},
			[]string{"op", "status"},
		),

		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_load_duration_seconds",
				Help:      "Duration of policy load attempts in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
			},
			[]string{"op"},
		),

		loaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policies_loaded",
				Help:      "Number of policies in the active registry",
			},
		),

		lastLoad: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_last_load_timestamp_seconds",
				Help:      "Unix time of the last successful policy load",
			},
		),
	}

	registry.MustRegister(
		pm.loadsTotal,
		pm.loadDuration,
		pm.loaded,
		pm.lastLoad,
	)

	return pm
}

// RecordLoad records a load attempt. A failed attempt leaves the gauges
// untouched since the previous registry stays active.
func (pm *PolicyMetrics) RecordLoad(op string, policies int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	pm.loadsTotal.WithLabelValues(op, status).Inc()
	pm.loadDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err == nil {
		pm.loaded.Set(float64(policies))
		pm.lastLoad.SetToCurrentTime()
	}
}
