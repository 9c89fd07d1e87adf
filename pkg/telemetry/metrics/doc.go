// Package metrics records Prometheus metrics for the decision engine.
//
// A Collector owns a private registry and implements engine.Observer and
// engine.BatchObserver, so it plugs straight into the engine:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	eng, err := engine.New(engCfg, engine.WithObserver(collector))
//
// Policy loads are recorded through a manager.OnLoad hook calling
// RecordPolicyLoad.
//
// The CLI is short-lived, so metrics are not scraped. Instead
// WriteToTextfile dumps the registry in the Prometheus text format for the
// node exporter textfile collector.
//
// Rule and step ids come from policy files and are bounded by a
// CardinalityLimiter; overflow is reported under the label "other".
package metrics
