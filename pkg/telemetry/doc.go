// Package telemetry groups the observability packages used by relief.
//
//   - logging: slog loggers with decision context fields
//   - metrics: Prometheus collector for decisions, rankings and policy loads
//   - tracing: OpenTelemetry tracer with an OTLP gRPC exporter
//
// Each package is configured from the matching section of
// config.TelemetryConfig.
package telemetry
