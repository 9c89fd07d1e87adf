package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for the id of one CLI invocation or batch.
	RunIDKey contextKey = "run_id"

	// PolicyIDKey is the context key for the policy being evaluated.
	PolicyIDKey contextKey = "policy_id"

	// CandidateIDKey is the context key for the candidate being evaluated.
	CandidateIDKey contextKey = "candidate_id"

	// SlotKey is the context key for the slot key (date/period/absentee).
	SlotKey contextKey = "slot"
)

type loggerKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// fieldKeys is the order in which context fields are emitted.
var fieldKeys = []contextKey{RunIDKey, PolicyIDKey, CandidateIDKey, SlotKey}

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	return get(ctx, RunIDKey)
}

// WithPolicyID adds a policy ID to the context.
func WithPolicyID(ctx context.Context, policyID string) context.Context {
	return context.WithValue(ctx, PolicyIDKey, policyID)
}

// GetPolicyID retrieves the policy ID from the context.
func GetPolicyID(ctx context.Context) string {
	return get(ctx, PolicyIDKey)
}

// WithCandidateID adds a candidate ID to the context.
func WithCandidateID(ctx context.Context, candidateID string) context.Context {
	return context.WithValue(ctx, CandidateIDKey, candidateID)
}

// GetCandidateID retrieves the candidate ID from the context.
func GetCandidateID(ctx context.Context) string {
	return get(ctx, CandidateIDKey)
}

// WithSlot adds a slot key to the context.
func WithSlot(ctx context.Context, slot string) context.Context {
	return context.WithValue(ctx, SlotKey, slot)
}

// GetSlot retrieves the slot key from the context.
func GetSlot(ctx context.Context) string {
	return get(ctx, SlotKey)
}

func get(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextAttrs extracts the log fields stored in ctx. The OpenTelemetry
// span ids are added when ctx carries a valid span.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range fieldKeys {
		if v := get(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("otel_trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}
