package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

const testTraceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromEnvironment(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantValid bool
		wantTrace string
	}{
		{
			name: "no traceparent",
			env:  map[string]string{},
		},
		{
			name:      "valid traceparent",
			env:       map[string]string{EnvTraceParent: testTraceParent},
			wantValid: true,
			wantTrace: "4bf92f3577b34da6a3ce929d0e0e4736",
		},
		{
			name:      "with tracestate",
			env:       map[string]string{EnvTraceParent: testTraceParent, EnvTraceState: "congo=t61rcWkgMzE"},
			wantValid: true,
			wantTrace: "4bf92f3577b34da6a3ce929d0e0e4736",
		},
		{
			name: "malformed traceparent",
			env:  map[string]string{EnvTraceParent: "not-a-traceparent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := fromLookup(context.Background(), lookupFrom(tt.env))
			sc := trace.SpanContextFromContext(ctx)
			if sc.IsValid() != tt.wantValid {
				t.Fatalf("IsValid() = %v, want %v", sc.IsValid(), tt.wantValid)
			}
			if !tt.wantValid {
				return
			}
			if got := sc.TraceID().String(); got != tt.wantTrace {
				t.Errorf("TraceID = %s, want %s", got, tt.wantTrace)
			}
			if !sc.IsRemote() || !sc.IsSampled() {
				t.Errorf("expected a sampled remote span context, got %+v", sc)
			}
		})
	}
}

func TestFromEnvironment_ParentsSpans(t *testing.T) {
	tracer, _ := newRecordingTracer(t)

	ctx := fromLookup(context.Background(), lookupFrom(map[string]string{EnvTraceParent: testTraceParent}))
	ctx, span := tracer.Start(ctx, "relief.cli.rank")
	defer span.End()

	if got := TraceID(ctx); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("TraceID() = %s, want the parent trace id", got)
	}
}

func TestInjectExtractMap(t *testing.T) {
	tracer, _ := newRecordingTracer(t)

	ctx, span := tracer.Start(context.Background(), "relief.cli.rank")
	defer span.End()

	carrier := map[string]string{}
	InjectToMap(ctx, carrier)
	if carrier["traceparent"] == "" {
		t.Fatalf("InjectToMap() did not set traceparent: %v", carrier)
	}

	extracted := ExtractFromMap(context.Background(), carrier)
	if got, want := trace.SpanContextFromContext(extracted).TraceID(), span.SpanContext().TraceID(); got != want {
		t.Errorf("extracted trace id = %s, want %s", got, want)
	}
}
