package tracing

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Environment variables carrying W3C trace context into a process, as set
// by CI systems and wrappers that trace the commands they run.
const (
	EnvTraceParent = "TRACEPARENT"
	EnvTraceState  = "TRACESTATE"
	EnvBaggage     = "BAGGAGE"
)

// w3c extracts environment carriers whether or not tracing is enabled.
var w3c = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Propagator returns the global text map propagator.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// ExtractFromMap extracts trace context from a string map.
func ExtractFromMap(ctx context.Context, carrier map[string]string) context.Context {
	return Propagator().Extract(ctx, propagation.MapCarrier(carrier))
}

// InjectToMap injects trace context into a string map.
func InjectToMap(ctx context.Context, carrier map[string]string) {
	Propagator().Inject(ctx, propagation.MapCarrier(carrier))
}

// FromEnvironment returns ctx joined to the trace named by TRACEPARENT,
// if set. Without it ctx is returned unchanged.
func FromEnvironment(ctx context.Context) context.Context {
	return fromLookup(ctx, os.LookupEnv)
}

func fromLookup(ctx context.Context, lookup func(string) (string, bool)) context.Context {
	if _, ok := lookup(EnvTraceParent); !ok {
		return ctx
	}
	carrier := map[string]string{}
	for env, header := range map[string]string{
		EnvTraceParent: "traceparent",
		EnvTraceState:  "tracestate",
		EnvBaggage:     "baggage",
	} {
		if v, ok := lookup(env); ok && v != "" {
			carrier[header] = v
		}
	}
	return w3c.Extract(ctx, propagation.MapCarrier(carrier))
}
