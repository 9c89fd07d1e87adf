// Package tracing sets up OpenTelemetry tracing for relief.
//
// New builds a Tracer from the tracing section of the config. When tracing
// is disabled the tracer is a noop and spans cost next to nothing; when
// enabled spans are batched to an OTLP gRPC collector:
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	eng, err := engine.New(engCfg, engine.WithTracer(tracer.Tracer()))
//
// The engine opens a relief.rank_slot span per slot and a relief.decide
// child per candidate. Attribute keys live in the relief.* namespace (see
// attributes.go).
//
// # Sampling
//
// The sampler is one of always, never or ratio (sample_ratio of traces by
// trace id), wrapped in ParentBased.
//
// # Joining a parent trace
//
// A CLI run can be attached to an existing trace through the W3C
// TRACEPARENT, TRACESTATE and BAGGAGE environment variables:
//
//	ctx = tracing.FromEnvironment(ctx)
package tracing
