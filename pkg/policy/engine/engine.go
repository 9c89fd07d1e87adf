package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"relief-hq/relief/pkg/policy/ast"
	"relief-hq/relief/pkg/roster"
	"relief-hq/relief/pkg/telemetry/tracing"
)

// Observer is notified of every completed decision. Implementations must
// be safe for concurrent use and must not modify the trace.
type Observer interface {
	ObserveDecision(ctx context.Context, t *DecisionTrace, elapsed time.Duration)
}

// BatchObserver is notified of every completed slot ranking.
type BatchObserver interface {
	ObserveBatch(ctx context.Context, r *Ranking, elapsed time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Debug level logs every decision.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver registers an observer. It may also implement BatchObserver.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithTracer sets the tracer used for decision and batch spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithClock sets the clock used to stamp decisions that carry no time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = now
	}
}

// Engine makes substitution decisions. It holds configuration only; every
// decision reads its own inputs and writes its own trace, so an Engine is
// safe for concurrent use.
type Engine struct {
	config    *EngineConfig
	builder   *ContextBuilder
	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer
	clock     func() time.Time
}

// New returns an engine using cfg, or the default configuration when cfg
// is nil.
func New(cfg *EngineConfig, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultEngineConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.SubjectDomains) == 0 {
		cfg.SubjectDomains = DefaultSubjectDomains()
	}

	e := &Engine{
		config:  cfg,
		builder: NewContextBuilder(cfg),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  noop.NewTracerProvider().Tracer("relief/engine"),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *EngineConfig {
	return e.config
}

// Builder returns the engine's context builder.
func (e *Engine) Builder() *ContextBuilder {
	return e.builder
}

// Request is the input of a single decision.
type Request struct {
	Policy    *ast.Policy
	Candidate *roster.Employee
	Slot      roster.Slot
	Index     *roster.Index

	// Random supplies the golden-rule draws. It is required; the engine
	// never falls back to ambient randomness.
	Random RandomSource

	// At stamps the trace. The engine clock is used when zero.
	At time.Time

	facts *SlotFacts
}

func (r *Request) check() error {
	switch {
	case r.Policy == nil:
		return fmt.Errorf("%w: policy", ErrMissingInput)
	case !r.Policy.Normalized:
		return fmt.Errorf("%w: %s", ErrPolicyNotNormalized, r.Policy.ID)
	case r.Candidate == nil:
		return fmt.Errorf("%w: candidate", ErrMissingInput)
	case r.Index == nil:
		return fmt.Errorf("%w: roster index", ErrMissingInput)
	case r.Random == nil:
		return fmt.Errorf("%w: random source", ErrMissingInput)
	}
	return nil
}

// Decide evaluates one candidate for one slot and returns the trace. An
// error is returned only for malformed requests; a rejected candidate is a
// normal trace with Allowed false.
func (e *Engine) Decide(ctx context.Context, req Request) (*DecisionTrace, error) {
	if err := req.check(); err != nil {
		return nil, err
	}

	_, span := e.tracer.Start(ctx, "relief.decide", trace.WithAttributes(
		tracing.SlotAttributes(req.Policy.ID, req.Slot.Key())...,
	), trace.WithAttributes(attribute.String(tracing.AttrCandidateID, req.Candidate.ID)))
	defer span.End()

	start := time.Now()
	t := e.decide(req)
	elapsed := time.Since(start)

	tracing.SetDecisionAttributes(span, t.Allowed, t.Score, t.Rejection, t.BlockedBy)
	e.logger.Debug("decision made",
		"trace_id", t.ID,
		"policy_id", t.PolicyID,
		"candidate_id", t.CandidateID,
		"slot", t.Slot.Key(),
		"allowed", t.Allowed,
		"score", t.Score,
		"rejection", t.Rejection,
	)
	for _, o := range e.observers {
		o.ObserveDecision(ctx, t, elapsed)
	}
	return t, nil
}
