package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"relief-hq/relief/pkg/policy/ast"
	"relief-hq/relief/pkg/roster"
	"relief-hq/relief/pkg/telemetry/tracing"
)

// RankRequest asks for every candidate to be evaluated for one slot.
type RankRequest struct {
	Policy *ast.Policy
	Slot   roster.Slot
	Index  *roster.Index

	// Candidates to evaluate. When empty, every employee except the
	// absentee is a candidate.
	Candidates []roster.Employee

	// Seed is the batch seed. Each candidate draws from its own stream
	// derived with SeedFor, so the result does not depend on scheduling.
	Seed uint64

	At time.Time
}

// Ranking is the result of evaluating all candidates for a slot.
type Ranking struct {
	PolicyID string      `json:"policy_id"`
	Slot     roster.Slot `json:"slot"`
	Seed     uint64      `json:"seed"`

	// Ranked holds allowed candidates by descending score, ties broken by
	// candidate id.
	Ranked []*DecisionTrace `json:"ranked"`

	// Rejected holds rejected candidates by candidate id.
	Rejected []*DecisionTrace `json:"rejected"`
}

// Best returns the highest ranked trace, or nil if every candidate was
// rejected.
func (r *Ranking) Best() *DecisionTrace {
	if len(r.Ranked) == 0 {
		return nil
	}
	return r.Ranked[0]
}

// Traces returns all traces, ranked first.
func (r *Ranking) Traces() []*DecisionTrace {
	return slices.Concat(r.Ranked, r.Rejected)
}

// RankSlot evaluates the candidates concurrently on a bounded worker pool
// and ranks the results.
func (e *Engine) RankSlot(ctx context.Context, req RankRequest) (*Ranking, error) {
	if req.Policy == nil || req.Index == nil {
		return nil, fmt.Errorf("%w: policy and roster index are required", ErrMissingInput)
	}
	if !req.Policy.Normalized {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotNormalized, req.Policy.ID)
	}

	ctx, span := e.tracer.Start(ctx, "relief.rank_slot", trace.WithAttributes(
		tracing.SlotAttributes(req.Policy.ID, req.Slot.Key())...,
	), trace.WithAttributes(attribute.Int64(tracing.AttrSeed, int64(req.Seed))))
	defer span.End()
	start := time.Now()

	facts := e.builder.PrepareSlot(req.Policy, req.Slot, req.Index)
	candidates := req.Candidates
	if len(candidates) == 0 {
		candidates = req.Index.Employees()
	}
	candidates = slices.DeleteFunc(slices.Clone(candidates), func(c roster.Employee) bool {
		return c.ID == facts.Slot.AbsentID
	})
	at := req.At
	if at.IsZero() {
		at = e.clock()
	}

	traces := make([]*DecisionTrace, len(candidates))
	errs := make([]error, len(candidates))
	jobs := make(chan int)

	workers := min(e.config.Workers, len(candidates))
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range jobs {
				traces[i], errs[i] = e.Decide(ctx, Request{
					Policy:    req.Policy,
					Candidate: &candidates[i],
					Slot:      req.Slot,
					Index:     req.Index,
					Random:    NewSeededSource(SeedFor(req.Seed, candidates[i].ID)),
					At:        at,
					facts:     facts,
				})
			}
		}()
	}

dispatch:
	for i := range candidates {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranking := &Ranking{
		PolicyID: req.Policy.ID,
		Slot:     facts.Slot,
		Seed:     req.Seed,
		Ranked:   []*DecisionTrace{},
		Rejected: []*DecisionTrace{},
	}
	for i, t := range traces {
		if errs[i] != nil {
			return nil, fmt.Errorf("candidate %s: %w", candidates[i].ID, errs[i])
		}
		if t.Allowed {
			ranking.Ranked = append(ranking.Ranked, t)
		} else {
			ranking.Rejected = append(ranking.Rejected, t)
		}
	}
	slices.SortStableFunc(ranking.Ranked, func(a, b *DecisionTrace) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.CandidateID, b.CandidateID)
	})
	slices.SortStableFunc(ranking.Rejected, func(a, b *DecisionTrace) int {
		return cmp.Compare(a.CandidateID, b.CandidateID)
	})

	elapsed := time.Since(start)
	tracing.SetRankingAttributes(span, len(ranking.Ranked), len(ranking.Rejected))
	e.logger.Info("slot ranked",
		"policy_id", ranking.PolicyID,
		"slot", ranking.Slot.Key(),
		"candidates", len(candidates),
		"allowed", len(ranking.Ranked),
		"duration", elapsed,
	)
	for _, o := range e.observers {
		if bo, ok := o.(BatchObserver); ok {
			bo.ObserveBatch(ctx, ranking, elapsed)
		}
	}
	return ranking, nil
}
