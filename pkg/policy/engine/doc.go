// Package engine decides whether a teacher may cover a vacated lesson and
// how strongly they should be preferred.
//
// A decision is made for one candidate and one slot against a normalized
// policy. The engine derives an EvaluationContext from the roster, then
// composes the result in a fixed order:
//
//  1. Availability. Internal teachers outside their working hours are
//     rejected as off duty.
//  2. Temporary immunity. Teachers who covered too much recently take a
//     penalty unless the policy is an emergency policy.
//  3. Settings filters. The policy's hard switches reject candidates
//     outright.
//  4. Golden rules. Each matching rule consumes one random draw and is
//     enforced with its compliance probability. A block stops the decision.
//  5. Built-in priorities for homeroom presence and continuity of care.
//  6. The priority ladder, in ascending step order.
//  7. Fairness dampening according to the policy's sensitivity.
//
// Every stage appends a line to the trace breakdown. Randomness only comes
// from the RandomSource on the request, and the draws consumed are stored
// on the trace, so Replay can reproduce any decision exactly.
//
// # Usage
//
//	eng, err := engine.New(engine.DefaultEngineConfig(), engine.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	trace, err := eng.Decide(ctx, engine.Request{
//	    Policy:    policy,
//	    Candidate: candidate,
//	    Slot:      slot,
//	    Index:     idx,
//	    Random:    engine.NewSeededSource(42),
//	})
//
// RankSlot evaluates every candidate for a slot on a bounded worker pool and
// orders the allowed ones by score.
package engine
