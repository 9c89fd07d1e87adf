package engine

import (
	"context"
	"fmt"
	"slices"
	"strconv"
)

// Replay re-runs a recorded decision with the draws stored on the trace
// and the trace's timestamp. The request supplies the policy and roster the
// decision was made against; its Random and At fields are ignored.
// Observers are not notified. A *ReplayError is returned when the new
// decision diverges from the recorded one.
func (e *Engine) Replay(ctx context.Context, recorded *DecisionTrace, req Request) (*DecisionTrace, error) {
	if recorded == nil {
		return nil, fmt.Errorf("%w: recorded trace", ErrMissingInput)
	}
	seq := NewSequenceSource(recorded.Draws...)
	req.Random = seq
	req.At = recorded.Timestamp
	if err := req.check(); err != nil {
		return nil, err
	}

	_, span := e.tracer.Start(ctx, "relief.replay")
	defer span.End()

	got := e.decide(req)

	diverged := func(field, want, have string) error {
		return &ReplayError{TraceID: recorded.ID, Field: field, Want: want, Got: have}
	}
	switch {
	case seq.Exhausted() || seq.Remaining() > 0:
		return got, diverged("draws", strconv.Itoa(len(recorded.Draws)), strconv.Itoa(len(got.Draws)))
	case got.Allowed != recorded.Allowed:
		return got, diverged("allowed", strconv.FormatBool(recorded.Allowed), strconv.FormatBool(got.Allowed))
	case got.Rejection != recorded.Rejection:
		return got, diverged("rejection", recorded.Rejection, got.Rejection)
	case num(got.Score) != num(recorded.Score):
		return got, diverged("score", num(recorded.Score), num(got.Score))
	case !slices.Equal(got.Breakdown, recorded.Breakdown):
		return got, diverged("breakdown", strconv.Itoa(len(recorded.Breakdown)), strconv.Itoa(len(got.Breakdown)))
	case got.ID != recorded.ID:
		return got, diverged("id", recorded.ID, got.ID)
	}

	e.logger.Debug("decision replayed", "trace_id", got.ID)
	return got, nil
}
