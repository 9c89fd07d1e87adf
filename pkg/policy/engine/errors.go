package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrPolicyNotNormalized is returned when a policy that has not been
	// through normalization is handed to the engine.
	ErrPolicyNotNormalized = errors.New("policy has not been normalized")

	// ErrMissingInput indicates a request without a policy or roster index.
	ErrMissingInput = errors.New("decision request is missing required input")
)

// ReplayError reports that a replayed decision did not reproduce the
// recorded trace.
type ReplayError struct {
	TraceID string
	Field   string
	Want    any
	Got     any
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay of trace %s diverged on %s: recorded %v, replayed %v", e.TraceID, e.Field, e.Want, e.Got)
}
