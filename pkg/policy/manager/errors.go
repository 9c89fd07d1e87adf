package manager

import (
	"errors"
	"fmt"
)

var (
	// ErrPolicyNotFound is returned by Get for an unknown policy id.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrNoPolicies is returned when a load yields no policies at all.
	ErrNoPolicies = errors.New("no policies loaded")

	// ErrNotLoaded is returned by lookups before the first successful load.
	ErrNotLoaded = errors.New("policies have not been loaded")

	// ErrSyncUnsupported is returned by Sync for sources that cannot pull.
	ErrSyncUnsupported = errors.New("policy source does not support sync")
)

// PolicyError reports a policy that failed validation or normalization.
type PolicyError struct {
	PolicyID string
	Path     string
	Err      error
}

func (e *PolicyError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("policy %q (%s): %v", e.PolicyID, e.Path, e.Err)
	}
	return fmt.Sprintf("policy %q: %v", e.PolicyID, e.Err)
}

func (e *PolicyError) Unwrap() error {
	return e.Err
}

// DuplicatePolicyError reports two policies sharing an id.
type DuplicatePolicyError struct {
	PolicyID string
	First    string
	Second   string
}

func (e *DuplicatePolicyError) Error() string {
	return fmt.Sprintf("duplicate policy id %q in %s and %s", e.PolicyID, e.First, e.Second)
}

// SyncError reports a pulled revision whose policies were rejected. The
// repository has been reset to FromSHA unless RollbackErr is set.
type SyncError struct {
	FromSHA     string
	ToSHA       string
	Err         error
	RollbackErr error
}

func (e *SyncError) Error() string {
	if e.RollbackErr != nil {
		return fmt.Sprintf("policies at %s rejected: %v (rollback to %s also failed: %v)", e.ToSHA, e.Err, e.FromSHA, e.RollbackErr)
	}
	return fmt.Sprintf("policies at %s rejected, rolled back to %s: %v", e.ToSHA, e.FromSHA, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
