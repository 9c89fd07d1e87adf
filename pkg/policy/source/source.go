package source

import (
	"context"
	"fmt"
	"time"

	"relief-hq/relief/pkg/policy/ast"
)

// PolicySource supplies parsed, not yet normalized, policies.
type PolicySource interface {
	// LoadPolicies returns every policy the source currently holds. A
	// source either returns all of its policies or an error.
	LoadPolicies(ctx context.Context) ([]*ast.Policy, error)

	// Watch reports changes until ctx is cancelled, then closes the
	// channel. Sources that cannot change return a channel that only
	// closes.
	Watch(ctx context.Context) (<-chan Event, error)

	// Name identifies the source in logs.
	Name() string

	// Close releases resources held by the source.
	Close() error
}

// EventType is the kind of change a source observed.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a change notification from a PolicySource.
type Event struct {
	Type EventType
	Path string
	Time time.Time
	Err  error
}

// LoadError describes a policy file that could not be read or parsed.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load policy file %q: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load policy file %q: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
