package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned by providers that do not hold a secret.
var ErrNotFound = errors.New("secret not found")

// Provider retrieves secrets from one backend.
type Provider interface {
	// Get returns the value of the named secret, or an error wrapping
	// ErrNotFound.
	Get(ctx context.Context, name string) (string, error)

	// Name identifies the backend in logs ("env", "file").
	Name() string
}
