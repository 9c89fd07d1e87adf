package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
)

var refPattern = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Resolver looks secrets up in a chain of providers. Values are cached for
// the lifetime of the resolver.
type Resolver struct {
	providers []Provider
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]string
}

// NewResolver creates a resolver that tries providers in order.
func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{
		providers: providers,
		logger:    slog.Default(),
		cache:     make(map[string]string),
	}
}

// WithLogger sets the logger.
func (r *Resolver) WithLogger(logger *slog.Logger) *Resolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Get returns the named secret from the first provider that has it.
func (r *Resolver) Get(ctx context.Context, name string) (string, error) {
	r.mu.Lock()
	value, ok := r.cache[name]
	r.mu.Unlock()
	if ok {
		return value, nil
	}

	var errs []error
	for _, p := range r.providers {
		value, err := p.Get(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		r.logger.DebugContext(ctx, "secret resolved", "name", redact(name), "provider", p.Name())

		r.mu.Lock()
		r.cache[name] = value
		r.mu.Unlock()
		return value, nil
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("secret %s: %w (no providers configured)", redact(name), ErrNotFound)
	}
	return "", fmt.Errorf("secret %s: %w", redact(name), errors.Join(errs...))
}

// Resolve replaces every ${secret:name} reference in s. Strings without
// references are returned unchanged. Any unresolved reference is an error.
func (r *Resolver) Resolve(ctx context.Context, s string) (string, error) {
	var errs []error
	out := refPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := refPattern.FindStringSubmatch(ref)[1]
		value, err := r.Get(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return ref
		}
		return value
	})
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return out, nil
}

// HasReference reports whether s contains a ${secret:name} reference.
func HasReference(s string) bool {
	return refPattern.MatchString(s)
}

// redact keeps the first and last two characters of a secret name.
func redact(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
