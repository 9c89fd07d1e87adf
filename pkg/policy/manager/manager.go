package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"relief-hq/relief/pkg/policy/ast"
	"relief-hq/relief/pkg/policy/git"
	"relief-hq/relief/pkg/policy/source"
	"relief-hq/relief/pkg/policy/validator"
)

// DefaultDebounce is the quiet period Watch waits before reloading.
const DefaultDebounce = 200 * time.Millisecond

// Syncer is implemented by sources that can pull a new revision on demand
// and roll back to a previous one.
type Syncer interface {
	Sync(ctx context.Context) (*git.PullResult, error)
	Rollback(ctx context.Context, sha string) error
}

// Manager loads policies from a source, normalizes them and serves them
// by id. A load is all-or-nothing: if any policy is rejected the
// previously loaded registry stays active.
type Manager struct {
	source    source.PolicySource
	validator *validator.Validator
	logger    *slog.Logger
	debounce  time.Duration
	onReload  []func(*Registry)
	onLoad    []LoadHook

	registry atomic.Pointer[Registry]

	// mu serializes loads.
	mu       sync.Mutex
	lastErr  error
	reloads  int64
	failures int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithValidator replaces the default validator, e.g. to change the
// maximum condition depth.
func WithValidator(v *validator.Validator) Option {
	return func(m *Manager) { m.validator = v }
}

// WithDebounce sets the quiet period used by Watch.
func WithDebounce(d time.Duration) Option {
	return func(m *Manager) { m.debounce = d }
}

// OnReload registers fn to run after every successful load.
func OnReload(fn func(*Registry)) Option {
	return func(m *Manager) { m.onReload = append(m.onReload, fn) }
}

// LoadHook is called after every load attempt. reg is nil when the attempt
// failed.
type LoadHook func(op string, reg *Registry, elapsed time.Duration, err error)

// OnLoad registers fn to run after every load attempt.
func OnLoad(fn LoadHook) Option {
	return func(m *Manager) { m.onLoad = append(m.onLoad, fn) }
}

// New creates a manager reading from src. No policies are loaded until
// Load is called.
func New(src source.PolicySource, opts ...Option) (*Manager, error) {
	if src == nil {
		return nil, fmt.Errorf("policy source cannot be nil")
	}
	m := &Manager{
		source:    src,
		validator: validator.New(),
		logger:    slog.Default(),
		debounce:  DefaultDebounce,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Load reads, validates and normalizes every policy from the source and
// replaces the active registry.
func (m *Manager) Load(ctx context.Context) error {
	return m.load(ctx, "load")
}

// Reload is Load for an already running manager; failures are logged as
// warnings and the previous registry is kept.
func (m *Manager) Reload(ctx context.Context) error {
	return m.load(ctx, "reload")
}

func (m *Manager) load(ctx context.Context, op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	reg, err := m.build(ctx)
	if err != nil {
		m.lastErr = err
		m.failures++
		level := slog.LevelError
		msg := "failed to load policies"
		if m.registry.Load() != nil {
			level = slog.LevelWarn
			msg = "policy reload failed, keeping previous policies"
		}
		m.logger.Log(ctx, level, msg,
			"op", op,
			"source", m.source.Name(),
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		m.notifyLoad(op, nil, time.Since(start), err)
		return err
	}

	m.registry.Store(reg)
	m.lastErr = nil
	m.reloads++

	m.logger.Info("policies loaded",
		"op", op,
		"source", m.source.Name(),
		"count", reg.Len(),
		"version", reg.Version(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	m.notifyLoad(op, reg, time.Since(start), nil)
	for _, fn := range m.onReload {
		fn(reg)
	}
	return nil
}

func (m *Manager) notifyLoad(op string, reg *Registry, elapsed time.Duration, err error) {
	for _, fn := range m.onLoad {
		fn(op, reg, elapsed, err)
	}
}

// build produces a registry without touching the active one.
func (m *Manager) build(ctx context.Context) (*Registry, error) {
	raw, err := m.source.LoadPolicies(ctx)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrNoPolicies
	}

	normalized := make([]*ast.Policy, 0, len(raw))
	var errs []error
	for _, p := range raw {
		n, err := m.validator.Normalize(p)
		if err != nil {
			errs = append(errs, &PolicyError{PolicyID: p.ID, Path: p.SourceFile, Err: err})
			continue
		}
		normalized = append(normalized, n)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return newRegistry(normalized, time.Now())
}

// Get returns the normalized policy with id.
func (m *Manager) Get(id string) (*ast.Policy, error) {
	reg := m.registry.Load()
	if reg == nil {
		return nil, ErrNotLoaded
	}
	p, ok := reg.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPolicyNotFound, id)
	}
	return p, nil
}

// List returns the loaded policies ordered by id.
func (m *Manager) List() []*ast.Policy {
	reg := m.registry.Load()
	if reg == nil {
		return nil
	}
	return reg.List()
}

// Registry returns the active snapshot, or nil before the first load.
func (m *Manager) Registry() *Registry {
	return m.registry.Load()
}

// Version returns the fingerprint of the active registry.
func (m *Manager) Version() string {
	reg := m.registry.Load()
	if reg == nil {
		return ""
	}
	return reg.Version()
}

// Status describes the manager's load history.
type Status struct {
	Source    string    `json:"source" yaml:"source"`
	Version   string    `json:"version" yaml:"version"`
	Count     int       `json:"count" yaml:"count"`
	LoadedAt  time.Time `json:"loaded_at" yaml:"loaded_at"`
	Reloads   int64     `json:"reloads" yaml:"reloads"`
	Failures  int64     `json:"failures" yaml:"failures"`
	LastError string    `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// Status returns a snapshot of the load state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{Source: m.source.Name(), Reloads: m.reloads, Failures: m.failures}
	if reg := m.registry.Load(); reg != nil {
		st.Version = reg.Version()
		st.Count = reg.Len()
		st.LoadedAt = reg.LoadedAt()
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}

// Watch reloads on source changes until ctx is cancelled. Bursts of events
// are coalesced into one reload after the debounce interval.
func (m *Manager) Watch(ctx context.Context) error {
	events, err := m.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.source.Name(), err)
	}

	debouncer := NewDebouncer(m.debounce)
	defer debouncer.Stop()

	m.logger.Info("watching policies", "source", m.source.Name(), "debounce", m.debounce)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type == source.EventError {
				m.logger.Warn("policy source error", "source", m.source.Name(), "error", ev.Err)
				continue
			}
			m.logger.Debug("policy change", "type", ev.Type.String(), "path", ev.Path)
			debouncer.Trigger(func() {
				_ = m.Reload(ctx)
			})
		}
	}
}

// Sync pulls the source and reloads. When the pulled policies are
// rejected the source is rolled back to the previous revision and a
// *SyncError is returned; the active registry is unchanged.
func (m *Manager) Sync(ctx context.Context) error {
	syncer, ok := m.source.(Syncer)
	if !ok {
		return ErrSyncUnsupported
	}

	result, err := syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("failed to sync %s: %w", m.source.Name(), err)
	}
	if !result.HadChanges() {
		m.logger.Debug("policy source up to date", "commit", result.ToSHA)
		return nil
	}

	if err := m.Reload(ctx); err != nil {
		syncErr := &SyncError{FromSHA: result.FromSHA, ToSHA: result.ToSHA, Err: err}
		syncErr.RollbackErr = syncer.Rollback(ctx, result.FromSHA)
		m.logger.Error("rejected pulled policies", "from", result.FromSHA, "to", result.ToSHA, "error", err)
		return syncErr
	}
	return nil
}

// Close releases the source.
func (m *Manager) Close() error {
	return m.source.Close()
}
