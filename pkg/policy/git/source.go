package git

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"relief-hq/relief/pkg/policy/ast"
	"relief-hq/relief/pkg/policy/source"
)

// Source serves policies from a cloned repository. Loading reads the
// policy directory of the clone; watching polls the remote and reports
// pulls that touched policy files.
type Source struct {
	repo     *Repository
	files    *source.FileSource
	interval time.Duration
	logger   *slog.Logger
}

// NewSource wraps repo. A zero interval disables polling: Watch then only
// closes its channel when the context ends. The clone must exist before
// policies are loaded.
func NewSource(repo *Repository, interval time.Duration, logger *slog.Logger, opts ...source.FileOption) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]source.FileOption{source.WithLogger(logger)}, opts...)
	return &Source{
		repo:     repo,
		files:    source.NewFileSource(repo.PolicyPath(), opts...),
		interval: interval,
		logger:   logger,
	}
}

// Name returns "git:" followed by the repository URL and branch.
func (s *Source) Name() string {
	return "git:" + s.repo.URL() + "@" + s.repo.Branch()
}

// Repository returns the underlying clone.
func (s *Source) Repository() *Repository {
	return s.repo
}

// LoadPolicies reads the policy files at the checked-out commit.
func (s *Source) LoadPolicies(ctx context.Context) ([]*ast.Policy, error) {
	policies, err := s.files.LoadPolicies(ctx)
	if err != nil {
		return nil, err
	}
	if head, err := s.repo.Head(); err == nil {
		s.logger.Debug("loaded policies from commit", "commit", head.Short(), "policy_count", len(policies))
	}
	return policies, nil
}

// Watch polls the remote every interval. A pull that changes policy files
// produces one EventModified per file; pull failures produce EventError.
func (s *Source) Watch(ctx context.Context) (<-chan source.Event, error) {
	events := make(chan source.Event, 16)

	if s.interval <= 0 {
		go func() {
			<-ctx.Done()
			close(events)
		}()
		return events, nil
	}

	go func() {
		defer close(events)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("git policy watcher started", "source", s.Name(), "interval", s.interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, ev := range s.poll(ctx) {
					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return events, nil
}

func (s *Source) poll(ctx context.Context) []source.Event {
	now := time.Now()
	result, err := s.repo.Pull(ctx)
	if err != nil {
		s.logger.Warn("git policy poll failed", "error", err)
		return []source.Event{{Type: source.EventError, Path: s.repo.URL(), Time: now, Err: err}}
	}
	if !result.HadChanges() {
		return nil
	}

	changed := s.PolicyChanges(result)
	if len(changed) == 0 {
		s.logger.Debug("pull touched no policy files", "to", result.ToSHA)
		return nil
	}

	events := make([]source.Event, 0, len(changed))
	for _, path := range changed {
		events = append(events, source.Event{Type: source.EventModified, Path: path, Time: now})
	}
	return events
}

// PolicyChanges returns the absolute paths of changed policy files that
// lie inside the configured policy directory.
func (s *Source) PolicyChanges(result *PullResult) []string {
	prefix := filepath.ToSlash(filepath.Clean(s.repo.cfg.Path))
	if prefix == "." {
		prefix = ""
	}

	var out []string
	for _, f := range result.ChangedFiles {
		if !source.IsPolicyFile(f) {
			continue
		}
		if prefix != "" && f != prefix && !strings.HasPrefix(f, prefix+"/") {
			continue
		}
		out = append(out, filepath.Join(s.repo.LocalPath(), filepath.FromSlash(f)))
	}
	return out
}

// Sync pulls the remote immediately.
func (s *Source) Sync(ctx context.Context) (*PullResult, error) {
	return s.repo.Pull(ctx)
}

// Rollback resets the clone to sha.
func (s *Source) Rollback(ctx context.Context, sha string) error {
	return s.repo.Reset(sha)
}

// Close is a no-op; the clone stays on disk for the next start.
func (s *Source) Close() error {
	return nil
}
