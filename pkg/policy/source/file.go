package source

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"relief-hq/relief/pkg/policy/ast"
	"relief-hq/relief/pkg/policy/parser"
)

// Extensions lists the file extensions treated as policy files.
var Extensions = []string{".yaml", ".yml"}

// FileSource loads policies from a single YAML file or from every policy
// file below a directory. Hidden files and directories are skipped.
type FileSource struct {
	path   string
	parser *parser.Parser
	logger *slog.Logger
}

// FileOption configures a FileSource.
type FileOption func(*FileSource)

// WithParser replaces the default parser, e.g. to change size or depth limits.
func WithParser(p *parser.Parser) FileOption {
	return func(s *FileSource) { s.parser = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FileOption {
	return func(s *FileSource) { s.logger = logger }
}

// NewFileSource creates a file-based policy source for path.
func NewFileSource(path string, opts ...FileOption) *FileSource {
	s := &FileSource{
		path:   path,
		parser: parser.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns "file:" followed by the configured path.
func (s *FileSource) Name() string {
	return "file:" + s.path
}

// Path returns the configured file or directory.
func (s *FileSource) Path() string {
	return s.path
}

// Close is a no-op; watchers are released when their context ends.
func (s *FileSource) Close() error {
	return nil
}

// LoadPolicies parses every policy file. Any file that fails makes the
// whole load fail; the returned error joins one LoadError per bad file.
func (s *FileSource) LoadPolicies(ctx context.Context) ([]*ast.Policy, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, &LoadError{Path: s.path, Message: "cannot access policy path", Cause: err}
	}

	files := []string{s.path}
	if info.IsDir() {
		files, err = s.collect()
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, &LoadError{Path: s.path, Message: "no policy files found in directory"}
		}
	}

	var (
		policies []*ast.Policy
		errs     []error
	)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		policy, err := s.loadFile(file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		policies = append(policies, policy)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	s.logger.Debug("loaded policies from source",
		"source", s.Name(),
		"policy_count", len(policies),
	)
	return policies, nil
}

// collect returns the policy files under the directory in lexical order.
func (s *FileSource) collect() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if isHidden(path) && path != s.path {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsPolicyFile(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, &LoadError{Path: s.path, Message: "failed to walk directory", Cause: err}
	}
	slices.Sort(files)
	return files, nil
}

func (s *FileSource) loadFile(path string) (*ast.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{Path: path, Message: "file contains invalid UTF-8 encoding"}
	}

	policy, err := s.parser.ParseBytes(data, path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "parse failed", Cause: err}
	}
	policy.SourceFile = path

	s.logger.Debug("loaded policy file",
		"path", path,
		"policy_id", policy.ID,
		"rule_count", len(policy.GoldenRules),
		"step_count", len(policy.Ladder),
	)
	return policy, nil
}

// IsPolicyFile reports whether path has a policy file extension.
func IsPolicyFile(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
