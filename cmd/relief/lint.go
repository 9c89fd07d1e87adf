package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"relief-hq/relief/pkg/cli"
	policyErrors "relief-hq/relief/pkg/policy/errors"
	"relief-hq/relief/pkg/policy/parser"
	"relief-hq/relief/pkg/policy/source"
	"relief-hq/relief/pkg/policy/validator"
)

var lintFlags struct {
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint [paths...]",
	Short: "Validate policy files",
	Long: `Validate policy files for syntax, structural and semantic errors.

Each path is a policy file or a directory searched recursively for *.yaml
and *.yml files. Quoted patterns are expanded with ** support, e.g.
'policies/**/*.yaml'. Without arguments the configured policy path is linted.

Every file is parsed, validated and normalized exactly as the engine would
load it, so a file that lints clean is accepted at load time. Policy ids
must be unique across all linted files.

Examples:
  # Lint a directory
  relief lint policies/

  # Lint two files and print JSON for CI
  relief lint default.yaml exams.yaml --format json

  # Lint every exam policy below the current directory
  relief lint '**/exam-*.yaml'`,
	RunE: lintPolicies,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json, yaml")
}

// LintResult is the lint outcome of one policy file.
type LintResult struct {
	File     string      `json:"file" yaml:"file"`
	PolicyID string      `json:"policy_id,omitempty" yaml:"policy_id,omitempty"`
	Valid    bool        `json:"valid" yaml:"valid"`
	Errors   []LintError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// LintError is a single problem found in a policy file.
type LintError struct {
	Line       int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column     int    `json:"column,omitempty" yaml:"column,omitempty"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

func lintPolicies(cmd *cobra.Command, args []string) (err error) {
	format, err := cli.ParseFormat(lintFlags.format)
	if err != nil {
		return err
	}

	a, ctx, err := start(cmd, "lint")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	if len(args) == 0 {
		args = []string{a.cfg.Policy.Path}
	}
	files, err := collectPolicyFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no policy files found in %s", strings.Join(args, ", "))
	}

	p, v := a.parser(), a.validator()
	results := make([]LintResult, 0, len(files))
	seen := make(map[string]string)
	for _, file := range files {
		result := lintFile(p, v, file)
		if prev, ok := seen[result.PolicyID]; ok && result.PolicyID != "" {
			result.Valid = false
			result.Errors = append(result.Errors, LintError{
				Type:    string(policyErrors.ErrorTypeSemantic),
				Message: fmt.Sprintf("duplicate policy id %q (also defined in %s)", result.PolicyID, prev),
			})
		} else if result.PolicyID != "" {
			seen[result.PolicyID] = file
		}
		results = append(results, result)
	}

	w := stdout(cmd)
	if format == cli.FormatText {
		err = outputLintText(w, results)
	} else {
		err = cli.NewFormatter(format).FormatTo(w, results)
	}
	if err != nil {
		return err
	}

	invalid := 0
	for _, r := range results {
		if !r.Valid {
			invalid++
		}
	}
	a.logger.InfoContext(ctx, "lint completed", "files", len(results), "invalid", invalid)
	if invalid > 0 {
		return cli.NewCommandError("lint", fmt.Errorf("%d of %d policy files failed validation", invalid, len(results)))
	}
	return nil
}

// collectPolicyFiles expands directories into the policy files below them.
// Hidden files and directories are skipped.
func collectPolicyFiles(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		if isGlob(root) {
			matches, err := doublestar.FilepathGlob(root, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("glob error in %s: %w", root, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match %s", root)
			}
			files = append(files, matches...)
			continue
		}
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", root, err)
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && source.IsPolicyFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list policy files in %s: %w", root, err)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// lintFile parses, validates and normalizes one file.
func lintFile(p *parser.Parser, v *validator.Validator, path string) LintResult {
	result := LintResult{File: path, Valid: true}

	policy, err := p.Parse(path)
	if err != nil {
		result.Valid = false
		result.Errors = lintErrors(err)
		return result
	}
	result.PolicyID = policy.ID

	if _, err := v.Normalize(policy); err != nil {
		result.Valid = false
		result.Errors = lintErrors(err)
	}
	return result
}

func lintErrors(err error) []LintError {
	var list *policyErrors.ErrorList
	if errors.As(err, &list) {
		out := make([]LintError, 0, len(list.Errors))
		for _, e := range list.Errors {
			out = append(out, lintError(e))
		}
		return out
	}
	var single *policyErrors.Error
	if errors.As(err, &single) {
		return []LintError{lintError(single)}
	}
	return []LintError{{Message: err.Error()}}
}

func lintError(e *policyErrors.Error) LintError {
	return LintError{
		Line:       e.Location.Line,
		Column:     e.Location.Column,
		Type:       string(e.Type),
		Message:    e.Message,
		Suggestion: e.Suggestion,
	}
}

func outputLintText(w io.Writer, results []LintResult) error {
	totalErrors := 0

	for _, result := range results {
		fmt.Fprintf(w, "Validating %s...\n", result.File)

		if result.Valid {
			fmt.Fprintf(w, "✓ Policy %s is valid\n", result.PolicyID)
		}

		for _, e := range result.Errors {
			fmt.Fprintf(w, "✗ Error: %s", e.Message)
			if e.Line > 0 {
				fmt.Fprintf(w, " (line %d", e.Line)
				if e.Column > 0 {
					fmt.Fprintf(w, ", col %d", e.Column)
				}
				fmt.Fprint(w, ")")
			}
			if e.Type != "" {
				fmt.Fprintf(w, " [%s]", e.Type)
			}
			fmt.Fprintln(w)
			if e.Suggestion != "" {
				fmt.Fprintf(w, "  suggestion: %s\n", e.Suggestion)
			}
			totalErrors++
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Summary:")
	_, err := fmt.Fprintf(w, "  %d file(s), %d error(s)\n", len(results), totalErrors)
	return err
}
