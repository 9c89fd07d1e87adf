package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relief-hq/relief/pkg/cli"
)

func TestLintPoliciesValidFile(t *testing.T) {
	setupTest(t)
	cmd, out := newTestCommand()

	err := lintPolicies(cmd, []string{"testdata/policies/default.yaml"})
	if err != nil {
		t.Fatalf("lintPolicies() with valid file returned error: %v\n%s", err, out)
	}
	if !strings.Contains(out.String(), "✓ Policy default is valid") {
		t.Errorf("output missing success line:\n%s", out)
	}
}

func TestLintPoliciesInvalidFile(t *testing.T) {
	setupTest(t)
	cmd, out := newTestCommand()

	err := lintPolicies(cmd, []string{"testdata/invalid-policy.yaml"})
	if err == nil {
		t.Fatal("lintPolicies() with invalid file should return error")
	}
	if code := cli.ExitCode(err); code != cli.ExitFailure {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitFailure)
	}
	if !strings.Contains(out.String(), "✗ Error:") {
		t.Errorf("output missing error line:\n%s", out)
	}
}

func TestLintPoliciesNonexistentFile(t *testing.T) {
	setupTest(t)
	cmd, _ := newTestCommand()

	if err := lintPolicies(cmd, []string{"testdata/nonexistent.yaml"}); err == nil {
		t.Error("lintPolicies() with nonexistent file should return error")
	}
}

func TestLintPoliciesConfiguredPath(t *testing.T) {
	setupTest(t)
	cmd, out := newTestCommand()

	// Without arguments the configured policy directory is linted.
	if err := lintPolicies(cmd, nil); err != nil {
		t.Fatalf("lintPolicies() returned error: %v\n%s", err, out)
	}
	if !strings.Contains(out.String(), "1 file(s), 0 error(s)") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestLintPoliciesJSONFormat(t *testing.T) {
	setupTest(t)
	lintFlags.format = "json"
	cmd, out := newTestCommand()

	err := lintPolicies(cmd, []string{"testdata/policies/default.yaml", "testdata/invalid-policy.yaml"})
	if err == nil {
		t.Fatal("lintPolicies() should fail when one file is invalid")
	}

	var results []LintResult
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	byFile := map[string]LintResult{}
	for _, r := range results {
		byFile[filepath.Base(r.File)] = r
	}
	if !byFile["default.yaml"].Valid {
		t.Error("default.yaml should be valid")
	}
	if r := byFile["invalid-policy.yaml"]; r.Valid || len(r.Errors) == 0 {
		t.Errorf("invalid-policy.yaml: valid=%v errors=%d, want invalid with errors", r.Valid, len(r.Errors))
	}
}

func TestLintPoliciesDuplicateIDs(t *testing.T) {
	setupTest(t)
	tmpDir := t.TempDir()

	data, err := os.ReadFile("testdata/policies/default.yaml")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cmd, out := newTestCommand()
	if err := lintPolicies(cmd, []string{tmpDir}); err == nil {
		t.Fatal("lintPolicies() should reject duplicate policy ids")
	}
	if !strings.Contains(out.String(), `duplicate policy id "default"`) {
		t.Errorf("output missing duplicate id error:\n%s", out)
	}
}

func TestCollectPolicyFiles(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "notes.txt", ".hidden.yaml", ".git/c.yaml", "sub/d.yaml"} {
		path := filepath.Join(tmpDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("id: x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := collectPolicyFiles([]string{tmpDir, filepath.Join(tmpDir, "a.yaml")})
	if err != nil {
		t.Fatalf("collectPolicyFiles() error: %v", err)
	}

	var got []string
	for _, f := range files {
		rel, _ := filepath.Rel(tmpDir, f)
		got = append(got, filepath.ToSlash(rel))
	}
	want := []string{"a.yaml", "b.yml", "sub/d.yaml"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("collectPolicyFiles() = %v, want %v", got, want)
	}
}

func TestCollectPolicyFiles_Glob(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"exam-math.yaml", "sub/exam-art.yaml", "sub/default.yaml", "sub/deeper/exam-pe.yml"} {
		path := filepath.Join(tmpDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("id: x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		pattern string
		want    []string
		wantErr bool
	}{
		{
			name:    "recursive",
			pattern: "**/exam-*.yaml",
			want:    []string{"exam-math.yaml", "sub/exam-art.yaml"},
		},
		{
			name:    "alternatives",
			pattern: "**/exam-*.{yaml,yml}",
			want:    []string{"exam-math.yaml", "sub/deeper/exam-pe.yml", "sub/exam-art.yaml"},
		},
		{
			name:    "single level",
			pattern: "sub/*.yaml",
			want:    []string{"sub/default.yaml", "sub/exam-art.yaml"},
		},
		{
			name:    "no match",
			pattern: "**/missing-*.yaml",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := collectPolicyFiles([]string{filepath.Join(tmpDir, tt.pattern)})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", files)
				}
				return
			}
			if err != nil {
				t.Fatalf("collectPolicyFiles() error: %v", err)
			}
			var got []string
			for _, f := range files {
				rel, _ := filepath.Rel(tmpDir, f)
				got = append(got, filepath.ToSlash(rel))
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("collectPolicyFiles(%q) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestValidatePolicyFile(t *testing.T) {
	setupTest(t)

	tests := []struct {
		name      string
		file      string
		wantValid bool
	}{
		{
			name:      "valid policy",
			file:      "testdata/policies/default.yaml",
			wantValid: true,
		},
		{
			name:      "invalid policy",
			file:      "testdata/invalid-policy.yaml",
			wantValid: false,
		},
		{
			name:      "nonexistent file",
			file:      "testdata/nonexistent.yaml",
			wantValid: false,
		},
	}

	a, ctx, err := start(nil, "test")
	if err != nil {
		t.Fatal(err)
	}
	defer a.finish(ctx, &err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := lintFile(a.parser(), a.validator(), tt.file)
			if result.Valid != tt.wantValid {
				t.Errorf("lintFile(%q).Valid = %v, want %v (errors: %v)",
					tt.file, result.Valid, tt.wantValid, result.Errors)
			}
		})
	}
}
