package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeSecret(t *testing.T, dir, name, value string, perm os.FileMode) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(value), perm); err != nil {
		t.Fatalf("failed to write secret: %v", err)
	}
	// WriteFile is subject to umask.
	if err := os.Chmod(path, perm); err != nil {
		t.Fatalf("failed to chmod secret: %v", err)
	}
}

func TestFileProvider_Get(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "git-token", "  ghp-file\n", 0o600)
	writeSecret(t, dir, "readonly", "ro", 0o400)
	writeSecret(t, dir, "open", "world", 0o644)
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o700); err != nil {
		t.Fatal(err)
	}

	p, err := NewFileProvider(dir)
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}

	tests := []struct {
		name     string
		secret   string
		want     string
		wantErr  bool
		notFound bool
	}{
		{name: "trimmed", secret: "git-token", want: "ghp-file"},
		{name: "read only", secret: "readonly", want: "ro"},
		{name: "insecure permissions", secret: "open", wantErr: true},
		{name: "missing", secret: "absent", wantErr: true, notFound: true},
		{name: "directory", secret: "subdir", wantErr: true},
		{name: "traversal", secret: "../etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Get(context.Background(), tt.secret)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got value %q", got)
				}
				if errors.Is(err, ErrNotFound) != tt.notFound {
					t.Errorf("errors.Is(err, ErrNotFound) = %v, want %v (%v)", !tt.notFound, tt.notFound, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

func TestNewFileProvider_Errors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileProvider(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
	if _, err := NewFileProvider(file); err == nil {
		t.Error("expected error for non-directory path")
	}
}
