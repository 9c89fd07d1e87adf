package secrets

import (
	"context"
	"errors"
	"testing"
)

func TestEnvProvider_Get(t *testing.T) {
	t.Setenv("RELIEF_SECRET_GIT_TOKEN", "ghp-test")

	p := NewEnvProvider("RELIEF_SECRET_")

	value, err := p.Get(context.Background(), "git-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "ghp-test" {
		t.Errorf("expected value 'ghp-test', got '%s'", value)
	}
}

func TestEnvProvider_Get_NotFound(t *testing.T) {
	p := NewEnvProvider("RELIEF_SECRET_")

	_, err := p.Get(context.Background(), "nonexistent-key")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnvProvider_envVar(t *testing.T) {
	tests := []struct {
		prefix string
		name   string
		want   string
	}{
		{"RELIEF_SECRET_", "git-token", "RELIEF_SECRET_GIT_TOKEN"},
		{"RELIEF_SECRET_", "deploy_key", "RELIEF_SECRET_DEPLOY_KEY"},
		{"", "token", "TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewEnvProvider(tt.prefix)
			if got := p.envVar(tt.name); got != tt.want {
				t.Errorf("envVar(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
