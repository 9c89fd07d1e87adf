package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"relief-hq/relief/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid JSON config",
			config: Config{Level: "info", Format: "json"},
		},
		{
			name:   "valid text config",
			config: Config{Level: "debug", Format: "text"},
		},
		{
			name:   "empty config uses defaults",
			config: Config{},
		},
		{
			name:   "upper case names",
			config: Config{Level: "WARN", Format: "JSON"},
		},
		{
			name:    "invalid log level",
			config:  Config{Level: "verbose", Format: "json"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  Config{Level: "info", Format: "console"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		level    slog.Level
		wantLog  bool
	}{
		{"debug level logs debug", "debug", slog.LevelDebug, true},
		{"info level filters debug", "info", slog.LevelDebug, false},
		{"info level logs info", "info", slog.LevelInfo, true},
		{"warn level filters info", "warn", slog.LevelInfo, false},
		{"warn level logs warn", "warn", slog.LevelWarn, true},
		{"error level filters warn", "error", slog.LevelWarn, false},
		{"error level logs error", "error", slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger, err := New(Config{Level: tt.logLevel, Format: "json", Writer: buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			logger.Log(context.Background(), tt.level, "test message")

			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("logged = %v, want %v (output %q)", got, tt.wantLog, buf.String())
			}
		})
	}
}

func TestLogger_Formats(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Format: "json", Writer: buf})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.Info("policy loaded", "policy_id", "default")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
		}
		if entry["msg"] != "policy loaded" {
			t.Errorf("msg = %v, want %q", entry["msg"], "policy loaded")
		}
		if entry["policy_id"] != "default" {
			t.Errorf("policy_id = %v, want %q", entry["policy_id"], "default")
		}
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Format: "text", Writer: buf})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.Info("policy loaded", "policy_id", "default")

		out := buf.String()
		if !strings.Contains(out, `msg="policy loaded"`) || !strings.Contains(out, "policy_id=default") {
			t.Errorf("unexpected text output %q", out)
		}
	})
}

func TestLogger_AddSource(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Format: "json", AddSource: true, Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("with source")

	if !strings.Contains(buf.String(), `"source"`) {
		t.Errorf("expected source field in %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard() logger should not be enabled")
	}
	logger.Error("dropped")
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.LoggingConfig{Level: "debug", Format: "json", AddSource: true})
	if cfg.Level != "debug" || cfg.Format != "json" || !cfg.AddSource {
		t.Errorf("ConfigFrom() = %+v", cfg)
	}
	if cfg.Writer != nil {
		t.Error("ConfigFrom() should leave Writer unset")
	}
}
