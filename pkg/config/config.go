package config

import "time"

// Config is the root configuration structure for relief.
type Config struct {
	// Engine holds the numeric constants of the decision process.
	Engine EngineConfig `yaml:"engine"`

	// Policy configures where policies are loaded from and whether they
	// are reloaded on change.
	Policy PolicyConfig `yaml:"policy"`

	// Evidence configures decision evidence recording and storage.
	Evidence EvidenceConfig `yaml:"evidence"`

	// History configures the substitution history store.
	History HistoryConfig `yaml:"history"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Secrets configures how ${secret:name} references in credentials
	// are resolved.
	Secrets SecretsConfig `yaml:"secrets"`
}

// EngineConfig contains the decision engine constants.
type EngineConfig struct {
	// FairnessBaseline is the assumed weekly coverage average.
	// Default: 2
	FairnessBaseline float64 `yaml:"fairness_baseline" validate:"gte=0"`

	// StrictThreshold is the fairness deviation above which strict
	// policies halve the score.
	// Default: 1
	StrictThreshold float64 `yaml:"strict_threshold" validate:"gte=0"`

	// StrictFactor multiplies the score when the strict threshold is exceeded.
	// Default: 0.5
	StrictFactor float64 `yaml:"strict_factor" validate:"gte=0,lte=1"`

	// FlexibleThreshold is the flexible counterpart of StrictThreshold.
	// Default: 3
	FlexibleThreshold float64 `yaml:"flexible_threshold" validate:"gtefield=StrictThreshold"`

	// FlexibleFactor multiplies the score when the flexible threshold is exceeded.
	// Default: 0.8
	FlexibleFactor float64 `yaml:"flexible_factor" validate:"gte=0,lte=1"`

	// ImmunityThreshold is the number of recent coverages that must be
	// exceeded for temporary immunity.
	// Default: 3
	ImmunityThreshold int `yaml:"immunity_threshold" validate:"gte=0"`

	// ImmunityWindowDays is the immunity window in calendar days,
	// including the decision day.
	// Default: 2
	ImmunityWindowDays int `yaml:"immunity_window_days" validate:"gte=1"`

	// WeekStart is the first day of the school week, used to count weekly
	// coverage for fairness.
	// Default: "sunday"
	WeekStart string `yaml:"week_start" validate:"oneof=sunday monday tuesday wednesday thursday friday saturday"`

	// ModerateShortage is the largest number of free internal teachers
	// that still counts as a moderate shortage.
	// Default: 2
	ModerateShortage int `yaml:"moderate_shortage" validate:"gte=0"`

	// Workers bounds concurrent decisions when ranking a slot.
	// Default: 4
	Workers int `yaml:"workers" validate:"gte=1,lte=256"`

	// MaxConditionDepth bounds nesting of condition groups in policies.
	// Default: 16
	MaxConditionDepth int `yaml:"max_condition_depth" validate:"gte=1,lte=64"`

	// SubjectDomains replaces the built-in subject domain table when set.
	SubjectDomains map[string][]string `yaml:"subject_domains"`
}

// PolicyConfig contains policy source configuration.
type PolicyConfig struct {
	// Mode specifies how policies are loaded.
	// Options: "file" (local file or directory), "git" (Git repository)
	// Default: "file"
	Mode string `yaml:"mode" validate:"oneof=file git"`

	// Path is a policy file or a directory of policy files.
	// Default: "./policies"
	Path string `yaml:"path" validate:"required_if=Mode file"`

	// Watch enables reloading when policy files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period after a change before reloading.
	// Default: 200ms
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`

	// MaxFileSize is the largest policy file accepted, in bytes.
	// Default: 1MB
	MaxFileSize int64 `yaml:"max_file_size" validate:"gt=0"`

	// Git contains Git repository configuration, used when Mode is "git".
	Git GitPolicyConfig `yaml:"git"`
}

// GitPolicyConfig configures Git-based policy loading.
type GitPolicyConfig struct {
	// Repository URL (HTTPS, SSH or a local path).
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path within the repository to the policy files.
	// Default: "" (repository root)
	Path string `yaml:"path"`

	// Auth configures Git authentication.
	Auth GitAuthConfig `yaml:"auth"`

	// Poll configures change detection.
	Poll GitPollConfig `yaml:"poll"`

	// Clone configures repository cloning.
	Clone GitCloneConfig `yaml:"clone"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type: "token", "ssh" or "none".
	// Default: "none"
	Type string `yaml:"type" validate:"oneof=token ssh none"`

	// Token for HTTPS authentication. Required when Type is "token".
	Token string `yaml:"token" validate:"required_if=Type token"`

	// SSHKeyPath for SSH authentication. Required when Type is "ssh".
	SSHKeyPath string `yaml:"ssh_key_path" validate:"required_if=Type ssh"`

	// SSHKeyPassphrase for encrypted SSH keys.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// GitPollConfig configures change detection.
type GitPollConfig struct {
	// Enabled turns on periodic pulls while watching.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Interval between polls.
	// Default: 1m
	Interval time.Duration `yaml:"interval" validate:"gte=0"`

	// Timeout for Git operations.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// GitCloneConfig configures repository cloning.
type GitCloneConfig struct {
	// Depth for shallow clones (0 = full clone).
	// Default: 0
	Depth int `yaml:"depth" validate:"gte=0"`

	// LocalPath where the repository is cloned.
	// Default: "<tmp>/relief-policies"
	LocalPath string `yaml:"local_path"`

	// CleanOnStart removes the local clone before cloning.
	// Default: false
	CleanOnStart bool `yaml:"clean_on_start"`
}

// EvidenceConfig contains configuration for evidence recording and storage.
type EvidenceConfig struct {
	// Enabled controls whether decisions are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend specifies the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend" validate:"oneof=sqlite memory"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains query limits.
	Query QueryConfig `yaml:"query"`

	// Export contains export configuration.
	Export ExportConfig `yaml:"export"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/evidence.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns" validate:"gte=0"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns" validate:"gte=0,ltefield=MaxOpenConns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout" validate:"gte=0"`
}

// RecorderConfig contains evidence recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the asynchronous write queue.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer" validate:"gte=1"`

	// WriteTimeout bounds a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain evidence records.
	// 0 keeps evidence forever.
	// Default: 90
	Days int `yaml:"days" validate:"gte=0"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords is the maximum number of records to keep. 0 is unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records" validate:"gte=0"`

	// ArchivePath is a directory that receives a JSON export of every
	// pruned batch. Empty disables archiving.
	ArchivePath string `yaml:"archive_path"`
}

// QueryConfig contains query limits.
type QueryConfig struct {
	// DefaultLimit applies when a query sets no limit.
	// Default: 100
	DefaultLimit int `yaml:"default_limit" validate:"gte=1,ltefield=MaxLimit"`

	// MaxLimit caps any query.
	// Default: 10000
	MaxLimit int `yaml:"max_limit" validate:"gte=1"`
}

// ExportConfig contains export configuration.
type ExportConfig struct {
	// JSONPretty indents JSON exports.
	// Default: true
	JSONPretty bool `yaml:"json_pretty"`

	// CSVIncludeHeader writes a header row in CSV exports.
	// Default: true
	CSVIncludeHeader bool `yaml:"csv_include_header"`
}

// HistoryConfig configures the substitution history store.
type HistoryConfig struct {
	// Backend is "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend" validate:"oneof=sqlite memory"`

	// Path is the SQLite database path.
	// Default: "data/history.db"
	Path string `yaml:"path" validate:"required_if=Backend sqlite"`
}

// SecretsConfig configures secret resolution. Environment variables are
// consulted first, then files in Dir.
type SecretsConfig struct {
	// EnvPrefix is prepended to the upper-cased secret name, with hyphens
	// replaced by underscores.
	// Default: "RELIEF_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir holds one file per secret, named after the secret. Files must
	// have mode 0600 or 0400. Empty disables file secrets.
	Dir string `yaml:"dir"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format" validate:"oneof=json text"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "relief"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "engine"
	Subsystem string `yaml:"subsystem"`

	// TextfilePath, when set, is where the CLI writes collected metrics in
	// the Prometheus text format on exit.
	TextfilePath string `yaml:"textfile_path"`

	// DurationBuckets defines histogram buckets for decision duration (seconds).
	// Default: [0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler" validate:"oneof=always never ratio"`

	// SampleRatio is the fraction of traces to sample.
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint" validate:"required_if=Enabled true"`

	// ServiceName is the service name in traces.
	// Default: "relief"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}
