package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultFairnessBaseline   = 2.0
	DefaultStrictThreshold    = 1.0
	DefaultStrictFactor       = 0.5
	DefaultFlexibleThreshold  = 3.0
	DefaultFlexibleFactor     = 0.8
	DefaultImmunityThreshold  = 3
	DefaultImmunityWindowDays = 2
	DefaultModerateShortage   = 2
	DefaultWeekStart          = "sunday"
	DefaultEngineWorkers      = 4
	DefaultMaxConditionDepth  = 16

	// Policy defaults
	DefaultPolicyMode         = "file"
	DefaultPolicyPath         = "./policies"
	DefaultPolicyWatch        = false
	DefaultPolicyDebounce     = 200 * time.Millisecond
	DefaultPolicyMaxFileSize  = int64(1 << 20) // 1MB
	DefaultPolicyGitBranch    = "main"
	DefaultPolicyGitAuthType  = "none"
	DefaultPolicyGitInterval  = time.Minute
	DefaultPolicyGitTimeout   = 30 * time.Second
	DefaultPolicyGitLocalName = "relief-policies"

	// Evidence defaults
	DefaultEvidenceEnabled              = true
	DefaultEvidenceBackend              = "sqlite"
	DefaultEvidenceSQLitePath           = "data/evidence.db"
	DefaultEvidenceSQLiteMaxOpenConns   = 10
	DefaultEvidenceSQLiteMaxIdleConns   = 5
	DefaultEvidenceSQLiteWALMode        = true
	DefaultEvidenceSQLiteBusyTimeout    = 5 * time.Second
	DefaultEvidenceRecorderAsyncBuffer  = 1000
	DefaultEvidenceRecorderWriteTimeout = 5 * time.Second
	DefaultEvidenceRetentionDays        = 90
	DefaultEvidenceRetentionSchedule    = "0 3 * * *"
	DefaultEvidenceQueryDefaultLimit    = 100
	DefaultEvidenceQueryMaxLimit        = 10000
	DefaultEvidenceExportJSONPretty     = true
	DefaultEvidenceExportCSVHeader      = true

	// History defaults
	DefaultHistoryBackend = "sqlite"
	DefaultHistoryPath    = "data/history.db"

	// Secrets defaults
	DefaultSecretsEnvPrefix = "RELIEF_SECRET_"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	DefaultMetricsEnabled     = true
	DefaultMetricsNamespace   = "relief"
	DefaultMetricsSubsystem   = "engine"
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "relief"
	DefaultOTLPInsecure       = true
	DefaultOTLPTimeout        = 10 * time.Second
)

// DefaultDurationBuckets are the decision duration histogram buckets in seconds.
var DefaultDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1}

// Default returns a configuration with every field at its default value.
// Boolean switches that default to true and fields where zero has a meaning
// (evidence.retention.days) are only set here, so files are
// decoded on top of Default rather than onto a zero Config.
func Default() *Config {
	cfg := &Config{}
	cfg.Policy.Watch = DefaultPolicyWatch
	cfg.Evidence.Enabled = DefaultEvidenceEnabled
	cfg.Evidence.SQLite.WALMode = DefaultEvidenceSQLiteWALMode
	cfg.Evidence.Retention.Days = DefaultEvidenceRetentionDays
	cfg.Evidence.Export.JSONPretty = DefaultEvidenceExportJSONPretty
	cfg.Evidence.Export.CSVIncludeHeader = DefaultEvidenceExportCSVHeader
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Enabled = DefaultTracingEnabled
	cfg.Telemetry.Tracing.OTLP.Insecure = DefaultOTLPInsecure
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// It is idempotent.
func ApplyDefaults(cfg *Config) {
	applyEngineDefaults(&cfg.Engine)
	applyPolicyDefaults(&cfg.Policy)
	applyEvidenceDefaults(&cfg.Evidence)

	if cfg.History.Backend == "" {
		cfg.History.Backend = DefaultHistoryBackend
	}
	if cfg.History.Path == "" && cfg.History.Backend == "sqlite" {
		cfg.History.Path = DefaultHistoryPath
	}

	applyTelemetryDefaults(&cfg.Telemetry)

	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
}

func applyEngineDefaults(e *EngineConfig) {
	if e.FairnessBaseline == 0 {
		e.FairnessBaseline = DefaultFairnessBaseline
	}
	if e.StrictThreshold == 0 {
		e.StrictThreshold = DefaultStrictThreshold
	}
	if e.StrictFactor == 0 {
		e.StrictFactor = DefaultStrictFactor
	}
	if e.FlexibleThreshold == 0 {
		e.FlexibleThreshold = DefaultFlexibleThreshold
	}
	if e.FlexibleFactor == 0 {
		e.FlexibleFactor = DefaultFlexibleFactor
	}
	if e.ImmunityThreshold == 0 {
		e.ImmunityThreshold = DefaultImmunityThreshold
	}
	if e.ImmunityWindowDays == 0 {
		e.ImmunityWindowDays = DefaultImmunityWindowDays
	}
	if e.ModerateShortage == 0 {
		e.ModerateShortage = DefaultModerateShortage
	}
	if e.WeekStart == "" {
		e.WeekStart = DefaultWeekStart
	}
	if e.Workers == 0 {
		e.Workers = DefaultEngineWorkers
	}
	if e.MaxConditionDepth == 0 {
		e.MaxConditionDepth = DefaultMaxConditionDepth
	}
}

func applyPolicyDefaults(p *PolicyConfig) {
	if p.Mode == "" {
		p.Mode = DefaultPolicyMode
	}
	if p.Path == "" && p.Mode == "file" {
		p.Path = DefaultPolicyPath
	}
	if p.Debounce == 0 {
		p.Debounce = DefaultPolicyDebounce
	}
	if p.MaxFileSize == 0 {
		p.MaxFileSize = DefaultPolicyMaxFileSize
	}

	g := &p.Git
	if g.Branch == "" {
		g.Branch = DefaultPolicyGitBranch
	}
	if g.Auth.Type == "" {
		g.Auth.Type = DefaultPolicyGitAuthType
	}
	if g.Poll.Interval == 0 {
		g.Poll.Interval = DefaultPolicyGitInterval
	}
	if g.Poll.Timeout == 0 {
		g.Poll.Timeout = DefaultPolicyGitTimeout
	}
	if g.Clone.LocalPath == "" {
		g.Clone.LocalPath = filepath.Join(os.TempDir(), DefaultPolicyGitLocalName)
	}
}

func applyEvidenceDefaults(e *EvidenceConfig) {
	if e.Backend == "" {
		e.Backend = DefaultEvidenceBackend
	}
	if e.SQLite.Path == "" {
		e.SQLite.Path = DefaultEvidenceSQLitePath
	}
	if e.SQLite.MaxOpenConns == 0 {
		e.SQLite.MaxOpenConns = DefaultEvidenceSQLiteMaxOpenConns
	}
	if e.SQLite.MaxIdleConns == 0 {
		e.SQLite.MaxIdleConns = DefaultEvidenceSQLiteMaxIdleConns
	}
	if e.SQLite.BusyTimeout == 0 {
		e.SQLite.BusyTimeout = DefaultEvidenceSQLiteBusyTimeout
	}
	if e.Recorder.AsyncBuffer == 0 {
		e.Recorder.AsyncBuffer = DefaultEvidenceRecorderAsyncBuffer
	}
	if e.Recorder.WriteTimeout == 0 {
		e.Recorder.WriteTimeout = DefaultEvidenceRecorderWriteTimeout
	}
	if e.Retention.PruneSchedule == "" {
		e.Retention.PruneSchedule = DefaultEvidenceRetentionSchedule
	}
	if e.Query.DefaultLimit == 0 {
		e.Query.DefaultLimit = DefaultEvidenceQueryDefaultLimit
	}
	if e.Query.MaxLimit == 0 {
		e.Query.MaxLimit = DefaultEvidenceQueryMaxLimit
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.DurationBuckets) == 0 {
		t.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.OTLP.Timeout == 0 {
		t.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}
