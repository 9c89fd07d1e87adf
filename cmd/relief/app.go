package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"relief-hq/relief/pkg/cli"
	"relief-hq/relief/pkg/config"
	"relief-hq/relief/pkg/evidence"
	"relief-hq/relief/pkg/evidence/recorder"
	"relief-hq/relief/pkg/evidence/storage"
	"relief-hq/relief/pkg/history"
	"relief-hq/relief/pkg/policy/ast"
	"relief-hq/relief/pkg/policy/engine"
	"relief-hq/relief/pkg/policy/git"
	"relief-hq/relief/pkg/policy/manager"
	"relief-hq/relief/pkg/policy/parser"
	"relief-hq/relief/pkg/policy/source"
	"relief-hq/relief/pkg/policy/validator"
	"relief-hq/relief/pkg/roster"
	"relief-hq/relief/pkg/secrets"
	"relief-hq/relief/pkg/telemetry/logging"
	"relief-hq/relief/pkg/telemetry/metrics"
	"relief-hq/relief/pkg/telemetry/tracing"
)

// closeTimeout bounds flushing evidence and exporting spans on exit.
const closeTimeout = 10 * time.Second

// app holds the components shared by the commands of one invocation.
// Stores and the policy manager are opened on first use; finish releases
// whatever was opened.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	span    trace.Span

	evidence evidence.Storage
	recorder *recorder.Recorder
	history  history.Store
	policies *manager.Manager
}

// start loads the configuration, sets up telemetry and opens the span of
// the named command. Callers must defer finish.
func start(cmd *cobra.Command, name string) (*app, context.Context, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, nil, cli.NewConfigError("", err.Error())
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Telemetry.Logging.Format = logFormat
	}

	logger, err := logging.New(logging.ConfigFrom(cfg.Telemetry.Logging))
	if err != nil {
		return nil, nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	tracer, err := tracing.New(cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewCollector(cfg.Telemetry.Metrics, nil),
		tracer:  tracer,
	}

	ctx := logging.WithRunID(commandContext(cmd), uuid.NewString())
	ctx, a.span = tracer.Start(ctx, "relief.cli."+name,
		trace.WithAttributes(attribute.String(tracing.AttrCommand, name)))
	ctx = logging.NewContext(ctx, logger)

	logger.DebugContext(ctx, "command started", "command", name, "config", cfgFile)
	return a, ctx, nil
}

// finish ends the command span and releases every opened component. Close
// errors are joined into *errp.
func (a *app) finish(ctx context.Context, errp *error) {
	tracing.End(a.span, errp)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	var errs []error
	if a.policies != nil {
		errs = append(errs, a.policies.Close())
	}
	if a.recorder != nil {
		errs = append(errs, a.recorder.Close())
		stats := a.recorder.Stats()
		a.logger.DebugContext(ctx, "evidence recorder closed",
			"written", stats.Written, "failed", stats.Failed, "dropped", stats.Dropped)
	}
	if a.evidence != nil {
		errs = append(errs, a.evidence.Close())
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	if path := a.cfg.Telemetry.Metrics.TextfilePath; path != "" && a.cfg.Telemetry.Metrics.Enabled {
		errs = append(errs, a.metrics.WriteToTextfile(path))
	}
	errs = append(errs, a.tracer.Shutdown(ctx))

	if err := errors.Join(errs...); err != nil {
		a.logger.WarnContext(ctx, "shutdown incomplete", "error", err)
		if errp != nil {
			*errp = errors.Join(*errp, err)
		}
	}
}

// parser returns a policy parser with the configured limits.
func (a *app) parser() *parser.Parser {
	return parser.New().
		WithMaxFileSize(a.cfg.Policy.MaxFileSize).
		WithMaxDepth(a.cfg.Engine.MaxConditionDepth)
}

// validator returns a policy validator with the configured limits.
func (a *app) validator() *validator.Validator {
	return validator.New().WithMaxDepth(a.cfg.Engine.MaxConditionDepth)
}

// evidenceStore opens the configured evidence storage.
func (a *app) evidenceStore() (evidence.Storage, error) {
	if a.evidence == nil {
		s, err := storage.Open(a.cfg.Evidence)
		if err != nil {
			return nil, cli.NewCommandError("evidence", err)
		}
		a.evidence = s
	}
	return a.evidence, nil
}

// evidenceRecorder returns the recorder, or nil when evidence is disabled.
func (a *app) evidenceRecorder() (*recorder.Recorder, error) {
	if !a.cfg.Evidence.Enabled {
		return nil, nil
	}
	if a.recorder == nil {
		s, err := a.evidenceStore()
		if err != nil {
			return nil, err
		}
		a.recorder = recorder.NewRecorder(s, recorder.ConfigFrom(a.cfg.Evidence))
	}
	return a.recorder, nil
}

// historyStore opens the configured substitution history store.
func (a *app) historyStore() (history.Store, error) {
	if a.history == nil {
		s, err := history.Open(a.cfg.History)
		if err != nil {
			return nil, cli.NewCommandError("history", err)
		}
		a.history = s
	}
	return a.history, nil
}

// policySource builds the configured policy source. For git mode the
// repository is cloned (or opened) first.
func (a *app) policySource(ctx context.Context) (source.PolicySource, error) {
	opts := []source.FileOption{source.WithParser(a.parser()), source.WithLogger(a.logger)}

	switch a.cfg.Policy.Mode {
	case "git":
		gitCfg, err := a.resolveGitAuth(ctx, a.cfg.Policy.Git)
		if err != nil {
			return nil, err
		}
		repo, err := git.NewRepository(gitCfg, a.logger)
		if err != nil {
			return nil, cli.NewConfigError("policy.git", err.Error())
		}
		if err := repo.Clone(ctx); err != nil {
			return nil, cli.NewCommandError("policy", fmt.Errorf("failed to clone policy repository: %w", err))
		}
		var interval time.Duration
		if a.cfg.Policy.Git.Poll.Enabled {
			interval = a.cfg.Policy.Git.Poll.Interval
		}
		return git.NewSource(repo, interval, a.logger, opts...), nil
	default:
		return source.NewFileSource(a.cfg.Policy.Path, opts...), nil
	}
}

// resolveGitAuth replaces ${secret:name} references in the repository
// credentials. Secrets come from the environment first, then from the
// configured secrets directory.
func (a *app) resolveGitAuth(ctx context.Context, cfg config.GitPolicyConfig) (config.GitPolicyConfig, error) {
	if !secrets.HasReference(cfg.Auth.Token) && !secrets.HasReference(cfg.Auth.SSHKeyPassphrase) {
		return cfg, nil
	}
	providers := []secrets.Provider{secrets.NewEnvProvider(a.cfg.Secrets.EnvPrefix)}
	if a.cfg.Secrets.Dir != "" {
		fp, err := secrets.NewFileProvider(a.cfg.Secrets.Dir)
		if err != nil {
			return cfg, cli.NewConfigError("secrets.dir", err.Error())
		}
		providers = append(providers, fp)
	}
	r := secrets.NewResolver(providers...).WithLogger(a.logger)

	var err error
	if cfg.Auth.Token, err = r.Resolve(ctx, cfg.Auth.Token); err != nil {
		return cfg, cli.NewConfigError("policy.git.auth.token", err.Error())
	}
	if cfg.Auth.SSHKeyPassphrase, err = r.Resolve(ctx, cfg.Auth.SSHKeyPassphrase); err != nil {
		return cfg, cli.NewConfigError("policy.git.auth.ssh_key_passphrase", err.Error())
	}
	return cfg, nil
}

// policyManager loads every policy of the configured source. Load metrics
// are fed to the collector.
func (a *app) policyManager(ctx context.Context) (*manager.Manager, error) {
	if a.policies != nil {
		return a.policies, nil
	}
	src, err := a.policySource(ctx)
	if err != nil {
		return nil, err
	}
	m, err := manager.New(src,
		manager.WithLogger(a.logger),
		manager.WithValidator(a.validator()),
		manager.WithDebounce(a.cfg.Policy.Debounce),
		manager.OnLoad(func(op string, reg *manager.Registry, elapsed time.Duration, err error) {
			n := 0
			if reg != nil {
				n = reg.Len()
			}
			a.metrics.RecordPolicyLoad(op, n, elapsed, err)
		}),
	)
	if err != nil {
		return nil, err
	}
	a.policies = m
	if err := m.Load(ctx); err != nil {
		return nil, cli.NewCommandError("policy", err)
	}
	return m, nil
}

// resolvePolicy picks the policy for a scenario: the explicit id, else the
// scenario's policy, else the only loaded policy.
func (a *app) resolvePolicy(ctx context.Context, id string, sc *roster.Scenario) (*ast.Policy, error) {
	m, err := a.policyManager(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" && sc != nil {
		id = sc.Policy
	}
	if id == "" {
		list := m.List()
		if len(list) != 1 {
			return nil, fmt.Errorf("%d policies loaded, select one with --policy", len(list))
		}
		return list[0], nil
	}
	return m.Get(id)
}

// engine creates a decision engine observed by the metrics collector and,
// when record is set and evidence is enabled, the evidence recorder.
func (a *app) engine(record bool) (*engine.Engine, error) {
	opts := []engine.Option{
		engine.WithLogger(a.logger),
		engine.WithTracer(a.tracer.Tracer()),
		engine.WithObserver(a.metrics),
	}
	if record {
		rec, err := a.evidenceRecorder()
		if err != nil {
			return nil, err
		}
		if rec != nil {
			opts = append(opts, engine.WithObserver(rec))
		}
	}
	ec, err := engineConfig(a.cfg.Engine)
	if err != nil {
		return nil, err
	}
	e, err := engine.New(ec, opts...)
	if err != nil {
		return nil, cli.NewConfigError("engine", err.Error())
	}
	return e, nil
}

// loadScenario reads a scenario and appends the stored substitution
// history to its own.
func (a *app) loadScenario(ctx context.Context, path string) (*roster.Scenario, error) {
	if path == "" {
		return nil, fmt.Errorf("--scenario is required")
	}
	sc, err := roster.LoadScenario(path)
	if err != nil {
		return nil, err
	}
	store, err := a.historyStore()
	if err != nil {
		return nil, err
	}
	stored, err := store.All(ctx)
	if err != nil {
		return nil, cli.NewCommandError("history", err)
	}
	known := make(map[string]bool, len(sc.History))
	for _, h := range sc.History {
		known[substitutionKey(h)] = true
	}
	for _, h := range stored {
		if !known[substitutionKey(h)] {
			sc.History = append(sc.History, h)
		}
	}
	a.logger.DebugContext(ctx, "scenario loaded",
		"path", path,
		"staff", len(sc.Employees),
		"slots", len(sc.Slots),
		"history", len(sc.History),
	)
	return sc, nil
}

func substitutionKey(s roster.Substitution) string {
	return fmt.Sprintf("%s/p%d/%s/%s", s.Date, s.Period, s.AbsentID, s.SubstituteID)
}

// engineConfig converts the engine section of the configuration.
func engineConfig(c config.EngineConfig) (*engine.EngineConfig, error) {
	ec := engine.DefaultEngineConfig().
		WithFairnessBaseline(c.FairnessBaseline).
		WithFairnessThresholds(c.StrictThreshold, c.FlexibleThreshold).
		WithImmunity(c.ImmunityThreshold, c.ImmunityWindowDays).
		WithWorkers(c.Workers)
	ec.StrictFactor = c.StrictFactor
	ec.FlexibleFactor = c.FlexibleFactor
	ec.ModerateShortage = c.ModerateShortage
	if len(c.SubjectDomains) > 0 {
		ec = ec.WithSubjectDomains(ast.SubjectDomains(c.SubjectDomains))
	}
	if c.WeekStart != "" {
		day, err := roster.ParseWeekday(c.WeekStart)
		if err != nil {
			return nil, cli.NewConfigError("engine.week_start", err.Error())
		}
		ec = ec.WithWeekStart(day)
	}
	return ec, nil
}
