package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"relief-hq/relief/pkg/cli"
	"relief-hq/relief/pkg/evidence"
	"relief-hq/relief/pkg/evidence/export"
	"relief-hq/relief/pkg/evidence/query"
	"relief-hq/relief/pkg/evidence/retention"
	"relief-hq/relief/pkg/policy/engine"
	"relief-hq/relief/pkg/roster"
)

var evidenceFlags struct {
	timeRange string
	from      string
	to        string
	policy    string
	candidate string
	absent    string
	blockedBy string
	decision  string
	minScore  float64
	maxScore  float64
	limit     int
	offset    int
	sortBy    string
	sortOrder string
	format    string
	output    string
	dryRun    bool
	schedule  bool
	scenario  string
}

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Query and maintain decision evidence",
	Long: `Query, export and maintain the evidence recorded for every decision.

Each record holds the flattened outcome of one candidate decision together
with the complete decision trace and its SHA-256 hash.

Subcommands:
  query   - Query evidence records with filters
  export  - Stream matching records as JSON, NDJSON or CSV
  prune   - Apply the retention policy
  verify  - Check trace hashes and optionally replay decisions`,
}

var evidenceQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query evidence records",
	Long: `Query evidence records with various filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-03-02T00:00:00Z/2026-03-03T00:00:00Z"

Examples:
  # Decisions about one candidate
  relief evidence query --candidate t-cohen

  # Rejections for slots in a date range, as JSON
  relief evidence query --from 2026-03-02 --to 2026-03-06 --decision rejected --format json

  # Highest scores first
  relief evidence query --sort-by score --sort-order desc --limit 10`,
	RunE: queryEvidence,
}

var evidenceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export evidence records",
	Long: `Stream every matching record to a file or stdout. Unlike query,
export applies no default limit.

Examples:
  relief evidence export --format csv -o march.csv --from 2026-03-01 --to 2026-03-31
  relief evidence export --format ndjson --policy default`,
	RunE: exportEvidence,
}

var evidencePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the evidence retention policy",
	Long: `Delete records older than evidence.retention.days and, when
evidence.retention.max_records is set, the oldest records over the limit.
Deleted records are archived first when evidence.retention.archive_path is set.

With --schedule the pruner runs on evidence.retention.prune_schedule (cron)
until interrupted.`,
	RunE: pruneEvidence,
}

var evidenceVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify evidence integrity",
	Long: `Check the stored trace of every matching record against its hash.

With --scenario each decision is also replayed from its recorded draws
against the roster of the scenario and the current policies, and must
reproduce the recorded outcome.`,
	RunE: verifyEvidence,
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceQueryCmd, evidenceExportCmd, evidencePruneCmd, evidenceVerifyCmd)

	for _, c := range []*cobra.Command{evidenceQueryCmd, evidenceExportCmd, evidenceVerifyCmd} {
		c.Flags().StringVar(&evidenceFlags.timeRange, "time-range", "", "decision time range (RFC3339 interval: start/end)")
		c.Flags().StringVar(&evidenceFlags.from, "from", "", "first slot date (YYYY-MM-DD)")
		c.Flags().StringVar(&evidenceFlags.to, "to", "", "last slot date (YYYY-MM-DD)")
		c.Flags().StringVar(&evidenceFlags.policy, "policy", "", "filter by policy id")
		c.Flags().StringVar(&evidenceFlags.candidate, "candidate", "", "filter by candidate id")
		c.Flags().StringVar(&evidenceFlags.absent, "absent", "", "filter by absent teacher id")
		c.Flags().StringVar(&evidenceFlags.blockedBy, "blocked-by", "", "filter by blocking golden rule name")
		c.Flags().StringVar(&evidenceFlags.decision, "decision", "", "filter by outcome: allowed, rejected")
		c.Flags().Float64Var(&evidenceFlags.minScore, "min-score", 0, "minimum score")
		c.Flags().Float64Var(&evidenceFlags.maxScore, "max-score", 0, "maximum score")
	}

	evidenceQueryCmd.Flags().IntVar(&evidenceFlags.limit, "limit", 0, "max results (default from evidence.query.default_limit)")
	evidenceQueryCmd.Flags().IntVar(&evidenceFlags.offset, "offset", 0, "pagination offset")
	evidenceQueryCmd.Flags().StringVar(&evidenceFlags.sortBy, "sort-by", "", "sort field: decided_at, recorded_at, date, score")
	evidenceQueryCmd.Flags().StringVar(&evidenceFlags.sortOrder, "sort-order", "", "sort order: asc, desc")
	evidenceQueryCmd.Flags().StringVar(&evidenceFlags.format, "format", "text", "output format: text, json, yaml")

	evidenceExportCmd.Flags().StringVar(&evidenceFlags.format, "format", "json", "export format: json, ndjson, csv")
	evidenceExportCmd.Flags().StringVarP(&evidenceFlags.output, "output", "o", "", "output file (default: stdout)")

	evidencePruneCmd.Flags().BoolVar(&evidenceFlags.dryRun, "dry-run", false, "only count the records that would be pruned by age")
	evidencePruneCmd.Flags().BoolVar(&evidenceFlags.schedule, "schedule", false, "run on the configured cron schedule until interrupted")

	evidenceVerifyCmd.Flags().StringVarP(&evidenceFlags.scenario, "scenario", "s", "", "scenario to replay decisions against")
}

// buildEvidenceQuery translates the filter flags.
func buildEvidenceQuery(cmd *cobra.Command) (*evidence.Query, error) {
	q := &evidence.Query{
		PolicyID:    evidenceFlags.policy,
		CandidateID: evidenceFlags.candidate,
		AbsentID:    evidenceFlags.absent,
		BlockedBy:   evidenceFlags.blockedBy,
		SortBy:      evidenceFlags.sortBy,
		SortOrder:   evidenceFlags.sortOrder,
	}

	if evidenceFlags.timeRange != "" {
		parts := strings.Split(evidenceFlags.timeRange, "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid time range format (expected: start/end)")
		}
		startTime, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid start time: %w", err)
		}
		endTime, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid end time: %w", err)
		}
		q.StartTime, q.EndTime = &startTime, &endTime
	}

	if evidenceFlags.from != "" {
		d, err := roster.ParseDate(evidenceFlags.from)
		if err != nil {
			return nil, err
		}
		q.FromDate = &d
	}
	if evidenceFlags.to != "" {
		d, err := roster.ParseDate(evidenceFlags.to)
		if err != nil {
			return nil, err
		}
		q.ToDate = &d
	}

	switch strings.ToLower(evidenceFlags.decision) {
	case "":
	case "allowed", "allow":
		allowed := true
		q.Allowed = &allowed
	case "rejected", "reject":
		allowed := false
		q.Allowed = &allowed
	default:
		return nil, fmt.Errorf("invalid decision %q (expected allowed or rejected)", evidenceFlags.decision)
	}

	if cmd != nil && cmd.Flags().Changed("min-score") {
		q.MinScore = &evidenceFlags.minScore
	}
	if cmd != nil && cmd.Flags().Changed("max-score") {
		q.MaxScore = &evidenceFlags.maxScore
	}
	return q, nil
}

func queryEvidence(cmd *cobra.Command, args []string) (err error) {
	format, err := cli.ParseFormat(evidenceFlags.format)
	if err != nil {
		return err
	}

	a, ctx, err := start(cmd, "evidence.query")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	q, err := buildEvidenceQuery(cmd)
	if err != nil {
		return err
	}
	q.Limit, q.Offset = evidenceFlags.limit, evidenceFlags.offset
	query.ApplyDefaultsWithLimit(q, a.cfg.Evidence.Query.DefaultLimit)
	if err := query.ValidateWithMax(q, a.cfg.Evidence.Query.MaxLimit); err != nil {
		return err
	}

	store, err := a.evidenceStore()
	if err != nil {
		return err
	}
	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("query failed: %w", err))
	}
	total, err := store.Count(ctx, q)
	if err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("count failed: %w", err))
	}

	w := stdout(cmd)
	switch format {
	case cli.FormatText:
		return outputEvidenceText(w, records, total, q)
	default:
		return cli.NewFormatter(format).FormatTo(w, map[string]any{
			"total_records": total,
			"records":       records,
		})
	}
}

func outputEvidenceText(w io.Writer, records []*evidence.Record, total int64, q *evidence.Query) error {
	if q.StartTime != nil && q.EndTime != nil {
		fmt.Fprintf(w, "Time range: %s to %s\n",
			q.StartTime.Format(time.RFC3339),
			q.EndTime.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Matching records: %d (showing %d)\n", total, len(records))
	fmt.Fprintln(w)

	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	for i, record := range records {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Record ID: %s\n", record.ID)
		fmt.Fprintf(w, "Decided: %s\n", record.DecidedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "Policy: %s", record.PolicyID)
		if record.PolicyVersion != "" {
			fmt.Fprintf(w, " (version %s)", record.PolicyVersion)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Slot: %s/p%d/%s", record.Date, record.Period, record.AbsentID)
		if record.ClassID != "" {
			fmt.Fprintf(w, " class %s", record.ClassID)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Candidate: %s\n", record.CandidateID)
		if record.Allowed {
			fmt.Fprintf(w, "Decision: allowed, score %.2f\n", record.Score)
		} else {
			fmt.Fprintf(w, "Decision: rejected (%s)\n", record.Rejection)
		}
		if record.BlockedBy != "" {
			fmt.Fprintf(w, "Blocked by: %s\n", record.BlockedBy)
		}
		if len(record.AuditRequired) > 0 {
			fmt.Fprintf(w, "Audit required: %s\n", strings.Join(record.AuditRequired, ", "))
		}
	}

	if int64(q.Offset+len(records)) < total {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "... and %d more records\n", total-int64(q.Offset+len(records)))
		fmt.Fprintln(w, "Use --limit and --offset for pagination.")
	}
	return nil
}

func exportEvidence(cmd *cobra.Command, args []string) (err error) {
	a, ctx, err := start(cmd, "evidence.export")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	exporter, err := export.New(evidenceFlags.format, a.cfg.Evidence.Export)
	if err != nil {
		return err
	}
	q, err := buildEvidenceQuery(cmd)
	if err != nil {
		return err
	}
	q.SortBy, q.SortOrder = "decided_at", "asc"

	store, err := a.evidenceStore()
	if err != nil {
		return err
	}

	var w io.Writer = stdout(cmd)
	if evidenceFlags.output != "" {
		f, err := os.Create(evidenceFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	records, errCh, err := store.QueryStream(ctx, q)
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}
	if err := exporter.ExportStream(ctx, records, w); err != nil {
		return cli.NewCommandError("evidence", err)
	}
	if err := <-errCh; err != nil {
		return cli.NewCommandError("evidence", err)
	}
	a.logger.InfoContext(ctx, "evidence exported", "format", evidenceFlags.format, "output", evidenceFlags.output)
	return nil
}

func pruneEvidence(cmd *cobra.Command, args []string) (err error) {
	a, ctx, err := start(cmd, "evidence.prune")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	store, err := a.evidenceStore()
	if err != nil {
		return err
	}
	pruner := retention.NewPruner(store, retention.ConfigFrom(a.cfg.Evidence.Retention))
	w := stdout(cmd)

	switch {
	case evidenceFlags.dryRun:
		if a.cfg.Evidence.Retention.Days == 0 {
			fmt.Fprintln(w, "Retention by age is disabled (evidence.retention.days is 0).")
			return nil
		}
		cutoff := pruner.Cutoff()
		n, err := store.Count(ctx, &evidence.Query{EndTime: &cutoff})
		if err != nil {
			return cli.NewCommandError("evidence", err)
		}
		fmt.Fprintf(w, "%d record(s) decided before %s would be pruned.\n", n, cutoff.Format(time.RFC3339))
		return nil

	case evidenceFlags.schedule:
		if err := pruner.Start(ctx); err != nil {
			return cli.NewConfigError("evidence.retention.prune_schedule", err.Error())
		}
		defer pruner.Stop()
		if next := pruner.NextPruning(); next != nil {
			fmt.Fprintf(w, "Pruning on %q, next run at %s. Press Ctrl+C to stop.\n",
				a.cfg.Evidence.Retention.PruneSchedule, next.Format(time.RFC3339))
		}
		<-ctx.Done()
		return nil

	default:
		deleted, err := pruner.Prune(ctx)
		if err != nil {
			return cli.NewCommandError("evidence", err)
		}
		fmt.Fprintf(w, "Pruned %d record(s).\n", deleted)
		return nil
	}
}

// verifyReport summarizes evidence verification.
type verifyReport struct {
	Checked  int
	Tampered []string
	Replayed int
	Diverged []string
	Skipped  int
}

func verifyEvidence(cmd *cobra.Command, args []string) (err error) {
	a, ctx, err := start(cmd, "evidence.verify")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	q, err := buildEvidenceQuery(cmd)
	if err != nil {
		return err
	}
	store, err := a.evidenceStore()
	if err != nil {
		return err
	}

	var replay func(context.Context, *evidence.Record) (bool, error)
	if evidenceFlags.scenario != "" {
		replay, err = a.replayer(ctx, evidenceFlags.scenario)
		if err != nil {
			return err
		}
	}

	records, errCh, err := store.QueryStream(ctx, q)
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}

	var report verifyReport
	for r := range records {
		report.Checked++
		if err := r.Verify(); err != nil {
			report.Tampered = append(report.Tampered, r.ID)
			a.logger.WarnContext(ctx, "evidence integrity check failed", "record_id", r.ID, "error", err)
			continue
		}
		if replay == nil {
			continue
		}
		ok, err := replay(ctx, r)
		switch {
		case err != nil:
			report.Diverged = append(report.Diverged, r.ID)
			a.logger.WarnContext(ctx, "replay diverged", "record_id", r.ID, "error", err)
		case ok:
			report.Replayed++
		default:
			report.Skipped++
		}
	}
	if err := <-errCh; err != nil {
		return cli.NewCommandError("evidence", err)
	}

	w := stdout(cmd)
	fmt.Fprintf(w, "Checked %d record(s)\n", report.Checked)
	fmt.Fprintf(w, "  Hash mismatches: %d\n", len(report.Tampered))
	for _, id := range report.Tampered {
		fmt.Fprintf(w, "    ✗ %s\n", id)
	}
	if replay != nil {
		fmt.Fprintf(w, "  Replayed: %d, diverged: %d, skipped: %d\n", report.Replayed, len(report.Diverged), report.Skipped)
		for _, id := range report.Diverged {
			fmt.Fprintf(w, "    ✗ %s\n", id)
		}
	}

	if n := len(report.Tampered) + len(report.Diverged); n > 0 {
		return cli.NewCommandError("evidence", fmt.Errorf("%d record(s) failed verification", n))
	}
	return nil
}

// replayer returns a function that replays a record against the roster of
// a scenario. It reports false for records whose policy or candidate is
// not available.
func (a *app) replayer(ctx context.Context, path string) (func(context.Context, *evidence.Record) (bool, error), error) {
	sc, err := a.loadScenario(ctx, path)
	if err != nil {
		return nil, err
	}
	m, err := a.policyManager(ctx)
	if err != nil {
		return nil, err
	}
	e, err := a.engine(false)
	if err != nil {
		return nil, err
	}
	idx := roster.NewIndex(&sc.Snapshot)

	return func(ctx context.Context, r *evidence.Record) (bool, error) {
		policy, err := m.Get(r.PolicyID)
		if err != nil || policy.Version != r.PolicyVersion {
			return false, nil
		}
		candidate := idx.Employee(r.CandidateID)
		if candidate == nil {
			return false, nil
		}
		t, err := r.DecodeTrace()
		if err != nil {
			return false, err
		}
		_, err = e.Replay(ctx, t, engine.Request{
			Policy:    policy,
			Candidate: candidate,
			Slot:      t.Slot,
			Index:     idx,
		})
		return err == nil, err
	}, nil
}
