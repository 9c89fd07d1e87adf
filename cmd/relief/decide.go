package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"relief-hq/relief/pkg/cli"
	"relief-hq/relief/pkg/policy/engine"
	"relief-hq/relief/pkg/roster"
	"relief-hq/relief/pkg/telemetry/logging"
)

var decideFlags struct {
	scenario  string
	candidate string
	policy    string
	slot      int
	seed      uint64
	format    string
	record    bool
	verify    bool
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Explain the decision for one candidate",
	Long: `Evaluate one candidate for one slot of a scenario and print the
decision trace: whether the candidate is allowed, the final score and the
line-by-line breakdown of how it was reached.

The candidate draws from the same seeded stream as in "relief rank", so
both commands agree for the same seed. With --verify-replay the decision is
replayed from its recorded draws and compared with the original.

Examples:
  relief decide --scenario monday.yaml --candidate t-cohen
  relief decide --scenario monday.yaml --candidate t-cohen --slot 2 --seed 42 --format json`,
	RunE: decide,
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVarP(&decideFlags.scenario, "scenario", "s", "", "scenario file (required)")
	decideCmd.Flags().StringVar(&decideFlags.candidate, "candidate", "", "candidate employee id (required)")
	decideCmd.Flags().StringVar(&decideFlags.policy, "policy", "", "policy id (defaults to the scenario's policy)")
	decideCmd.Flags().IntVar(&decideFlags.slot, "slot", 0, "index of the slot in the scenario")
	decideCmd.Flags().Uint64Var(&decideFlags.seed, "seed", 0, "batch seed (defaults to the scenario's seed)")
	decideCmd.Flags().StringVar(&decideFlags.format, "format", "text", "output format: text, json, yaml")
	decideCmd.Flags().BoolVar(&decideFlags.record, "record", true, "record the decision as evidence")
	decideCmd.Flags().BoolVar(&decideFlags.verify, "verify-replay", false, "replay the decision and check it reproduces")
}

func decide(cmd *cobra.Command, args []string) (err error) {
	format, err := cli.ParseFormat(decideFlags.format)
	if err != nil {
		return err
	}
	if decideFlags.candidate == "" {
		return fmt.Errorf("--candidate is required")
	}

	a, ctx, err := start(cmd, "decide")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	sc, err := a.loadScenario(ctx, decideFlags.scenario)
	if err != nil {
		return err
	}
	if decideFlags.slot < 0 || decideFlags.slot >= len(sc.Slots) {
		return fmt.Errorf("slot index %d out of range (scenario has %d slots)", decideFlags.slot, len(sc.Slots))
	}
	policy, err := a.resolvePolicy(ctx, decideFlags.policy, sc)
	if err != nil {
		return cli.NewCommandError("decide", err)
	}
	e, err := a.engine(decideFlags.record)
	if err != nil {
		return err
	}

	idx := roster.NewIndex(&sc.Snapshot)
	candidate := idx.Employee(decideFlags.candidate)
	if candidate == nil {
		return fmt.Errorf("unknown candidate %q", decideFlags.candidate)
	}
	seed := sc.Seed
	if cmd != nil && cmd.Flags().Changed("seed") {
		seed = decideFlags.seed
	}
	slot := sc.Slots[decideFlags.slot]

	ctx = logging.WithCandidateID(logging.WithSlot(logging.WithPolicyID(ctx, policy.ID), slot.Key()), candidate.ID)
	req := engine.Request{
		Policy:    policy,
		Candidate: candidate,
		Slot:      slot,
		Index:     idx,
		Random:    engine.NewSeededSource(engine.SeedFor(seed, candidate.ID)),
	}
	t, err := e.Decide(ctx, req)
	if err != nil {
		return cli.NewCommandError("decide", err)
	}
	a.logger.InfoContext(ctx, "decision made", "allowed", t.Allowed, "score", t.Score, "trace_id", t.ID)

	w := stdout(cmd)
	if format == cli.FormatText {
		err = outputTraceText(w, t)
	} else {
		err = cli.NewFormatter(format).FormatTo(w, t)
	}
	if err != nil || !decideFlags.verify {
		return err
	}

	if _, err := e.Replay(ctx, t, req); err != nil {
		return cli.NewCommandError("decide", fmt.Errorf("replay failed: %w", err))
	}
	if format == cli.FormatText {
		fmt.Fprintf(w, "\nReplay: ✓ reproduced from %d recorded draw(s)\n", len(t.Draws))
	}
	return nil
}

func outputTraceText(w io.Writer, t *engine.DecisionTrace) error {
	fmt.Fprintf(w, "Policy: %s", t.PolicyID)
	if t.PolicyVersion != "" {
		fmt.Fprintf(w, " (version %s)", t.PolicyVersion)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Slot: %s", t.Slot.Key())
	if t.Slot.ClassID != "" || t.Slot.Subject != "" {
		fmt.Fprintf(w, " (%s)", strings.TrimSpace(t.Slot.ClassID+" "+t.Slot.Subject))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Candidate: %s\n", t.CandidateID)
	if t.Allowed {
		fmt.Fprintf(w, "Decision: ✓ allowed, score %.2f\n", t.Score)
	} else {
		fmt.Fprintf(w, "Decision: ✗ rejected (%s)\n", t.Rejection)
		if t.Overridable {
			fmt.Fprintln(w, "  The blocking rule allows a manual override.")
		}
	}
	fmt.Fprintf(w, "Trace: %s\n", t.ID)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Breakdown:")
	for _, line := range t.Breakdown {
		fmt.Fprintf(w, "  %s\n", line)
	}

	if len(t.RulesApplied) > 0 {
		fmt.Fprintf(w, "\nRules applied: %s\n", strings.Join(t.RulesApplied, ", "))
	}
	if len(t.RulesSuppressed) > 0 {
		fmt.Fprintf(w, "Rules suppressed by exceptions: %s\n", strings.Join(t.RulesSuppressed, ", "))
	}
	if len(t.StepsMatched) > 0 {
		fmt.Fprintf(w, "Steps matched: %s\n", strings.Join(t.StepsMatched, ", "))
	}
	if len(t.AuditRequired) > 0 {
		fmt.Fprintf(w, "Audit required: %s\n", strings.Join(t.AuditRequired, ", "))
	}
	_, err := fmt.Fprintf(w, "Draws: %v\n", t.Draws)
	return err
}
