package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"relief-hq/relief/pkg/cli"
	"relief-hq/relief/pkg/policy/engine"
	"relief-hq/relief/pkg/roster"
	"relief-hq/relief/pkg/telemetry/logging"
)

var rankFlags struct {
	scenario string
	policy   string
	seed     uint64
	top      int
	format   string
	record   bool
	commit   bool
	progress bool
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank candidates for the slots of a scenario",
	Long: `Evaluate every candidate for every slot of a scenario and print the
allowed candidates by descending score, followed by the rejected ones and
their rejection reasons.

With --commit the best candidate of each slot is appended to the
substitution history, and later slots of the same run already see the
assignment (daily coverage caps, fairness).

Examples:
  relief rank --scenario monday.yaml
  relief rank --scenario monday.yaml --seed 42 --top 3
  relief rank --scenario monday.yaml --commit --format json`,
	RunE: rankSlots,
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVarP(&rankFlags.scenario, "scenario", "s", "", "scenario file (required)")
	rankCmd.Flags().StringVar(&rankFlags.policy, "policy", "", "policy id (defaults to the scenario's policy)")
	rankCmd.Flags().Uint64Var(&rankFlags.seed, "seed", 0, "batch seed (defaults to the scenario's seed)")
	rankCmd.Flags().IntVar(&rankFlags.top, "top", 0, "show only the N best candidates per slot (0 for all)")
	rankCmd.Flags().StringVar(&rankFlags.format, "format", "text", "output format: text, json, yaml")
	rankCmd.Flags().BoolVar(&rankFlags.record, "record", true, "record every decision as evidence")
	rankCmd.Flags().BoolVar(&rankFlags.commit, "commit", false, "append the best candidate of each slot to the history")
	rankCmd.Flags().BoolVar(&rankFlags.progress, "progress", false, "report progress on stderr")
}

func rankSlots(cmd *cobra.Command, args []string) (err error) {
	format, err := cli.ParseFormat(rankFlags.format)
	if err != nil {
		return err
	}

	a, ctx, err := start(cmd, "rank")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	sc, err := a.loadScenario(ctx, rankFlags.scenario)
	if err != nil {
		return err
	}
	if len(sc.Slots) == 0 {
		return fmt.Errorf("scenario %s has no slots", rankFlags.scenario)
	}
	policy, err := a.resolvePolicy(ctx, rankFlags.policy, sc)
	if err != nil {
		return cli.NewCommandError("rank", err)
	}
	e, err := a.engine(rankFlags.record)
	if err != nil {
		return err
	}
	seed := sc.Seed
	if cmd != nil && cmd.Flags().Changed("seed") {
		seed = rankFlags.seed
	}

	var progress cli.ProgressReporter
	if rankFlags.progress {
		progress = cli.NewProgressReporter(os.Stderr, "slots")
		progress.Start(int64(len(sc.Slots)))
	}

	ctx = logging.WithPolicyID(ctx, policy.ID)
	idx := roster.NewIndex(&sc.Snapshot)
	rankings := make([]*engine.Ranking, 0, len(sc.Slots))
	for i, slot := range sc.Slots {
		r, err := e.RankSlot(logging.WithSlot(ctx, slot.Key()), engine.RankRequest{
			Policy: policy,
			Slot:   slot,
			Index:  idx,
			Seed:   seed,
		})
		if err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return cli.NewCommandError("rank", fmt.Errorf("slot %s: %w", slot.Key(), err))
		}
		rankings = append(rankings, r)

		if best := r.Best(); rankFlags.commit && best != nil {
			sub := roster.Substitution{
				Date:         best.Slot.Date,
				Period:       best.Slot.Period,
				AbsentID:     best.Slot.AbsentID,
				SubstituteID: best.CandidateID,
				ClassID:      best.Slot.ClassID,
			}
			if err := commitSubstitution(ctx, a, sub); err != nil {
				return err
			}
			sc.History = append(sc.History, sub)
			idx = roster.NewIndex(&sc.Snapshot)
		}
		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	if progress != nil {
		progress.Finish()
	}

	if rankFlags.top > 0 {
		for _, r := range rankings {
			if len(r.Ranked) > rankFlags.top {
				r.Ranked = r.Ranked[:rankFlags.top]
			}
		}
	}

	w := stdout(cmd)
	if format != cli.FormatText {
		return cli.NewFormatter(format).FormatTo(w, rankings)
	}
	return outputRankingsText(w, rankings)
}

func commitSubstitution(ctx context.Context, a *app, sub roster.Substitution) error {
	store, err := a.historyStore()
	if err != nil {
		return err
	}
	if err := store.Append(ctx, sub); err != nil {
		return cli.NewCommandError("history", err)
	}
	a.logger.InfoContext(ctx, "substitution committed",
		"date", sub.Date.String(),
		"period", sub.Period,
		"absent", sub.AbsentID,
		"substitute", sub.SubstituteID,
	)
	return nil
}

func outputRankingsText(w io.Writer, rankings []*engine.Ranking) error {
	for i, r := range rankings {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Slot %s", r.Slot.Key())
		if r.Slot.ClassID != "" {
			fmt.Fprintf(w, " class %s", r.Slot.ClassID)
		}
		if r.Slot.Subject != "" {
			fmt.Fprintf(w, " %s", r.Slot.Subject)
		}
		fmt.Fprintf(w, " (policy %s, seed %d)\n", r.PolicyID, r.Seed)

		if len(r.Ranked) == 0 {
			fmt.Fprintln(w, "  No eligible candidate.")
		} else {
			fmt.Fprintf(w, "  %-4s %-20s %10s  %s\n", "#", "CANDIDATE", "SCORE", "STEPS")
			for n, t := range r.Ranked {
				fmt.Fprintf(w, "  %-4d %-20s %10.2f  %s\n", n+1, t.CandidateID, t.Score, joinOrDash(t.StepsMatched))
			}
		}
		if len(r.Rejected) > 0 {
			fmt.Fprintln(w, "  Rejected:")
			for _, t := range r.Rejected {
				fmt.Fprintf(w, "       %-20s %s\n", t.CandidateID, t.Rejection)
			}
		}
	}
	return nil
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
