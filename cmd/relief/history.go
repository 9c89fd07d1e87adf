package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"relief-hq/relief/pkg/cli"
	"relief-hq/relief/pkg/roster"
)

var historyFlags struct {
	date       string
	period     int
	absent     string
	substitute string
	class      string
	from       string
	to         string
	format     string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the substitution history",
	Long: `Manage the substitution history used by the fairness and immunity
metrics. Stored history is merged into every scenario that is decided or
ranked.`,
}

var historyAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Record a substitution",
	Example: `  relief history add --date 2026-03-02 --period 3 --absent t-levi --substitute t-cohen --class 7B`,
	RunE:    addHistory,
}

var historyListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List recorded substitutions",
	Example: `  relief history list --from 2026-03-01 --to 2026-03-31 --format json`,
	RunE:    listHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyAddCmd, historyListCmd)

	historyAddCmd.Flags().StringVar(&historyFlags.date, "date", "", "substitution date (YYYY-MM-DD)")
	historyAddCmd.Flags().IntVar(&historyFlags.period, "period", 0, "period number")
	historyAddCmd.Flags().StringVar(&historyFlags.absent, "absent", "", "absent teacher id")
	historyAddCmd.Flags().StringVar(&historyFlags.substitute, "substitute", "", "substitute id")
	historyAddCmd.Flags().StringVar(&historyFlags.class, "class", "", "class id")
	_ = historyAddCmd.MarkFlagRequired("date")
	_ = historyAddCmd.MarkFlagRequired("period")
	_ = historyAddCmd.MarkFlagRequired("absent")
	_ = historyAddCmd.MarkFlagRequired("substitute")

	historyListCmd.Flags().StringVar(&historyFlags.from, "from", "", "first date (YYYY-MM-DD)")
	historyListCmd.Flags().StringVar(&historyFlags.to, "to", "", "last date (YYYY-MM-DD)")
	historyListCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json, yaml")
}

func addHistory(cmd *cobra.Command, args []string) (err error) {
	date, err := roster.ParseDate(historyFlags.date)
	if err != nil {
		return cli.NewConfigError("date", err.Error())
	}
	if historyFlags.period < 1 {
		return cli.NewConfigError("period", "must be at least 1")
	}
	if historyFlags.absent == historyFlags.substitute {
		return cli.NewConfigError("substitute", "must differ from the absent teacher")
	}

	a, ctx, err := start(cmd, "history.add")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	sub := roster.Substitution{
		Date:         date,
		Period:       historyFlags.period,
		AbsentID:     historyFlags.absent,
		SubstituteID: historyFlags.substitute,
		ClassID:      historyFlags.class,
	}
	if err := commitSubstitution(ctx, a, sub); err != nil {
		return err
	}
	fmt.Fprintf(stdout(cmd), "Recorded %s p%d: %s covers %s\n", sub.Date, sub.Period, sub.SubstituteID, sub.AbsentID)
	return nil
}

func listHistory(cmd *cobra.Command, args []string) (err error) {
	format, err := cli.ParseFormat(historyFlags.format)
	if err != nil {
		return err
	}

	var from, to *roster.Date
	for _, f := range []struct {
		name, value string
		dst         **roster.Date
	}{{"from", historyFlags.from, &from}, {"to", historyFlags.to, &to}} {
		if f.value == "" {
			continue
		}
		d, err := roster.ParseDate(f.value)
		if err != nil {
			return cli.NewConfigError(f.name, err.Error())
		}
		*f.dst = &d
	}

	a, ctx, err := start(cmd, "history.list")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	store, err := a.historyStore()
	if err != nil {
		return err
	}

	var subs []roster.Substitution
	if from == nil && to == nil {
		subs, err = store.All(ctx)
	} else {
		lo, hi := roster.Date{}, roster.NewDate(9999, 12, 31)
		if from != nil {
			lo = *from
		}
		if to != nil {
			hi = *to
		}
		subs, err = store.Between(ctx, lo, hi)
	}
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	w := stdout(cmd)
	if format != cli.FormatText {
		return cli.NewFormatter(format).FormatTo(w, subs)
	}
	return outputHistoryText(w, subs)
}

func outputHistoryText(w io.Writer, subs []roster.Substitution) error {
	if len(subs) == 0 {
		fmt.Fprintln(w, "No substitutions recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-10s  %-6s  %-16s  %-16s  %s\n", "DATE", "PERIOD", "ABSENT", "SUBSTITUTE", "CLASS")
	for _, s := range subs {
		class := s.ClassID
		if class == "" {
			class = "-"
		}
		fmt.Fprintf(w, "%-10s  %-6d  %-16s  %-16s  %s\n", s.Date, s.Period, s.AbsentID, s.SubstituteID, class)
	}
	fmt.Fprintf(w, "\n%d substitution(s)\n", len(subs))
	return nil
}
