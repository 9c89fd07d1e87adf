package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"relief-hq/relief/pkg/cli"
	"relief-hq/relief/pkg/policy/ast"
	"relief-hq/relief/pkg/policy/manager"
	"relief-hq/relief/pkg/policy/parser"
)

var policyFlags struct {
	raw    bool
	format string
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and watch policies",
	Long: `Inspect the policies the engine would use.

Subcommands:
  show   - Print a policy in normalized form
  list   - List the policies of the configured source
  watch  - Reload policies on every change until interrupted
  sync   - Pull the policy repository and reload (git mode)`,
}

var policyShowCmd = &cobra.Command{
	Use:   "show <file|policy-id>",
	Short: "Print a policy in normalized form",
	Long: `Print a policy as YAML after normalization: mandatory rules are
injected, the ladder is sorted and every default is written out.

The argument is a policy file, or the id of a policy in the configured
source.

Examples:
  relief policy show policies/default.yaml
  relief policy show default --raw`,
	Args: cobra.ExactArgs(1),
	RunE: showPolicy,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded policies",
	RunE:  listPolicies,
}

var policyWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload policies on change",
	Long: `Load the configured policies and reload them whenever the source
changes (file events, or git polling in git mode). A reload that fails
validation keeps the previous policies. Runs until interrupted.`,
	RunE: watchPolicies,
}

var policySyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the policy repository and reload",
	Long: `Pull the configured git policy repository and reload. If the pulled
policies are rejected the clone is rolled back to the previous commit.`,
	RunE: syncPolicies,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyShowCmd, policyListCmd, policyWatchCmd, policySyncCmd)

	policyShowCmd.Flags().BoolVar(&policyFlags.raw, "raw", false, "print the policy as parsed, without normalization")
	policyListCmd.Flags().StringVar(&policyFlags.format, "format", "text", "output format: text, json, yaml")
}

func showPolicy(cmd *cobra.Command, args []string) (err error) {
	a, ctx, err := start(cmd, "policy.show")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	var policy *ast.Policy
	if info, statErr := os.Stat(args[0]); statErr == nil && !info.IsDir() {
		policy, err = a.parser().Parse(args[0])
		if err != nil {
			return cli.NewCommandError("policy", err)
		}
		if !policyFlags.raw {
			policy, err = a.validator().Normalize(policy)
			if err != nil {
				return cli.NewCommandError("policy", err)
			}
		}
	} else {
		// Policies served by the manager are always normalized.
		m, err := a.policyManager(ctx)
		if err != nil {
			return err
		}
		policy, err = m.Get(args[0])
		if err != nil {
			return cli.NewCommandError("policy", err)
		}
	}

	data, err := parser.Marshal(policy)
	if err != nil {
		return err
	}
	_, err = stdout(cmd).Write(data)
	return err
}

// policyList is the output of policy list.
type policyList struct {
	Status   manager.Status           `json:"status" yaml:"status"`
	Policies []manager.PolicyMetadata `json:"policies" yaml:"policies"`
}

func listPolicies(cmd *cobra.Command, args []string) (err error) {
	format, err := cli.ParseFormat(policyFlags.format)
	if err != nil {
		return err
	}

	a, ctx, err := start(cmd, "policy.list")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	m, err := a.policyManager(ctx)
	if err != nil {
		return err
	}
	out := policyList{Status: m.Status(), Policies: m.Registry().Metadata()}

	w := stdout(cmd)
	if format != cli.FormatText {
		return cli.NewFormatter(format).FormatTo(w, out)
	}
	return outputPolicyListText(w, out)
}

func outputPolicyListText(w io.Writer, out policyList) error {
	fmt.Fprintf(w, "Source: %s\n", out.Status.Source)
	fmt.Fprintf(w, "Version: %s\n", out.Status.Version)
	fmt.Fprintf(w, "Policies: %d\n\n", out.Status.Count)

	fmt.Fprintf(w, "%-24s %-10s %-8s %-8s %s\n", "ID", "VERSION", "RULES", "STEPS", "FILE")
	for _, p := range out.Policies {
		fmt.Fprintf(w, "%-24s %-10s %-8s %-8d %s\n",
			p.ID, p.Version, fmt.Sprintf("%d/%d", p.EnabledRules, p.Rules), p.Steps, p.FilePath)
	}
	return nil
}

func watchPolicies(cmd *cobra.Command, args []string) (err error) {
	a, ctx, err := start(cmd, "policy.watch")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	m, err := a.policyManager(ctx)
	if err != nil {
		return err
	}
	if !a.cfg.Policy.Watch && a.cfg.Policy.Mode != "git" {
		a.logger.WarnContext(ctx, "policy.watch is disabled in the configuration, watching anyway")
	}

	fmt.Fprintf(stdout(cmd), "Watching %s (%d policies, version %s). Press Ctrl+C to stop.\n",
		m.Status().Source, m.Registry().Len(), m.Version())
	return m.Watch(ctx)
}

func syncPolicies(cmd *cobra.Command, args []string) (err error) {
	a, ctx, err := start(cmd, "policy.sync")
	if err != nil {
		return err
	}
	defer a.finish(ctx, &err)

	m, err := a.policyManager(ctx)
	if err != nil {
		return err
	}
	before := m.Version()
	if err := m.Sync(ctx); err != nil {
		if errors.Is(err, manager.ErrSyncUnsupported) {
			return cli.NewConfigError("policy.mode", "sync requires git mode")
		}
		return cli.NewCommandError("policy", err)
	}

	w := stdout(cmd)
	if m.Version() == before {
		fmt.Fprintf(w, "Policies up to date (version %s)\n", before)
		return nil
	}
	fmt.Fprintf(w, "Policies updated: %s -> %s\n", before, m.Version())
	return nil
}
