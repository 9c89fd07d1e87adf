package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// setupTest writes a configuration whose stores live in a fresh temporary
// directory, points the commands at it and resets every command flag. It
// returns the temporary directory.
func setupTest(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	policies, err := filepath.Abs("testdata/policies")
	if err != nil {
		t.Fatal(err)
	}

	config := fmt.Sprintf(`policy:
  path: %q
evidence:
  sqlite:
    path: %q
  retention:
    days: 30
history:
  path: %q
telemetry:
  logging:
    level: error
  metrics:
    textfile_path: %q
`,
		policies,
		filepath.Join(dir, "evidence.db"),
		filepath.Join(dir, "history.db"),
		filepath.Join(dir, "metrics", "relief.prom"),
	)
	path := filepath.Join(dir, "relief.yaml")
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}

	origCfg, origLevel, origFormat := cfgFile, logLevel, logFormat
	t.Cleanup(func() {
		cfgFile, logLevel, logFormat = origCfg, origLevel, origFormat
	})
	cfgFile, logLevel, logFormat = path, "", ""

	lintFlags.format = "text"
	policyFlags.raw, policyFlags.format = false, "text"
	decideFlags.scenario, decideFlags.candidate, decideFlags.policy = "testdata/scenario.yaml", "", ""
	decideFlags.slot, decideFlags.seed = 0, 0
	decideFlags.format, decideFlags.record, decideFlags.verify = "text", true, false
	rankFlags.scenario, rankFlags.policy = "testdata/scenario.yaml", ""
	rankFlags.seed, rankFlags.top = 0, 0
	rankFlags.format, rankFlags.record = "text", true
	rankFlags.commit, rankFlags.progress = false, false
	resetEvidenceFlags()
	resetHistoryFlags()

	return dir
}

func resetEvidenceFlags() {
	evidenceFlags.timeRange, evidenceFlags.from, evidenceFlags.to = "", "", ""
	evidenceFlags.policy, evidenceFlags.candidate, evidenceFlags.absent = "", "", ""
	evidenceFlags.blockedBy, evidenceFlags.decision = "", ""
	evidenceFlags.minScore, evidenceFlags.maxScore = 0, 0
	evidenceFlags.limit, evidenceFlags.offset = 0, 0
	evidenceFlags.sortBy, evidenceFlags.sortOrder = "", ""
	evidenceFlags.format, evidenceFlags.output = "text", ""
	evidenceFlags.dryRun, evidenceFlags.schedule = false, false
	evidenceFlags.scenario = ""
}

func resetHistoryFlags() {
	historyFlags.date, historyFlags.period = "", 0
	historyFlags.absent, historyFlags.substitute, historyFlags.class = "", "", ""
	historyFlags.from, historyFlags.to = "", ""
	historyFlags.format = "text"
}

// newTestCommand returns a bare command whose output is captured.
func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd, buf
}
