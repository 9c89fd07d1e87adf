package main

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relief-hq/relief/pkg/evidence"
)

// recordRanking ranks the scenario slot once so that every candidate
// decision is recorded.
func recordRanking(t *testing.T) {
	t.Helper()
	cmd, _ := newTestCommand()
	if err := rankSlots(cmd, nil); err != nil {
		t.Fatalf("rankSlots() error: %v", err)
	}
}

func TestEvidenceQuery(t *testing.T) {
	tests := []struct {
		name      string
		setup     func()
		wantTotal int64
	}{
		{name: "all", setup: func() {}, wantTotal: 4},
		{name: "candidate", setup: func() { evidenceFlags.candidate = "t-cohen" }, wantTotal: 1},
		{name: "rejected", setup: func() { evidenceFlags.decision = "rejected" }, wantTotal: 1},
		{name: "allowed", setup: func() { evidenceFlags.decision = "allowed" }, wantTotal: 3},
		{name: "blocked by", setup: func() { evidenceFlags.blockedBy = "no-class-pull" }, wantTotal: 0},
		{name: "absent", setup: func() { evidenceFlags.absent = "t-levi" }, wantTotal: 4},
		{name: "date range", setup: func() { evidenceFlags.from, evidenceFlags.to = "2026-03-02", "2026-03-02" }, wantTotal: 4},
		{name: "later dates", setup: func() { evidenceFlags.from = "2026-03-03" }, wantTotal: 0},
		{name: "policy", setup: func() { evidenceFlags.policy = "other" }, wantTotal: 0},
	}

	setupTest(t)
	recordRanking(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEvidenceFlags()
			evidenceFlags.format = "json"
			tt.setup()
			cmd, out := newTestCommand()

			if err := queryEvidence(cmd, nil); err != nil {
				t.Fatalf("queryEvidence() error: %v", err)
			}
			var got struct {
				TotalRecords int64              `json:"total_records"`
				Records      []*evidence.Record `json:"records"`
			}
			if err := json.Unmarshal(out.Bytes(), &got); err != nil {
				t.Fatalf("output is not JSON: %v\n%s", err, out)
			}
			if got.TotalRecords != tt.wantTotal {
				t.Errorf("total_records = %d, want %d", got.TotalRecords, tt.wantTotal)
			}
			if int64(len(got.Records)) != tt.wantTotal {
				t.Errorf("len(records) = %d, want %d", len(got.Records), tt.wantTotal)
			}
		})
	}
}

func TestEvidenceQueryBlockedByName(t *testing.T) {
	setupTest(t)
	recordRanking(t)

	// BlockedBy holds the display name of the blocking rule.
	resetEvidenceFlags()
	evidenceFlags.decision = "rejected"
	evidenceFlags.format = "json"
	cmd, out := newTestCommand()
	if err := queryEvidence(cmd, nil); err != nil {
		t.Fatalf("queryEvidence() error: %v", err)
	}
	var got struct {
		Records []*evidence.Record `json:"records"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Records) != 1 {
		t.Fatalf("got %d rejected records, want 1", len(got.Records))
	}
	name := got.Records[0].BlockedBy
	if name == "" {
		t.Fatal("rejected record has no BlockedBy")
	}

	resetEvidenceFlags()
	evidenceFlags.blockedBy = name
	cmd, out = newTestCommand()
	if err := queryEvidence(cmd, nil); err != nil {
		t.Fatalf("queryEvidence() error: %v", err)
	}
	if !strings.Contains(out.String(), "Candidate: t-mizrahi") {
		t.Errorf("output missing t-mizrahi:\n%s", out)
	}
}

func TestEvidenceQueryTextPagination(t *testing.T) {
	setupTest(t)
	recordRanking(t)

	resetEvidenceFlags()
	evidenceFlags.limit = 2
	evidenceFlags.sortBy, evidenceFlags.sortOrder = "score", "desc"
	cmd, out := newTestCommand()

	if err := queryEvidence(cmd, nil); err != nil {
		t.Fatalf("queryEvidence() error: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Matching records: 4 (showing 2)", "Candidate: t-cohen", "... and 2 more records"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestEvidenceQueryLimitTooLarge(t *testing.T) {
	setupTest(t)
	evidenceFlags.limit = 1_000_000
	cmd, _ := newTestCommand()

	if err := queryEvidence(cmd, nil); err == nil {
		t.Error("queryEvidence() should reject a limit above the configured maximum")
	}
}

func TestBuildEvidenceQuery(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		wantErr bool
		check   func(t *testing.T, q *evidence.Query)
	}{
		{
			name:  "time range",
			setup: func() { evidenceFlags.timeRange = "2026-03-01T00:00:00Z/2026-03-02T00:00:00Z" },
			check: func(t *testing.T, q *evidence.Query) {
				if q.StartTime == nil || q.EndTime == nil || !q.EndTime.After(*q.StartTime) {
					t.Errorf("time range not set: %v %v", q.StartTime, q.EndTime)
				}
			},
		},
		{
			name:    "time range without separator",
			setup:   func() { evidenceFlags.timeRange = "2026-03-01T00:00:00Z" },
			wantErr: true,
		},
		{
			name:    "bad start time",
			setup:   func() { evidenceFlags.timeRange = "yesterday/2026-03-02T00:00:00Z" },
			wantErr: true,
		},
		{
			name:    "bad date",
			setup:   func() { evidenceFlags.from = "March 1" },
			wantErr: true,
		},
		{
			name:    "bad decision",
			setup:   func() { evidenceFlags.decision = "maybe" },
			wantErr: true,
		},
		{
			name:  "allowed",
			setup: func() { evidenceFlags.decision = "allow" },
			check: func(t *testing.T, q *evidence.Query) {
				if q.Allowed == nil || !*q.Allowed {
					t.Errorf("Allowed = %v, want true", q.Allowed)
				}
			},
		},
		{
			name:  "scores ignored unless set",
			setup: func() { evidenceFlags.minScore = 5 },
			check: func(t *testing.T, q *evidence.Query) {
				if q.MinScore != nil {
					t.Errorf("MinScore = %v, want nil without the flag", *q.MinScore)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEvidenceFlags()
			tt.setup()
			q, err := buildEvidenceQuery(nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("buildEvidenceQuery() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, q)
			}
		})
	}
}

func TestEvidenceQueryScoreFlags(t *testing.T) {
	resetEvidenceFlags()
	cmd := evidenceQueryCmd
	if err := cmd.Flags().Set("min-score", "20"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = cmd.Flags().Set("min-score", "0")
		cmd.Flags().Lookup("min-score").Changed = false
	})

	q, err := buildEvidenceQuery(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if q.MinScore == nil || *q.MinScore != 20 {
		t.Errorf("MinScore = %v, want 20", q.MinScore)
	}
	if q.MaxScore != nil {
		t.Errorf("MaxScore = %v, want nil", *q.MaxScore)
	}
}

func TestEvidenceExport(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, data []byte)
	}{
		{
			format: "ndjson",
			check: func(t *testing.T, data []byte) {
				lines := 0
				sc := bufio.NewScanner(strings.NewReader(string(data)))
				sc.Buffer(make([]byte, 1<<20), 1<<20)
				for sc.Scan() {
					var r evidence.Record
					if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
						t.Fatalf("line %d is not a record: %v", lines+1, err)
					}
					lines++
				}
				if lines != 4 {
					t.Errorf("got %d lines, want 4", lines)
				}
			},
		},
		{
			format: "json",
			check: func(t *testing.T, data []byte) {
				var records []*evidence.Record
				if err := json.Unmarshal(data, &records); err != nil {
					t.Fatalf("export is not a JSON array: %v", err)
				}
				if len(records) != 4 {
					t.Errorf("got %d records, want 4", len(records))
				}
				for _, r := range records {
					if err := r.Verify(); err != nil {
						t.Errorf("exported record %s fails verification: %v", r.ID, err)
					}
				}
			},
		},
		{
			format: "csv",
			check: func(t *testing.T, data []byte) {
				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				if len(lines) != 5 {
					t.Errorf("got %d lines, want header plus 4 rows", len(lines))
				}
			},
		},
	}

	dir := setupTest(t)
	recordRanking(t)

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resetEvidenceFlags()
			evidenceFlags.format = tt.format
			evidenceFlags.output = filepath.Join(dir, "export."+tt.format)
			cmd, _ := newTestCommand()

			if err := exportEvidence(cmd, nil); err != nil {
				t.Fatalf("exportEvidence() error: %v", err)
			}
			data, err := os.ReadFile(evidenceFlags.output)
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, data)
		})
	}
}

func TestEvidenceExportUnknownFormat(t *testing.T) {
	setupTest(t)
	evidenceFlags.format = "xml"
	cmd, _ := newTestCommand()

	if err := exportEvidence(cmd, nil); err == nil {
		t.Error("exportEvidence() with unknown format should return error")
	}
}

func TestEvidencePrune(t *testing.T) {
	setupTest(t)
	recordRanking(t)

	resetEvidenceFlags()
	evidenceFlags.dryRun = true
	cmd, out := newTestCommand()
	if err := pruneEvidence(cmd, nil); err != nil {
		t.Fatalf("pruneEvidence() dry run error: %v", err)
	}
	if !strings.Contains(out.String(), "0 record(s) decided before") {
		t.Errorf("unexpected dry run output:\n%s", out)
	}

	// Fresh records are inside the 30 day retention window.
	resetEvidenceFlags()
	cmd, out = newTestCommand()
	if err := pruneEvidence(cmd, nil); err != nil {
		t.Fatalf("pruneEvidence() error: %v", err)
	}
	if !strings.Contains(out.String(), "Pruned 0 record(s).") {
		t.Errorf("unexpected prune output:\n%s", out)
	}
}

func TestEvidenceVerify(t *testing.T) {
	setupTest(t)
	recordRanking(t)

	resetEvidenceFlags()
	evidenceFlags.scenario = "testdata/scenario.yaml"
	cmd, out := newTestCommand()

	if err := verifyEvidence(cmd, nil); err != nil {
		t.Fatalf("verifyEvidence() error: %v\n%s", err, out)
	}
	for _, want := range []string{"Checked 4 record(s)", "Hash mismatches: 0", "Replayed: 4, diverged: 0, skipped: 0"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEvidenceVerifyDetectsTampering(t *testing.T) {
	setupTest(t)
	recordRanking(t)

	// Rewrite one record with a trace that no longer matches its hash.
	a, ctx, err := start(nil, "test")
	if err != nil {
		t.Fatal(err)
	}
	store, err := a.evidenceStore()
	if err != nil {
		t.Fatal(err)
	}
	records, err := store.Query(ctx, &evidence.Query{CandidateID: "t-cohen"})
	if err != nil || len(records) != 1 {
		t.Fatalf("Query() = %d records, %v", len(records), err)
	}
	tampered := *records[0]
	tampered.Trace = json.RawMessage(strings.Replace(string(tampered.Trace), `"allowed":true`, `"allowed":false`, 1))
	if _, err := store.Delete(ctx, &evidence.Query{ID: tampered.ID}); err != nil {
		t.Fatal(err)
	}
	if err := store.Store(ctx, &tampered); err != nil {
		t.Fatal(err)
	}
	a.finish(ctx, &err)
	if err != nil {
		t.Fatal(err)
	}

	resetEvidenceFlags()
	cmd, out := newTestCommand()
	if err := verifyEvidence(cmd, nil); err == nil {
		t.Fatalf("verifyEvidence() should fail on a tampered record\n%s", out)
	}
	if !strings.Contains(out.String(), "Hash mismatches: 1") || !strings.Contains(out.String(), tampered.ID) {
		t.Errorf("tampered record not reported:\n%s", out)
	}
}
