package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relief-hq/relief/pkg/policy/engine"
)

func TestRankSlotsJSON(t *testing.T) {
	setupTest(t)
	rankFlags.format = "json"
	cmd, out := newTestCommand()

	if err := rankSlots(cmd, nil); err != nil {
		t.Fatalf("rankSlots() error: %v", err)
	}

	var rankings []*engine.Ranking
	if err := json.Unmarshal(out.Bytes(), &rankings); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(rankings) != 1 {
		t.Fatalf("got %d rankings, want 1", len(rankings))
	}
	r := rankings[0]
	if r.Seed != 42 {
		t.Errorf("Seed = %d, want the scenario seed 42", r.Seed)
	}

	var ranked []string
	for _, tr := range r.Ranked {
		ranked = append(ranked, tr.CandidateID)
	}
	if want := "t-cohen,t-azulay,t-ext"; strings.Join(ranked, ",") != want {
		t.Errorf("ranked = %v, want %s", ranked, want)
	}
	if best := r.Best(); best == nil || best.CandidateID != "t-cohen" {
		t.Errorf("Best() = %v, want t-cohen", best)
	}
	if len(r.Rejected) != 1 || r.Rejected[0].CandidateID != "t-mizrahi" {
		t.Errorf("rejected = %v, want only t-mizrahi", r.Rejected)
	}
}

func TestRankSlotsText(t *testing.T) {
	dir := setupTest(t)
	rankFlags.top = 1
	cmd, out := newTestCommand()

	if err := rankSlots(cmd, nil); err != nil {
		t.Fatalf("rankSlots() error: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Slot 2026-03-02/p3/t-levi", "t-cohen", "Rejected:", "rule:no-class-pull"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "t-azulay") {
		t.Errorf("--top 1 should hide t-azulay:\n%s", text)
	}

	// Metrics are written on exit.
	if _, err := os.Stat(filepath.Join(dir, "metrics", "relief.prom")); err != nil {
		t.Errorf("metrics textfile not written: %v", err)
	}
}

func TestRankSlotsCommit(t *testing.T) {
	setupTest(t)
	rankFlags.commit = true
	cmd, _ := newTestCommand()

	if err := rankSlots(cmd, nil); err != nil {
		t.Fatalf("rankSlots() error: %v", err)
	}

	historyFlags.format = "json"
	cmd, out := newTestCommand()
	if err := listHistory(cmd, nil); err != nil {
		t.Fatalf("listHistory() error: %v", err)
	}
	if !strings.Contains(out.String(), `"substitute": "t-cohen"`) {
		t.Errorf("committed substitution missing from history:\n%s", out)
	}
}

func TestRankSlotsCommitSamePeriod(t *testing.T) {
	setupTest(t)
	rankFlags.scenario = "testdata/scenario-same-period.yaml"
	rankFlags.commit = true
	rankFlags.format = "json"
	cmd, out := newTestCommand()

	if err := rankSlots(cmd, nil); err != nil {
		t.Fatalf("rankSlots() error: %v", err)
	}
	var rankings []*engine.Ranking
	if err := json.Unmarshal(out.Bytes(), &rankings); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(rankings) != 2 {
		t.Fatalf("got %d rankings, want 2", len(rankings))
	}
	if best := rankings[0].Best(); best == nil || best.CandidateID != "t-cohen" {
		t.Fatalf("first slot Best() = %v, want t-cohen", best)
	}
	best := rankings[1].Best()
	if best == nil {
		t.Fatal("second slot has no eligible candidate")
	}
	if best.CandidateID == "t-cohen" {
		t.Error("t-cohen was assigned twice in period 3")
	}
	var rejected bool
	for _, tr := range rankings[1].Rejected {
		if tr.CandidateID == "t-cohen" {
			rejected = tr.Rejection == engine.RejectAlreadyCovering
		}
	}
	if !rejected {
		t.Errorf("t-cohen not rejected with %s in the second slot: %v", engine.RejectAlreadyCovering, rankings[1].Rejected)
	}
}

func TestRankSlotsMissingScenario(t *testing.T) {
	setupTest(t)
	rankFlags.scenario = "testdata/nonexistent.yaml"
	cmd, _ := newTestCommand()

	if err := rankSlots(cmd, nil); err == nil {
		t.Error("rankSlots() with missing scenario should return error")
	}
}
