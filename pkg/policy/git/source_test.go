package git

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"relief-hq/relief/pkg/policy/source"
)

var _ source.PolicySource = (*Source)(nil)

func TestSource_LoadPolicies(t *testing.T) {
	u := newUpstream(t)
	src := NewSource(cloned(t, u), 0, nil)

	policies, err := src.LoadPolicies(context.Background())
	if err != nil {
		t.Fatalf("LoadPolicies() error: %v", err)
	}
	if len(policies) != 1 || policies[0].ID != "weekday" {
		t.Fatalf("LoadPolicies() = %v", policies)
	}
	if src.Name() != "git:"+u.dir+"@master" {
		t.Errorf("Name() = %q", src.Name())
	}
}

func TestSource_PolicyChanges(t *testing.T) {
	u := newUpstream(t)
	repo := cloned(t, u)
	src := NewSource(repo, 0, nil)

	got := src.PolicyChanges(&PullResult{
		FromSHA: "a",
		ToSHA:   "b",
		ChangedFiles: []string{
			"policies/friday.yaml",
			"policies/nested/exam.yml",
			"policies/README.md",
			"other/outside.yaml",
			"policies-old/x.yaml",
		},
	})

	want := []string{
		filepath.Join(repo.LocalPath(), "policies", "friday.yaml"),
		filepath.Join(repo.LocalPath(), "policies", "nested", "exam.yml"),
	}
	if len(got) != len(want) {
		t.Fatalf("PolicyChanges() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PolicyChanges()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSource_WatchReportsPulledChanges(t *testing.T) {
	u := newUpstream(t)
	src := NewSource(cloned(t, u), 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := src.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}

	u.commit("notes.txt", "not a policy", "notes")
	u.commit("policies/friday.yaml", "id: friday\n", "add friday")

	select {
	case ev := <-events:
		if ev.Type != source.EventModified || filepath.Base(ev.Path) != "friday.yaml" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for poll event")
	}
}

func TestSource_WatchWithoutPolling(t *testing.T) {
	u := newUpstream(t)
	src := NewSource(cloned(t, u), 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := src.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected no events without polling")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSource_SyncAndRollback(t *testing.T) {
	u := newUpstream(t)
	src := NewSource(cloned(t, u), 0, nil)
	before, _ := src.Repository().Head()

	u.commit("policies/weekday.yaml", "id: weekday\nrules: []\n", "bad edit")
	result, err := src.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if !result.HadChanges() {
		t.Fatal("expected Sync to pull the new commit")
	}
	if _, err := src.LoadPolicies(context.Background()); err == nil {
		t.Fatal("expected the bad commit to fail loading")
	}

	if err := src.Rollback(context.Background(), result.FromSHA); err != nil {
		t.Fatalf("Rollback() error: %v", err)
	}
	head, _ := src.Repository().Head()
	if head.SHA != before.SHA {
		t.Errorf("HEAD = %s, want %s", head.SHA, before.SHA)
	}
	if _, err := src.LoadPolicies(context.Background()); err != nil {
		t.Errorf("LoadPolicies() after rollback: %v", err)
	}
}
