package retention

import (
	"context"
	"testing"
	"time"

	"relief-hq/relief/pkg/evidence/storage"
)

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{name: "valid daily schedule", schedule: "0 3 * * *", wantRunning: true},
		{name: "descriptor", schedule: "@hourly", wantRunning: true},
		{name: "empty schedule - no error, not running", schedule: ""},
		{name: "invalid schedule", schedule: "invalid cron", wantError: true},
		{name: "seconds field rejected", schedule: "0 0 3 * * *", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruner := NewPruner(storage.NewMemoryStorage(), &Config{
				PruneSchedule: tt.schedule,
				RetentionDays: 90,
			})
			scheduler := pruner.scheduler

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := pruner.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Fatalf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", scheduler.IsRunning(), tt.wantRunning)
			}

			next := pruner.NextPruning()
			if tt.wantRunning && (next == nil || !next.After(time.Now())) {
				t.Errorf("NextPruning() = %v, want a future time", next)
			}
			if !tt.wantRunning && next != nil {
				t.Errorf("NextPruning() = %v, want nil", next)
			}

			pruner.Stop()
			if scheduler.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
		})
	}
}

func TestScheduler_StartTwice(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{PruneSchedule: "@daily"})
	ctx := context.Background()

	if err := pruner.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer pruner.Stop()

	if err := pruner.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{PruneSchedule: "@daily"})

	ctx, cancel := context.WithCancel(context.Background())
	if err := pruner.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for pruner.scheduler.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler did not stop after context cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScheduler_RunPruning(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedAges(t, store, 1, 100)

	pruner := newTestPruner(store, &Config{RetentionDays: 30})
	if pruner.scheduler.LastRun() != nil {
		t.Fatal("LastRun() before any run should be nil")
	}

	pruner.scheduler.runPruning(context.Background())

	last := pruner.scheduler.LastRun()
	if last == nil || last.Err != nil || last.Deleted != 1 {
		t.Errorf("LastRun() = %+v, want one deletion", last)
	}
}
