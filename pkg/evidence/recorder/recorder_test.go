package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"relief-hq/relief/pkg/config"
	"relief-hq/relief/pkg/evidence"
	"relief-hq/relief/pkg/evidence/storage"
	"relief-hq/relief/pkg/policy/engine"
	"relief-hq/relief/pkg/roster"
)

func testTrace(id, candidate string, allowed bool) *engine.DecisionTrace {
	return &engine.DecisionTrace{
		ID:          id,
		Timestamp:   time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC),
		PolicyID:    "school",
		CandidateID: candidate,
		Slot: roster.Slot{
			Date:     roster.NewDate(2026, time.March, 2),
			Period:   3,
			AbsentID: "dana",
			ClassID:  "7a",
			Subject:  "math",
		},
		Allowed:      allowed,
		Score:        4.5,
		RulesApplied: []string{"no-stay-coverage"},
		StepsMatched: []string{"same-class"},
		StepsSkipped: []string{},
		Breakdown:    []string{"same-class +4.5"},
		Draws:        []float64{41.2},
	}
}

// failingStorage rejects every write.
type failingStorage struct {
	*storage.MemoryStorage
}

func (failingStorage) Store(context.Context, *evidence.Record) error {
	return errors.New("disk full")
}

// blockingStorage holds every write until release is closed.
type blockingStorage struct {
	*storage.MemoryStorage
	release chan struct{}
}

func (s *blockingStorage) Store(ctx context.Context, r *evidence.Record) error {
	<-s.release
	return s.MemoryStorage.Store(ctx, r)
}

func TestRecorder_ObserveDecision(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, &Config{Enabled: true, AsyncBuffer: 10, WriteTimeout: time.Second})

	ctx := context.Background()
	rec.ObserveDecision(ctx, testTrace("t-1", "avi", true), 2*time.Millisecond)
	rec.ObserveDecision(ctx, testTrace("t-2", "rina", false), time.Millisecond)

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if store.Size() != 2 {
		t.Fatalf("Expected 2 stored records, got %d", store.Size())
	}

	records, _ := store.Query(ctx, &evidence.Query{TraceID: "t-1"})
	if len(records) != 1 {
		t.Fatalf("Expected record for trace t-1, got %d", len(records))
	}
	r := records[0]
	if r.CandidateID != "avi" || !r.Allowed || r.Score != 4.5 {
		t.Errorf("unexpected outcome: %+v", r)
	}
	if r.Date.String() != "2026-03-02" || r.Period != 3 || r.AbsentID != "dana" || r.Subject != "math" {
		t.Errorf("unexpected slot identity: %s/%d/%s/%s", r.Date, r.Period, r.AbsentID, r.Subject)
	}
	if r.Elapsed != 2*time.Millisecond {
		t.Errorf("Elapsed = %v", r.Elapsed)
	}
	if len(r.ID) != 36 || r.ID == r.TraceID {
		t.Errorf("expected a UUID record id, got %q", r.ID)
	}
	if err := r.Verify(); err != nil {
		t.Errorf("Verify() failed: %v", err)
	}
	decoded, err := r.DecodeTrace()
	if err != nil {
		t.Fatalf("DecodeTrace() failed: %v", err)
	}
	if decoded.ID != "t-1" || len(decoded.Draws) != 1 || decoded.Draws[0] != 41.2 {
		t.Errorf("decoded trace = %+v", decoded)
	}

	if got := rec.Stats(); got.Written != 2 || got.Failed != 0 || got.Dropped != 0 {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestRecorder_Disabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, &Config{Enabled: false})
	rec.ObserveDecision(context.Background(), testTrace("t-1", "avi", true), 0)
	rec.Close()

	if store.Size() != 0 {
		t.Errorf("disabled recorder stored %d records", store.Size())
	}
}

func TestRecorder_StorageFailure(t *testing.T) {
	rec := NewRecorder(failingStorage{storage.NewMemoryStorage()}, &Config{Enabled: true, AsyncBuffer: 4, WriteTimeout: time.Second})
	rec.ObserveDecision(context.Background(), testTrace("t-1", "avi", true), 0)
	rec.Close()

	if got := rec.Stats(); got.Failed != 1 || got.Written != 0 {
		t.Errorf("Stats() = %+v, want one failure", got)
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	store := &blockingStorage{MemoryStorage: storage.NewMemoryStorage(), release: make(chan struct{})}
	rec := NewRecorder(store, &Config{Enabled: true, AsyncBuffer: 1, WriteTimeout: 50 * time.Millisecond})

	ctx := context.Background()
	var errs []error
	for i := range 4 {
		r, err := evidence.FromTrace(testTrace("t", "c", true), 0)
		if err != nil {
			t.Fatal(err)
		}
		r.ID = string(rune('a' + i))
		errs = append(errs, rec.Record(ctx, r))
	}

	// One record is held by the worker and one fits the buffer.
	var dropped int
	for _, err := range errs {
		var re *evidence.RecorderError
		if errors.As(err, &re) {
			dropped++
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("drop error = %v, want deadline exceeded", err)
			}
		}
	}
	if dropped < 1 {
		t.Errorf("expected at least one dropped record, errors: %v", errs)
	}

	close(store.release)
	rec.Close()

	stats := rec.Stats()
	if stats.Written+stats.Dropped != 4 {
		t.Errorf("Stats() = %+v, want written+dropped = 4", stats)
	}
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	rec := NewRecorder(storage.NewMemoryStorage(), DefaultConfig())
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}

	r, _ := evidence.FromTrace(testTrace("t-1", "avi", true), 0)
	err := rec.Record(context.Background(), r)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Record() after Close error = %v, want context.Canceled", err)
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := config.Default()
	got := ConfigFrom(cfg.Evidence)
	if !got.Enabled || got.AsyncBuffer != config.DefaultEvidenceRecorderAsyncBuffer || got.WriteTimeout != config.DefaultEvidenceRecorderWriteTimeout {
		t.Errorf("ConfigFrom() = %+v", got)
	}
}
