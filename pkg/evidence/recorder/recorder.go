package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"relief-hq/relief/pkg/config"
	"relief-hq/relief/pkg/evidence"
	"relief-hq/relief/pkg/policy/engine"
)

// Config contains configuration for the evidence recorder.
type Config struct {
	// Enabled enables evidence recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both waiting for buffer space and a single
	// storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// ConfigFrom converts the evidence section of the application config.
func ConfigFrom(cfg config.EvidenceConfig) *Config {
	return &Config{
		Enabled:      cfg.Enabled,
		AsyncBuffer:  cfg.Recorder.AsyncBuffer,
		WriteTimeout: cfg.Recorder.WriteTimeout,
	}
}

// Stats counts what happened to the records handed to a Recorder.
type Stats struct {
	Written int64
	Failed  int64
	Dropped int64
}

// Recorder writes evidence for engine decisions. It is an engine.Observer:
// each decision is converted to a record and queued, and a background
// worker writes the queue to storage so decisions never wait on disk.
type Recorder struct {
	storage    evidence.Storage
	config     *Config
	recordChan chan *evidence.Record
	wg         sync.WaitGroup
	done       chan struct{}
	logger     *slog.Logger

	// mu guards closed against concurrent Record calls.
	mu     sync.RWMutex
	closed bool

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder creates a new evidence recorder with the provided storage backend and configuration.
func NewRecorder(storage evidence.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = DefaultConfig().AsyncBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *evidence.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "evidence.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("evidence recorder initialized",
		"enabled", config.Enabled,
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// ObserveDecision records the trace of a completed decision. Failures are
// logged; the decision itself is never affected.
func (r *Recorder) ObserveDecision(ctx context.Context, t *engine.DecisionTrace, elapsed time.Duration) {
	if !r.config.Enabled {
		return
	}

	record, err := evidence.FromTrace(t, elapsed)
	if err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to build evidence record",
			"trace_id", t.ID,
			"error", err,
		)
		return
	}

	if err := r.Record(ctx, record); err != nil {
		r.logger.Warn("evidence record not queued",
			"trace_id", t.ID,
			"error", err,
		)
	}
}

// Record enqueues a record for asynchronous writing. It blocks for at most
// WriteTimeout when the buffer is full.
func (r *Recorder) Record(ctx context.Context, record *evidence.Record) error {
	if !r.config.Enabled {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return evidence.NewRecorderError(record.ID, context.Canceled)
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- record:
		r.logger.Debug("evidence record enqueued for writing",
			"record_id", record.ID,
			"trace_id", record.TraceID,
		)
		return nil
	case <-timer.C:
		r.dropped.Add(1)
		r.logger.Error("evidence record channel full, dropping record",
			"record_id", record.ID,
			"trace_id", record.TraceID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return evidence.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-ctx.Done():
		r.dropped.Add(1)
		return evidence.NewRecorderError(record.ID, ctx.Err())
	}
}

// Stats returns the recorder counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Written: r.written.Load(),
		Failed:  r.failed.Load(),
		Dropped: r.dropped.Load(),
	}
}

// Close stops accepting records, drains the channel and waits for all
// pending writes to complete. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()

	stats := r.Stats()
	r.logger.Debug("evidence recorder shut down",
		"written", stats.Written,
		"failed", stats.Failed,
		"dropped", stats.Dropped,
	)
	return nil
}

// worker is the background goroutine that drains the evidence channel and
// writes records to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Debug("draining evidence channel before shutdown",
				"pending_count", len(r.recordChan),
			)
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

// writeRecord writes a single evidence record to storage.
func (r *Recorder) writeRecord(record *evidence.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to store evidence record",
			"record_id", record.ID,
			"trace_id", record.TraceID,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	duration := time.Since(start)
	r.logger.Debug("evidence recorded",
		"record_id", record.ID,
		"trace_id", record.TraceID,
		"candidate_id", record.CandidateID,
		"allowed", record.Allowed,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow evidence write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}
