// Package recorder writes evidence for engine decisions.
//
// A Recorder is registered with the engine as an observer. Every decision
// is converted to an evidence.Record (with a fresh UUID and the SHA-256 of
// its trace) and queued on a buffered channel. A single worker drains the
// channel into the storage backend, so ranking a slot never waits on disk.
//
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig())
//	defer rec.Close()
//
//	eng, err := engine.New(cfg, engine.WithObserver(rec))
//
// When the buffer is full, Record waits up to WriteTimeout and then drops
// the record. Close drains whatever is queued before returning. Stats
// reports written, failed and dropped counts.
package recorder
