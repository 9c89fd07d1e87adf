// Package evidence records every substitution decision as an immutable
// evidence record for audit and later replay.
//
// # Architecture
//
// The evidence system consists of three layers:
//
//  1. Recorder - builds records from engine decisions (package recorder)
//  2. Storage - persists records in SQLite or memory (package storage)
//  3. Query and export - filters records and writes JSON or CSV
//
// Retention (package retention) prunes old records on a cron schedule.
//
// # Evidence Records
//
// A Record flattens a decision trace into the slot identity, the candidate,
// the outcome and the rules and steps that shaped the score. The complete
// trace is kept as JSON with its SHA-256 hash, so a record can be checked
// with Verify and its decision replayed from DecodeTrace.
//
// # Recording Flow
//
// Evidence is recorded asynchronously so ranking never waits on disk:
//
//	Engine.Decide → Observer.ObserveDecision
//	     ↓
//	Recorder (buffered channel)
//	     ↓
//	FromTrace (hash trace)
//	     ↓
//	Storage backend (SQLite, WAL mode)
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:    "data/evidence.db",
//	    WALMode: true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig())
//	defer rec.Close()
//
//	eng, err := engine.New(cfg, engine.WithObserver(rec))
//
// # Querying Evidence
//
//	allowed := false
//	records, err := store.Query(ctx, &evidence.Query{
//	    CandidateID: "avi",
//	    Allowed:     &allowed,
//	    Limit:       100,
//	})
//
//	export.NewJSONExporter(true).Export(ctx, records, os.Stdout)
//
// # Thread Safety
//
// Recorder and both storage backends are safe for concurrent use.
package evidence
