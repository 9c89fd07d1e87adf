// Package storage provides storage backends for evidence records.
//
// Two implementations of evidence.Storage are provided:
//
//   - SQLiteStorage: durable storage using github.com/mattn/go-sqlite3
//   - MemoryStorage: in-memory storage for tests and one-shot runs
//
// Open selects one from configuration.
//
// # SQLite Backend
//
// The SQLite backend enables WAL mode, prepares its insert statement and
// indexes the columns queries filter on: decision time, trace id, policy,
// candidate and slot. Timestamps are stored as Unix nanoseconds. The schema
// version is tracked in the schema_version table.
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:        "data/evidence.db",
//	    WALMode:     true,
//	    BusyTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
// Both backends sort and paginate the same way, with the record id as the
// final tie breaker.
package storage
