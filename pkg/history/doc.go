// Package history stores past substitutions.
//
// The engine reads coverage history from the roster snapshot to compute
// fairness, immunity and continuity of care. The command line keeps that
// history between runs in a Store: SQLiteStore for a file on disk and
// MemoryStore for tests.
package history
