package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"relief-hq/relief/pkg/roster"
)

const schema = `
CREATE TABLE IF NOT EXISTS substitutions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	period INTEGER NOT NULL,
	absent_id TEXT NOT NULL,
	substitute_id TEXT NOT NULL,
	class_id TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	UNIQUE (date, period, absent_id, substitute_id)
);

CREATE INDEX IF NOT EXISTS idx_substitutions_date ON substitutions(date);
CREATE INDEX IF NOT EXISTS idx_substitutions_substitute ON substitutions(substitute_id, date);
`

const selectColumns = `SELECT date, period, absent_id, substitute_id, class_id FROM substitutions`

const orderBy = ` ORDER BY date, period, absent_id, substitute_id`

// SQLiteStore keeps history in a SQLite database using the pure-Go driver.
// Dates are stored as YYYY-MM-DD text so range queries compare lexically.
type SQLiteStore struct {
	db         *sql.DB
	insertStmt *sql.Stmt
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	stmt, err := db.Prepare(`
		INSERT OR IGNORE INTO substitutions (date, period, absent_id, substitute_id, class_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	return &SQLiteStore{db: db, insertStmt: stmt}, nil
}

// Append inserts records in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, subs ...roster.Substitution) error {
	for _, sub := range subs {
		if err := check(sub); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.StmtContext(ctx, s.insertStmt)
	now := time.Now().Unix()
	for _, sub := range subs {
		if _, err := stmt.ExecContext(ctx, sub.Date.String(), sub.Period, sub.AbsentID, sub.SubstituteID, sub.ClassID, now); err != nil {
			return fmt.Errorf("failed to insert substitution: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Between(ctx context.Context, from, to roster.Date) ([]roster.Substitution, error) {
	return s.query(ctx, selectColumns+` WHERE date >= ? AND date <= ?`+orderBy, from.String(), to.String())
}

func (s *SQLiteStore) All(ctx context.Context) ([]roster.Substitution, error) {
	return s.query(ctx, selectColumns+orderBy)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]roster.Substitution, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	out := []roster.Substitution{}
	for rows.Next() {
		var (
			sub  roster.Substitution
			date string
		)
		if err := rows.Scan(&date, &sub.Period, &sub.AbsentID, &sub.SubstituteID, &sub.ClassID); err != nil {
			return nil, fmt.Errorf("failed to scan substitution: %w", err)
		}
		if sub.Date, err = roster.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.insertStmt.Close()
	return s.db.Close()
}
