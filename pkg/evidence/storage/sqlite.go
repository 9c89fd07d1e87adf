package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"relief-hq/relief/pkg/evidence"
	"relief-hq/relief/pkg/roster"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/evidence.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db         *sql.DB
	config     *SQLiteConfig
	insertStmt *sql.Stmt
	logger     *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, evidence.NewStorageError("open", fmt.Errorf("database path is empty"))
	}

	logger := slog.Default().With("component", "evidence.storage.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, evidence.NewStorageError("mkdir", err)
		}
	}

	// The busy timeout is a connection setting, so it goes in the DSN to
	// reach every pooled connection.
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", config.Path, config.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, evidence.NewStorageError("open", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return evidence.NewStorageError("enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return evidence.NewStorageError("create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return evidence.NewStorageError("insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return evidence.NewStorageError("get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError("schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	stmt, err := s.db.Prepare(insertRecord)
	if err != nil {
		return evidence.NewStorageError("prepare", err)
	}
	s.insertStmt = stmt

	return nil
}

// Store persists an evidence record to the database.
func (s *SQLiteStorage) Store(ctx context.Context, record *evidence.Record) error {
	_, err := s.insertStmt.ExecContext(ctx,
		record.ID, record.TraceID,
		record.DecidedAt.UnixNano(), record.RecordedAt.UnixNano(),
		record.PolicyID, record.PolicyVersion,
		record.Date.String(), record.Period, record.AbsentID, record.ClassID, record.Subject,
		record.CandidateID, record.Allowed, record.Score, record.Rejection, record.BlockedBy, record.Overridable,
		marshalJSON(record.RulesApplied), marshalJSON(record.RulesSuppressed),
		marshalJSON(record.StepsMatched), marshalJSON(record.AuditRequired),
		marshalJSON(record.Breakdown), marshalJSON(record.Draws),
		record.Elapsed.Nanoseconds(), string(record.Trace), record.TraceHash,
	)
	if err != nil {
		return evidence.NewStorageError("store", err)
	}
	return nil
}

// Query retrieves evidence records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.selectSQL(query), s.args(query)...)
	if err != nil {
		return nil, evidence.NewStorageError("query", err)
	}
	defer rows.Close()

	records := []*evidence.Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, evidence.NewStorageError("scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError("query", err)
	}

	return records, nil
}

// QueryStream returns a channel of evidence records for memory-efficient streaming.
// The channels will be closed when the query completes or errors.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	recordsCh := make(chan *evidence.Record, 100)
	errCh := make(chan error, 1)

	sqlQuery, args := s.selectSQL(query), s.args(query)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- evidence.NewStorageError("query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRow(rows)
			if err != nil {
				errCh <- evidence.NewStorageError("scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- evidence.NewStorageError("query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of evidence records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM evidence"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError("count", err)
	}
	return count, nil
}

// Delete removes evidence records matching the query filters.
// Returns the number of records deleted.
func (s *SQLiteStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM evidence"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, evidence.NewStorageError("delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError("delete", err)
	}
	return count, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError("close", err)
	}

	s.logger.Info("SQLite storage closed")
	return nil
}

func (s *SQLiteStorage) selectSQL(query *evidence.Query) string {
	whereClause, _ := buildWhereClause(query)
	sqlQuery := "SELECT " + columns + " FROM evidence"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	return sqlQuery + buildOrderClause(query)
}

func (s *SQLiteStorage) args(query *evidence.Query) []any {
	_, args := buildWhereClause(query)
	return args
}

// scanRow scans a database row into a Record.
func scanRow(row *sql.Rows) (*evidence.Record, error) {
	var (
		record                                 evidence.Record
		decidedAt, recordedAt, elapsed         int64
		date                                   string
		policyVersion, classID, subject        sql.NullString
		rejection, blockedBy                   sql.NullString
		applied, suppressed, steps, audit, brk sql.NullString
		draws                                  sql.NullString
		trace                                  string
	)

	err := row.Scan(
		&record.ID, &record.TraceID, &decidedAt, &recordedAt,
		&record.PolicyID, &policyVersion,
		&date, &record.Period, &record.AbsentID, &classID, &subject,
		&record.CandidateID, &record.Allowed, &record.Score, &rejection, &blockedBy, &record.Overridable,
		&applied, &suppressed, &steps, &audit, &brk, &draws,
		&elapsed, &trace, &record.TraceHash,
	)
	if err != nil {
		return nil, err
	}

	if record.Date, err = roster.ParseDate(date); err != nil {
		return nil, err
	}
	record.DecidedAt = time.Unix(0, decidedAt).UTC()
	record.RecordedAt = time.Unix(0, recordedAt).UTC()
	record.Elapsed = time.Duration(elapsed)
	record.PolicyVersion = policyVersion.String
	record.ClassID = classID.String
	record.Subject = subject.String
	record.Rejection = rejection.String
	record.BlockedBy = blockedBy.String
	record.Trace = json.RawMessage(trace)

	unmarshalJSON(applied, &record.RulesApplied)
	unmarshalJSON(suppressed, &record.RulesSuppressed)
	unmarshalJSON(steps, &record.StepsMatched)
	unmarshalJSON(audit, &record.AuditRequired)
	unmarshalJSON(brk, &record.Breakdown)
	unmarshalJSON(draws, &record.Draws)

	return &record, nil
}

func marshalJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func unmarshalJSON(s sql.NullString, v any) {
	if s.Valid && s.String != "" && s.String != "null" {
		json.Unmarshal([]byte(s.String), v)
	}
}
