package evidence

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"relief-hq/relief/pkg/roster"
)

// Record is the audit trail of a single candidate decision. It flattens the
// decision trace into queryable columns and keeps the full trace as JSON
// together with its SHA-256 hash.
type Record struct {
	// Identity
	ID      string `json:"id"`       // UUID v4
	TraceID string `json:"trace_id"` // Deterministic trace id

	// Timestamps
	DecidedAt  time.Time `json:"decided_at"`  // Trace timestamp
	RecordedAt time.Time `json:"recorded_at"` // When evidence recorded

	// Policy
	PolicyID      string `json:"policy_id"`
	PolicyVersion string `json:"policy_version,omitempty"`

	// Slot identity
	Date     roster.Date `json:"date"`
	Period   int         `json:"period"`
	AbsentID string      `json:"absent_id"`
	ClassID  string      `json:"class_id,omitempty"`
	Subject  string      `json:"subject,omitempty"`

	// Outcome
	CandidateID string  `json:"candidate_id"`
	Allowed     bool    `json:"allowed"`
	Score       float64 `json:"score"`
	Rejection   string  `json:"rejection,omitempty"`
	BlockedBy   string  `json:"blocked_by,omitempty"`
	Overridable bool    `json:"overridable,omitempty"`

	RulesApplied    []string  `json:"rules_applied"`
	RulesSuppressed []string  `json:"rules_suppressed,omitempty"`
	StepsMatched    []string  `json:"steps_matched"`
	AuditRequired   []string  `json:"audit_required,omitempty"`
	Breakdown       []string  `json:"breakdown"`
	Draws           []float64 `json:"draws"`

	// Elapsed is the evaluation time of the decision.
	Elapsed time.Duration `json:"elapsed"`

	// Trace is the complete decision trace and TraceHash its SHA-256.
	Trace     json.RawMessage `json:"trace"`
	TraceHash string          `json:"trace_hash"`
}

// Query defines filter parameters for querying evidence records.
type Query struct {
	ID      string `json:"id,omitempty"`
	TraceID string `json:"trace_id,omitempty"`

	// Decision time range, inclusive.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Slot date range, inclusive.
	FromDate *roster.Date `json:"from_date,omitempty"`
	ToDate   *roster.Date `json:"to_date,omitempty"`

	// Filters
	PolicyID    string `json:"policy_id,omitempty"`
	CandidateID string `json:"candidate_id,omitempty"`
	AbsentID    string `json:"absent_id,omitempty"`
	BlockedBy   string `json:"blocked_by,omitempty"`
	Allowed     *bool  `json:"allowed,omitempty"`

	// Thresholds
	MinScore *float64 `json:"min_score,omitempty"`
	MaxScore *float64 `json:"max_score,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`  // Max records to return, 0 for all
	Offset int `json:"offset,omitempty"` // Skip N records

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`    // "decided_at", "recorded_at", "date", "score"
	SortOrder string `json:"sort_order,omitempty"` // "asc", "desc"
}

// Storage defines the interface for evidence storage backends.
// Implementations must be thread-safe and support concurrent access.
type Storage interface {
	// Store persists an evidence record.
	Store(ctx context.Context, record *Record) error

	// Query retrieves evidence records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream returns a channel of evidence records for large result
	// sets. Both channels are closed when the query completes; callers
	// should drain recordsCh and then read errCh.
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of evidence records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes evidence records matching the query filters and
	// returns the number of records deleted. Limit, offset and sorting are
	// ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}

// Exporter defines the interface for exporting evidence records to various formats.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}

// Get returns the record with the given id.
func Get(ctx context.Context, s Storage, id string) (*Record, error) {
	records, err := s.Query(ctx, &Query{ID: id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}
