package evidence

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no evidence record has the requested id.
var ErrNotFound = errors.New("evidence record not found")

// StorageError reports a failed step of the evidence store, such as
// opening the database or inserting a record.
type StorageError struct {
	Step string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("evidence %s failed: %v", e.Step, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err as a failure of the given store step.
func NewStorageError(step string, err error) *StorageError {
	return &StorageError{Step: step, Err: err}
}

// QueryError reports an evidence query filter that cannot be run. Field
// is the offending filter.
type QueryError struct {
	Field string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid evidence query %s: %v", e.Field, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// NewQueryError builds a QueryError for field from a formatted reason.
func NewQueryError(field, format string, args ...any) *QueryError {
	return &QueryError{Field: field, Err: fmt.Errorf(format, args...)}
}

// RecorderError is returned when a decision could not be queued for
// recording.
type RecorderError struct {
	RecordID string
	Err      error
}

func (e *RecorderError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("recording decision: %v", e.Err)
	}
	return fmt.Sprintf("recording decision %s: %v", e.RecordID, e.Err)
}

func (e *RecorderError) Unwrap() error { return e.Err }

// NewRecorderError wraps err for the record with the given id.
func NewRecorderError(recordID string, err error) *RecorderError {
	return &RecorderError{RecordID: recordID, Err: err}
}

// RetentionError is returned when pruning expired records fails.
type RetentionError struct {
	Days int
	Err  error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("pruning records older than %d days: %v", e.Days, e.Err)
}

func (e *RetentionError) Unwrap() error { return e.Err }

// NewRetentionError wraps err for a pruning run with the given retention.
func NewRetentionError(days int, err error) *RetentionError {
	return &RetentionError{Days: days, Err: err}
}

// ExportError is returned when writing an export fails. Records is the
// number of records the export had reached.
type ExportError struct {
	Format  string
	Records int
	Err     error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("exporting %d records as %s: %v", e.Records, e.Format, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// NewExportError wraps err for an export in format.
func NewExportError(format string, records int, err error) *ExportError {
	return &ExportError{Format: format, Records: records, Err: err}
}

// IntegrityError is returned when a stored trace no longer matches its hash.
type IntegrityError struct {
	RecordID string
	Want     string
	Got      string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("evidence record %s failed integrity check: trace hash %s, stored %s", e.RecordID, e.Got, e.Want)
}
