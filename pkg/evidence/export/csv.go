package export

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"relief-hq/relief/pkg/evidence"
)

// CSVExporter exports evidence records to CSV format. List fields are
// joined with ";" and the full trace is omitted.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Header is the CSV column list.
var Header = []string{
	"id", "trace_id", "decided_at", "recorded_at",
	"policy_id", "policy_version",
	"date", "period", "absent_id", "class_id", "subject",
	"candidate_id", "allowed", "score", "rejection", "blocked_by", "overridable",
	"rules_applied", "rules_suppressed", "steps_matched", "audit_required", "draws",
	"elapsed_us", "trace_hash",
}

// Export writes evidence records to the provided writer in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	ch := make(chan *evidence.Record, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)

	if err := e.ExportStream(ctx, ch, w); err != nil {
		return evidence.NewExportError("csv", len(records), unwrapExport(err))
	}
	return nil
}

// ExportStream exports evidence records from a channel to CSV format,
// flushing every 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return evidence.NewExportError("csv", recordCount, err)
			}
			recordCount++

			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}

// recordToRow converts an evidence record to a CSV row.
func recordToRow(r *evidence.Record) []string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	draws := make([]string, len(r.Draws))
	for i, d := range r.Draws {
		draws[i] = strconv.FormatFloat(d, 'g', -1, 64)
	}

	return []string{
		r.ID,
		r.TraceID,
		formatTime(r.DecidedAt),
		formatTime(r.RecordedAt),
		r.PolicyID,
		r.PolicyVersion,
		r.Date.String(),
		strconv.Itoa(r.Period),
		r.AbsentID,
		r.ClassID,
		r.Subject,
		r.CandidateID,
		strconv.FormatBool(r.Allowed),
		strconv.FormatFloat(r.Score, 'f', -1, 64),
		r.Rejection,
		r.BlockedBy,
		strconv.FormatBool(r.Overridable),
		strings.Join(r.RulesApplied, ";"),
		strings.Join(r.RulesSuppressed, ";"),
		strings.Join(r.StepsMatched, ";"),
		strings.Join(r.AuditRequired, ";"),
		strings.Join(draws, ";"),
		strconv.FormatInt(r.Elapsed.Microseconds(), 10),
		r.TraceHash,
	}
}

// unwrapExport strips an ExportError so Export can rewrap it with the
// total record count.
func unwrapExport(err error) error {
	var ee *evidence.ExportError
	if errors.As(err, &ee) {
		return ee.Err
	}
	return err
}
