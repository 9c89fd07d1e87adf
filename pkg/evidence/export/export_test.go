package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"relief-hq/relief/pkg/config"
	"relief-hq/relief/pkg/evidence"
	"relief-hq/relief/pkg/roster"
)

func testRecords() []*evidence.Record {
	trace := json.RawMessage(`{"id":"t-1"}`)
	return []*evidence.Record{
		{
			ID:           "rec-1",
			TraceID:      "t-1",
			DecidedAt:    time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC),
			PolicyID:     "school",
			Date:         roster.NewDate(2026, time.March, 2),
			Period:       3,
			AbsentID:     "dana",
			CandidateID:  "avi",
			Allowed:      true,
			Score:        4.25,
			RulesApplied: []string{"no-stay-coverage", "same-grade"},
			StepsMatched: []string{"same-class"},
			Draws:        []float64{12.5, 80},
			Elapsed:      1500 * time.Microsecond,
			Trace:        trace,
			TraceHash:    evidence.HashContent(trace),
		},
		{
			ID:          "rec-2",
			TraceID:     "t-2",
			PolicyID:    "school",
			Date:        roster.NewDate(2026, time.March, 2),
			Period:      3,
			AbsentID:    "dana",
			CandidateID: "omer",
			Rejection:   "rule:no-class-pull",
			BlockedBy:   "no-class-pull",
			Breakdown:   []string{"note, with \"quotes\""},
		},
	}
}

func TestJSONExporter_Array(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		var buf bytes.Buffer
		if err := NewJSONExporter(pretty).Export(context.Background(), testRecords(), &buf); err != nil {
			t.Fatalf("Export() failed: %v", err)
		}

		var got []evidence.Record
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("pretty=%v: output is not a JSON array: %v\n%s", pretty, err, buf.String())
		}
		if len(got) != 2 || got[0].ID != "rec-1" || got[1].BlockedBy != "no-class-pull" {
			t.Errorf("pretty=%v: unexpected records %+v", pretty, got)
		}
		if got[0].Date.String() != "2026-03-02" {
			t.Errorf("Date = %s", got[0].Date)
		}
		if err := got[0].Verify(); err != nil {
			t.Errorf("exported trace no longer verifies: %v", err)
		}
		if pretty != strings.Contains(buf.String(), "\n") {
			t.Errorf("pretty=%v but output was:\n%s", pretty, buf.String())
		}
	}
}

func TestJSONExporter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(true).Export(context.Background(), nil, &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[]" {
		t.Errorf("empty export = %q, want []", buf.String())
	}

	buf.Reset()
	if err := NewNDJSONExporter().Export(context.Background(), nil, &buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("empty NDJSON export = %q, want nothing", buf.String())
	}
}

func TestJSONExporter_Lines(t *testing.T) {
	var buf bytes.Buffer
	if err := NewNDJSONExporter().Export(context.Background(), testRecords(), &buf); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), buf.String())
	}
	for i, line := range lines {
		var r evidence.Record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Errorf("line %d is not a JSON object: %v", i, err)
		}
	}
}

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).Export(context.Background(), testRecords(), &buf); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}

	col := func(name string) int {
		for i, h := range rows[0] {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}

	first := rows[1]
	checks := map[string]string{
		"id":            "rec-1",
		"decided_at":    "2026-03-02T08:00:00Z",
		"date":          "2026-03-02",
		"period":        "3",
		"allowed":       "true",
		"score":         "4.25",
		"rules_applied": "no-stay-coverage;same-grade",
		"draws":         "12.5;80",
		"elapsed_us":    "1500",
	}
	for name, want := range checks {
		if got := first[col(name)]; got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if got := rows[2][col("decided_at")]; got != "" {
		t.Errorf("zero time should export empty, got %q", got)
	}
	if got := rows[2][col("blocked_by")]; got != "no-class-pull" {
		t.Errorf("blocked_by = %q", got)
	}
}

func TestCSVExporter_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(false).Export(context.Background(), testRecords(), &buf); err != nil {
		t.Fatal(err)
	}
	rows, _ := csv.NewReader(&buf).ReadAll()
	if len(rows) != 2 || rows[0][0] != "rec-1" {
		t.Errorf("rows = %v", rows)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestExport_WriteError(t *testing.T) {
	for _, exp := range []evidence.Exporter{NewJSONExporter(false), NewCSVExporter(true)} {
		err := exp.Export(context.Background(), testRecords(), failingWriter{})
		var ee *evidence.ExportError
		if !errors.As(err, &ee) {
			t.Errorf("%T: error = %v, want ExportError", exp, err)
			continue
		}
		if ee.Records != 2 {
			t.Errorf("%T: Records = %d, want 2", exp, ee.Records)
		}
	}
}

func TestExportStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan *evidence.Record)
	if err := NewCSVExporter(true).ExportStream(ctx, ch, &bytes.Buffer{}); !errors.Is(err, context.Canceled) {
		t.Errorf("CSV ExportStream() = %v, want context.Canceled", err)
	}
	if err := NewJSONExporter(false).ExportStream(ctx, ch, &bytes.Buffer{}); !errors.Is(err, context.Canceled) {
		t.Errorf("JSON ExportStream() = %v, want context.Canceled", err)
	}
}

func TestNew(t *testing.T) {
	cfg := config.ExportConfig{JSONPretty: true, CSVIncludeHeader: false}

	exp, err := New("json", cfg)
	if err != nil || !exp.(*JSONExporter).Pretty {
		t.Errorf("New(json) = %#v, %v", exp, err)
	}
	exp, err = New("ndjson", cfg)
	if err != nil || !exp.(*JSONExporter).Lines {
		t.Errorf("New(ndjson) = %#v, %v", exp, err)
	}
	exp, err = New("csv", cfg)
	if err != nil || exp.(*CSVExporter).IncludeHeader {
		t.Errorf("New(csv) = %#v, %v", exp, err)
	}
	if _, err := New("xml", cfg); err == nil {
		t.Error("expected error for unknown format")
	}
}
