package export

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"relief-hq/relief/pkg/evidence"
)

// JSONExporter exports evidence records to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation. It has no effect on
	// NDJSON output.
	Pretty bool

	// Lines writes one JSON object per line (NDJSON) instead of an array.
	Lines bool
}

// NewJSONExporter creates a JSON array exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// NewNDJSONExporter creates an exporter that writes one record per line.
func NewNDJSONExporter() *JSONExporter {
	return &JSONExporter{Lines: true}
}

// Export writes records to w. An empty result is written as "[]" in array
// mode and as nothing in NDJSON mode.
func (e *JSONExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	ch := make(chan *evidence.Record, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)

	if err := e.ExportStream(ctx, ch, w); err != nil {
		return evidence.NewExportError(e.format(), len(records), unwrapExport(err))
	}
	return nil
}

// ExportStream exports records from a channel as they arrive, so large
// exports never hold the full result set in memory.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error {
	bw := bufio.NewWriter(w)

	if !e.Lines {
		if _, err := bw.WriteString("["); err != nil {
			return evidence.NewExportError(e.format(), 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				return e.finish(bw, recordCount)
			}

			data, err := e.serializeRecord(record)
			if err != nil {
				return evidence.NewExportError(e.format(), recordCount, err)
			}

			if err := e.writeRecord(bw, data, recordCount == 0); err != nil {
				return evidence.NewExportError(e.format(), recordCount, err)
			}
			recordCount++
		}
	}
}

func (e *JSONExporter) writeRecord(bw *bufio.Writer, data []byte, first bool) error {
	switch {
	case e.Lines:
		data = append(data, '\n')
	case !first && e.Pretty:
		bw.WriteString(",\n  ")
	case !first:
		bw.WriteString(",")
	case e.Pretty:
		bw.WriteString("\n  ")
	}
	_, err := bw.Write(data)
	return err
}

func (e *JSONExporter) finish(bw *bufio.Writer, recordCount int) error {
	if !e.Lines {
		closing := "]"
		if e.Pretty && recordCount > 0 {
			closing = "\n]"
		}
		bw.WriteString(closing)
	}
	if err := bw.Flush(); err != nil {
		return evidence.NewExportError(e.format(), recordCount, err)
	}
	return nil
}

// serializeRecord serializes a single evidence record to JSON.
func (e *JSONExporter) serializeRecord(record *evidence.Record) ([]byte, error) {
	if e.Pretty && !e.Lines {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}

func (e *JSONExporter) format() string {
	if e.Lines {
		return "ndjson"
	}
	return "json"
}
