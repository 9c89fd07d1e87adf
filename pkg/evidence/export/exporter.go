package export

import (
	"context"
	"fmt"
	"io"

	"relief-hq/relief/pkg/config"
	"relief-hq/relief/pkg/evidence"
)

// StreamExporter is an exporter that can also consume a record channel.
type StreamExporter interface {
	evidence.Exporter
	ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error
}

// Formats lists the supported export format names.
var Formats = []string{"json", "ndjson", "csv"}

// New returns the exporter for format, configured from cfg.
func New(format string, cfg config.ExportConfig) (StreamExporter, error) {
	switch format {
	case "json":
		return NewJSONExporter(cfg.JSONPretty), nil
	case "ndjson", "jsonl":
		return NewNDJSONExporter(), nil
	case "csv":
		return NewCSVExporter(cfg.CSVIncludeHeader), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want one of %v)", format, Formats)
	}
}
