// Package export writes evidence records as JSON, NDJSON or CSV.
//
// Every exporter can take a slice (Export) or a channel (ExportStream), so
// the command line can stream straight from storage.QueryStream:
//
//	exp, err := export.New("csv", cfg.Evidence.Export)
//	recordsCh, errCh, err := store.QueryStream(ctx, q)
//	if err := exp.ExportStream(ctx, recordsCh, os.Stdout); err != nil {
//	    return err
//	}
//	if err := <-errCh; err != nil {
//	    return err
//	}
//
// JSON output is an array, optionally indented. NDJSON writes one compact
// object per line. CSV flattens list fields with ";" and leaves out the
// full trace; the trace hash is kept.
package export
