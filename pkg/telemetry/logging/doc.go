// Package logging builds the structured loggers used across relief.
//
// Loggers are plain *slog.Logger values with a JSON or text handler. The
// handler is wrapped so that records logged with a context pick up the
// decision fields stored in it:
//
//	logger, err := logging.New(logging.ConfigFrom(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//
//	ctx = logging.WithPolicyID(ctx, policy.ID)
//	ctx = logging.WithSlot(ctx, slot.Key())
//	logger.InfoContext(ctx, "ranking slot", "candidates", n)
//
// When the context carries an OpenTelemetry span, its trace and span ids
// are added as otel_trace_id and span_id.
package logging
