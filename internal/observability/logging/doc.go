// Package logging builds the process slog logger and carries it through contexts.
//
// NewLoggerTo picks a JSON or text handler from LOG_FORMAT and a level from
// LOG_LEVEL. Handlers attach request and trace IDs with WithRequestID and
// WithTrace, then stash the logger with WithLogger so that feed fetchers deeper
// in the call stack can log with the same attributes:
//
//	logger := logging.FromContext(ctx)
//	logger.Warn("horoscope degraded", slog.String("sign", "Leo"))
package logging
