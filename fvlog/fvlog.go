package fvlog

import (
	"github.com/google/uuid"
)

// Logger is the structured logging interface used across the engine.
// Implementations must be safe for concurrent use; the With* helpers
// return derived loggers and never mutate the receiver.
type Logger interface {
	// Trace logs a message at the Trace level, for per-operation flow
	// such as cache lookups and backfills.
	Trace(msg string)

	// Tracef logs a formatted message at the Trace level.
	Tracef(format string, args ...any)

	// Debug logs a message at the Debug level, for dropped best-effort
	// work such as failed cache backfills.
	Debug(msg string)

	// Debugf logs a formatted message at the Debug level.
	Debugf(format string, args ...any)

	// Info logs a message at the Info level.
	//
	// Example usage:
	//
	//   log.Info("shared cache recovered")
	Info(msg string)

	// Infof logs a formatted message at the Info level.
	Infof(format string, args ...any)

	// Warn logs a message at the Warn level, for degraded but
	// survivable states.
	Warn(msg string)

	// Warnf logs a formatted message at the Warn level.
	Warnf(format string, args ...any)

	// Error logs a message at the Error level.
	Error(msg string)

	// Errorf logs a formatted message at the Error level.
	Errorf(format string, args ...any)

	// Fatal logs a message at the Fatal level and terminates the process.
	Fatal(msg string)

	// Fatalf logs a formatted message at the Fatal level and terminates
	// the process.
	Fatalf(format string, args ...any)

	// WithField returns a logger with one key-value pair added to the
	// log context.
	WithField(key string, value any) Logger

	// WithFields returns a logger with multiple key-value pairs added to
	// the log context.
	WithFields(fields map[string]any) Logger

	// WithEntity returns a logger carrying an entity coordinate, so every
	// line produced by a handle names the document it belongs to.
	//
	// Example usage:
	//
	//   log.WithEntity("user", id.Hex()).Warn("shared cache read failed")
	WithEntity(collection, idHex string) Logger

	// WithRequestStringID returns a logger with a string request ID in
	// the context, for correlating lines across tiers.
	WithRequestStringID(id string) Logger

	// WithRequestUUID returns a logger with a UUID request ID in the
	// context.
	WithRequestUUID(id uuid.UUID) Logger

	// WithRandomRequestID returns a logger with a freshly generated
	// request ID, for call sites with no external ID to propagate.
	WithRandomRequestID() Logger

	// GetFields returns the current log context fields as a map.
	GetFields() map[string]any
}
