package fvlog

import (
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config defines the logger construction options.
//
// Level: The minimum log level to output.
// FullTimestamp: Whether to include the full timestamp in log messages.
// DisableTimestamp: Whether to disable timestamps in log messages.
// TimestampFormat: The format to use for timestamps in log messages.
type Config struct {
	Level            Level
	FullTimestamp    bool
	DisableTimestamp bool
	TimestampFormat  string
}

// logrusAdapter implements Logger on top of a logrus.Entry.
type logrusAdapter struct {
	entry *logrus.Entry
}

// New creates a logrus-backed Logger. A nil config selects debug level
// with timestamps disabled, which suits local development.
func New(config *Config) Logger {
	if config == nil {
		config = &Config{
			Level:            DebugLevel,
			FullTimestamp:    false,
			TimestampFormat:  "2006-01-02 15:04:05",
			DisableTimestamp: true,
		}
	}

	base := logrus.New()
	base.SetLevel(logrusLevel(config.Level))
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    config.FullTimestamp,
		TimestampFormat:  config.TimestampFormat,
		DisableTimestamp: config.DisableTimestamp,
	})

	return &logrusAdapter{entry: logrus.NewEntry(base)}
}

// NewNop creates a Logger that discards everything. Intended for tests
// and for callers that wire no logger at all.
func NewNop() Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)

	return &logrusAdapter{entry: logrus.NewEntry(base)}
}

func logrusLevel(level Level) logrus.Level {
	switch level {
	case FatalLevel:
		return logrus.FatalLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case WarnLevel:
		return logrus.WarnLevel
	case InfoLevel:
		return logrus.InfoLevel
	case DebugLevel:
		return logrus.DebugLevel
	case TraceLevel:
		return logrus.TraceLevel
	default:
		return logrus.DebugLevel
	}
}

func (l *logrusAdapter) Trace(msg string) {
	l.entry.Trace(msg)
}

func (l *logrusAdapter) Tracef(format string, args ...any) {
	l.entry.Tracef(format, args...)
}

func (l *logrusAdapter) Debug(msg string) {
	l.entry.Debug(msg)
}

func (l *logrusAdapter) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *logrusAdapter) Info(msg string) {
	l.entry.Info(msg)
}

func (l *logrusAdapter) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *logrusAdapter) Warn(msg string) {
	l.entry.Warn(msg)
}

func (l *logrusAdapter) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *logrusAdapter) Error(msg string) {
	l.entry.Error(msg)
}

func (l *logrusAdapter) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *logrusAdapter) Fatal(msg string) {
	l.entry.Fatal(msg)
}

func (l *logrusAdapter) Fatalf(format string, args ...any) {
	l.entry.Fatalf(format, args...)
}

func (l *logrusAdapter) WithField(key string, value any) Logger {
	return &logrusAdapter{entry: l.entry.WithField(key, value)}
}

func (l *logrusAdapter) WithFields(fields map[string]any) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(fields)}
}

func (l *logrusAdapter) WithEntity(collection, idHex string) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(logrus.Fields{
		KeyCollection: collection,
		KeyEntityID:   idHex,
	})}
}

func (l *logrusAdapter) WithRequestStringID(id string) Logger {
	return &logrusAdapter{entry: l.entry.WithField(KeyRequestID, id)}
}

func (l *logrusAdapter) WithRequestUUID(id uuid.UUID) Logger {
	return &logrusAdapter{entry: l.entry.WithField(KeyRequestID, id.String())}
}

func (l *logrusAdapter) WithRandomRequestID() Logger {
	return &logrusAdapter{entry: l.entry.WithField(
		KeyRequestID,
		strconv.FormatUint(rand.Uint64(), 10),
	)}
}

func (l *logrusAdapter) GetFields() map[string]any {
	return l.entry.Data
}
