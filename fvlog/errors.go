package fvlog

import "errors"

// ErrInvalidLogLevel is reported when a log level string cannot be parsed.
var ErrInvalidLogLevel = errors.New("[LOG] invalid log level")
