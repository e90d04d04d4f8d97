package config

import "errors"

var (
	ErrConfigMustBeStruct = errors.New("config target must be a struct")
	ErrValueIsRequired    = errors.New("value is required")
	ErrUnsupportedKind    = errors.New("unsupported field kind")
	ErrUnparsableValue    = errors.New("unparsable value")
)
