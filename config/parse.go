package config

import (
	"encoding"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/emberhall/fieldvault/fverrors"
)

// Parsable constrains the types the environment parser understands. It
// covers the basic kinds plus anything built on them, so named types such
// as time.Duration and log levels pass through.
type Parsable interface {
	~string | ~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~bool
}

// ParseValue converts a raw environment string into T.
func ParseValue[T Parsable](value string) (T, fverrors.Error) {
	var zero T

	ptr := reflect.New(reflect.TypeOf(zero))
	if err := setFromString(ptr.Elem(), value); err != nil {
		return zero, err.Wrap("parse value")
	}

	val, ok := ptr.Elem().Interface().(T)
	if !ok {
		return zero, fverrors.FromError(
			http.StatusInternalServerError,
			ErrUnparsableValue,
			"parse value: reflect round-trip lost the type",
		)
	}

	return val, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFromString writes a parsed representation of raw into v. Types
// implementing encoding.TextUnmarshaler win over kind-based parsing, which
// is how log levels and similar enums hook in.
func setFromString(v reflect.Value, raw string) fverrors.Error {
	if v.CanAddr() {
		if unmarshaler, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			if err := unmarshaler.UnmarshalText([]byte(raw)); err != nil {
				return fverrors.FromError(
					http.StatusInternalServerError,
					err,
					"set from string: unmarshal text",
				)
			}

			return nil
		}
	}

	if v.Type() == durationType {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fverrors.FromError(
				http.StatusInternalServerError,
				err,
				"set from string: parse duration",
			)
		}

		v.SetInt(int64(parsed))

		return nil
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v.OverflowInt(parsed) {
			return parseFailure(raw, v, err)
		}

		v.SetInt(parsed)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || v.OverflowUint(parsed) {
			return parseFailure(raw, v, err)
		}

		v.SetUint(parsed)

	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || v.OverflowFloat(parsed) {
			return parseFailure(raw, v, err)
		}

		v.SetFloat(parsed)

	case reflect.Bool:
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return parseFailure(raw, v, err)
		}

		v.SetBool(parsed)

	default:
		return fverrors.FromError(
			http.StatusInternalServerError,
			ErrUnsupportedKind,
			"set from string: "+v.Kind().String(),
		)
	}

	return nil
}

func parseFailure(raw string, v reflect.Value, cause error) fverrors.Error {
	if cause == nil {
		cause = ErrUnparsableValue
	}

	return fverrors.FromError(
		http.StatusInternalServerError,
		cause,
		"set from string: "+raw+" does not fit "+v.Type().String(),
	)
}
