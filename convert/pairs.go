package convert

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emberhall/fieldvault/fverrors"
	"github.com/vmihailenco/msgpack/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// TimeLayout is the shared-cache wire form for instants: RFC 3339 with
// millisecond resolution, always UTC.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

const nullableNilWire = "null"

const nullablePrefix = "s:"

// String passes strings through while still type-checking them, so a
// schema wiring mistake surfaces as a converter error instead of a
// corrupted cache entry.
func String() Pair {
	return Pair{
		ToWire: func(value any) (any, fverrors.Error) {
			s, ok := value.(string)
			if !ok {
				return nil, wrongType("string converter", "string", value)
			}

			return s, nil
		},
		FromWire: func(value any) (any, fverrors.Error) {
			s, ok := value.(string)
			if !ok {
				return nil, badWire("string converter", value)
			}

			return s, nil
		},
	}
}

// Bool maps bool to the wire strings "1" and "0".
func Bool() Pair {
	return Pair{
		ToWire: func(value any) (any, fverrors.Error) {
			b, ok := value.(bool)
			if !ok {
				return nil, wrongType("bool converter", "bool", value)
			}

			if b {
				return "1", nil
			}

			return "0", nil
		},
		FromWire: func(value any) (any, fverrors.Error) {
			s, ok := value.(string)
			if !ok {
				return nil, badWire("bool converter", value)
			}

			switch s {
			case "1":
				return true, nil
			case "0":
				return false, nil
			default:
				return nil, badWire("bool converter", s)
			}
		},
	}
}

// Int maps int64 to its decimal string. Plain int and int32 inputs are
// accepted outbound and normalized, so counters written by game code do
// not need casts; the inbound form is always int64.
func Int() Pair {
	return Pair{
		ToWire: func(value any) (any, fverrors.Error) {
			switch v := value.(type) {
			case int64:
				return strconv.FormatInt(v, 10), nil
			case int:
				return strconv.FormatInt(int64(v), 10), nil
			case int32:
				return strconv.FormatInt(int64(v), 10), nil
			default:
				return nil, wrongType("int converter", "int64", value)
			}
		},
		FromWire: func(value any) (any, fverrors.Error) {
			s, ok := value.(string)
			if !ok {
				return nil, badWire("int converter", value)
			}

			parsed, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fverrors.FromError(
					http.StatusInternalServerError,
					ErrBadWire,
					"int converter: "+s,
				)
			}

			return parsed, nil
		},
	}
}

// Float maps float64 to its shortest round-trippable decimal string.
func Float() Pair {
	return Pair{
		ToWire: func(value any) (any, fverrors.Error) {
			f, ok := value.(float64)
			if !ok {
				return nil, wrongType("float converter", "float64", value)
			}

			return strconv.FormatFloat(f, 'g', -1, 64), nil
		},
		FromWire: func(value any) (any, fverrors.Error) {
			s, ok := value.(string)
			if !ok {
				return nil, badWire("float converter", value)
			}

			parsed, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fverrors.FromError(
					http.StatusInternalServerError,
					ErrBadWire,
					"float converter: "+s,
				)
			}

			return parsed, nil
		},
	}
}

// Time maps time.Time to TimeLayout strings. Values are normalized to UTC
// with millisecond resolution on the way out, which is the resolution the
// document store keeps anyway.
func Time() Pair {
	return Pair{
		ToWire: func(value any) (any, fverrors.Error) {
			t, ok := value.(time.Time)
			if !ok {
				return nil, wrongType("time converter", "time.Time", value)
			}

			return t.UTC().Truncate(time.Millisecond).Format(TimeLayout), nil
		},
		FromWire: func(value any) (any, fverrors.Error) {
			s, ok := value.(string)
			if !ok {
				return nil, badWire("time converter", value)
			}

			parsed, err := time.Parse(TimeLayout, s)
			if err != nil {
				return nil, fverrors.FromError(
					http.StatusInternalServerError,
					ErrBadWire,
					"time converter: "+s,
				)
			}

			return parsed.UTC(), nil
		},
	}
}

// TimeDoc maps time.Time to the document store's native datetime, keeping
// both backends on the same stored representation.
func TimeDoc() Pair {
	return Pair{
		ToWire: func(value any) (any, fverrors.Error) {
			t, ok := value.(time.Time)
			if !ok {
				return nil, wrongType("time doc converter", "time.Time", value)
			}

			return bson.NewDateTimeFromTime(t.UTC()), nil
		},
		FromWire: func(value any) (any, fverrors.Error) {
			switch v := value.(type) {
			case bson.DateTime:
				return v.Time().UTC(), nil
			case time.Time:
				return v.UTC().Truncate(time.Millisecond), nil
			default:
				return nil, badWire("time doc converter", value)
			}
		},
	}
}

// Blob maps a string-keyed map to base64-wrapped MessagePack, for
// structured fields such as per-game settings. Member values survive the
// round trip when they are strings, bools, int64s, float64s, or nested
// maps and slices of those.
func Blob() Pair {
	return Pair{
		ToWire: func(value any) (any, fverrors.Error) {
			m, ok := value.(map[string]any)
			if !ok {
				return nil, wrongType("blob converter", "map[string]any", value)
			}

			packed, err := msgpack.Marshal(m)
			if err != nil {
				return nil, fverrors.FromError(
					http.StatusInternalServerError,
					err,
					fmt.Sprintf("blob converter: failed to marshal %T", value),
				)
			}

			return base64.StdEncoding.EncodeToString(packed), nil
		},
		FromWire: func(value any) (any, fverrors.Error) {
			s, ok := value.(string)
			if !ok {
				return nil, badWire("blob converter", value)
			}

			packed, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, fverrors.FromError(
					http.StatusInternalServerError,
					ErrBadWire,
					"blob converter: base64 decode",
				)
			}

			dec := msgpack.NewDecoder(bytes.NewReader(packed))
			dec.UseLooseInterfaceDecoding(true)

			var m map[string]any
			if err := dec.Decode(&m); err != nil {
				return nil, fverrors.FromError(
					http.StatusInternalServerError,
					err,
					"blob converter: failed to unmarshal message pack",
				)
			}

			return m, nil
		},
	}
}

// NullableString maps *string to a wire form that keeps nil and absent
// distinguishable: nil becomes "null", any other value is prefixed so the
// literal string "null" stays representable.
func NullableString() Pair {
	return Pair{
		ToWire: func(value any) (any, fverrors.Error) {
			p, ok := value.(*string)
			if !ok {
				return nil, wrongType("nullable string converter", "*string", value)
			}

			if p == nil {
				return nullableNilWire, nil
			}

			return nullablePrefix + *p, nil
		},
		FromWire: func(value any) (any, fverrors.Error) {
			s, ok := value.(string)
			if !ok {
				return nil, badWire("nullable string converter", value)
			}

			if s == nullableNilWire {
				return (*string)(nil), nil
			}

			if rest, found := strings.CutPrefix(s, nullablePrefix); found {
				return &rest, nil
			}

			return nil, badWire("nullable string converter", s)
		},
	}
}

func wrongType(site, expected string, got any) fverrors.Error {
	return fverrors.FromError(
		http.StatusInternalServerError,
		ErrWrongType,
		fmt.Sprintf("%s: expected %s, got %T", site, expected, got),
	)
}

func badWire(site string, got any) fverrors.Error {
	return fverrors.FromError(
		http.StatusInternalServerError,
		ErrBadWire,
		fmt.Sprintf("%s: cannot decode %v (%T)", site, got, got),
	)
}
