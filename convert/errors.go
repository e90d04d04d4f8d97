package convert

import "errors"

var (
	ErrWrongType        = errors.New("[CONVERT] unexpected value type")
	ErrBadWire          = errors.New("[CONVERT] malformed wire value")
	ErrUnknownConverter = errors.New("[CONVERT] unknown converter name")
)
