package schema

import "errors"

var (
	ErrEmptyCollection    = errors.New("[SCHEMA] empty collection name")
	ErrEmptyFieldName     = errors.New("[SCHEMA] empty logical field name")
	ErrDuplicateField     = errors.New("[SCHEMA] duplicate logical field name")
	ErrDuplicateStoreName = errors.New("[SCHEMA] duplicate store field name")
	ErrIdentityStoreName  = errors.New("[SCHEMA] field cannot store as the identity field")
	ErrUnknownField       = errors.New("[SCHEMA] unknown logical field")
	ErrSecretCached       = errors.New("[SCHEMA] secret field participates in a cache")
)
