package entity

import "errors"

var (
	ErrUnknownField = errors.New("[ENTITY] unknown logical field")
	ErrFieldAbsent  = errors.New("[ENTITY] field absent")
	ErrEntityAbsent = errors.New("[ENTITY] entity absent")
	ErrNoFields     = errors.New("[ENTITY] no fields given")
	ErrNilSchema    = errors.New("[ENTITY] manager needs a schema")
	ErrNilShared    = errors.New("[ENTITY] manager needs a shared cache client")
	ErrNilStore     = errors.New("[ENTITY] manager needs an authoritative store")
	ErrDuplicateKey = errors.New("[ENTITY] manager already registered")
)
