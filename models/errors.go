package models

import "errors"

var (
	ErrInvalidInput   = errors.New("[MODELS] invalid input")
	ErrBadCredentials = errors.New("[MODELS] credentials do not match")
)
