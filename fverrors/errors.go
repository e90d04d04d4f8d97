package fverrors

import "errors"

// ErrTeapot reports that somebody dereferenced a nil Error. It exists so
// the safety check has something honest to hand back.
var ErrTeapot = errors.New("backend developer is a teapot")
