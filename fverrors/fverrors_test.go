package fverrors_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/emberhall/fieldvault/fverrors"
)

func TestFromString_Code(t *testing.T) {
	err := fverrors.FromString(http.StatusNotFound, "field absent")
	if err.Code() != http.StatusNotFound {
		t.Fatalf("Error code is not 404, got: %v", err.Code())
	}
}

func TestFromString_Error(t *testing.T) {
	err := fverrors.FromString(http.StatusNotFound, "field absent")
	if err.Error() != "404 | field absent" {
		t.Fatalf("Error message is not '404 | field absent', got: %v", err.Error())
	}
}

func TestFromError_Error(t *testing.T) {
	err := fverrors.FromError(
		http.StatusInternalServerError,
		fverrors.ErrTeapot,
		"update failed",
	)
	if err.Error() != "500 | update failed: backend developer is a teapot" {
		t.Fatalf("Unexpected error message, got: %v", err.Error())
	}
}

func TestWrap_PrependsSegment(t *testing.T) {
	err := fverrors.FromString(http.StatusInternalServerError, "dial refused").
		Wrap("get field 'mail'")

	if err.Error() != "500 | get field 'mail' -> dial refused" {
		t.Fatalf("Unexpected traceback, got: %v", err.Error())
	}
}

func TestUnwrap_FindsSentinel(t *testing.T) {
	sentinel := errors.New("store unreachable")

	err := fverrors.FromError(http.StatusInternalServerError, sentinel, "find one").
		Wrap("exists by id")

	if !errors.Is(err, sentinel) {
		t.Fatalf("errors.Is did not find the sentinel through: %v", err.Error())
	}
}

func TestUnwrap_FindsJoinedSentinel(t *testing.T) {
	sentinel := errors.New("conversion failed")
	cause := errors.New("expected time.Time, got string")

	err := fverrors.FromError(
		http.StatusInternalServerError,
		errors.Join(sentinel, cause),
		"set field 'createDate'",
	)

	if !errors.Is(err, sentinel) {
		t.Fatalf("errors.Is did not find the joined sentinel through: %v", err.Error())
	}

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is did not find the joined cause through: %v", err.Error())
	}
}

func TestUnwrapLastError_Works(t *testing.T) {
	expected := "verify credentials"

	err := fverrors.FromString(http.StatusInternalServerError, "find one failed").
		Wrap(expected)

	if got := err.UnwrapLastError(); got != expected {
		t.Fatalf("Last error segment mismatch:\n got: %v\n want: %v", got, expected)
	}
}
