// Package ident is the only place that knows what an entity identity is
// made of. Everything above it treats IDs as opaque comparable values.
package ident

import (
	"net/http"

	"github.com/emberhall/fieldvault/fverrors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ID is an entity identity: 12 bytes, comparable, hex-stringifiable, and
// directly usable as a document _id.
type ID = bson.ObjectID

// Nil is the zero identity.
var Nil = bson.NilObjectID

// New allocates a fresh identity.
func New() ID {
	return bson.NewObjectID()
}

// Parse converts a 24-character hex string into an ID. The error carries
// code 400, since a bad hex string is always caller input.
func Parse(hex string) (ID, fverrors.Error) {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return Nil, fverrors.FromError(
			http.StatusBadRequest,
			err,
			"parse identity: "+hex,
		)
	}

	return id, nil
}

// MustParse is Parse for hard-coded identities in tests and fixtures.
func MustParse(hex string) ID {
	id, err := Parse(hex)
	if err != nil {
		panic(err)
	}

	return id
}
