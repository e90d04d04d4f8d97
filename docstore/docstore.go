// Package docstore is the authoritative tier: a document store holding the
// ground-truth value of every field. Two back-ends implement the same
// surface, a MongoDB client for real deployments and an in-process map for
// tests and single-node runs, so the engine above never knows which one it
// is talking to.
//
// # Semantics
//
// Absence of a document is never an error here: [Store.FindOne] reports it
// through its boolean result and leaves not-found classification to the
// entity layer. Every driver failure carries code 500 and a traceback.
//
// # Projections
//
// A projection is a list of store-level field names; the identity field
// "_id" rides along on every read whether or not the caller asked for it,
// so a fetched document can always be tied back to its identity.
package docstore

import (
	"context"

	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/ident"
)

// IDField is the identity field name every document carries.
const IDField = "_id"

// Doc is a single document: store-level field names mapped to wire values.
type Doc = map[string]any

// Update describes a partial document update. Set writes the given
// store-level fields; Unset removes the named ones. Either half may be
// empty, but not both.
type Update struct {
	Set   Doc
	Unset []string
}

// FindOptions bounds and orders a multi-document read. A zero Limit means
// "no limit"; an empty SortField means "store order".
type FindOptions struct {
	Limit         int64
	SortField     string
	SortAscending bool
}

// Store is the back-end-agnostic operation set of the authoritative tier.
//
// Each method returns a fverrors.Error instead of the built-in error so
// that the caller can propagate codes and tracebacks up the call stack.
type Store interface {
	// FindOne fetches the first document matching the filter, projected
	// down to the given store-level field names plus "_id". A missing
	// document is reported as ok == false with a nil error.
	//
	// Example:
	//
	//	doc, ok, _ := s.FindOne(ctx, "user", docstore.Doc{"_id": id}, []string{"mail"})
	FindOne(
		ctx context.Context,
		collection string,
		filter Doc,
		projection []string,
	) (Doc, bool, fverrors.Error)

	// FindMany fetches every document matching the filter, subject to the
	// limit and sort of opts. No match is an empty slice, not an error.
	//
	// Example:
	//
	//	docs, _ := s.FindMany(ctx, "game", docstore.Doc{"running": true}, nil,
	//		docstore.FindOptions{Limit: 10, SortField: "createDate"})
	FindMany(
		ctx context.Context,
		collection string,
		filter Doc,
		projection []string,
		opts FindOptions,
	) ([]Doc, fverrors.Error)

	// InsertOne stores a new document and returns its identity. When the
	// document carries no "_id" the store allocates one.
	//
	// Example:
	//
	//	id, _ := s.InsertOne(ctx, "user", docstore.Doc{"mail": "a@b.com"})
	InsertOne(
		ctx context.Context,
		collection string,
		doc Doc,
	) (ident.ID, fverrors.Error)

	// UpdateOne applies a partial update to the first document matching
	// the filter and returns how many documents matched (0 or 1). Matching
	// nothing is not an error here; the caller decides what a zero count
	// means.
	//
	// Example:
	//
	//	matched, _ := s.UpdateOne(ctx, "user", docstore.Doc{"_id": id},
	//		docstore.Update{Set: docstore.Doc{"nickname": "ember"}})
	UpdateOne(
		ctx context.Context,
		collection string,
		filter Doc,
		update Update,
	) (int64, fverrors.Error)

	// DeleteOne removes the first document matching the filter and
	// returns how many documents were actually removed (0 or 1).
	//
	// Example:
	//
	//	removed, _ := s.DeleteOne(ctx, "user", docstore.Doc{"_id": id})
	DeleteOne(
		ctx context.Context,
		collection string,
		filter Doc,
	) (int64, fverrors.Error)

	// Ping verifies that the store is reachable and healthy.
	Ping(ctx context.Context) fverrors.Error

	// Close releases the underlying connections.
	Close(ctx context.Context) fverrors.Error
}
