package docstore

import (
	"context"
	"slices"
	"sync"

	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/ident"
)

// Op names one recorded store operation.
type Op string

const (
	OpFindOne   Op = "FindOne"
	OpFindMany  Op = "FindMany"
	OpInsertOne Op = "InsertOne"
	OpUpdateOne Op = "UpdateOne"
	OpDeleteOne Op = "DeleteOne"
)

// Call is one recorded store call: which operation hit which collection,
// and the projection it carried (reads only).
type Call struct {
	Op         Op
	Collection string
	Projection []string
}

// Recorder decorates a [Store] with call recording, so tests and
// diagnostics can assert how the engine actually talks to the
// authoritative tier: how many round trips a read took and exactly which
// fields its projection requested.
type Recorder struct {
	inner Store

	mutex sync.Mutex
	calls []Call
}

// NewRecorder wraps a store with recording. The zero history is empty.
func NewRecorder(inner Store) *Recorder {
	return &Recorder{inner: inner}
}

// Calls returns a copy of the recorded history in call order.
func (r *Recorder) Calls() []Call {
	r.mutex.Lock()
	calls := slices.Clone(r.calls)
	r.mutex.Unlock()

	return calls
}

// CountOp reports how many recorded calls used the given operation.
func (r *Recorder) CountOp(op Op) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	count := 0

	for _, call := range r.calls {
		if call.Op == op {
			count++
		}
	}

	return count
}

// Reset drops the recorded history.
func (r *Recorder) Reset() {
	r.mutex.Lock()
	r.calls = nil
	r.mutex.Unlock()
}

func (r *Recorder) record(call Call) {
	r.mutex.Lock()
	r.calls = append(r.calls, call)
	r.mutex.Unlock()
}

// FindOne records the call and delegates.
func (r *Recorder) FindOne(
	ctx context.Context,
	collection string,
	filter Doc,
	projection []string,
) (Doc, bool, fverrors.Error) {
	r.record(Call{Op: OpFindOne, Collection: collection, Projection: slices.Clone(projection)})

	return r.inner.FindOne(ctx, collection, filter, projection)
}

// FindMany records the call and delegates.
func (r *Recorder) FindMany(
	ctx context.Context,
	collection string,
	filter Doc,
	projection []string,
	opts FindOptions,
) ([]Doc, fverrors.Error) {
	r.record(Call{Op: OpFindMany, Collection: collection, Projection: slices.Clone(projection)})

	return r.inner.FindMany(ctx, collection, filter, projection, opts)
}

// InsertOne records the call and delegates.
func (r *Recorder) InsertOne(
	ctx context.Context,
	collection string,
	doc Doc,
) (ident.ID, fverrors.Error) {
	r.record(Call{Op: OpInsertOne, Collection: collection})

	return r.inner.InsertOne(ctx, collection, doc)
}

// UpdateOne records the call and delegates.
func (r *Recorder) UpdateOne(
	ctx context.Context,
	collection string,
	filter Doc,
	update Update,
) (int64, fverrors.Error) {
	r.record(Call{Op: OpUpdateOne, Collection: collection})

	return r.inner.UpdateOne(ctx, collection, filter, update)
}

// DeleteOne records the call and delegates.
func (r *Recorder) DeleteOne(
	ctx context.Context,
	collection string,
	filter Doc,
) (int64, fverrors.Error) {
	r.record(Call{Op: OpDeleteOne, Collection: collection})

	return r.inner.DeleteOne(ctx, collection, filter)
}

// Ping delegates without recording.
func (r *Recorder) Ping(ctx context.Context) fverrors.Error {
	return r.inner.Ping(ctx)
}

// Close delegates without recording.
func (r *Recorder) Close(ctx context.Context) fverrors.Error {
	return r.inner.Close(ctx)
}
