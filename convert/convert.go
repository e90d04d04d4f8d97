// Package convert holds the field converters that translate between a
// field's in-memory form and the wire form of a storage tier. Converters
// are pure and total: same input, same output, no hidden state. The
// round-trip law FromWire(ToWire(x)) == x must hold for every legal value
// of the field's declared type.
package convert

import (
	"net/http"

	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/threadsafemap"
)

// Func converts a single value. A value of the wrong dynamic type is a
// programmer error and comes back as code 500 carrying ErrWrongType.
type Func func(value any) (any, fverrors.Error)

// Pair bundles the two directions for one tier. The zero Pair means the
// value crosses the tier boundary unchanged.
type Pair struct {
	ToWire   Func
	FromWire Func
}

// EncodeWire applies the outbound direction.
func (p Pair) EncodeWire(value any) (any, fverrors.Error) {
	if p.ToWire == nil {
		return value, nil
	}

	return p.ToWire(value)
}

// DecodeWire applies the inbound direction.
func (p Pair) DecodeWire(value any) (any, fverrors.Error) {
	if p.FromWire == nil {
		return value, nil
	}

	return p.FromWire(value)
}

// IsIdentity reports whether the pair performs no conversion at all.
func (p Pair) IsIdentity() bool {
	return p.ToWire == nil && p.FromWire == nil
}

// Registry maps converter names to pairs, so schemas assembled from
// configuration can reference converters symbolically. The stock pairs
// are preregistered under their lowercase names.
type Registry struct {
	pairs threadsafemap.ThreadSafeMap[string, Pair]
}

// NewRegistry returns a registry preloaded with the stock pairs.
func NewRegistry() *Registry {
	r := &Registry{}

	r.Register("string", String())
	r.Register("bool", Bool())
	r.Register("int", Int())
	r.Register("float", Float())
	r.Register("time", Time())
	r.Register("timedoc", TimeDoc())
	r.Register("blob", Blob())
	r.Register("nullablestring", NullableString())

	return r
}

// Register stores a pair under a name, replacing any previous owner.
func (r *Registry) Register(name string, pair Pair) {
	r.pairs.Set(name, pair)
}

// Resolve looks a pair up by name.
func (r *Registry) Resolve(name string) (Pair, fverrors.Error) {
	pair, ok := r.pairs.Get(name)
	if !ok {
		return Pair{}, fverrors.FromError(
			http.StatusBadRequest,
			ErrUnknownConverter,
			"resolve converter: "+name,
		)
	}

	return pair, nil
}

// Names lists the registered converter names.
func (r *Registry) Names() []string {
	return r.pairs.Keys()
}
