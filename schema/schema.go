// Package schema declares, per entity type, how each logical field maps
// onto the storage tiers: its name in the authoritative store, whether it
// participates in the local and shared caches, and the converter pair for
// each tier boundary. A schema is validated once at construction and is
// immutable afterwards; entity managers resolve the three-state cache
// toggles against deployment defaults when they are built.
package schema

import (
	"fmt"
	"net/http"

	"github.com/emberhall/fieldvault/convert"
	"github.com/emberhall/fieldvault/docstore"
	"github.com/emberhall/fieldvault/fverrors"
)

// Toggle is the three-state cache-participation switch of a field. The
// zero value defers to the deployment default, so most fields declare
// nothing at all.
type Toggle uint8

const (
	// Default defers to the deployment-wide default.
	Default Toggle = iota
	// On forces the field into the tier.
	On
	// Off keeps the field out of the tier regardless of defaults. Secret
	// fields must use Off explicitly.
	Off
)

// Resolve collapses the toggle into a concrete decision.
func (t Toggle) Resolve(deploymentDefault bool) bool {
	switch t {
	case On:
		return true
	case Off:
		return false
	default:
		return deploymentDefault
	}
}

// Field is the descriptor of one logical field.
type Field struct {
	// StoreName is the field's name in the authoritative store. Empty
	// defaults to the logical name.
	StoreName string

	// Local and Shared control cache participation per tier.
	Local  Toggle
	Shared Toggle

	// SharedConv converts between the in-memory form and the shared
	// cache's wire string. The zero Pair is the identity.
	SharedConv convert.Pair

	// StoreConv converts between the in-memory form and the
	// authoritative store's native type. The zero Pair is the identity.
	StoreConv convert.Pair
}

// Definition pairs a logical name with its descriptor, keeping the
// declaration order the map form would lose.
type Definition struct {
	Name string
	Field
}

// Schema is the immutable field layout of one entity type.
type Schema struct {
	collection string
	fields     map[string]Field
	order      []string
}

// New validates the definitions and builds a schema. It rejects empty
// collection or field names, a StoreName equal to the identity field, and
// duplicate logical or store names.
func New(collection string, defs []Definition) (*Schema, fverrors.Error) {
	if collection == "" {
		return nil, fverrors.FromError(
			http.StatusBadRequest,
			ErrEmptyCollection,
			"build schema",
		)
	}

	fields := make(map[string]Field, len(defs))
	order := make([]string, 0, len(defs))
	storeNames := make(map[string]string, len(defs))

	for _, def := range defs {
		if def.Name == "" {
			return nil, fverrors.FromError(
				http.StatusBadRequest,
				ErrEmptyFieldName,
				"build schema for "+collection,
			)
		}

		if _, ok := fields[def.Name]; ok {
			return nil, fverrors.FromError(
				http.StatusBadRequest,
				ErrDuplicateField,
				fmt.Sprintf("build schema for %s: field %s", collection, def.Name),
			)
		}

		field := def.Field
		if field.StoreName == "" {
			field.StoreName = def.Name
		}

		if field.StoreName == docstore.IDField {
			return nil, fverrors.FromError(
				http.StatusBadRequest,
				ErrIdentityStoreName,
				fmt.Sprintf("build schema for %s: field %s", collection, def.Name),
			)
		}

		if owner, ok := storeNames[field.StoreName]; ok {
			return nil, fverrors.FromError(
				http.StatusBadRequest,
				ErrDuplicateStoreName,
				fmt.Sprintf(
					"build schema for %s: fields %s and %s both store as %s",
					collection, owner, def.Name, field.StoreName,
				),
			)
		}

		fields[def.Name] = field
		order = append(order, def.Name)
		storeNames[field.StoreName] = def.Name
	}

	return &Schema{
		collection: collection,
		fields:     fields,
		order:      order,
	}, nil
}

// MustNew is New for schemas declared as package-level values, where a
// malformed declaration is a programming error.
func MustNew(collection string, defs []Definition) *Schema {
	s, err := New(collection, defs)
	if err != nil {
		panic(err)
	}

	return s
}

// Collection returns the authoritative-store collection name.
func (s *Schema) Collection() string {
	return s.collection
}

// Field returns the descriptor of a logical field by value.
func (s *Schema) Field(name string) (Field, bool) {
	field, ok := s.fields[name]

	return field, ok
}

// Has reports whether the logical field is declared.
func (s *Schema) Has(name string) bool {
	_, ok := s.fields[name]

	return ok
}

// Names returns the logical field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)

	return names
}

// Len returns the number of declared fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// StoreNames maps the given logical names to their store-level names,
// preserving order. Unknown names are reported, not skipped.
func (s *Schema) StoreNames(names []string) ([]string, fverrors.Error) {
	storeNames := make([]string, 0, len(names))

	for _, name := range names {
		field, ok := s.fields[name]
		if !ok {
			return nil, fverrors.FromError(
				http.StatusBadRequest,
				ErrUnknownField,
				fmt.Sprintf("store names for %s: field %s", s.collection, name),
			)
		}

		storeNames = append(storeNames, field.StoreName)
	}

	return storeNames, nil
}

// RequireUncached verifies that each named field stays out of both caches
// under the given deployment defaults. Entity managers call it for secret
// fields, turning a schema slip into a startup failure instead of a leaked
// credential.
func (s *Schema) RequireUncached(localDefault, sharedDefault bool, names ...string) fverrors.Error {
	for _, name := range names {
		field, ok := s.fields[name]
		if !ok {
			return fverrors.FromError(
				http.StatusBadRequest,
				ErrUnknownField,
				fmt.Sprintf("require uncached in %s: field %s", s.collection, name),
			)
		}

		if field.Local.Resolve(localDefault) || field.Shared.Resolve(sharedDefault) {
			return fverrors.FromError(
				http.StatusBadRequest,
				ErrSecretCached,
				fmt.Sprintf("require uncached in %s: field %s", s.collection, name),
			)
		}
	}

	return nil
}
