// ========================= In-memory implementation ========================= //

// Memory is a mutex-guarded map of collections suitable for unit tests and
// single-node deployments. Documents are deep-copied on the way in and out,
// so callers can never mutate stored state through a returned Doc.

package docstore

import (
	"context"
	"net/http"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/ident"
)

// Memory is a threadsafe, map-backed document store.
//
// Example (create + basic operations):
//
//	store := docstore.NewMemory()
//	id, _ := store.InsertOne(ctx, "user", docstore.Doc{"mail": "a@b.com"})
//	doc, ok, _ := store.FindOne(ctx, "user", docstore.Doc{"_id": id}, []string{"mail"})
type Memory struct {
	mutex       sync.RWMutex
	collections map[string][]Doc // insertion order preserved per collection
}

// NewMemory builds an empty [Memory] store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string][]Doc),
	}
}

// FindOne implements [Store.FindOne] for the memory back-end.
func (m *Memory) FindOne(
	_ context.Context,
	collection string,
	filter Doc,
	projection []string,
) (Doc, bool, fverrors.Error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			return project(doc, projection), true, nil
		}
	}

	return nil, false, nil
}

// FindMany implements [Store.FindMany] for the memory back-end.
func (m *Memory) FindMany(
	_ context.Context,
	collection string,
	filter Doc,
	projection []string,
	opts FindOptions,
) ([]Doc, fverrors.Error) {
	m.mutex.RLock()

	var matched []Doc

	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			matched = append(matched, doc)
		}
	}

	m.mutex.RUnlock()

	if opts.SortField != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			less := compareValues(matched[i][opts.SortField], matched[j][opts.SortField]) < 0
			if opts.SortAscending {
				return less
			}

			return !less
		})
	}

	if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	result := make([]Doc, 0, len(matched))
	for _, doc := range matched {
		result = append(result, project(doc, projection))
	}

	return result, nil
}

// InsertOne implements [Store.InsertOne] for the memory back-end.
func (m *Memory) InsertOne(
	_ context.Context,
	collection string,
	doc Doc,
) (ident.ID, fverrors.Error) {
	stored := cloneDoc(doc)

	id, ok := stored[IDField].(ident.ID)
	if !ok {
		id = ident.New()
		stored[IDField] = id
	}

	m.mutex.Lock()
	m.collections[collection] = append(m.collections[collection], stored)
	m.mutex.Unlock()

	return id, nil
}

// UpdateOne implements [Store.UpdateOne] for the memory back-end. Matching
// nothing is not an error, mirroring the Mongo driver; the returned count
// tells the caller whether anything changed.
func (m *Memory) UpdateOne(
	_ context.Context,
	collection string,
	filter Doc,
	update Update,
) (int64, fverrors.Error) {
	if len(update.Set) == 0 && len(update.Unset) == 0 {
		return 0, fverrors.FromError(
			http.StatusBadRequest,
			ErrEmptyUpdate,
			"memory: update one in "+collection,
		)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, doc := range m.collections[collection] {
		if !matches(doc, filter) {
			continue
		}

		for field, value := range update.Set {
			doc[field] = cloneValue(value)
		}

		for _, field := range update.Unset {
			delete(doc, field)
		}

		return 1, nil
	}

	return 0, nil
}

// DeleteOne implements [Store.DeleteOne] for the memory back-end.
func (m *Memory) DeleteOne(
	_ context.Context,
	collection string,
	filter Doc,
) (int64, fverrors.Error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	docs := m.collections[collection]

	for i, doc := range docs {
		if matches(doc, filter) {
			m.collections[collection] = append(docs[:i:i], docs[i+1:]...)

			return 1, nil
		}
	}

	return 0, nil
}

// Ping implements [Store.Ping]; the memory back-end is always healthy.
func (m *Memory) Ping(_ context.Context) fverrors.Error {
	return nil
}

// Close implements [Store.Close]; it drops all stored documents.
func (m *Memory) Close(_ context.Context) fverrors.Error {
	m.mutex.Lock()
	m.collections = make(map[string][]Doc)
	m.mutex.Unlock()

	return nil
}

// Len reports how many documents a collection currently holds.
func (m *Memory) Len(collection string) int {
	m.mutex.RLock()
	n := len(m.collections[collection])
	m.mutex.RUnlock()

	return n
}

// matches reports whether every filter field is present in the document
// with an equal value.
func matches(doc, filter Doc) bool {
	for field, want := range filter {
		got, ok := doc[field]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}

	return true
}

// project deep-copies the given store fields plus the identity field.
// A nil projection copies the whole document.
func project(doc Doc, projection []string) Doc {
	if projection == nil {
		return cloneDoc(doc)
	}

	result := Doc{}

	if id, ok := doc[IDField]; ok {
		result[IDField] = id
	}

	for _, field := range projection {
		if value, ok := doc[field]; ok {
			result[field] = cloneValue(value)
		}
	}

	return result
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// compareValues orders two field values of the same dynamic type. Values
// of unsupported or mismatched types compare as equal, which keeps the
// sort stable instead of panicking.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
		}
	case int64:
		if bv, ok := b.(int64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
		}
	case bson.DateTime:
		if bv, ok := b.(bson.DateTime); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
		}
	}

	return 0
}

func cloneDoc(doc Doc) Doc {
	cloned := make(Doc, len(doc))

	for field, value := range doc {
		cloned[field] = cloneValue(value)
	}

	return cloned
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case Doc:
		return cloneDoc(v)
	case []any:
		cloned := make([]any, len(v))
		for i, item := range v {
			cloned[i] = cloneValue(item)
		}

		return cloned
	default:
		return v
	}
}
