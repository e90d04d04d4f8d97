// Package entity is the engine core: per-identity handles that read and
// write fields through three tiers (local cache, shared cache,
// authoritative store), the per-type instance manager that deduplicates
// handles, the per-type entity manager facade, and the registry tying the
// managers to one pair of store clients.
//
// # Tier semantics
//
// Reads fall through local -> shared -> store, backfilling each higher
// tier on the way out. Writes go to the store first; only an acknowledged
// write touches the caches. The shared tier is advisory: every failure
// there is logged and treated as a miss, never surfaced. The authoritative
// store is the opposite: its failures always propagate.
package entity

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/emberhall/fieldvault/docstore"
	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/fvlog"
	"github.com/emberhall/fieldvault/ident"
	"github.com/emberhall/fieldvault/localcache"
	"github.com/emberhall/fieldvault/schema"
	"github.com/emberhall/fieldvault/sharedcache"
)

// fieldInfo is a schema descriptor with its cache toggles resolved against
// the deployment defaults. Built once per type at manager construction.
type fieldInfo struct {
	schema.Field

	localOn  bool
	sharedOn bool
}

// core is the immutable per-type wiring every handle of that type shares.
type core struct {
	schema *schema.Schema
	fields map[string]fieldInfo
	shared sharedcache.Client
	store  docstore.Store
	log    fvlog.Logger
	ttl    time.Duration
}

// Handle mediates all tier access for one (entity type, identity) pair and
// owns that identity's local cache. Handles are safe for concurrent use;
// obtain them through the type's [InstanceManager] so that two lookups of
// the same identity share one local cache.
type Handle struct {
	core   *core
	id     ident.ID
	log    fvlog.Logger
	local  *localcache.Cache
	flight singleflight.Group
	stats  stats
}

func newHandle(core *core, id ident.ID) *Handle {
	return &Handle{
		core:  core,
		id:    id,
		log:   core.log.WithEntity(core.schema.Collection(), id.Hex()),
		local: localcache.New(),
	}
}

// ID returns the identity this handle is bound to.
func (h *Handle) ID() ident.ID {
	return h.id
}

// Collection returns the authoritative-store collection of this handle's
// entity type.
func (h *Handle) Collection() string {
	return h.core.schema.Collection()
}

// Stats returns a snapshot of this handle's tier traffic.
func (h *Handle) Stats() Stats {
	return h.stats.snapshot()
}

// GetField reads one field through the tiers, stopping at the first tier
// that has it and backfilling the tiers above. An absent entity or field
// comes back as a 404 carrying ErrEntityAbsent / ErrFieldAbsent; shared
// cache trouble is logged and treated as a miss; authoritative-store
// failures propagate.
//
// Cold fetches of the same field on the same handle are collapsed into a
// single flight, so a stampede of readers costs one store round trip.
//
// Example:
//
//	value, err := handle.GetField(ctx, "nickname")
func (h *Handle) GetField(ctx context.Context, name string) (any, fverrors.Error) {
	field, fvErr := h.field(name)
	if fvErr != nil {
		return nil, fvErr
	}

	if field.localOn {
		if value, ok := h.local.Get(name); ok {
			h.stats.localHits.Add(1)

			return value, nil
		}
	}

	value, err, _ := h.flight.Do(name, func() (any, error) {
		value, fetchErr := h.fetchField(ctx, name, field)
		if fetchErr != nil {
			return nil, fetchErr
		}

		return value, nil
	})
	if err != nil {
		return nil, asFvError(err, "get field "+name)
	}

	return value, nil
}

// fetchField resolves a field that missed the local cache: shared tier
// first, authoritative store second. The store path backfills the shared
// cache before the local one, so a caller cancelled mid-backfill can never
// leave a value that exists only locally.
func (h *Handle) fetchField(
	ctx context.Context,
	name string,
	field fieldInfo,
) (any, fverrors.Error) {
	if field.sharedOn && h.core.shared.Ready() {
		key := FieldKey(h.Collection(), h.id, name)

		wire, ok, err := h.core.shared.Get(ctx, key)

		switch {
		case err != nil:
			h.log.Debugf("shared read of %s failed, treating as miss: %v", name, err)
		case ok:
			value, convErr := field.SharedConv.DecodeWire(wire)
			if convErr != nil {
				return nil, convErr.Wrap(h.site("decode shared wire of", name))
			}

			h.stats.sharedHits.Add(1)

			if field.localOn {
				h.local.Set(name, value)
			}

			return value, nil
		}
	}

	doc, found, storeErr := h.core.store.FindOne(
		ctx,
		h.Collection(),
		h.idFilter(),
		[]string{field.StoreName},
	)
	if storeErr != nil {
		return nil, storeErr.Wrap(h.site("fetch", name))
	}

	if !found {
		h.stats.misses.Add(1)

		return nil, fverrors.FromError(
			http.StatusNotFound,
			ErrEntityAbsent,
			h.site("fetch", name),
		)
	}

	raw, ok := doc[field.StoreName]
	if !ok {
		h.stats.misses.Add(1)

		return nil, fverrors.FromError(
			http.StatusNotFound,
			ErrFieldAbsent,
			h.site("fetch", name),
		)
	}

	value, convErr := field.StoreConv.DecodeWire(raw)
	if convErr != nil {
		return nil, convErr.Wrap(h.site("decode store wire of", name))
	}

	h.stats.storeHits.Add(1)

	h.backfillShared(ctx, name, field, value)

	// A caller cancelled mid-backfill fails the shared write above; the
	// local tier must then stay empty too, never holding state the shared
	// tier missed.
	if field.localOn && ctx.Err() == nil {
		h.local.Set(name, value)
	}

	return value, nil
}

// GetFields reads several fields with the same per-field results as
// repeated GetField calls, but coalesced round trips: one local pass, one
// shared MGet for the leftovers, one store read projecting everything
// still outstanding, then one batched backfill per tier. Fields the store
// does not hold are simply omitted from the result.
//
// Example:
//
//	values, err := handle.GetFields(ctx, "firstName", "lastName", "createDate")
func (h *Handle) GetFields(ctx context.Context, names ...string) (map[string]any, fverrors.Error) {
	if len(names) == 0 {
		return nil, fverrors.FromError(http.StatusBadRequest, ErrNoFields, h.site("get fields", ""))
	}

	fields := make(map[string]fieldInfo, len(names))
	remaining := make([]string, 0, len(names))

	for _, name := range names {
		if _, ok := fields[name]; ok {
			continue
		}

		field, fvErr := h.field(name)
		if fvErr != nil {
			return nil, fvErr
		}

		fields[name] = field
		remaining = append(remaining, name)
	}

	result := make(map[string]any, len(remaining))

	remaining = slices.DeleteFunc(remaining, func(name string) bool {
		if !fields[name].localOn {
			return false
		}

		value, ok := h.local.Get(name)
		if ok {
			h.stats.localHits.Add(1)
			result[name] = value
		}

		return ok
	})

	remaining, fvErr := h.getFieldsShared(ctx, fields, remaining, result)
	if fvErr != nil {
		return nil, fvErr
	}

	if fvErr := h.getFieldsStore(ctx, fields, remaining, result); fvErr != nil {
		return nil, fvErr
	}

	return result, nil
}

// getFieldsShared is the shared-tier phase of GetFields: one MGet for
// every outstanding shared-enabled field, hits decoded and backfilled
// locally. It returns the names still unresolved.
func (h *Handle) getFieldsShared(
	ctx context.Context,
	fields map[string]fieldInfo,
	remaining []string,
	result map[string]any,
) ([]string, fverrors.Error) {
	if len(remaining) == 0 || !h.core.shared.Ready() {
		return remaining, nil
	}

	keys := make([]string, 0, len(remaining))
	keyed := make([]string, 0, len(remaining))

	for _, name := range remaining {
		if fields[name].sharedOn {
			keys = append(keys, FieldKey(h.Collection(), h.id, name))
			keyed = append(keyed, name)
		}
	}

	if len(keys) == 0 {
		return remaining, nil
	}

	hits, err := h.core.shared.MGet(ctx, keys...)
	if err != nil {
		h.log.Debugf("shared bulk read failed, treating as misses: %v", err)

		return remaining, nil
	}

	for i, name := range keyed {
		wire, ok := hits[keys[i]]
		if !ok {
			continue
		}

		field := fields[name]

		value, convErr := field.SharedConv.DecodeWire(wire)
		if convErr != nil {
			return nil, convErr.Wrap(h.site("decode shared wire of", name))
		}

		h.stats.sharedHits.Add(1)
		result[name] = value

		if field.localOn {
			h.local.Set(name, value)
		}

		remaining = slices.DeleteFunc(remaining, func(n string) bool { return n == name })
	}

	return remaining, nil
}

// getFieldsStore is the authoritative phase of GetFields: one FindOne
// projecting every outstanding store name, then one batched backfill per
// cache tier. Shared goes first for the same cancellation reason as in
// fetchField.
func (h *Handle) getFieldsStore(
	ctx context.Context,
	fields map[string]fieldInfo,
	remaining []string,
	result map[string]any,
) fverrors.Error {
	if len(remaining) == 0 {
		return nil
	}

	projection := make([]string, 0, len(remaining))
	for _, name := range remaining {
		projection = append(projection, fields[name].StoreName)
	}

	doc, found, storeErr := h.core.store.FindOne(ctx, h.Collection(), h.idFilter(), projection)
	if storeErr != nil {
		return storeErr.Wrap(h.site("bulk fetch", ""))
	}

	if !found {
		h.stats.misses.Add(uint64(len(remaining)))

		return nil
	}

	sharedPairs := make(map[string]string, len(remaining))
	localEntries := make([]localcache.Entry, 0, len(remaining))

	for _, name := range remaining {
		field := fields[name]

		raw, ok := doc[field.StoreName]
		if !ok {
			h.stats.misses.Add(1)

			continue
		}

		value, convErr := field.StoreConv.DecodeWire(raw)
		if convErr != nil {
			return convErr.Wrap(h.site("decode store wire of", name))
		}

		h.stats.storeHits.Add(1)
		result[name] = value

		if field.sharedOn {
			if wire, ok := h.sharedWire(name, field, value); ok {
				sharedPairs[FieldKey(h.Collection(), h.id, name)] = wire
			}
		}

		if field.localOn {
			localEntries = append(localEntries, localcache.Entry{Field: name, Value: value})
		}
	}

	if len(sharedPairs) > 0 && h.core.shared.Ready() {
		if err := h.core.shared.MSet(ctx, h.core.ttl, sharedPairs); err != nil {
			h.log.Debugf("shared bulk backfill failed, dropping: %v", err)
		}
	}

	// Same ordering rule as fetchField: a cancelled caller must not leave
	// local-only state behind.
	if ctx.Err() == nil {
		h.local.SetOrdered(localEntries)
	}

	return nil
}

// SetField writes one field through to the authoritative store. Converter
// work happens before any I/O; only an acknowledged store write updates
// the local cache and (best-effort) the shared one, so a failed write
// leaves every tier untouched. An update that matches no document is a
// 404 carrying ErrEntityAbsent, and no tier changes either.
//
// Example:
//
//	err := handle.SetField(ctx, "nickname", "ember")
func (h *Handle) SetField(ctx context.Context, name string, value any) fverrors.Error {
	field, fvErr := h.field(name)
	if fvErr != nil {
		return fvErr
	}

	storeWire, convErr := field.StoreConv.EncodeWire(value)
	if convErr != nil {
		return convErr.Wrap(h.site("encode store wire of", name))
	}

	var sharedWireValue string

	writeShared := false

	if field.sharedOn {
		wire, ok := h.sharedWire(name, field, value)
		sharedWireValue = wire
		writeShared = ok
	}

	matched, storeErr := h.core.store.UpdateOne(
		ctx,
		h.Collection(),
		h.idFilter(),
		docstore.Update{Set: docstore.Doc{field.StoreName: storeWire}},
	)
	if storeErr != nil {
		return storeErr.Wrap(h.site("set", name))
	}

	if matched == 0 {
		return fverrors.FromError(http.StatusNotFound, ErrEntityAbsent, h.site("set", name))
	}

	if field.localOn {
		h.local.Set(name, value)
	}

	if writeShared && h.core.shared.Ready() {
		key := FieldKey(h.Collection(), h.id, name)
		if err := h.core.shared.Set(ctx, key, sharedWireValue, h.core.ttl); err != nil {
			h.log.Debugf("shared write of %s failed, dropping: %v", name, err)
		}
	}

	return nil
}

// SetFields writes several fields in one store update. On success the
// local cache takes every in-memory value and the shared cache takes one
// batched write; on store failure, or when no document matches, no tier
// changes.
//
// Example:
//
//	err := handle.SetFields(ctx, map[string]any{"stage": int64(2), "running": true})
func (h *Handle) SetFields(ctx context.Context, values map[string]any) fverrors.Error {
	if len(values) == 0 {
		return fverrors.FromError(http.StatusBadRequest, ErrNoFields, h.site("set fields", ""))
	}

	set := make(docstore.Doc, len(values))
	sharedPairs := make(map[string]string, len(values))
	localEntries := make([]localcache.Entry, 0, len(values))

	for _, name := range slices.Sorted(maps.Keys(values)) {
		field, fvErr := h.field(name)
		if fvErr != nil {
			return fvErr
		}

		value := values[name]

		storeWire, convErr := field.StoreConv.EncodeWire(value)
		if convErr != nil {
			return convErr.Wrap(h.site("encode store wire of", name))
		}

		set[field.StoreName] = storeWire

		if field.sharedOn {
			if wire, ok := h.sharedWire(name, field, value); ok {
				sharedPairs[FieldKey(h.Collection(), h.id, name)] = wire
			}
		}

		if field.localOn {
			localEntries = append(localEntries, localcache.Entry{Field: name, Value: value})
		}
	}

	matched, storeErr := h.core.store.UpdateOne(ctx, h.Collection(), h.idFilter(), docstore.Update{Set: set})
	if storeErr != nil {
		return storeErr.Wrap(h.site("set fields", ""))
	}

	if matched == 0 {
		return fverrors.FromError(http.StatusNotFound, ErrEntityAbsent, h.site("set fields", ""))
	}

	h.local.SetOrdered(localEntries)

	if len(sharedPairs) > 0 && h.core.shared.Ready() {
		if err := h.core.shared.MSet(ctx, h.core.ttl, sharedPairs); err != nil {
			h.log.Debugf("shared bulk write failed, dropping: %v", err)
		}
	}

	return nil
}

// HasField reports whether the field currently holds a value, checking the
// tiers in read order. A shared-cache "not present" is not trusted as a
// final no; only the authoritative store can rule the field out.
//
// Example:
//
//	ok, err := handle.HasField(ctx, "nickname")
func (h *Handle) HasField(ctx context.Context, name string) (bool, fverrors.Error) {
	field, fvErr := h.field(name)
	if fvErr != nil {
		return false, fvErr
	}

	if field.localOn && h.local.Has(name) {
		return true, nil
	}

	if field.sharedOn && h.core.shared.Ready() {
		count, err := h.core.shared.Exists(ctx, FieldKey(h.Collection(), h.id, name))
		if err != nil {
			h.log.Debugf("shared exists of %s failed, treating as miss: %v", name, err)
		} else if count > 0 {
			return true, nil
		}
	}

	doc, found, storeErr := h.core.store.FindOne(
		ctx,
		h.Collection(),
		h.idFilter(),
		[]string{field.StoreName},
	)
	if storeErr != nil {
		return false, storeErr.Wrap(h.site("probe", name))
	}

	if !found {
		return false, nil
	}

	_, ok := doc[field.StoreName]

	return ok, nil
}

// ClearField removes one field from every tier: an $unset at the store,
// a key delete at the shared cache, a map delete locally. Clearing a
// field of an absent entity is a 404 carrying ErrEntityAbsent.
//
// Example:
//
//	err := handle.ClearField(ctx, "nickname")
func (h *Handle) ClearField(ctx context.Context, name string) fverrors.Error {
	field, fvErr := h.field(name)
	if fvErr != nil {
		return fvErr
	}

	matched, storeErr := h.core.store.UpdateOne(
		ctx,
		h.Collection(),
		h.idFilter(),
		docstore.Update{Unset: []string{field.StoreName}},
	)
	if storeErr != nil {
		return storeErr.Wrap(h.site("clear", name))
	}

	if matched == 0 {
		return fverrors.FromError(http.StatusNotFound, ErrEntityAbsent, h.site("clear", name))
	}

	if field.sharedOn {
		if _, err := h.core.shared.Del(ctx, FieldKey(h.Collection(), h.id, name)); err != nil {
			h.log.Debugf("shared delete of %s failed, dropping: %v", name, err)
		}
	}

	h.local.Delete(name)

	return nil
}

// Flush removes the whole entity: the document, every shared-cache key of
// this identity, and the local cache.
//
// Example:
//
//	err := handle.Flush(ctx)
func (h *Handle) Flush(ctx context.Context) fverrors.Error {
	if _, storeErr := h.core.store.DeleteOne(ctx, h.Collection(), h.idFilter()); storeErr != nil {
		return storeErr.Wrap(h.site("flush", ""))
	}

	keys, err := h.core.shared.Keys(ctx, HandlePattern(h.Collection(), h.id))
	if err != nil {
		h.log.Debugf("shared key scan during flush failed, dropping: %v", err)
	} else if len(keys) > 0 {
		if _, err := h.core.shared.Del(ctx, keys...); err != nil {
			h.log.Debugf("shared prune during flush failed, dropping: %v", err)
		}
	}

	h.local.Clear()

	return nil
}

// LocalSnapshot returns a copy of the handle's local cache content.
func (h *Handle) LocalSnapshot() map[string]any {
	return h.local.Snapshot()
}

// purgeLocal empties the local cache; the instance manager uses it during
// type-wide invalidation.
func (h *Handle) purgeLocal() {
	h.local.Clear()
}

func (h *Handle) field(name string) (fieldInfo, fverrors.Error) {
	field, ok := h.core.fields[name]
	if !ok {
		return fieldInfo{}, fverrors.FromError(
			http.StatusBadRequest,
			ErrUnknownField,
			h.site("resolve", name),
		)
	}

	return field, nil
}

func (h *Handle) idFilter() docstore.Doc {
	return docstore.Doc{docstore.IDField: h.id}
}

// backfillShared pushes a freshly fetched value into the shared tier,
// best-effort.
func (h *Handle) backfillShared(ctx context.Context, name string, field fieldInfo, value any) {
	if !field.sharedOn || !h.core.shared.Ready() {
		return
	}

	wire, ok := h.sharedWire(name, field, value)
	if !ok {
		return
	}

	key := FieldKey(h.Collection(), h.id, name)
	if err := h.core.shared.Set(ctx, key, wire, h.core.ttl); err != nil {
		h.log.Debugf("shared backfill of %s failed, dropping: %v", name, err)
	}
}

// sharedWire encodes a value for the shared tier. A converter that yields
// anything but a string marks a broken schema; the value is logged and
// kept out of the cache rather than stored corrupted.
func (h *Handle) sharedWire(name string, field fieldInfo, value any) (string, bool) {
	encoded, convErr := field.SharedConv.EncodeWire(value)
	if convErr != nil {
		h.log.Errorf("shared encode of %s failed, leaving uncached: %v", name, convErr)

		return "", false
	}

	wire, ok := encoded.(string)
	if !ok {
		h.log.Errorf("shared converter of %s produced %T, want string; leaving uncached", name, encoded)

		return "", false
	}

	return wire, true
}

func (h *Handle) site(op, name string) string {
	if name == "" {
		return fmt.Sprintf("%s %s:%s", op, h.Collection(), h.id.Hex())
	}

	return fmt.Sprintf("%s %s of %s:%s", op, name, h.Collection(), h.id.Hex())
}

// asFvError recovers the typed error from a singleflight result. The
// flight hands the same error value to every waiter, so the wrap goes on
// a fresh error around it, never on the shared value itself.
func asFvError(err error, wrap string) fverrors.Error {
	var typed fverrors.Error
	if errors.As(err, &typed) {
		return fverrors.FromError(typed.Code(), typed, wrap)
	}

	return fverrors.FromError(http.StatusInternalServerError, err, wrap)
}
