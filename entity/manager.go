package entity

import (
	"context"
	"net/http"
	"time"

	"github.com/emberhall/fieldvault/docstore"
	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/fvlog"
	"github.com/emberhall/fieldvault/ident"
	"github.com/emberhall/fieldvault/schema"
	"github.com/emberhall/fieldvault/sharedcache"
)

const (
	// DefaultTTL is the shared-cache lifetime of field values when the
	// configuration does not say otherwise.
	DefaultTTL = time.Minute

	existsTrue  = "1"
	existsFalse = "0"
)

// ManagerConfig wires one entity type: its schema, the process-wide store
// clients, and the deployment-level cache policy.
type ManagerConfig struct {
	Schema *schema.Schema
	Shared sharedcache.Client
	Store  docstore.Store
	Log    fvlog.Logger

	// TTL is the shared-cache lifetime of field values; zero selects
	// DefaultTTL. ExistsTTL covers the identity-existence probe keys and
	// defaults to TTL.
	TTL       time.Duration
	ExistsTTL time.Duration

	// LocalDefault and SharedDefault resolve schema toggles left at
	// their zero value.
	LocalDefault  bool
	SharedDefault bool

	// Uncached names fields that must not reach either cache under the
	// resolved toggles; construction fails otherwise. Declare every
	// secret field here.
	Uncached []string
}

// Manager is the per-type facade: handle construction through the instance
// manager, identity discovery, creation, and type-wide invalidation.
type Manager struct {
	core      *core
	instances *InstanceManager
	existsTTL time.Duration
}

// NewManager resolves the schema's cache toggles against the deployment
// defaults, verifies that declared secret fields stay uncached, and builds
// the type's instance manager.
//
// Example:
//
//	users, err := entity.NewManager(entity.ManagerConfig{
//		Schema:   userSchema,
//		Shared:   shared,
//		Store:    store,
//		Log:      log,
//		TTL:      cfg.SharedCache.TTL,
//		Uncached: []string{"passwordHash"},
//	})
func NewManager(cfg ManagerConfig) (*Manager, fverrors.Error) {
	switch {
	case cfg.Schema == nil:
		return nil, fverrors.FromError(http.StatusInternalServerError, ErrNilSchema, "new manager")
	case cfg.Shared == nil:
		return nil, fverrors.FromError(http.StatusInternalServerError, ErrNilShared, "new manager")
	case cfg.Store == nil:
		return nil, fverrors.FromError(http.StatusInternalServerError, ErrNilStore, "new manager")
	}

	if err := cfg.Schema.RequireUncached(
		cfg.LocalDefault,
		cfg.SharedDefault,
		cfg.Uncached...,
	); err != nil {
		return nil, err.Wrap("new manager for " + cfg.Schema.Collection())
	}

	if cfg.Log == nil {
		cfg.Log = fvlog.New(nil)
	}

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	if cfg.ExistsTTL <= 0 {
		cfg.ExistsTTL = cfg.TTL
	}

	fields := make(map[string]fieldInfo, cfg.Schema.Len())

	for _, name := range cfg.Schema.Names() {
		field, _ := cfg.Schema.Field(name)

		fields[name] = fieldInfo{
			Field:    field,
			localOn:  field.Local.Resolve(cfg.LocalDefault),
			sharedOn: field.Shared.Resolve(cfg.SharedDefault),
		}
	}

	core := &core{
		schema: cfg.Schema,
		fields: fields,
		shared: cfg.Shared,
		store:  cfg.Store,
		log:    cfg.Log,
		ttl:    cfg.TTL,
	}

	return &Manager{
		core:      core,
		instances: newInstanceManager(core),
		existsTTL: cfg.ExistsTTL,
	}, nil
}

// Handle returns the shared handle for an identity via the instance
// manager.
func (m *Manager) Handle(id ident.ID) *Handle {
	return m.instances.Obtain(id)
}

// Instances exposes the type's instance manager.
func (m *Manager) Instances() *InstanceManager {
	return m.instances
}

// Collection returns the type's authoritative-store collection name.
func (m *Manager) Collection() string {
	return m.core.schema.Collection()
}

// Schema returns the type's schema.
func (m *Manager) Schema() *schema.Schema {
	return m.core.schema
}

// TTL returns the shared-cache lifetime of this type's field values.
func (m *Manager) TTL() time.Duration {
	return m.core.ttl
}

// Store exposes the authoritative store client, for callers that must
// bypass the caches deliberately, such as credential verification.
func (m *Manager) Store() docstore.Store {
	return m.core.store
}

// Shared exposes the shared cache client.
func (m *Manager) Shared() sharedcache.Client {
	return m.core.shared
}

// ExistsByID reports whether the identity has a document, answering from
// the shared probe key when possible and falling back to a minimal store
// read. Both outcomes are cached best-effort, so repeated probes for hot
// or recently deleted identities stay off the store. The probe never
// builds a handle.
//
// Example:
//
//	ok, err := users.ExistsByID(ctx, id)
func (m *Manager) ExistsByID(ctx context.Context, id ident.ID) (bool, fverrors.Error) {
	key := ExistsKey(m.Collection(), id)

	if m.core.shared.Ready() {
		cached, ok, err := m.core.shared.Get(ctx, key)
		if err != nil {
			m.core.log.Debugf("exists probe read failed, treating as miss: %v", err)
		} else if ok {
			return cached == existsTrue, nil
		}
	}

	_, found, storeErr := m.core.store.FindOne(
		ctx,
		m.Collection(),
		docstore.Doc{docstore.IDField: id},
		[]string{},
	)
	if storeErr != nil {
		return false, storeErr.Wrap("exists probe for " + m.Collection())
	}

	if m.core.shared.Ready() {
		wire := existsFalse
		if found {
			wire = existsTrue
		}

		if err := m.core.shared.Set(ctx, key, wire, m.existsTTL); err != nil {
			m.core.log.Debugf("exists probe write failed, dropping: %v", err)
		}
	}

	return found, nil
}

// FindByUniqueField resolves an identity by one unique field's value and
// returns its handle. The lookup projects nothing but the identity; it
// never warms any cache.
//
// Example:
//
//	handle, err := users.FindByUniqueField(ctx, "mail", "a@b.com")
func (m *Manager) FindByUniqueField(
	ctx context.Context,
	name string,
	value any,
) (*Handle, fverrors.Error) {
	field, ok := m.core.fields[name]
	if !ok {
		return nil, fverrors.FromError(
			http.StatusBadRequest,
			ErrUnknownField,
			"find "+m.Collection()+" by "+name,
		)
	}

	wire, convErr := field.StoreConv.EncodeWire(value)
	if convErr != nil {
		return nil, convErr.Wrap("find " + m.Collection() + " by " + name)
	}

	docs, storeErr := m.core.store.FindMany(
		ctx,
		m.Collection(),
		docstore.Doc{field.StoreName: wire},
		[]string{},
		docstore.FindOptions{Limit: 1},
	)
	if storeErr != nil {
		return nil, storeErr.Wrap("find " + m.Collection() + " by " + name)
	}

	if len(docs) == 0 {
		return nil, fverrors.FromError(
			http.StatusNotFound,
			ErrEntityAbsent,
			"find "+m.Collection()+" by "+name,
		)
	}

	id, ok := docs[0][docstore.IDField].(ident.ID)
	if !ok {
		return nil, fverrors.FromString(
			http.StatusInternalServerError,
			"find "+m.Collection()+" by "+name+": document identity has unexpected type",
		)
	}

	return m.Handle(id), nil
}

// Create inserts a new entity from logical field values and returns its
// handle with the local cache primed. The type's shared keys are pruned
// best-effort afterwards, so cached negative probes cannot outlive the
// insert.
//
// Example:
//
//	handle, err := games.Create(ctx, map[string]any{"name": "Arena", "running": false})
func (m *Manager) Create(ctx context.Context, values map[string]any) (*Handle, fverrors.Error) {
	if len(values) == 0 {
		return nil, fverrors.FromError(
			http.StatusBadRequest,
			ErrNoFields,
			"create "+m.Collection(),
		)
	}

	doc := make(docstore.Doc, len(values))

	for name, value := range values {
		field, ok := m.core.fields[name]
		if !ok {
			return nil, fverrors.FromError(
				http.StatusBadRequest,
				ErrUnknownField,
				"create "+m.Collection()+": field "+name,
			)
		}

		wire, convErr := field.StoreConv.EncodeWire(value)
		if convErr != nil {
			return nil, convErr.Wrap("create " + m.Collection() + ": field " + name)
		}

		doc[field.StoreName] = wire
	}

	id, storeErr := m.core.store.InsertOne(ctx, m.Collection(), doc)
	if storeErr != nil {
		return nil, storeErr.Wrap("create " + m.Collection())
	}

	m.pruneShared(ctx)

	handle := m.Handle(id)

	for name, value := range values {
		if m.core.fields[name].localOn {
			handle.local.Set(name, value)
		}
	}

	return handle, nil
}

// Flush invalidates the whole type: every shared-cache key under the type
// wildcard is deleted and every live handle's local cache is emptied. A
// shared-cache failure here is surfaced, since the caller asked for an
// invalidation and silently keeping stale keys would defeat it.
//
// Example:
//
//	err := users.Flush(ctx)
func (m *Manager) Flush(ctx context.Context) fverrors.Error {
	if m.core.shared.Ready() {
		keys, err := m.core.shared.Keys(ctx, TypePattern(m.Collection()))
		if err != nil {
			return err.Wrap("flush " + m.Collection())
		}

		if len(keys) > 0 {
			if _, err := m.core.shared.Del(ctx, keys...); err != nil {
				return err.Wrap("flush " + m.Collection())
			}
		}
	}

	m.instances.Clear(true)

	return nil
}

// pruneShared drops the type's shared keys best-effort after a mutation
// that may invalidate cached negatives.
func (m *Manager) pruneShared(ctx context.Context) {
	if !m.core.shared.Ready() {
		return
	}

	keys, err := m.core.shared.Keys(ctx, TypePattern(m.Collection()))
	if err != nil {
		m.core.log.Debugf("shared prune scan failed, dropping: %v", err)

		return
	}

	if len(keys) == 0 {
		return
	}

	if _, err := m.core.shared.Del(ctx, keys...); err != nil {
		m.core.log.Debugf("shared prune failed, dropping: %v", err)
	}
}
