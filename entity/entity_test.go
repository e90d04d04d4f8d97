package entity_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberhall/fieldvault/convert"
	"github.com/emberhall/fieldvault/docstore"
	"github.com/emberhall/fieldvault/entity"
	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/fvlog"
	"github.com/emberhall/fieldvault/schema"
	"github.com/emberhall/fieldvault/sharedcache"
)

// countingShared decorates a shared-cache client with operation counters
// and a switchable readiness flag, so tests can assert exactly how the
// engine talks to the shared tier.
type countingShared struct {
	sharedcache.Client

	ready atomic.Bool

	gets   atomic.Int64
	mgets  atomic.Int64
	sets   atomic.Int64
	msets  atomic.Int64
	dels   atomic.Int64
	exists atomic.Int64
}

func newCountingShared(inner sharedcache.Client) *countingShared {
	c := &countingShared{Client: inner}
	c.ready.Store(true)

	return c
}

func (c *countingShared) Ready() bool {
	return c.ready.Load()
}

func (c *countingShared) Get(ctx context.Context, key string) (string, bool, fverrors.Error) {
	c.gets.Add(1)

	return c.Client.Get(ctx, key)
}

func (c *countingShared) MGet(ctx context.Context, keys ...string) (map[string]string, fverrors.Error) {
	c.mgets.Add(1)

	return c.Client.MGet(ctx, keys...)
}

func (c *countingShared) Set(ctx context.Context, key, value string, ttl time.Duration) fverrors.Error {
	c.sets.Add(1)

	return c.Client.Set(ctx, key, value, ttl)
}

func (c *countingShared) MSet(ctx context.Context, ttl time.Duration, pairs map[string]string) fverrors.Error {
	c.msets.Add(1)

	return c.Client.MSet(ctx, ttl, pairs)
}

func (c *countingShared) Del(ctx context.Context, keys ...string) (int64, fverrors.Error) {
	c.dels.Add(1)

	return c.Client.Del(ctx, keys...)
}

func (c *countingShared) Exists(ctx context.Context, keys ...string) (int64, fverrors.Error) {
	c.exists.Add(1)

	return c.Client.Exists(ctx, keys...)
}

// gatedStore holds every FindOne until released, so a test can keep a
// fetch in flight while other callers pile up behind it.
type gatedStore struct {
	docstore.Store

	entered chan struct{}
	release chan struct{}
}

func newGatedStore(inner docstore.Store) *gatedStore {
	return &gatedStore{
		Store:   inner,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (s *gatedStore) FindOne(
	ctx context.Context,
	collection string,
	filter docstore.Doc,
	projection []string,
) (docstore.Doc, bool, fverrors.Error) {
	select {
	case s.entered <- struct{}{}:
	default:
	}

	<-s.release

	return s.Store.FindOne(ctx, collection, filter, projection)
}

// cancelBoundShared refuses writes once the caller's context is done, the
// way a networked client would.
type cancelBoundShared struct {
	sharedcache.Client
}

func (c *cancelBoundShared) Set(ctx context.Context, key, value string, ttl time.Duration) fverrors.Error {
	if err := ctx.Err(); err != nil {
		return fverrors.FromError(http.StatusInternalServerError, err, "set "+key)
	}

	return c.Client.Set(ctx, key, value, ttl)
}

func (c *cancelBoundShared) MSet(ctx context.Context, ttl time.Duration, pairs map[string]string) fverrors.Error {
	if err := ctx.Err(); err != nil {
		return fverrors.FromError(http.StatusInternalServerError, err, "mset")
	}

	return c.Client.MSet(ctx, ttl, pairs)
}

// testWorld is one wired entity type over counting fakes for both lower
// tiers.
type testWorld struct {
	shared  *countingShared
	store   *docstore.Recorder
	backing *docstore.Memory
	manager *entity.Manager
}

func userSchema(t *testing.T) *schema.Schema {
	t.Helper()

	s, err := schema.New("user", []schema.Definition{
		{Name: "mail"},
		{Name: "nickname"},
		{Name: "firstName", Field: schema.Field{StoreName: "first_name"}},
		{Name: "lastName", Field: schema.Field{StoreName: "last_name"}},
		{Name: "isAdmin", Field: schema.Field{SharedConv: convert.Bool()}},
		{Name: "createDate", Field: schema.Field{
			SharedConv: convert.Time(),
			StoreConv:  convert.TimeDoc(),
		}},
		{Name: "passwordHash", Field: schema.Field{Local: schema.Off, Shared: schema.Off}},
	})
	require.NoError(t, err)

	return s
}

func setupWorld(t *testing.T) *testWorld {
	t.Helper()

	memoryShared := sharedcache.NewMemory(sharedcache.NewMemoryContainer(), time.Minute)
	t.Cleanup(func() { _ = memoryShared.Close() })

	shared := newCountingShared(memoryShared)
	backing := docstore.NewMemory()
	store := docstore.NewRecorder(backing)

	return &testWorld{
		shared:  shared,
		store:   store,
		backing: backing,
		manager: managerOver(t, shared, store),
	}
}

// managerOver wires a user-type manager over arbitrary tier clients, so
// tests can slip gating or fault-injecting decorators in between.
func managerOver(t *testing.T, shared sharedcache.Client, store docstore.Store) *entity.Manager {
	t.Helper()

	manager, err := entity.NewManager(entity.ManagerConfig{
		Schema:        userSchema(t),
		Shared:        shared,
		Store:         store,
		Log:           fvlog.NewNop(),
		TTL:           time.Minute,
		LocalDefault:  true,
		SharedDefault: true,
		Uncached:      []string{"passwordHash"},
	})
	require.NoError(t, err)

	return manager
}

// secondManager builds another manager over the same backing tiers, which
// models a separate process sharing the same Redis and Mongo.
func (w *testWorld) secondManager(t *testing.T) *entity.Manager {
	t.Helper()

	return managerOver(t, w.shared, w.store)
}
