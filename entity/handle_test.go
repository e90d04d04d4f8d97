package entity_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberhall/fieldvault/convert"
	"github.com/emberhall/fieldvault/docstore"
	"github.com/emberhall/fieldvault/entity"
	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/ident"
)

func TestGetField_ReadYourWritesRegardlessOfSharedState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	handle, err := world.manager.Create(ctx, map[string]any{"nickname": "ember"})
	require.NoError(t, err)

	require.NoError(t, handle.SetField(ctx, "nickname", "skalse"))

	// Poison the shared tier; the local cache must win anyway.
	key := entity.FieldKey("user", handle.ID(), "nickname")
	require.NoError(t, world.shared.Client.Set(ctx, key, "stale", time.Minute))

	value, err := handle.GetField(ctx, "nickname")
	require.NoError(t, err)
	assert.Equal(t, "skalse", value)
}

func TestGetField_FreshHandleAnswersFromSharedWithoutStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	handleA, err := world.manager.Create(ctx, map[string]any{"name": "Arena"})
	require.ErrorIs(t, err, entity.ErrUnknownField)

	handleA, err = world.manager.Create(ctx, map[string]any{"nickname": "Arena"})
	require.NoError(t, err)
	require.NoError(t, handleA.SetField(ctx, "nickname", "Arena2"))

	// A second manager models another process: no shared local caches.
	other := world.secondManager(t)
	handleB := other.Handle(handleA.ID())

	world.store.Reset()

	value, err := handleB.GetField(ctx, "nickname")
	require.NoError(t, err)
	assert.Equal(t, "Arena2", value)
	assert.Zero(t, world.store.CountOp(docstore.OpFindOne), "shared hit must not touch the store")
	assert.EqualValues(t, 1, handleB.Stats().SharedHits)
}

func TestGetField_FallsThroughToStoreAndBackfills(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	id, err := world.backing.InsertOne(ctx, "user", docstore.Doc{"mail": "a@b.com"})
	require.NoError(t, err)

	handle := world.manager.Handle(id)

	value, fvErr := handle.GetField(ctx, "mail")
	require.NoError(t, fvErr)
	assert.Equal(t, "a@b.com", value)

	// Backfill reached both caches: shared key present, local answers
	// without another store read.
	cached, ok, err2 := world.shared.Client.Get(ctx, entity.FieldKey("user", id, "mail"))
	require.NoError(t, err2)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", cached)

	world.store.Reset()

	_, fvErr = handle.GetField(ctx, "mail")
	require.NoError(t, fvErr)
	assert.Zero(t, world.store.CountOp(docstore.OpFindOne))
}

func TestGetField_ProjectionIsMinimal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	id, err := world.backing.InsertOne(ctx, "user", docstore.Doc{
		"mail":       "a@b.com",
		"first_name": "Amber",
	})
	require.NoError(t, err)

	_, fvErr := world.manager.Handle(id).GetField(ctx, "firstName")
	require.NoError(t, fvErr)

	calls := world.store.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, docstore.OpFindOne, calls[0].Op)
	assert.Equal(t, []string{"first_name"}, calls[0].Projection)
}

func TestGetField_NotReadySharedIsSkippedEntirely(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	id, err := world.backing.InsertOne(ctx, "user", docstore.Doc{"mail": "a@b.com"})
	require.NoError(t, err)

	world.shared.ready.Store(false)

	value, fvErr := world.manager.Handle(id).GetField(ctx, "mail")
	require.NoError(t, fvErr)
	assert.Equal(t, "a@b.com", value)

	assert.Zero(t, world.shared.gets.Load(), "degraded tier must not be read")
	assert.Zero(t, world.shared.sets.Load(), "degraded tier must not be written")
}

func TestGetField_AbsentEntityAndUnknownField(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	handle := world.manager.Handle(ident.New())

	_, err := handle.GetField(ctx, "mail")
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrEntityAbsent)
	assert.Equal(t, 404, err.Code())

	_, err = handle.GetField(ctx, "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrUnknownField)
	assert.Equal(t, 400, err.Code())
}

func TestGetField_AbsentFieldOnExistingEntity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	id, err := world.backing.InsertOne(ctx, "user", docstore.Doc{"mail": "a@b.com"})
	require.NoError(t, err)

	_, fvErr := world.manager.Handle(id).GetField(ctx, "nickname")
	require.Error(t, fvErr)
	assert.ErrorIs(t, fvErr, entity.ErrFieldAbsent)
}

func TestGetField_StampedeOnAbsentEntitySharesOneVerdict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	gate := newGatedStore(world.store)
	handle := managerOver(t, world.shared, gate).Handle(ident.New())

	const readers = 8

	errs := make([]fverrors.Error, readers)

	var wg sync.WaitGroup

	for i := range readers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, errs[i] = handle.GetField(ctx, "nickname")
		}()
	}

	<-gate.entered
	time.Sleep(10 * time.Millisecond) // let the rest join the flight
	close(gate.release)
	wg.Wait()

	// Every waiter of the collapsed flight gets the verdict, each on its
	// own error value.
	for _, fvErr := range errs {
		require.Error(t, fvErr)
		assert.Equal(t, http.StatusNotFound, fvErr.Code())
		assert.ErrorIs(t, fvErr, entity.ErrEntityAbsent)
	}
}

func TestGetField_CancelledFetchLeavesNoLocalOnlyState(t *testing.T) {
	t.Parallel()

	world := setupWorld(t)

	id, err := world.backing.InsertOne(context.Background(), "user", docstore.Doc{
		"nickname": "ember",
	})
	require.NoError(t, err)

	gate := newGatedStore(world.store)
	shared := &cancelBoundShared{Client: world.shared}
	handle := managerOver(t, shared, gate).Handle(id)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan fverrors.Error, 1)

	go func() {
		_, fvErr := handle.GetField(ctx, "nickname")
		done <- fvErr
	}()

	<-gate.entered
	cancel()
	close(gate.release)
	require.NoError(t, <-done)

	// The shared tier dropped the cancelled backfill; the local tier must
	// not hold the value alone.
	assert.Empty(t, handle.LocalSnapshot())

	_, ok, err2 := world.shared.Client.Get(context.Background(), entity.FieldKey("user", id, "nickname"))
	require.NoError(t, err2)
	assert.False(t, ok)
}

func TestGetFields_ColdHandleCoalescesRoundTrips(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	createDate := time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

	id, err := world.backing.InsertOne(ctx, "user", docstore.Doc{
		"first_name": "Amber",
		"last_name":  "Hall",
		"createDate": toDocTime(t, createDate),
	})
	require.NoError(t, err)

	handle := world.manager.Handle(id)
	world.store.Reset()

	values, fvErr := handle.GetFields(ctx, "firstName", "lastName", "createDate")
	require.NoError(t, fvErr)

	want := map[string]any{
		"firstName":  "Amber",
		"lastName":   "Hall",
		"createDate": createDate,
	}
	assert.Empty(t, cmp.Diff(want, values))

	assert.EqualValues(t, 1, world.shared.mgets.Load(), "one MGet for the cold names")
	assert.EqualValues(t, 1, world.store.CountOp(docstore.OpFindOne), "one FindOne for the misses")
	assert.EqualValues(t, 1, world.shared.msets.Load(), "one batched backfill")

	calls := world.store.Calls()
	assert.ElementsMatch(t, []string{"first_name", "last_name", "createDate"}, calls[0].Projection)
}

func TestGetFields_MatchesIndividualGetField(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	id, err := world.backing.InsertOne(ctx, "user", docstore.Doc{
		"mail":       "a@b.com",
		"nickname":   "ember",
		"first_name": "Amber",
	})
	require.NoError(t, err)

	batched, fvErr := world.manager.Handle(id).GetFields(ctx, "mail", "nickname", "firstName")
	require.NoError(t, fvErr)

	// An independent manager over the same tiers reads field by field.
	single := map[string]any{}
	handle := world.secondManager(t).Handle(id)

	for _, name := range []string{"mail", "nickname", "firstName"} {
		value, fvErr := handle.GetField(ctx, name)
		require.NoError(t, fvErr)
		single[name] = value
	}

	assert.Empty(t, cmp.Diff(single, batched))
}

func TestGetFields_AbsentFieldsAreOmitted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	id, err := world.backing.InsertOne(ctx, "user", docstore.Doc{"mail": "a@b.com"})
	require.NoError(t, err)

	values, fvErr := world.manager.Handle(id).GetFields(ctx, "mail", "nickname")
	require.NoError(t, fvErr)

	assert.Equal(t, map[string]any{"mail": "a@b.com"}, values)
}

func TestSetField_StoreFailureTouchesNoCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	handle, err := world.manager.Create(ctx, map[string]any{"isAdmin": false})
	require.NoError(t, err)

	// A string through the createDate store converter is a converter
	// error; the write must die before any tier changes.
	fvErr := handle.SetField(ctx, "createDate", "not-a-time")
	require.Error(t, fvErr)

	snapshot := handle.LocalSnapshot()
	assert.NotContains(t, snapshot, "createDate")

	_, ok, err2 := world.shared.Client.Get(ctx, entity.FieldKey("user", handle.ID(), "createDate"))
	require.NoError(t, err2)
	assert.False(t, ok)
}

func TestSetFields_OneUpdateOneBatchedSharedWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	handle, err := world.manager.Create(ctx, map[string]any{"mail": "a@b.com"})
	require.NoError(t, err)

	world.store.Reset()
	world.shared.msets.Store(0)

	require.NoError(t, handle.SetFields(ctx, map[string]any{
		"firstName": "Amber",
		"lastName":  "Hall",
		"isAdmin":   true,
	}))

	assert.EqualValues(t, 1, world.store.CountOp(docstore.OpUpdateOne))
	assert.EqualValues(t, 1, world.shared.msets.Load())

	// The bool crossed into the shared tier in wire form.
	wire, ok, err2 := world.shared.Client.Get(ctx, entity.FieldKey("user", handle.ID(), "isAdmin"))
	require.NoError(t, err2)
	require.True(t, ok)
	assert.Equal(t, "1", wire)

	value, fvErr := handle.GetField(ctx, "isAdmin")
	require.NoError(t, fvErr)
	assert.Equal(t, true, value)
}

func TestSetField_VanishedEntityTouchesNoTier(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	handle, err := world.manager.Create(ctx, map[string]any{"mail": "a@b.com"})
	require.NoError(t, err)
	require.NoError(t, handle.Flush(ctx))

	fvErr := handle.SetField(ctx, "mail", "ghost@b.com")
	require.Error(t, fvErr)
	assert.Equal(t, http.StatusNotFound, fvErr.Code())
	assert.ErrorIs(t, fvErr, entity.ErrEntityAbsent)

	fvErr = handle.SetFields(ctx, map[string]any{"firstName": "Amber", "lastName": "Hall"})
	require.Error(t, fvErr)
	assert.ErrorIs(t, fvErr, entity.ErrEntityAbsent)

	fvErr = handle.ClearField(ctx, "mail")
	require.Error(t, fvErr)
	assert.ErrorIs(t, fvErr, entity.ErrEntityAbsent)

	// No tier may hold a value the store never acknowledged.
	assert.Empty(t, handle.LocalSnapshot())

	keys, err2 := world.shared.Client.Keys(ctx, entity.HandlePattern("user", handle.ID()))
	require.NoError(t, err2)
	assert.Empty(t, keys)

	// A fresh process sees the entity as gone, not the phantom value.
	_, fvErr = world.secondManager(t).Handle(handle.ID()).GetField(ctx, "mail")
	require.Error(t, fvErr)
	assert.ErrorIs(t, fvErr, entity.ErrEntityAbsent)
}

func TestHasField_ChecksTiersInOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	id, err := world.backing.InsertOne(ctx, "user", docstore.Doc{"mail": "a@b.com"})
	require.NoError(t, err)

	handle := world.manager.Handle(id)

	ok, fvErr := handle.HasField(ctx, "mail")
	require.NoError(t, fvErr)
	assert.True(t, ok)

	ok, fvErr = handle.HasField(ctx, "nickname")
	require.NoError(t, fvErr)
	assert.False(t, ok)
}

func TestClearField_RemovesFromEveryTier(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	handle, err := world.manager.Create(ctx, map[string]any{"nickname": "ember"})
	require.NoError(t, err)
	require.NoError(t, handle.SetField(ctx, "nickname", "ember"))

	require.NoError(t, handle.ClearField(ctx, "nickname"))

	assert.NotContains(t, handle.LocalSnapshot(), "nickname")

	_, ok, err2 := world.shared.Client.Get(ctx, entity.FieldKey("user", handle.ID(), "nickname"))
	require.NoError(t, err2)
	assert.False(t, ok)

	_, fvErr := handle.GetField(ctx, "nickname")
	require.Error(t, fvErr)
	assert.ErrorIs(t, fvErr, entity.ErrFieldAbsent)
}

func TestFlush_RemovesDocumentAndAllKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	handle, err := world.manager.Create(ctx, map[string]any{"mail": "a@b.com"})
	require.NoError(t, err)
	require.NoError(t, handle.SetField(ctx, "mail", "a@b.com"))

	require.NoError(t, handle.Flush(ctx))

	assert.Zero(t, world.backing.Len("user"))
	assert.Empty(t, handle.LocalSnapshot())

	keys, fvErr := world.shared.Client.Keys(ctx, entity.HandlePattern("user", handle.ID()))
	require.NoError(t, fvErr)
	assert.Empty(t, keys)
}

func TestUncachedField_NeverReachesEitherCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	world := setupWorld(t)

	handle, err := world.manager.Create(ctx, map[string]any{
		"mail":         "a@b.com",
		"passwordHash": "$2a$10$hash",
	})
	require.NoError(t, err)

	require.NoError(t, handle.SetField(ctx, "passwordHash", "$2a$10$other"))

	value, fvErr := handle.GetField(ctx, "passwordHash")
	require.NoError(t, fvErr)
	assert.Equal(t, "$2a$10$other", value)

	assert.NotContains(t, handle.LocalSnapshot(), "passwordHash")

	_, ok, err2 := world.shared.Client.Get(ctx, entity.FieldKey("user", handle.ID(), "passwordHash"))
	require.NoError(t, err2)
	assert.False(t, ok, "the hash must never be in the shared cache")
}

func toDocTime(t *testing.T, instant time.Time) any {
	t.Helper()

	wire, err := convert.TimeDoc().EncodeWire(instant)
	require.NoError(t, err)

	return wire
}
