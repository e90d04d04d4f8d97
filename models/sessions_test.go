package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberhall/fieldvault/ident"
)

func TestSessionsCreate_GeneratesParseableToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := setup(t)
	userID := ident.New()

	session, err := w.models.Sessions.Create(ctx, userID, 0)
	require.NoError(t, err)

	token, err := session.Token(ctx)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(token)
	require.NoError(t, parseErr)

	gotUser, err := session.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)

	expired, err := session.Expired(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = session.Expired(ctx, time.Now().UTC().Add(25*time.Hour))
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestSessionsFindByToken_ResolvesSameIdentity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := setup(t)

	session, err := w.models.Sessions.Create(ctx, ident.New(), time.Hour)
	require.NoError(t, err)

	token, err := session.Token(ctx)
	require.NoError(t, err)

	found, err := w.models.Sessions.FindByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, session.ID(), found.ID())
}

func TestSessionsTouch_MovesLastUsedForward(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := setup(t)

	session, err := w.models.Sessions.Create(ctx, ident.New(), time.Hour)
	require.NoError(t, err)

	before, err := session.LastUsed(ctx)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	require.NoError(t, w.models.Sessions.Touch(ctx, session))

	after, err := session.LastUsed(ctx)
	require.NoError(t, err)
	assert.False(t, after.Before(before))
	assert.NotEqual(t, before, after)
}
