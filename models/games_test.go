package models_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberhall/fieldvault/ident"
	"github.com/emberhall/fieldvault/models"
)

func TestGamesCreate_StartsAtStageZero(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := setup(t)
	owner := ident.New()

	game, err := w.models.Games.Create(ctx, models.NewGame{
		Name:    "  Arena   of  Ten ",
		OwnerID: owner,
	})
	require.NoError(t, err)

	name, err := game.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Arena of Ten", name)

	stage, err := game.Stage(ctx)
	require.NoError(t, err)
	assert.Zero(t, stage)

	running, err := game.Running(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	gotOwner, err := game.OwnerID(ctx)
	require.NoError(t, err)
	assert.Equal(t, owner, gotOwner)
}

func TestGamesCreate_RejectsBadName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := setup(t)

	_, err := w.models.Games.Create(ctx, models.NewGame{Name: " leading space"})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestGameSettings_SurviveTierBoundaries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := setup(t)

	settings := map[string]any{
		"mode":       "arena",
		"maxPlayers": int64(8),
		"friendly":   true,
	}

	game, err := w.models.Games.Create(ctx, models.NewGame{
		Name:     "Arena",
		OwnerID:  ident.New(),
		Settings: settings,
	})
	require.NoError(t, err)

	// A second model set over the same tiers has no warm local cache, so
	// this read decodes the packed wire form.
	other := w.second(t).Games.ByID(game.ID())

	loaded, err := other.Settings(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(settings, loaded))
}

func TestGameSetters_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := setup(t)

	game, err := w.models.Games.Create(ctx, models.NewGame{Name: "Arena", OwnerID: ident.New()})
	require.NoError(t, err)

	require.NoError(t, game.SetStage(ctx, 2))
	require.NoError(t, game.SetRunning(ctx, true))
	require.NoError(t, game.SetName(ctx, "Arena2"))

	found, err := w.models.Games.FindByName(ctx, "Arena2")
	require.NoError(t, err)
	assert.Equal(t, game.ID(), found.ID())

	stage, err := found.Stage(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stage)

	running, err := found.Running(ctx)
	require.NoError(t, err)
	assert.True(t, running)
}
