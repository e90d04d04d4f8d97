package models

import (
	"context"
	"net/http"
	"time"

	"github.com/emberhall/fieldvault/convert"
	"github.com/emberhall/fieldvault/entity"
	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/ident"
	"github.com/emberhall/fieldvault/schema"
	"github.com/emberhall/fieldvault/validate"
)

// GameCollection is the authoritative collection of the game type.
const GameCollection = "game"

// Logical field names of the game type.
const (
	GameFieldName       = "name"
	GameFieldOwnerID    = "ownerId"
	GameFieldStage      = "stage"
	GameFieldRunning    = "running"
	GameFieldSettings   = "settings"
	GameFieldCreateDate = "createDate"
)

// GameSchema declares the game type's field layout. Settings are a free
// structured blob; they cross both tier boundaries in the same packed
// wire form, so the two back-ends agree on the stored bytes.
func GameSchema() (*schema.Schema, fverrors.Error) {
	return schema.New(GameCollection, []schema.Definition{
		{Name: GameFieldName},
		{Name: GameFieldOwnerID, Field: schema.Field{StoreName: "owner_id"}},
		{Name: GameFieldStage, Field: schema.Field{SharedConv: convert.Int()}},
		{Name: GameFieldRunning, Field: schema.Field{SharedConv: convert.Bool()}},
		{Name: GameFieldSettings, Field: schema.Field{
			SharedConv: convert.Blob(),
			StoreConv:  convert.Blob(),
		}},
		{Name: GameFieldCreateDate, Field: schema.Field{
			SharedConv: convert.Time(),
			StoreConv:  convert.TimeDoc(),
		}},
	})
}

// Games is the typed facade over the game entity manager.
type Games struct {
	manager *entity.Manager
}

// NewGames builds the game manager from the deployment-wide base config.
func NewGames(base entity.ManagerConfig) (*Games, fverrors.Error) {
	gameSchema, err := GameSchema()
	if err != nil {
		return nil, err.Wrap("new games")
	}

	base.Schema = gameSchema
	base.Uncached = nil

	manager, err := entity.NewManager(base)
	if err != nil {
		return nil, err.Wrap("new games")
	}

	return &Games{manager: manager}, nil
}

// Manager exposes the underlying entity manager.
func (g *Games) Manager() *entity.Manager {
	return g.manager
}

// ByID returns the typed handle of an identity.
func (g *Games) ByID(id ident.ID) *Game {
	return &Game{g.manager.Handle(id)}
}

// NewGame carries the inputs of game creation.
type NewGame struct {
	Name     string
	OwnerID  ident.ID
	Settings map[string]any
}

// Create validates the game name and inserts a fresh game at stage zero.
//
// Example:
//
//	game, err := games.Create(ctx, models.NewGame{Name: "Arena", OwnerID: owner})
func (g *Games) Create(ctx context.Context, input NewGame) (*Game, fverrors.Error) {
	if !validate.IsValid(validate.GameName, input.Name) {
		return nil, fverrors.FromError(
			http.StatusBadRequest,
			ErrInvalidInput,
			"create game: field name",
		)
	}

	settings := input.Settings
	if settings == nil {
		settings = map[string]any{}
	}

	handle, err := g.manager.Create(ctx, map[string]any{
		GameFieldName:       validate.Format(validate.GameName, input.Name),
		GameFieldOwnerID:    input.OwnerID.Hex(),
		GameFieldStage:      int64(0),
		GameFieldRunning:    false,
		GameFieldSettings:   settings,
		GameFieldCreateDate: time.Now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		return nil, err.Wrap("create game")
	}

	return &Game{handle}, nil
}

// FindByName resolves a game by its formatted name.
func (g *Games) FindByName(ctx context.Context, name string) (*Game, fverrors.Error) {
	handle, err := g.manager.FindByUniqueField(
		ctx,
		GameFieldName,
		validate.Format(validate.GameName, name),
	)
	if err != nil {
		return nil, err.Wrap("find game by name")
	}

	return &Game{handle}, nil
}

// Game is the typed handle of one game row.
type Game struct {
	*entity.Handle
}

// Name returns the game's name.
func (h *Game) Name(ctx context.Context) (string, fverrors.Error) {
	return getTyped[string](ctx, h.Handle, GameFieldName)
}

// SetName validates, formats and stores a new game name.
func (h *Game) SetName(ctx context.Context, name string) fverrors.Error {
	if !validate.IsValid(validate.GameName, name) {
		return fverrors.FromError(http.StatusBadRequest, ErrInvalidInput, "set game name")
	}

	return h.SetField(ctx, GameFieldName, validate.Format(validate.GameName, name))
}

// OwnerID returns the identity of the game's owner.
func (h *Game) OwnerID(ctx context.Context) (ident.ID, fverrors.Error) {
	hex, err := getTyped[string](ctx, h.Handle, GameFieldOwnerID)
	if err != nil {
		return ident.Nil, err
	}

	id, parseErr := ident.Parse(hex)
	if parseErr != nil {
		return ident.Nil, parseErr.Wrap("game owner")
	}

	return id, nil
}

// Stage returns the game's current stage.
func (h *Game) Stage(ctx context.Context) (int64, fverrors.Error) {
	return getTyped[int64](ctx, h.Handle, GameFieldStage)
}

// SetStage stores the game's stage.
func (h *Game) SetStage(ctx context.Context, stage int64) fverrors.Error {
	return h.SetField(ctx, GameFieldStage, stage)
}

// Running reports whether the game is live.
func (h *Game) Running(ctx context.Context) (bool, fverrors.Error) {
	return getTyped[bool](ctx, h.Handle, GameFieldRunning)
}

// SetRunning stores the live flag.
func (h *Game) SetRunning(ctx context.Context, running bool) fverrors.Error {
	return h.SetField(ctx, GameFieldRunning, running)
}

// Settings returns the game's structured settings blob.
func (h *Game) Settings(ctx context.Context) (map[string]any, fverrors.Error) {
	return getTyped[map[string]any](ctx, h.Handle, GameFieldSettings)
}

// SetSettings stores the settings blob.
func (h *Game) SetSettings(ctx context.Context, settings map[string]any) fverrors.Error {
	return h.SetField(ctx, GameFieldSettings, settings)
}

// CreateDate returns when the game was created.
func (h *Game) CreateDate(ctx context.Context) (time.Time, fverrors.Error) {
	return getTyped[time.Time](ctx, h.Handle, GameFieldCreateDate)
}
