// Package models wires the engine to the game server's concrete entity
// types: users, games and sessions. Each type declares its schema and a
// thin typed facade over the generic entity manager, so the rest of the
// application never touches logical field names or converters directly.
package models

import (
	"context"
	"fmt"
	"net/http"

	"github.com/emberhall/fieldvault/config"
	"github.com/emberhall/fieldvault/docstore"
	"github.com/emberhall/fieldvault/entity"
	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/fvlog"
	"github.com/emberhall/fieldvault/passhash"
	"github.com/emberhall/fieldvault/sharedcache"
)

// Models bundles every entity facade plus the registry owning their
// lifecycle.
type Models struct {
	Users    *Users
	Games    *Games
	Sessions *Sessions
	Registry *entity.Registry
}

// New dials the configured back-ends and wires every entity type. With
// the shared cache disabled in configuration the in-process memory
// back-end takes its place, so single-node deployments need no Redis.
//
// Example:
//
//	cfg, _ := config.Load(log)
//	models, err := models.New(cfg, log)
//	defer models.Close(ctx)
func New(cfg *config.Config, log fvlog.Logger) (*Models, fverrors.Error) {
	if log == nil {
		log = fvlog.New(nil)
	}

	var shared sharedcache.Client

	if cfg.SharedCache.Enable {
		client := sharedcache.NewRedisClient(
			cfg.SharedCache.Host,
			cfg.SharedCache.Port,
			cfg.SharedCache.Password,
			cfg.SharedCache.DB,
			log,
		)
		shared = sharedcache.NewRedis(client, 0, log)
	} else {
		shared = sharedcache.NewMemory(sharedcache.NewMemoryContainer(), 0)
	}

	store := docstore.NewMongo(
		docstore.NewMongoClient(cfg.Store.URI, log),
		cfg.Store.Database,
		log,
	)

	return NewWithClients(shared, store, cfg, log)
}

// NewWithClients wires the entity types over caller-provided tier
// clients. Tests and embedded deployments use it directly.
func NewWithClients(
	shared sharedcache.Client,
	store docstore.Store,
	cfg *config.Config,
	log fvlog.Logger,
) (*Models, fverrors.Error) {
	if log == nil {
		log = fvlog.New(nil)
	}

	registry := entity.NewRegistry(shared, store, log)
	hasher := passhash.New(cfg.Engine.PasswordHashRounds)

	base := entity.ManagerConfig{
		Shared:        shared,
		Store:         store,
		Log:           log,
		TTL:           cfg.SharedCache.TTL,
		ExistsTTL:     cfg.Engine.ExistsProbeTTL,
		LocalDefault:  cfg.Engine.LocalCacheDefault,
		SharedDefault: cfg.Engine.SharedCacheDefault,
	}

	users, err := NewUsers(base, hasher)
	if err != nil {
		return nil, err.Wrap("wire models")
	}

	games, err := NewGames(base)
	if err != nil {
		return nil, err.Wrap("wire models")
	}

	sessions, err := NewSessions(base)
	if err != nil {
		return nil, err.Wrap("wire models")
	}

	for _, manager := range []*entity.Manager{
		users.Manager(),
		games.Manager(),
		sessions.Manager(),
	} {
		if err := registry.Register(manager); err != nil {
			return nil, err.Wrap("wire models")
		}
	}

	return &Models{
		Users:    users,
		Games:    games,
		Sessions: sessions,
		Registry: registry,
	}, nil
}

// Close releases the shared tier clients once.
func (m *Models) Close(ctx context.Context) fverrors.Error {
	return m.Registry.Close(ctx)
}

// getTyped reads one field and asserts its in-memory type. A mismatch is
// a schema wiring bug surfaced as a 500, never a silent zero value.
func getTyped[T any](ctx context.Context, handle *entity.Handle, name string) (T, fverrors.Error) {
	var zero T

	value, err := handle.GetField(ctx, name)
	if err != nil {
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		return zero, fverrors.FromString(
			http.StatusInternalServerError,
			fmt.Sprintf("field %s holds %T, want %T", name, value, zero),
		)
	}

	return typed, nil
}
