package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/emberhall/fieldvault/config"
	"github.com/emberhall/fieldvault/docstore"
	"github.com/emberhall/fieldvault/fvlog"
	"github.com/emberhall/fieldvault/models"
	"github.com/emberhall/fieldvault/sharedcache"
)

// world is one wired model set over in-process tiers, plus direct access
// to those tiers for assertions.
type world struct {
	models *models.Models
	shared sharedcache.Client
	store  *docstore.Memory
}

func setup(t *testing.T) *world {
	t.Helper()

	shared := sharedcache.NewMemory(sharedcache.NewMemoryContainer(), time.Minute)
	t.Cleanup(func() { _ = shared.Close() })

	store := docstore.NewMemory()

	cfg := &config.Config{
		SharedCache: config.SharedCacheConfig{TTL: time.Minute},
		Engine: config.EngineConfig{
			ExistsProbeTTL:     time.Minute,
			PasswordHashRounds: bcrypt.MinCost,
			LocalCacheDefault:  true,
			SharedCacheDefault: true,
		},
	}

	wired, err := models.NewWithClients(shared, store, cfg, fvlog.NewNop())
	require.NoError(t, err)

	return &world{
		models: wired,
		shared: shared,
		store:  store,
	}
}

// second wires a fresh model set over the same tiers, modelling another
// process of the same deployment.
func (w *world) second(t *testing.T) *models.Models {
	t.Helper()

	cfg := &config.Config{
		SharedCache: config.SharedCacheConfig{TTL: time.Minute},
		Engine: config.EngineConfig{
			ExistsProbeTTL:     time.Minute,
			PasswordHashRounds: bcrypt.MinCost,
			LocalCacheDefault:  true,
			SharedCacheDefault: true,
		},
	}

	wired, err := models.NewWithClients(w.shared, w.store, cfg, fvlog.NewNop())
	require.NoError(t, err)

	return wired
}
