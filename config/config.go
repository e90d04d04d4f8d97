// Package config loads the engine configuration from the environment.
// Field names map to SCREAMING_SNAKE_CASE variables with nested structs as
// prefixes, so the full key set is discoverable from the Config type alone.
package config

import (
	"fmt"
	"time"

	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/fvlog"
)

// Config is the full engine configuration.
type Config struct {
	SharedCache SharedCacheConfig
	Store       StoreConfig
	Engine      EngineConfig
	LogLevel    fvlog.Level `default:"info"`
}

// SharedCacheConfig configures the Redis tier. Enable false swaps the
// process-local memory backend in, which suits tests and single-node runs.
type SharedCacheConfig struct {
	Enable   bool   `default:"true"`
	Host     string `default:"127.0.0.1"`
	Port     uint16 `default:"6379"`
	Password string
	DB       int
	TTL      time.Duration `default:"60s"`
}

// StoreConfig configures the authoritative document store.
type StoreConfig struct {
	URI      string `default:"mongodb://127.0.0.1:27017"`
	Database string `default:"fieldvault"`
}

// EngineConfig carries the engine-wide knobs: the existence-probe TTL, the
// bcrypt cost, and the default cache participation of fields whose schema
// leaves the toggles unset.
type EngineConfig struct {
	ExistsProbeTTL     time.Duration `default:"60s"`
	PasswordHashRounds int           `default:"10"`
	LocalCacheDefault  bool          `default:"true"`
	SharedCacheDefault bool          `default:"true"`
}

// Load reads the configuration from the environment.
func Load(log fvlog.Logger) (*Config, fverrors.Error) {
	var cfg Config

	if err := LoadStructFromEnv(&cfg, log); err != nil {
		return nil, err.Wrap("load engine config")
	}

	return &cfg, nil
}

// Addr renders the shared cache host and port as a dialable address.
func (c *SharedCacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
