package config

import (
	"os"

	"github.com/emberhall/fieldvault/fvlog"
)

// GetEnv retrieves an environment variable parsed into T, falling back to
// the given value when the variable is missing or unparsable. A required
// variable that is missing terminates the process through the logger.
//
// Example usage:
//
//	ttl := config.GetEnv("SHARED_CACHE_TTL", 60*time.Second, false, log)
func GetEnv[T Parsable](
	key string,
	fallback T,
	required bool,
	log fvlog.Logger,
) T {
	safetyCheck(&log)

	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := ParseValue[T](value); err == nil {
			return parsed
		}
	}

	if required {
		log.Fatalf("Environment variable %s is required", key)
	}

	log.Warnf(
		"Environment variable %s is not set or failed to parse, using default value %v",
		key,
		fallback,
	)

	return fallback
}
