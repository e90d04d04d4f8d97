package config

import (
	"strings"

	"github.com/emberhall/fieldvault/fvlog"
)

// safetyCheck swaps a nil logger for a working default so the loader never
// has to nil-check at every log site.
func safetyCheck(log *fvlog.Logger) {
	if log == nil {
		return
	}

	if *log == nil {
		*log = fvlog.New(nil)

		(*log).Warn("Logger is nil, using default logger")
	}
}

// toScreamingSnakeCase converts a field name to SCREAMING_SNAKE_CASE.
// "SharedCacheTTL" becomes "SHARED_CACHE_TTL" and "StoreURI" becomes
// "STORE_URI"; acronym runs are kept as one word.
func toScreamingSnakeCase(s string) string {
	s = matchFirstCap.ReplaceAllString(s, "${1}_${2}")
	s = matchAllCap.ReplaceAllString(s, "${1}_${2}")

	return strings.ToUpper(s)
}
