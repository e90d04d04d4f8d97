package sharedcache

import "errors"

var (
	ErrFailedToGet    = errors.New("[SHARED] failed to get value")
	ErrFailedToMGet   = errors.New("[SHARED] failed to get values")
	ErrFailedToSet    = errors.New("[SHARED] failed to set value")
	ErrFailedToMSet   = errors.New("[SHARED] failed to set values")
	ErrFailedToCount  = errors.New("[SHARED] failed to count keys")
	ErrFailedToDelete = errors.New("[SHARED] failed to delete keys")
	ErrFailedToScan   = errors.New("[SHARED] failed to scan keys")
	ErrFailedToPing   = errors.New("[SHARED] failed to ping backend")
	ErrFailedToClose  = errors.New("[SHARED] failed to close backend")

	ErrBadKeyPattern = errors.New("[MEMORY] malformed key pattern")
)
