package docstore

import "errors"

var (
	ErrFailedToFind   = errors.New("[STORE] failed to find document")
	ErrFailedToInsert = errors.New("[STORE] failed to insert document")
	ErrFailedToUpdate = errors.New("[STORE] failed to update document")
	ErrFailedToDelete = errors.New("[STORE] failed to delete document")
	ErrFailedToPing   = errors.New("[STORE] failed to ping backend")
	ErrFailedToClose  = errors.New("[STORE] failed to close backend")
	ErrEmptyUpdate    = errors.New("[STORE] update sets and unsets nothing")
	ErrBadInsertedID  = errors.New("[STORE] inserted id is not an identity")
)
