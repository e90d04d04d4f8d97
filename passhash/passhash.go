// Package passhash wraps bcrypt for user credentials. Hashing lives
// behind a Hasher value so the cost factor comes from configuration once
// instead of being repeated at every call site.
package passhash

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/emberhall/fieldvault/fverrors"
)

// DefaultRounds is the bcrypt cost used when the configuration does not
// say otherwise.
const DefaultRounds = 10

// Hasher hashes and verifies passwords at a fixed bcrypt cost.
type Hasher struct {
	rounds int
}

// New builds a Hasher, clamping the cost into bcrypt's legal range. A
// non-positive cost selects DefaultRounds.
func New(rounds int) Hasher {
	switch {
	case rounds <= 0:
		rounds = DefaultRounds
	case rounds < bcrypt.MinCost:
		rounds = bcrypt.MinCost
	case rounds > bcrypt.MaxCost:
		rounds = bcrypt.MaxCost
	}

	return Hasher{rounds: rounds}
}

// Rounds returns the effective bcrypt cost.
func (h Hasher) Rounds() int {
	return h.rounds
}

// Hash derives the stored hash of a plaintext password.
//
// Example:
//
//	hash, err := hasher.Hash("hunter42")
func (h Hasher) Hash(plain string) (string, fverrors.Error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.rounds)
	if err != nil {
		return "", fverrors.FromError(
			http.StatusInternalServerError,
			err,
			"hash password",
		)
	}

	return string(hash), nil
}

// Verify reports whether the plaintext matches the stored hash. A
// malformed hash is a mismatch, never a panic, so a corrupted row cannot
// take a login path down.
//
// Example:
//
//	if hasher.Verify("hunter42", storedHash) { ... }
func (h Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
