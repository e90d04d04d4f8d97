package passhash_test

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberhall/fieldvault/passhash"
)

func TestHashVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	hasher := passhash.New(bcrypt.MinCost)

	hash, err := hasher.Hash("hunter42")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, hasher.Verify("hunter42", hash))
	assert.False(t, hasher.Verify("hunter43", hash))
}

func TestVerify_MalformedHashIsMismatch(t *testing.T) {
	t.Parallel()

	hasher := passhash.New(0)

	assert.False(t, hasher.Verify("hunter42", "not-a-bcrypt-hash"))
	assert.False(t, hasher.Verify("hunter42", ""))
}

func TestNew_ClampsRounds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, passhash.DefaultRounds, passhash.New(0).Rounds())
	assert.Equal(t, bcrypt.MinCost, passhash.New(1).Rounds())
	assert.Equal(t, bcrypt.MaxCost, passhash.New(99).Rounds())
}
