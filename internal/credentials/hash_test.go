package credentials_test

import (
	"strings"
	"testing"

	"github.com/ErlanBelekov/snapdocs/internal/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := credentials.NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("SecurePass123!")
	require.NoError(t, err)
	assert.NotEqual(t, "SecurePass123!", hash, "hash must not be the plaintext")
	assert.True(t, h.Compare(hash, "SecurePass123!"))
	assert.False(t, h.Compare(hash, "securepass123!"))
}

func TestHasher_LongPassword(t *testing.T) {
	h := credentials.NewHasher(bcrypt.MinCost)
	long := "Aa1!" + strings.Repeat("z", 120)

	hash, err := h.Hash(long)
	require.NoError(t, err)
	assert.True(t, h.Compare(hash, long))
	assert.False(t, h.Compare(hash, long[:len(long)-1]+"y"), "bytes past 72 must still matter")
}

func TestHasher_MalformedHash(t *testing.T) {
	h := credentials.NewHasher(bcrypt.MinCost)
	assert.False(t, h.Compare("not-a-bcrypt-hash", "whatever"))
}

func TestNewHasher_OutOfRangeCostFallsBack(t *testing.T) {
	h := credentials.NewHasher(1)
	hash, err := h.Hash("SecurePass123!")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
