package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap keeps the tests fast; production uses DefaultParams.
var cheap = Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8}

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(cheap)

	digest, err := h.Hash("hunter2")
	require.NoError(t, err)

	assert.True(t, h.Verify(digest, "hunter2"))
	assert.False(t, h.Verify(digest, "hunter3"))
	assert.False(t, h.Verify(digest, ""))
}

func TestHasher_SaltsDiffer(t *testing.T) {
	h := NewHasher(cheap)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHasher_MalformedDigest(t *testing.T) {
	h := NewHasher(cheap)

	for _, digest := range []string{"", "nocolon", "!!!:abc", "abc:!!!"} {
		assert.False(t, h.Verify(digest, "x"), digest)
	}
}
