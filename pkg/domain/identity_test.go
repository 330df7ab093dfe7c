package domain

import (
	"crypto/ed25519"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "registrar/pkg/domain-errors"
)

func TestParseIdentity_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseIdentity("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseIdentity("3mJr7AoUXx2Wqd")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non base58 characters", func(t *testing.T) {
		_, err := ParseIdentity(strings.Repeat("0", 44))
		require.Error(t, err)
	})

	t.Run("round trips a public key", func(t *testing.T) {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		id, err := IdentityFromPublicKey(pub)
		require.NoError(t, err)

		parsed, err := ParseIdentity(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
		assert.Equal(t, pub, parsed.PublicKey())
		assert.False(t, parsed.IsNil())
	})
}

func TestIdentityJSON(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	id, err := IdentityFromPublicKey(pub)
	require.NoError(t, err)

	raw, err := json.Marshal(map[string]Identity{"owner": id})
	require.NoError(t, err)
	assert.Contains(t, string(raw), id.String())

	var decoded map[string]Identity
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, id, decoded["owner"])

	var bad map[string]Identity
	assert.Error(t, json.Unmarshal([]byte(`{"owner":"xyz"}`), &bad))
}

func TestDeriveAddress(t *testing.T) {
	program := Identity{1, 2, 3}

	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, ConfigAddress(program), ConfigAddress(program))
		assert.Equal(t, DomainAddress(program, "alice"), DomainAddress(program, "alice"))
	})

	t.Run("separates seeds and programs", func(t *testing.T) {
		assert.NotEqual(t, DomainAddress(program, "alice"), DomainAddress(program, "bob"))
		assert.NotEqual(t, DomainAddress(program, "alice"), DomainAddress(Identity{9}, "alice"))
		assert.NotEqual(t, ConfigAddress(program), DomainAddress(program, ""))
	})

	t.Run("rejects oversized seeds", func(t *testing.T) {
		_, err := DeriveAddress(program, make([]byte, MaxSeedLength+1))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("hashes long names", func(t *testing.T) {
		long := strings.Repeat("a", 253)
		assert.Len(t, NameSeed(long), MaxSeedLength)
		assert.Equal(t, []byte("short"), NameSeed("short"))
		assert.NotEqual(t, DomainAddress(program, long), DomainAddress(program, long+"b"))
	})
}
