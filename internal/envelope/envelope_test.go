package envelope

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

var (
	now         = time.Unix(1_700_000_000, 0)
	testProgram = domain.Identity{0xAA}
)

func newKey(t *testing.T) (ed25519.PrivateKey, domain.Identity) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	id, err := domain.IdentityFromPublicKey(pub)
	require.NoError(t, err)
	return priv, id
}

func newVerifier() *Verifier {
	return NewVerifier(testProgram, NewMemoryReplayGuard(), WithClock(func() time.Time { return now }))
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	args := map[string]any{"name": "alice", "years": 1}

	t.Run("returns distinct signers", func(t *testing.T) {
		payerKey, payer := newKey(t)
		ownerKey, owner := newKey(t)
		env, err := Seal(testProgram, "register_domain", args, now, payerKey, ownerKey, payerKey)
		require.NoError(t, err)

		signers, err := newVerifier().Verify(ctx, env)
		require.NoError(t, err)
		assert.Equal(t, []domain.Identity{payer, owner}, signers)
	})

	t.Run("reformatted args still verify", func(t *testing.T) {
		key, signer := newKey(t)
		env, err := Seal(testProgram, "renew_domain", args, now, key)
		require.NoError(t, err)
		env.Args = json.RawMessage("{\n  \"name\": \"alice\",\n  \"years\": 1\n}")

		signers, err := newVerifier().Verify(ctx, env)
		require.NoError(t, err)
		assert.Equal(t, []domain.Identity{signer}, signers)
	})

	t.Run("no authorizations yields no signers", func(t *testing.T) {
		env, err := Seal(testProgram, "withdraw_fees", args, now)
		require.NoError(t, err)
		signers, err := newVerifier().Verify(ctx, env)
		require.NoError(t, err)
		assert.Empty(t, signers)
	})

	t.Run("replayed authorization is rejected", func(t *testing.T) {
		key, _ := newKey(t)
		env, err := Seal(testProgram, "renew_domain", args, now, key)
		require.NoError(t, err)
		v := newVerifier()

		_, err = v.Verify(ctx, env)
		require.NoError(t, err)
		_, err = v.Verify(ctx, env)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeReplayedAuthorization))
	})

	t.Run("authorization is bound to its arguments", func(t *testing.T) {
		key, _ := newKey(t)
		env, err := Seal(testProgram, "transfer_domain", args, now, key)
		require.NoError(t, err)
		env.Args = json.RawMessage(`{"name":"bob"}`)

		_, err = newVerifier().Verify(ctx, env)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("authorization is bound to its operation", func(t *testing.T) {
		key, _ := newKey(t)
		env, err := Seal(testProgram, "renew_domain", args, now, key)
		require.NoError(t, err)
		env.Operation = "transfer_domain"

		_, err = newVerifier().Verify(ctx, env)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired authorization is rejected", func(t *testing.T) {
		key, _ := newKey(t)
		env, err := Seal(testProgram, "renew_domain", args, now.Add(-10*time.Minute), key)
		require.NoError(t, err)

		_, err = newVerifier().Verify(ctx, env)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("validity window longer than five minutes is rejected", func(t *testing.T) {
		key, id := newKey(t)
		raw := []byte(`{}`)
		token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, Claims{
			Op: Digest("withdraw_fees", raw),
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   id.String(),
				Audience:  jwt.ClaimStrings{testProgram.String()},
				ID:        "nonce",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		})
		signed, err := token.SignedString(key)
		require.NoError(t, err)

		_, err = newVerifier().Verify(ctx, &Envelope{Operation: "withdraw_fees", Args: raw, Authorizations: []string{signed}})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("subject must match signing key", func(t *testing.T) {
		key, _ := newKey(t)
		_, other := newKey(t)
		raw := []byte(`{}`)
		token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, Claims{
			Op: Digest("withdraw_fees", raw),
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   other.String(),
				Audience:  jwt.ClaimStrings{testProgram.String()},
				ID:        "nonce",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		})
		signed, err := token.SignedString(key)
		require.NoError(t, err)

		_, err = newVerifier().Verify(ctx, &Envelope{Operation: "withdraw_fees", Args: raw, Authorizations: []string{signed}})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("authorization for another program is rejected", func(t *testing.T) {
		key, _ := newKey(t)
		env, err := Seal(domain.Identity{0xBB}, "renew_domain", args, now, key)
		require.NoError(t, err)

		_, err = newVerifier().Verify(ctx, env)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("operation is required", func(t *testing.T) {
		_, err := newVerifier().Verify(ctx, &Envelope{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestMemoryReplayGuardExpiry(t *testing.T) {
	ctx := context.Background()
	clock := now
	g := NewMemoryReplayGuard()
	g.clock = func() time.Time { return clock }

	require.NoError(t, g.MarkUsed(ctx, "sub", "jti", time.Minute))
	require.Error(t, g.MarkUsed(ctx, "sub", "jti", time.Minute))
	require.NoError(t, g.MarkUsed(ctx, "other", "jti", time.Minute))

	clock = clock.Add(2 * time.Minute)
	assert.NoError(t, g.MarkUsed(ctx, "sub", "jti", time.Minute))
}
