// Package envelope authenticates operation submissions. Each signer attaches
// a short-lived EdDSA token bound to the exact operation and arguments; the
// verified signer set is what the registrar treats as "signed the operation".
package envelope

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
)

// MaxLifetime bounds exp - iat of an authorization.
const MaxLifetime = 5 * time.Minute

// Envelope is the body of an operation submission.
type Envelope struct {
	Operation      string          `json:"operation"`
	Args           json.RawMessage `json:"args"`
	Authorizations []string        `json:"authorizations"`
}

// Claims are the authorization token claims. Subject is the signer identity
// in base58; Audience is the program the token is valid for; Op binds the
// token to one operation and argument payload.
type Claims struct {
	Op string `json:"op"`
	jwt.RegisteredClaims
}

// Digest is the hex sha256 of operation, a newline, and the arguments with
// insignificant JSON whitespace removed.
func Digest(operation string, args []byte) string {
	var compact bytes.Buffer
	if err := json.Compact(&compact, args); err == nil {
		args = compact.Bytes()
	}
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{'\n'})
	h.Write(args)
	return hex.EncodeToString(h.Sum(nil))
}

// ReplayGuard records (subject, jti) pairs. MarkUsed returns
// sentinel.ErrAlreadyUsed when the pair was seen within ttl.
type ReplayGuard interface {
	MarkUsed(ctx context.Context, subject, jti string, ttl time.Duration) error
}

type Verifier struct {
	program domain.Identity
	guard   ReplayGuard
	now     func() time.Time
}

type VerifierOption func(*Verifier)

// WithClock overrides the verification clock.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier accepts only authorizations issued for program.
func NewVerifier(program domain.Identity, guard ReplayGuard, opts ...VerifierOption) *Verifier {
	v := &Verifier{program: program, guard: guard, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks every authorization on env and returns the distinct signers.
// One bad authorization rejects the whole envelope.
func (v *Verifier) Verify(ctx context.Context, env *Envelope) ([]domain.Identity, error) {
	if env.Operation == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "operation is required")
	}
	digest := Digest(env.Operation, env.Args)
	seen := make(map[domain.Identity]struct{}, len(env.Authorizations))
	signers := make([]domain.Identity, 0, len(env.Authorizations))
	for _, raw := range env.Authorizations {
		signer, err := v.verifyOne(ctx, raw, digest)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[signer]; dup {
			continue
		}
		seen[signer] = struct{}{}
		signers = append(signers, signer)
	}
	return signers, nil
}

func (v *Verifier) verifyOne(ctx context.Context, raw, digest string) (domain.Identity, error) {
	var signer domain.Identity
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		claims, ok := token.Claims.(*Claims)
		if !ok {
			return nil, jwt.ErrTokenInvalidClaims
		}
		id, err := domain.ParseIdentity(claims.Subject)
		if err != nil {
			return nil, err
		}
		signer = id
		return id.PublicKey(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience(v.program.String()),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "authorization has expired")
		}
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid authorization")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid authorization claims")
	}
	if claims.ID == "" || claims.IssuedAt == nil {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "authorization requires jti and iat")
	}
	if claims.ExpiresAt.Sub(claims.IssuedAt.Time) > MaxLifetime {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "authorization validity window too long")
	}
	if claims.Op != digest {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "authorization does not cover this operation")
	}

	ttl := claims.ExpiresAt.Sub(v.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := v.guard.MarkUsed(ctx, claims.Subject, claims.ID, ttl); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return domain.Identity{}, dErrors.New(dErrors.CodeReplayedAuthorization, "authorization already used")
		}
		return domain.Identity{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "replay guard unavailable")
	}
	return signer, nil
}

// Sign issues an authorization for operation and args on program, valid for
// ttl from now.
func Sign(key ed25519.PrivateKey, program domain.Identity, operation string, args []byte, now time.Time, ttl time.Duration) (string, error) {
	if ttl <= 0 || ttl > MaxLifetime {
		ttl = MaxLifetime
	}
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return "", fmt.Errorf("sign authorization: unexpected public key type")
	}
	signer, err := domain.IdentityFromPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("sign authorization: %w", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, Claims{
		Op: Digest(operation, args),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   signer.String(),
			Audience:  jwt.ClaimStrings{program.String()},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign authorization: %w", err)
	}
	return signed, nil
}

// Seal builds a complete envelope for args on program signed by every key.
func Seal(program domain.Identity, operation string, args any, now time.Time, keys ...ed25519.PrivateKey) (*Envelope, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}
	env := &Envelope{Operation: operation, Args: raw}
	for _, k := range keys {
		tok, err := Sign(k, program, operation, raw, now, MaxLifetime)
		if err != nil {
			return nil, err
		}
		env.Authorizations = append(env.Authorizations, tok)
	}
	return env, nil
}
