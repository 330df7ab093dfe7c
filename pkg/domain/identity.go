// Package domain holds the ledger primitives shared by every layer: identities
// (public keys and derived account addresses) and the derivation rule that ties
// program-owned accounts to their seeds.
package domain

import (
	"bytes"
	"crypto/ed25519"

	"github.com/btcsuite/btcd/btcutil/base58"

	dErrors "registrar/pkg/domain-errors"
)

// IdentitySize is the byte length of a public key or account address.
const IdentitySize = 32

// Identity is a 32-byte ed25519 public key or a program-derived account
// address. Its canonical text form is base58.
type Identity [IdentitySize]byte

// ParseIdentity decodes a base58 identity.
// Returns CodeInvalidInput if the text does not decode to exactly 32 bytes.
func ParseIdentity(s string) (Identity, error) {
	if s == "" {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "identity cannot be empty")
	}
	raw := base58.Decode(s)
	if len(raw) != IdentitySize {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "identity must decode to 32 bytes")
	}
	var id Identity
	copy(id[:], raw)
	return id, nil
}

// MustParseIdentity is ParseIdentity for constants and tests.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IdentityFromPublicKey converts an ed25519 public key.
func IdentityFromPublicKey(pub ed25519.PublicKey) (Identity, error) {
	if len(pub) != ed25519.PublicKeySize {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "public key must be 32 bytes")
	}
	var id Identity
	copy(id[:], pub)
	return id, nil
}

// PublicKey returns the identity as an ed25519 verification key.
func (id Identity) PublicKey() ed25519.PublicKey {
	return ed25519.PublicKey(bytes.Clone(id[:]))
}

func (id Identity) String() string {
	return base58.Encode(id[:])
}

// IsNil reports whether the identity is all zeros.
func (id Identity) IsNil() bool {
	return id == Identity{}
}

// Bytes returns a copy of the raw key bytes.
func (id Identity) Bytes() []byte {
	return bytes.Clone(id[:])
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
