package domain

import (
	"crypto/sha256"

	dErrors "registrar/pkg/domain-errors"
)

const (
	// MaxSeedLength is the per-seed byte limit for address derivation.
	MaxSeedLength = 32

	derivationMarker = "ProgramDerivedAddress"

	configSeed = "state"
	domainSeed = "domain"
)

// DeriveAddress computes the account address owned by program for the given
// seeds: sha256(seed_0 || ... || seed_n || program || "ProgramDerivedAddress").
// Seeds longer than MaxSeedLength are rejected.
func DeriveAddress(program Identity, seeds ...[]byte) (Identity, error) {
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "address seed exceeds 32 bytes")
		}
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write([]byte(derivationMarker))

	var addr Identity
	copy(addr[:], h.Sum(nil))
	return addr, nil
}

// ConfigAddress is the address of the registry configuration singleton.
func ConfigAddress(program Identity) Identity {
	// a fixed short seed cannot fail derivation
	addr, _ := DeriveAddress(program, []byte(configSeed))
	return addr
}

// DomainAddress is the address of the record for name. Names longer than one
// seed are hashed down to 32 bytes first.
func DomainAddress(program Identity, name string) Identity {
	addr, _ := DeriveAddress(program, []byte(domainSeed), NameSeed(name))
	return addr
}

// NameSeed returns the seed bytes used for a domain name.
func NameSeed(name string) []byte {
	if len(name) <= MaxSeedLength {
		return []byte(name)
	}
	sum := sha256.Sum256([]byte(name))
	return sum[:]
}
