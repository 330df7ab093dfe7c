package models

import (
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

// RegistryConfig is the singleton holding administrative parameters.
//
// Invariants:
//   - Exactly one instance exists, at the address derived from the "state" seed
//   - Authority is set once at initialization and never changes
//   - BasePriceUsdCents > 0 and GracePeriodSeconds > 0
//   - DomainsRegistered never decreases
type RegistryConfig struct {
	Authority          domain.Identity `json:"authority"`
	BasePriceUsdCents  uint64          `json:"base_price_usd_cents"`
	GracePeriodSeconds int64           `json:"grace_period_seconds"`
	DomainsRegistered  uint64          `json:"domains_registered"`
}

// NewRegistryConfig validates and builds the initial configuration.
func NewRegistryConfig(authority domain.Identity, basePriceUsdCents uint64, gracePeriodSeconds int64) (*RegistryConfig, error) {
	if authority.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "authority is required")
	}
	if err := ValidatePrice(basePriceUsdCents); err != nil {
		return nil, err
	}
	if err := ValidateGracePeriod(gracePeriodSeconds); err != nil {
		return nil, err
	}
	return &RegistryConfig{
		Authority:          authority,
		BasePriceUsdCents:  basePriceUsdCents,
		GracePeriodSeconds: gracePeriodSeconds,
	}, nil
}

// IsAuthority reports whether id is the administrative identity.
func (c *RegistryConfig) IsAuthority(id domain.Identity) bool {
	return c.Authority == id
}

// ApplyPrice replaces the base price. Call ValidatePrice first.
func (c *RegistryConfig) ApplyPrice(basePriceUsdCents uint64) {
	c.BasePriceUsdCents = basePriceUsdCents
}

// ApplyGracePeriod replaces the grace period. Call ValidateGracePeriod first.
func (c *RegistryConfig) ApplyGracePeriod(seconds int64) {
	c.GracePeriodSeconds = seconds
}

// RecordRegistration counts a newly allocated domain. Reclaimed domains are
// not new and must not be counted.
func (c *RegistryConfig) RecordRegistration() {
	c.DomainsRegistered++
}

func ValidatePrice(basePriceUsdCents uint64) error {
	if basePriceUsdCents == 0 {
		return dErrors.New(dErrors.CodeInvalidPrice, "base price must be positive")
	}
	return nil
}

func ValidateGracePeriod(seconds int64) error {
	if seconds <= 0 {
		return dErrors.New(dErrors.CodeInvalidGracePeriod, "grace period must be positive")
	}
	return nil
}
