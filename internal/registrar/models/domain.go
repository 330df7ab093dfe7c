package models

import (
	"math"

	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

const (
	MaxDomainLength  = 253
	MaxAddresses     = 10
	MaxAddressLength = 64
	MinYears         = 1
	MaxYears         = 99

	// SecondsPerYear is a fixed 365-day year.
	SecondsPerYear int64 = 31_536_000
)

// ChainAddress binds the domain to an address on another chain.
type ChainAddress struct {
	ChainID uint8  `json:"chain_id"`
	Address string `json:"address"`
}

// DomainRecord is the per-name aggregate.
//
// Invariants:
//   - DomainName is 1..253 bytes and never changes
//   - Owner changes only through register, transfer or buy
//   - ExpiryTimestamp never decreases except when a reclaimable record is bought
//   - Addresses holds at most 10 entries, each at most 64 bytes; duplicate chain
//     ids are kept in the order given
//   - Records are never deleted
type DomainRecord struct {
	DomainName            string          `json:"domain_name"`
	Owner                 domain.Identity `json:"owner"`
	ExpiryTimestamp       int64           `json:"expiry_timestamp"`
	RegistrationTimestamp int64           `json:"registration_timestamp"`
	Addresses             []ChainAddress  `json:"addresses"`
}

// NewDomainRecord builds a freshly registered record.
func NewDomainRecord(name string, owner domain.Identity, addresses []ChainAddress, now int64, years uint64) (*DomainRecord, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateAddresses(addresses); err != nil {
		return nil, err
	}
	expiry, err := ExpiryAfter(now, years)
	if err != nil {
		return nil, err
	}
	return &DomainRecord{
		DomainName:            name,
		Owner:                 owner,
		ExpiryTimestamp:       expiry,
		RegistrationTimestamp: now,
		Addresses:             cloneAddresses(addresses),
	}, nil
}

func (r *DomainRecord) IsOwner(id domain.Identity) bool {
	return r.Owner == id
}

// IsExpired reports whether now is past the expiry instant.
func (r *DomainRecord) IsExpired(now int64) bool {
	return now > r.ExpiryTimestamp
}

// CanBuy requires the record to be reclaimable.
func (r *DomainRecord) CanBuy(now, gracePeriodSeconds int64) error {
	if Classify(r, now, gracePeriodSeconds) != StateReclaimable {
		return dErrors.New(dErrors.CodeDomainNotAvailableForPurchase,
			"domain is not available for purchase, must be expired and beyond grace period")
	}
	return nil
}

// ApplyBuy reassigns a reclaimed record as if newly registered at now.
func (r *DomainRecord) ApplyBuy(owner domain.Identity, addresses []ChainAddress, now int64, years uint64) error {
	expiry, err := ExpiryAfter(now, years)
	if err != nil {
		return err
	}
	r.Owner = owner
	r.Addresses = cloneAddresses(addresses)
	r.RegistrationTimestamp = now
	r.ExpiryTimestamp = expiry
	return nil
}

// CanRenew allows renewal while active or in grace.
func (r *DomainRecord) CanRenew(now, gracePeriodSeconds int64) error {
	if Classify(r, now, gracePeriodSeconds) == StateReclaimable {
		return dErrors.New(dErrors.CodeDomainExpiredBeyondGracePeriod,
			"domain is expired beyond grace period, use buy instead")
	}
	return nil
}

// ApplyRenew extends expiry from its current value, not from now.
func (r *DomainRecord) ApplyRenew(years uint64) (oldExpiry, newExpiry int64, err error) {
	newExpiry, err = ExpiryAfter(r.ExpiryTimestamp, years)
	if err != nil {
		return 0, 0, err
	}
	oldExpiry = r.ExpiryTimestamp
	r.ExpiryTimestamp = newExpiry
	return oldExpiry, newExpiry, nil
}

// CanTransfer requires the caller to own an unexpired record.
func (r *DomainRecord) CanTransfer(caller domain.Identity, now int64) error {
	if !r.IsOwner(caller) {
		return dErrors.New(dErrors.CodeNotDomainOwner, "only the domain owner can perform this action")
	}
	if r.IsExpired(now) {
		return dErrors.New(dErrors.CodeDomainExpired, "domain is expired")
	}
	return nil
}

func (r *DomainRecord) ApplyTransfer(newOwner domain.Identity) {
	r.Owner = newOwner
}

// CanUpdateAddresses requires the caller to own the record. Until a buy
// reclaims it the owner keeps this right in every state.
func (r *DomainRecord) CanUpdateAddresses(caller domain.Identity) error {
	if !r.IsOwner(caller) {
		return dErrors.New(dErrors.CodeNotDomainOwner, "only the domain owner can perform this action")
	}
	return nil
}

// ApplyAddresses replaces the address list wholesale.
func (r *DomainRecord) ApplyAddresses(addresses []ChainAddress) {
	r.Addresses = cloneAddresses(addresses)
}

func ValidateName(name string) error {
	if len(name) == 0 || len(name) > MaxDomainLength {
		return dErrors.New(dErrors.CodeInvalidDomainLength, "invalid domain name length")
	}
	return nil
}

func ValidateYears(years uint64) error {
	if years < MinYears || years > MaxYears {
		return dErrors.New(dErrors.CodeInvalidRegisterYears, "invalid number of years for registration")
	}
	return nil
}

func ValidateAddresses(addresses []ChainAddress) error {
	if len(addresses) > MaxAddresses {
		return dErrors.New(dErrors.CodeTooManyAddresses, "too many addresses, maximum allowed is 10")
	}
	for _, a := range addresses {
		if len(a.Address) > MaxAddressLength {
			return dErrors.New(dErrors.CodeInvalidAddress, "chain address exceeds 64 bytes")
		}
	}
	return nil
}

// ExpiryAfter returns from + years*SecondsPerYear, failing on overflow.
func ExpiryAfter(from int64, years uint64) (int64, error) {
	if err := ValidateYears(years); err != nil {
		return 0, err
	}
	delta := int64(years) * SecondsPerYear
	if from > math.MaxInt64-delta {
		return 0, dErrors.New(dErrors.CodeMathOverflow, "expiry timestamp overflow")
	}
	return from + delta, nil
}

func cloneAddresses(in []ChainAddress) []ChainAddress {
	if in == nil {
		return []ChainAddress{}
	}
	out := make([]ChainAddress, len(in))
	copy(out, in)
	return out
}
