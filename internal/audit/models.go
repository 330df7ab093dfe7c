// Package audit records registrar state transitions as an append-only trail.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies events for routing and retention.
type EventCategory string

const (
	// CategoryFinancial covers events that move funds.
	CategoryFinancial EventCategory = "financial"
	// CategoryOwnership covers changes to who controls a name or the registry.
	CategoryOwnership EventCategory = "ownership"
	// CategoryOperations covers routine configuration and record edits.
	CategoryOperations EventCategory = "operations"
)

// AuditEvent names an action.
type AuditEvent string

const (
	EventRegistryInitialized AuditEvent = "registry_initialized"
	EventPriceUpdated        AuditEvent = "price_updated"
	EventGracePeriodUpdated  AuditEvent = "grace_period_updated"
	EventFeesWithdrawn       AuditEvent = "fees_withdrawn"

	EventDomainRegistered  AuditEvent = "domain_registered"
	EventDomainRenewed     AuditEvent = "domain_renewed"
	EventDomainBought      AuditEvent = "domain_bought"
	EventDomainTransferred AuditEvent = "domain_transferred"
	EventAddressesUpdated  AuditEvent = "addresses_updated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventFeesWithdrawn: CategoryFinancial,
	EventDomainRenewed: CategoryFinancial,

	EventRegistryInitialized: CategoryOwnership,
	EventDomainRegistered:    CategoryOwnership,
	EventDomainBought:        CategoryOwnership,
	EventDomainTransferred:   CategoryOwnership,
}

// Category returns the category for the event, defaulting to operations.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}

// Event captures one transition. Identity fields are base58 strings so the
// event serializes the same way in every sink.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	Domain    string        `json:"domain,omitempty"`

	// Actor is the signer that authorized the operation.
	Actor     string `json:"actor,omitempty"`
	Payer     string `json:"payer,omitempty"`
	Owner     string `json:"owner,omitempty"`
	PrevOwner string `json:"prev_owner,omitempty"`
	Years     uint64 `json:"years,omitempty"`
	// Amount is in lamports: a fee for paid operations, the sweep for withdrawals.
	Amount    uint64 `json:"amount,omitempty"`
	OldExpiry int64  `json:"old_expiry,omitempty"`
	NewExpiry int64  `json:"new_expiry,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
