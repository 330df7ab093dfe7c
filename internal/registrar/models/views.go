package models

import "registrar/pkg/domain"

// PaymentReceipt is returned by the paid operations.
type PaymentReceipt struct {
	Domain        *DomainRecord   `json:"domain"`
	DomainAccount domain.Identity `json:"domain_account"`
	FeeLamports   uint64          `json:"fee_lamports"`
	// ReserveLamports is the storage reserve funded for a new record.
	ReserveLamports uint64 `json:"reserve_lamports,omitempty"`
}

// RenewReceipt carries the expiry change of a renewal.
type RenewReceipt struct {
	PaymentReceipt
	OldExpiry int64 `json:"old_expiry"`
	NewExpiry int64 `json:"new_expiry"`
}

type WithdrawResult struct {
	Destination domain.Identity `json:"destination"`
	Lamports    uint64          `json:"lamports"`
}

// DomainView is a record with its state computed at read time.
type DomainView struct {
	Record  *DomainRecord   `json:"record"`
	Account domain.Identity `json:"account"`
	State   State           `json:"state"`
}

type ConfigView struct {
	Config               *RegistryConfig `json:"config"`
	Account              domain.Identity `json:"account"`
	BalanceLamports      uint64          `json:"balance_lamports"`
	WithdrawableLamports uint64          `json:"withdrawable_lamports"`
}

type QuoteView struct {
	Years             uint64 `json:"years"`
	BasePriceUsdCents uint64 `json:"base_price_usd_cents"`
	Lamports          uint64 `json:"lamports"`
	FeedID            string `json:"feed_id"`
	PublishTime       int64  `json:"publish_time"`
}

// AccountAddresses lists the derived accounts an operation on name touches.
type AccountAddresses struct {
	Program       domain.Identity `json:"program"`
	ConfigAccount domain.Identity `json:"config_account"`
	DomainAccount domain.Identity `json:"domain_account"`
}
