package models

import "registrar/pkg/domain"

// Every request names the accounts it touches. A zero account field means
// "derive it"; a non-zero one must match the derivation.

type InitializeRequest struct {
	Authority          domain.Identity `json:"authority"`
	ConfigAccount      domain.Identity `json:"config_account"`
	BasePriceUsdCents  uint64          `json:"base_price_usd_cents"`
	GracePeriodSeconds int64           `json:"grace_period_seconds"`
}

type UpdatePriceRequest struct {
	Authority     domain.Identity `json:"authority"`
	ConfigAccount domain.Identity `json:"config_account"`
	NewPrice      uint64          `json:"new_price"`
}

type UpdateGracePeriodRequest struct {
	Authority          domain.Identity `json:"authority"`
	ConfigAccount      domain.Identity `json:"config_account"`
	GracePeriodSeconds int64           `json:"grace_period_seconds"`
}

type WithdrawRequest struct {
	Caller        domain.Identity `json:"caller"`
	ConfigAccount domain.Identity `json:"config_account"`
}

// RegisterRequest allocates a new name. Payer and Owner may differ.
type RegisterRequest struct {
	Payer         domain.Identity `json:"payer"`
	Name          string          `json:"name"`
	Years         uint64          `json:"years"`
	Addresses     []ChainAddress  `json:"addresses"`
	Owner         domain.Identity `json:"owner"`
	DomainAccount domain.Identity `json:"domain_account"`
	ConfigAccount domain.Identity `json:"config_account"`
	FeedID        string          `json:"feed_id"`
}

// BuyRequest reclaims a lapsed name; same shape as registration.
type BuyRequest RegisterRequest

type RenewRequest struct {
	Payer         domain.Identity `json:"payer"`
	Name          string          `json:"name"`
	Years         uint64          `json:"years"`
	DomainAccount domain.Identity `json:"domain_account"`
	ConfigAccount domain.Identity `json:"config_account"`
	FeedID        string          `json:"feed_id"`
}

type UpdateAddressesRequest struct {
	Owner         domain.Identity `json:"owner"`
	Name          string          `json:"name"`
	DomainAccount domain.Identity `json:"domain_account"`
	Addresses     []ChainAddress  `json:"addresses"`
}

type TransferRequest struct {
	Owner         domain.Identity `json:"owner"`
	Name          string          `json:"name"`
	DomainAccount domain.Identity `json:"domain_account"`
	NewOwner      domain.Identity `json:"new_owner"`
}
