package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Ledger stores and infrastructure
// layers return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about accounts, not validation failures:
// - ErrNotFound: account does not exist in the store
// - ErrAlreadyExists: account already allocated at that address
// - ErrAlreadyUsed: one-shot value (authorization nonce) already consumed
// - ErrInsufficientFunds: source balance cannot cover a transfer
// - ErrUnavailable: backend or oracle temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrAlreadyUsed       = errors.New("already used")
	ErrExpired           = errors.New("expired")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("invalid state")
	ErrUnavailable       = errors.New("unavailable")
)
