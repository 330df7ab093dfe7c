// Package domainerrors carries the coded error type that services return and
// transports render. Stores return sentinel facts (pkg/platform/sentinel);
// services translate those facts into one of the codes below.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error condition. Codes are stable strings so they can be
// rendered to clients verbatim.
type Code string

// Generic codes.
const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal_error"
)

// Registrar codes.
const (
	CodeAlreadyInitialized             Code = "already_initialized"
	CodeNotProgramAuthority            Code = "not_program_authority"
	CodeNotDomainOwner                 Code = "not_domain_owner"
	CodeDomainAlreadyRegistered        Code = "domain_already_registered"
	CodeDomainNotFound                 Code = "domain_not_found"
	CodeDomainNotAvailableForPurchase  Code = "domain_not_available_for_purchase"
	CodeDomainExpired                  Code = "domain_expired"
	CodeDomainExpiredBeyondGracePeriod Code = "domain_expired_beyond_grace_period"
	CodeStalePriceFeed                 Code = "stale_price_feed"
	CodePriceFeedUnreliable            Code = "price_feed_unreliable"
	CodeInvalidPriceFeed               Code = "invalid_price_feed"
	CodeInsufficientFunds              Code = "insufficient_funds"
	CodeInvalidDomainLength            Code = "invalid_domain_length"
	CodeInvalidRegisterYears           Code = "invalid_register_years"
	CodeTooManyAddresses               Code = "too_many_addresses"
	CodeInvalidAddress                 Code = "invalid_address"
	CodeInvalidPrice                   Code = "invalid_price"
	CodeInvalidGracePeriod             Code = "invalid_grace_period"
	CodeInvalidAccountAddress          Code = "invalid_account_address"
	CodeNotInitialized                 Code = "not_initialized"
	CodeMissingSignature               Code = "missing_signature"
	CodeMathOverflow                   Code = "math_overflow"
	CodeReplayedAuthorization          Code = "replayed_authorization"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost coded message, falling back to err.Error().
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// ToHTTPStatus maps a code onto the status a transport should answer with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput,
		CodeInvalidDomainLength, CodeInvalidRegisterYears, CodeTooManyAddresses,
		CodeInvalidAddress, CodeInvalidPrice, CodeInvalidGracePeriod,
		CodeInvalidAccountAddress:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeMissingSignature, CodeReplayedAuthorization:
		return http.StatusUnauthorized
	case CodeForbidden, CodeNotProgramAuthority, CodeNotDomainOwner:
		return http.StatusForbidden
	case CodeNotFound, CodeDomainNotFound, CodeNotInitialized:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyInitialized, CodeDomainAlreadyRegistered,
		CodeDomainNotAvailableForPurchase, CodeDomainExpired,
		CodeDomainExpiredBeyondGracePeriod, CodeInvariantViolation:
		return http.StatusConflict
	case CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case CodeStalePriceFeed, CodePriceFeedUnreliable, CodeInvalidPriceFeed, CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
