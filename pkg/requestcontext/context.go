// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware or the envelope verifier but consumed by services.
// Keeping it free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	if !requestcontext.IsSigner(ctx, req.Payer) { ... }
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in the transport (set values):
//
//	ctx = requestcontext.WithSigners(ctx, verified...)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	"registrar/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	signersKey     struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeySigners     = signersKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Signers
// -----------------------------------------------------------------------------

// Signers returns the identities whose authorizations were verified for the
// current operation. Returns nil if none were attached.
func Signers(ctx context.Context) []domain.Identity {
	if signers, ok := ctx.Value(ContextKeySigners).([]domain.Identity); ok {
		return signers
	}
	return nil
}

// IsSigner reports whether id authorized the current operation.
func IsSigner(ctx context.Context, id domain.Identity) bool {
	for _, s := range Signers(ctx) {
		if s == id {
			return true
		}
	}
	return false
}

// WithSigners attaches verified signers, appending to any already present.
func WithSigners(ctx context.Context, signers ...domain.Identity) context.Context {
	existing := Signers(ctx)
	merged := make([]domain.Identity, 0, len(existing)+len(signers))
	merged = append(merged, existing...)
	merged = append(merged, signers...)
	return context.WithValue(ctx, ContextKeySigners, merged)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent)
// -----------------------------------------------------------------------------

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Every lifecycle check in one operation reads this single instant.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
