package testutil

import (
	"context"
	"net/http"
	"time"

	"registrar/pkg/domain"
	"registrar/pkg/requestcontext"
)

// WithSigners marks ids as having signed the request.
// This simulates what the envelope middleware does for verified requests.
func WithSigners(req *http.Request, ids ...domain.Identity) *http.Request {
	return req.WithContext(requestcontext.WithSigners(req.Context(), ids...))
}

// SignedContext returns ctx carrying ids as verified signers.
func SignedContext(ctx context.Context, ids ...domain.Identity) context.Context {
	return requestcontext.WithSigners(ctx, ids...)
}

// At pins the clock observed by the registrar to t.
func At(ctx context.Context, t time.Time) context.Context {
	return requestcontext.WithTime(ctx, t)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
