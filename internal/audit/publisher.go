package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher stamps events and hands them to a store. With an inbox attached
// it enqueues instead and a Worker persists in the background; a full inbox
// drops the event with a warning rather than stall the operation.
type Publisher struct {
	store   Store
	inbox   chan<- Event
	breaker *CircuitBreaker
	logger  *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithInbox switches the publisher to asynchronous delivery.
func WithInbox(inbox chan<- Event) PublisherOption {
	return func(p *Publisher) {
		p.inbox = inbox
	}
}

// WithCircuitBreaker skips the store while it is failing. It only applies to
// synchronous delivery; with an inbox the Worker owns the store calls and
// takes the breaker through WithWorkerCircuitBreaker.
func WithCircuitBreaker(cb *CircuitBreaker) PublisherOption {
	return func(p *Publisher) {
		p.breaker = cb
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = AuditEvent(event.Action).Category()
	}

	if p.inbox != nil {
		select {
		case p.inbox <- event:
			return nil
		default:
			p.logger.WarnContext(ctx, "audit inbox full, event dropped",
				"action", event.Action,
				"domain", event.Domain,
			)
			return nil
		}
	}

	return guardedAppend(ctx, p.store, p.breaker, p.logger, event)
}

// guardedAppend appends through cb when one is set. An open circuit drops the
// event and reports success.
func guardedAppend(ctx context.Context, store Store, cb *CircuitBreaker, logger *slog.Logger, event Event) error {
	if cb != nil && !cb.Allow() {
		logger.WarnContext(ctx, "audit circuit open, event dropped", "action", event.Action)
		return nil
	}
	err := store.Append(ctx, event)
	if cb != nil {
		if err != nil {
			cb.RecordFailure()
		} else {
			cb.RecordSuccess()
		}
	}
	return err
}
