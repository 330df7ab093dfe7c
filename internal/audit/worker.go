package audit

import (
	"context"
	"log/slog"
)

// Worker drains a publisher inbox into a store. Store failures are logged and
// the event is dropped; the worker only stops when ctx is done.
type Worker struct {
	store   Store
	inbox   <-chan Event
	breaker *CircuitBreaker
	logger  *slog.Logger
}

type WorkerOption func(*Worker)

// WithWorkerCircuitBreaker stops calling the store while it keeps failing;
// events that arrive while the circuit is open are dropped.
func WithWorkerCircuitBreaker(cb *CircuitBreaker) WorkerOption {
	return func(w *Worker) {
		w.breaker = cb
	}
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Worker{store: store, inbox: inbox, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.persist(ctx, event)
		}
	}
}

// drain flushes whatever is already queued using a fresh context.
func (w *Worker) drain() {
	for {
		select {
		case event, ok := <-w.inbox:
			if !ok {
				return
			}
			w.persist(context.Background(), event)
		default:
			return
		}
	}
}

func (w *Worker) persist(ctx context.Context, event Event) {
	if err := guardedAppend(ctx, w.store, w.breaker, w.logger, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to persist audit event",
			"action", event.Action,
			"event_id", event.ID.String(),
			"error", err,
		)
	}
}
