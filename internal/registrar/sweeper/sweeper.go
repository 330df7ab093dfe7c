// Package sweeper periodically moves collected fees to the registry authority.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"registrar/internal/registrar/models"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/requestcontext"
)

type Withdrawer interface {
	WithdrawFees(ctx context.Context, req *models.WithdrawRequest) (*models.WithdrawResult, error)
}

// Sweeper runs WithdrawFees on a schedule as operator. Withdrawal pays only
// the stored authority, so the operator needs no special rights.
type Sweeper struct {
	withdrawer Withdrawer
	operator   domain.Identity
	interval   time.Duration
	logger     *slog.Logger
	scheduler  *gocron.Scheduler
}

func New(withdrawer Withdrawer, operator domain.Identity, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		withdrawer: withdrawer,
		operator:   operator,
		interval:   interval,
		logger:     logger,
		scheduler:  gocron.NewScheduler(time.UTC),
	}
}

// Start schedules the sweep; it returns immediately.
func (s *Sweeper) Start() error {
	seconds := int(s.interval / time.Second)
	if seconds < 1 {
		return fmt.Errorf("sweep interval must be at least one second, got %s", s.interval)
	}
	if _, err := s.scheduler.Every(seconds).Seconds().SingletonMode().Do(s.sweep); err != nil {
		return fmt.Errorf("schedule fee sweep: %w", err)
	}
	s.scheduler.StartAsync()
	s.logger.Info("fee sweeper started", "interval", s.interval.String(), "operator", s.operator.String())
	return nil
}

func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, _ = s.Sweep(ctx)
}

// Sweep performs one withdrawal. Failures are logged and returned, never fatal.
func (s *Sweeper) Sweep(ctx context.Context) (uint64, error) {
	ctx = requestcontext.WithSigners(ctx, s.operator)
	result, err := s.withdrawer.WithdrawFees(ctx, &models.WithdrawRequest{Caller: s.operator})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotInitialized) {
			s.logger.DebugContext(ctx, "fee sweep skipped, registry not initialized")
			return 0, nil
		}
		s.logger.WarnContext(ctx, "fee sweep failed", "error", err)
		return 0, err
	}
	if result.Lamports > 0 {
		s.logger.InfoContext(ctx, "fees swept",
			"lamports", result.Lamports,
			"destination", result.Destination.String(),
		)
	}
	return result.Lamports, nil
}
