package service

import (
	"context"

	"registrar/internal/audit"
	"registrar/internal/ledger"
	"registrar/internal/registrar/models"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

// WithdrawFees sweeps the configuration account's balance above its storage
// reserve to the stored authority. Any signer may trigger it; funds only ever
// reach the authority. Nothing to withdraw is a success with zero lamports.
func (s *Service) WithdrawFees(ctx context.Context, req *models.WithdrawRequest) (result *models.WithdrawResult, err error) {
	ctx, finish := s.startOp(ctx, OpWithdrawFees)
	defer finish(&err)

	if err := requireSigner(ctx, req.Caller, "caller"); err != nil {
		return nil, err
	}
	configAddr, err := resolveAccount(req.ConfigAccount, s.configAddress(), "config")
	if err != nil {
		return nil, err
	}

	// The authority is immutable, so it can be learned before the transaction
	// to declare its account.
	view, err := s.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	authority := view.Config.Authority

	err = s.runTx(ctx, []domain.Identity{configAddr, authority}, func(tx ledger.Tx) error {
		cfg, acct, err := s.loadConfig(ctx, tx, configAddr)
		if err != nil {
			return err
		}
		if cfg.Authority != authority {
			return dErrors.New(dErrors.CodeInvariantViolation, "registry authority changed during withdrawal")
		}
		amount := withdrawable(acct.Lamports)
		if err := pay(ctx, tx, configAddr, authority, amount); err != nil {
			return err
		}
		result = &models.WithdrawResult{Destination: authority, Lamports: amount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AddFeesWithdrawn(result.Lamports)
	}
	s.logAudit(ctx, audit.EventFeesWithdrawn,
		"actor", req.Caller.String(),
		"owner", authority.String(),
		"amount", result.Lamports,
	)
	return result, nil
}

// withdrawable is the balance above the config account's reserve.
func withdrawable(balance uint64) uint64 {
	reserve := ledger.MinimumBalance(models.ConfigSpace)
	if balance <= reserve {
		return 0
	}
	return balance - reserve
}
