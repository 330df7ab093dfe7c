package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"registrar/internal/audit"
	"registrar/internal/ledger"
	"registrar/internal/registrar/models"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
)

// Initialize creates the registry configuration. The authority signs, pays
// the account's storage reserve, and becomes the permanent administrator.
func (s *Service) Initialize(ctx context.Context, req *models.InitializeRequest) (cfg *models.RegistryConfig, err error) {
	ctx, finish := s.startOp(ctx, OpInitialize, attribute.String("authority", req.Authority.String()))
	defer finish(&err)

	if err := requireSigner(ctx, req.Authority, "authority"); err != nil {
		return nil, err
	}
	configAddr, err := resolveAccount(req.ConfigAccount, s.configAddress(), "config")
	if err != nil {
		return nil, err
	}
	cfg, err = models.NewRegistryConfig(req.Authority, req.BasePriceUsdCents, req.GracePeriodSeconds)
	if err != nil {
		return nil, err
	}

	err = s.runTx(ctx, []domain.Identity{req.Authority, configAddr}, func(tx ledger.Tx) error {
		if _, err := tx.Get(ctx, configAddr); err == nil {
			return dErrors.New(dErrors.CodeAlreadyInitialized, "registry already initialized")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registry config")
		}
		if err := tx.Create(ctx, &ledger.Account{
			Address: configAddr,
			Owner:   s.program,
			Data:    models.EncodeConfig(cfg),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate registry config")
		}
		return pay(ctx, tx, req.Authority, configAddr, ledger.MinimumBalance(models.ConfigSpace))
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventRegistryInitialized,
		"actor", req.Authority.String(),
		"owner", req.Authority.String(),
		"base_price_usd_cents", cfg.BasePriceUsdCents,
		"grace_period_seconds", cfg.GracePeriodSeconds,
	)
	return cfg, nil
}

// UpdatePrice replaces the base price. Only the stored authority may call it.
func (s *Service) UpdatePrice(ctx context.Context, req *models.UpdatePriceRequest) (cfg *models.RegistryConfig, err error) {
	ctx, finish := s.startOp(ctx, OpUpdatePrice)
	defer finish(&err)

	var old uint64
	cfg, err = s.updateConfig(ctx, req.Authority, req.ConfigAccount, func(c *models.RegistryConfig) error {
		if err := models.ValidatePrice(req.NewPrice); err != nil {
			return err
		}
		old = c.BasePriceUsdCents
		c.ApplyPrice(req.NewPrice)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventPriceUpdated,
		"actor", req.Authority.String(),
		"old_price_usd_cents", old,
		"new_price_usd_cents", cfg.BasePriceUsdCents,
	)
	return cfg, nil
}

// UpdateGracePeriod replaces the grace period. Only the stored authority may
// call it. The new value applies to every record from the next evaluation on.
func (s *Service) UpdateGracePeriod(ctx context.Context, req *models.UpdateGracePeriodRequest) (cfg *models.RegistryConfig, err error) {
	ctx, finish := s.startOp(ctx, OpUpdateGracePeriod)
	defer finish(&err)

	var old int64
	cfg, err = s.updateConfig(ctx, req.Authority, req.ConfigAccount, func(c *models.RegistryConfig) error {
		if err := models.ValidateGracePeriod(req.GracePeriodSeconds); err != nil {
			return err
		}
		old = c.GracePeriodSeconds
		c.ApplyGracePeriod(req.GracePeriodSeconds)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventGracePeriodUpdated,
		"actor", req.Authority.String(),
		"old_grace_period_seconds", old,
		"new_grace_period_seconds", cfg.GracePeriodSeconds,
	)
	return cfg, nil
}

// updateConfig runs an authority-gated mutation. The authority check precedes
// value validation so non-authorities learn nothing about valid inputs.
func (s *Service) updateConfig(ctx context.Context, caller, supplied domain.Identity, mutate func(*models.RegistryConfig) error) (*models.RegistryConfig, error) {
	if err := requireSigner(ctx, caller, "authority"); err != nil {
		return nil, err
	}
	configAddr, err := resolveAccount(supplied, s.configAddress(), "config")
	if err != nil {
		return nil, err
	}

	var out *models.RegistryConfig
	err = s.runTx(ctx, []domain.Identity{configAddr}, func(tx ledger.Tx) error {
		cfg, acct, err := s.loadConfig(ctx, tx, configAddr)
		if err != nil {
			return err
		}
		if !cfg.IsAuthority(caller) {
			return dErrors.New(dErrors.CodeNotProgramAuthority, "only the program authority can perform this action")
		}
		if err := mutate(cfg); err != nil {
			return err
		}
		if err := s.storeConfig(ctx, tx, acct, cfg); err != nil {
			return err
		}
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
