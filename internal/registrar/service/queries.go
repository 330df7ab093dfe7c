package service

import (
	"context"
	"errors"

	"registrar/internal/ledger"
	"registrar/internal/registrar/models"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
	"registrar/pkg/requestcontext"
)

// GetConfig returns the committed configuration with its balances.
func (s *Service) GetConfig(ctx context.Context) (*models.ConfigView, error) {
	addr := s.configAddress()
	acct, err := s.committed(ctx, addr, dErrors.CodeNotInitialized, "registry is not initialized")
	if err != nil {
		return nil, err
	}
	cfg, err := models.DecodeConfig(acct.Data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode registry config")
	}
	return &models.ConfigView{
		Config:               cfg,
		Account:              addr,
		BalanceLamports:      acct.Lamports,
		WithdrawableLamports: withdrawable(acct.Lamports),
	}, nil
}

// GetDomain returns a record with its lifecycle state evaluated now.
func (s *Service) GetDomain(ctx context.Context, name string) (*models.DomainView, error) {
	if err := models.ValidateName(name); err != nil {
		return nil, err
	}
	view, err := s.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	addr := s.domainAddress(name)
	acct, err := s.committed(ctx, addr, dErrors.CodeDomainNotFound, "domain not found")
	if err != nil {
		return nil, err
	}
	record, err := models.DecodeDomainRecord(acct.Data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode domain record")
	}
	if err := checkRecordName(record, name); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx).Unix()
	return &models.DomainView{
		Record:  record,
		Account: addr,
		State:   models.Classify(record, now, view.Config.GracePeriodSeconds),
	}, nil
}

// Quote prices years of registration at the current base price and feed.
func (s *Service) Quote(ctx context.Context, years uint64, feedID string) (*models.QuoteView, error) {
	if err := models.ValidateYears(years); err != nil {
		return nil, err
	}
	view, err := s.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	r, err := s.reading(ctx, feedID)
	if err != nil {
		return nil, err
	}
	lamports, err := s.quote(r, view.Config.BasePriceUsdCents, years, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	return &models.QuoteView{
		Years:             years,
		BasePriceUsdCents: view.Config.BasePriceUsdCents,
		Lamports:          lamports,
		FeedID:            r.FeedID,
		PublishTime:       r.PublishTime,
	}, nil
}

// Addresses lists the derived accounts for name, or only the program and
// config accounts when name is empty.
func (s *Service) Addresses(name string) (*models.AccountAddresses, error) {
	out := &models.AccountAddresses{Program: s.program, ConfigAccount: s.configAddress()}
	if name == "" {
		return out, nil
	}
	if err := models.ValidateName(name); err != nil {
		return nil, err
	}
	out.DomainAccount = s.domainAddress(name)
	return out, nil
}

// Balance returns the lamports held by any account, zero when absent.
func (s *Service) Balance(ctx context.Context, addr domain.Identity) (uint64, error) {
	acct, err := s.ledger.Account(ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read account")
	}
	return acct.Lamports, nil
}

// Airdrop credits a wallet from outside the ledger. Only wired in dev mode.
func (s *Service) Airdrop(ctx context.Context, addr domain.Identity, lamports uint64) (uint64, error) {
	if addr.IsNil() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	if lamports == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "lamports must be positive")
	}
	if err := s.ledger.Deposit(ctx, addr, lamports); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit account")
	}
	s.logger.InfoContext(ctx, "airdrop credited", "address", addr.String(), "lamports", lamports)
	return s.Balance(ctx, addr)
}

func (s *Service) committed(ctx context.Context, addr domain.Identity, missing dErrors.Code, msg string) (*ledger.Account, error) {
	acct, err := s.ledger.Account(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(missing, msg)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read account")
	}
	if acct.Owner != s.program {
		return nil, dErrors.New(dErrors.CodeInvalidAccountAddress, "account is not owned by the program")
	}
	return acct, nil
}
