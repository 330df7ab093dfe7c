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
	"registrar/pkg/requestcontext"
)

// RegisterDomain allocates a record for a name that has never existed. The
// payer covers the quoted fee plus the record's storage reserve; the owner
// may be someone else.
func (s *Service) RegisterDomain(ctx context.Context, req *models.RegisterRequest) (receipt *models.PaymentReceipt, err error) {
	ctx, finish := s.startOp(ctx, OpRegisterDomain, attribute.String("domain", req.Name))
	defer finish(&err)

	owner, configAddr, domainAddr, err := s.preparePurchase(ctx, (*models.BuyRequest)(req))
	if err != nil {
		return nil, err
	}
	reading, err := s.reading(ctx, req.FeedID)
	if err != nil {
		return nil, err
	}
	nowTime := requestcontext.Now(ctx)
	now := nowTime.Unix()

	err = s.runTx(ctx, []domain.Identity{req.Payer, configAddr, domainAddr}, func(tx ledger.Tx) error {
		cfg, cfgAcct, err := s.loadConfig(ctx, tx, configAddr)
		if err != nil {
			return err
		}
		if _, err := tx.Get(ctx, domainAddr); err == nil {
			return dErrors.New(dErrors.CodeDomainAlreadyRegistered, "domain already registered")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check domain record")
		}

		record, err := models.NewDomainRecord(req.Name, owner, req.Addresses, now, req.Years)
		if err != nil {
			return err
		}
		fee, err := s.quote(reading, cfg.BasePriceUsdCents, req.Years, nowTime)
		if err != nil {
			return err
		}
		data, err := models.EncodeDomainRecord(record)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, &ledger.Account{Address: domainAddr, Owner: s.program, Data: data}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate domain record")
		}
		reserve := ledger.MinimumBalance(models.DomainRecordSpace)
		if err := pay(ctx, tx, req.Payer, domainAddr, reserve); err != nil {
			return err
		}
		if err := pay(ctx, tx, req.Payer, configAddr, fee); err != nil {
			return err
		}

		cfg.RecordRegistration()
		if err := s.storeConfig(ctx, tx, cfgAcct, cfg); err != nil {
			return err
		}

		receipt = &models.PaymentReceipt{
			Domain:          record,
			DomainAccount:   domainAddr,
			FeeLamports:     fee,
			ReserveLamports: reserve,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementRegistered()
		s.metrics.AddFeesCollected(receipt.FeeLamports)
	}
	s.logAudit(ctx, audit.EventDomainRegistered,
		"domain", req.Name,
		"actor", req.Payer.String(),
		"payer", req.Payer.String(),
		"owner", owner.String(),
		"years", req.Years,
		"amount", receipt.FeeLamports,
		"new_expiry", receipt.Domain.ExpiryTimestamp,
	)
	return receipt, nil
}

// BuyDomain reclaims a record whose grace period has ended. Its effects match
// registration except the record is reused and the registered count is not
// touched.
func (s *Service) BuyDomain(ctx context.Context, req *models.BuyRequest) (receipt *models.PaymentReceipt, err error) {
	ctx, finish := s.startOp(ctx, OpBuyDomain, attribute.String("domain", req.Name))
	defer finish(&err)

	owner, configAddr, domainAddr, err := s.preparePurchase(ctx, req)
	if err != nil {
		return nil, err
	}
	reading, err := s.reading(ctx, req.FeedID)
	if err != nil {
		return nil, err
	}
	nowTime := requestcontext.Now(ctx)
	now := nowTime.Unix()

	var prevOwner domain.Identity
	err = s.runTx(ctx, []domain.Identity{req.Payer, configAddr, domainAddr}, func(tx ledger.Tx) error {
		cfg, _, err := s.loadConfig(ctx, tx, configAddr)
		if err != nil {
			return err
		}
		record, acct, err := s.loadDomain(ctx, tx, domainAddr, req.Name)
		if err != nil {
			return err
		}
		if err := record.CanBuy(now, cfg.GracePeriodSeconds); err != nil {
			return err
		}
		fee, err := s.quote(reading, cfg.BasePriceUsdCents, req.Years, nowTime)
		if err != nil {
			return err
		}
		prevOwner = record.Owner
		if err := record.ApplyBuy(owner, req.Addresses, now, req.Years); err != nil {
			return err
		}
		if err := s.storeDomain(ctx, tx, acct, record); err != nil {
			return err
		}
		if err := pay(ctx, tx, req.Payer, configAddr, fee); err != nil {
			return err
		}
		receipt = &models.PaymentReceipt{Domain: record, DomainAccount: domainAddr, FeeLamports: fee}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementBought()
		s.metrics.AddFeesCollected(receipt.FeeLamports)
	}
	s.logAudit(ctx, audit.EventDomainBought,
		"domain", req.Name,
		"actor", req.Payer.String(),
		"payer", req.Payer.String(),
		"owner", owner.String(),
		"prev_owner", prevOwner.String(),
		"years", req.Years,
		"amount", receipt.FeeLamports,
		"new_expiry", receipt.Domain.ExpiryTimestamp,
	)
	return receipt, nil
}

// RenewDomain extends a record by whole years from its current expiry.
// Anyone may pay; owner and addresses are untouched. A record past its grace
// period must be bought instead.
func (s *Service) RenewDomain(ctx context.Context, req *models.RenewRequest) (receipt *models.RenewReceipt, err error) {
	ctx, finish := s.startOp(ctx, OpRenewDomain, attribute.String("domain", req.Name))
	defer finish(&err)

	if err := models.ValidateName(req.Name); err != nil {
		return nil, err
	}
	if err := models.ValidateYears(req.Years); err != nil {
		return nil, err
	}
	if err := requireSigner(ctx, req.Payer, "payer"); err != nil {
		return nil, err
	}
	configAddr, err := resolveAccount(req.ConfigAccount, s.configAddress(), "config")
	if err != nil {
		return nil, err
	}
	domainAddr, err := resolveAccount(req.DomainAccount, s.domainAddress(req.Name), "domain")
	if err != nil {
		return nil, err
	}
	reading, err := s.reading(ctx, req.FeedID)
	if err != nil {
		return nil, err
	}
	nowTime := requestcontext.Now(ctx)
	now := nowTime.Unix()

	err = s.runTx(ctx, []domain.Identity{req.Payer, configAddr, domainAddr}, func(tx ledger.Tx) error {
		cfg, _, err := s.loadConfig(ctx, tx, configAddr)
		if err != nil {
			return err
		}
		record, acct, err := s.loadDomain(ctx, tx, domainAddr, req.Name)
		if err != nil {
			return err
		}
		if err := record.CanRenew(now, cfg.GracePeriodSeconds); err != nil {
			return err
		}
		fee, err := s.quote(reading, cfg.BasePriceUsdCents, req.Years, nowTime)
		if err != nil {
			return err
		}
		oldExpiry, newExpiry, err := record.ApplyRenew(req.Years)
		if err != nil {
			return err
		}
		if err := s.storeDomain(ctx, tx, acct, record); err != nil {
			return err
		}
		if err := pay(ctx, tx, req.Payer, configAddr, fee); err != nil {
			return err
		}
		receipt = &models.RenewReceipt{
			PaymentReceipt: models.PaymentReceipt{Domain: record, DomainAccount: domainAddr, FeeLamports: fee},
			OldExpiry:      oldExpiry,
			NewExpiry:      newExpiry,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementRenewed()
		s.metrics.AddFeesCollected(receipt.FeeLamports)
	}
	s.logAudit(ctx, audit.EventDomainRenewed,
		"domain", req.Name,
		"actor", req.Payer.String(),
		"payer", req.Payer.String(),
		"owner", receipt.Domain.Owner.String(),
		"years", req.Years,
		"amount", receipt.FeeLamports,
		"old_expiry", receipt.OldExpiry,
		"new_expiry", receipt.NewExpiry,
	)
	return receipt, nil
}

// UpdateAddresses replaces the record's chain addresses. The owner keeps this
// right through grace and beyond, until a buy reclaims the name.
func (s *Service) UpdateAddresses(ctx context.Context, req *models.UpdateAddressesRequest) (record *models.DomainRecord, err error) {
	ctx, finish := s.startOp(ctx, OpUpdateAddresses, attribute.String("domain", req.Name))
	defer finish(&err)

	if err := models.ValidateName(req.Name); err != nil {
		return nil, err
	}
	if err := models.ValidateAddresses(req.Addresses); err != nil {
		return nil, err
	}
	if err := requireSigner(ctx, req.Owner, "owner"); err != nil {
		return nil, err
	}
	domainAddr, err := resolveAccount(req.DomainAccount, s.domainAddress(req.Name), "domain")
	if err != nil {
		return nil, err
	}

	err = s.runTx(ctx, []domain.Identity{domainAddr}, func(tx ledger.Tx) error {
		rec, acct, err := s.loadDomain(ctx, tx, domainAddr, req.Name)
		if err != nil {
			return err
		}
		if err := rec.CanUpdateAddresses(req.Owner); err != nil {
			return err
		}
		rec.ApplyAddresses(req.Addresses)
		if err := s.storeDomain(ctx, tx, acct, rec); err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventAddressesUpdated,
		"domain", req.Name,
		"actor", req.Owner.String(),
		"owner", req.Owner.String(),
		"address_count", len(record.Addresses),
	)
	return record, nil
}

// TransferDomain hands an unexpired record to a new owner. Only the owner
// field changes.
func (s *Service) TransferDomain(ctx context.Context, req *models.TransferRequest) (record *models.DomainRecord, err error) {
	ctx, finish := s.startOp(ctx, OpTransferDomain, attribute.String("domain", req.Name))
	defer finish(&err)

	if err := models.ValidateName(req.Name); err != nil {
		return nil, err
	}
	if req.NewOwner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "new owner is required")
	}
	if err := requireSigner(ctx, req.Owner, "owner"); err != nil {
		return nil, err
	}
	domainAddr, err := resolveAccount(req.DomainAccount, s.domainAddress(req.Name), "domain")
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx).Unix()

	err = s.runTx(ctx, []domain.Identity{domainAddr}, func(tx ledger.Tx) error {
		rec, acct, err := s.loadDomain(ctx, tx, domainAddr, req.Name)
		if err != nil {
			return err
		}
		if err := rec.CanTransfer(req.Owner, now); err != nil {
			return err
		}
		rec.ApplyTransfer(req.NewOwner)
		if err := s.storeDomain(ctx, tx, acct, rec); err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementTransferred()
	}
	s.logAudit(ctx, audit.EventDomainTransferred,
		"domain", req.Name,
		"actor", req.Owner.String(),
		"prev_owner", req.Owner.String(),
		"owner", req.NewOwner.String(),
	)
	return record, nil
}

// preparePurchase validates what register and buy share and resolves the
// accounts they touch. A zero owner defaults to the payer.
func (s *Service) preparePurchase(ctx context.Context, req *models.BuyRequest) (owner, configAddr, domainAddr domain.Identity, err error) {
	if err := models.ValidateName(req.Name); err != nil {
		return owner, configAddr, domainAddr, err
	}
	if err := models.ValidateYears(req.Years); err != nil {
		return owner, configAddr, domainAddr, err
	}
	if err := models.ValidateAddresses(req.Addresses); err != nil {
		return owner, configAddr, domainAddr, err
	}
	if err := requireSigner(ctx, req.Payer, "payer"); err != nil {
		return owner, configAddr, domainAddr, err
	}
	owner = req.Owner
	if owner.IsNil() {
		owner = req.Payer
	}
	if configAddr, err = resolveAccount(req.ConfigAccount, s.configAddress(), "config"); err != nil {
		return owner, configAddr, domainAddr, err
	}
	if domainAddr, err = resolveAccount(req.DomainAccount, s.domainAddress(req.Name), "domain"); err != nil {
		return owner, configAddr, domainAddr, err
	}
	return owner, configAddr, domainAddr, nil
}
