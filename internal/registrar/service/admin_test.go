package service

import (
	"context"

	"registrar/internal/ledger"
	"registrar/internal/registrar/models"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

func (s *ServiceSuite) TestInitialize() {
	s.Run("authority funds the config reserve", func() {
		cfg, err := s.service.Initialize(s.as(t0, s.authority), &models.InitializeRequest{
			Authority:          s.authority,
			BasePriceUsdCents:  basePrice,
			GracePeriodSeconds: gracePeriod,
		})
		s.Require().NoError(err)
		s.Equal(s.authority, cfg.Authority)
		s.Equal(uint64(0), cfg.DomainsRegistered)

		reserve := ledger.MinimumBalance(models.ConfigSpace)
		s.Equal(startingFunds-reserve, s.balance(s.authority))

		view, err := s.service.GetConfig(context.Background())
		s.Require().NoError(err)
		s.Equal(reserve, view.BalanceLamports)
		s.Equal(uint64(0), view.WithdrawableLamports)
		s.Equal(domain.ConfigAddress(s.program), view.Account)
	})

	s.Run("second initialize is rejected", func() {
		_, err := s.service.Initialize(s.as(t0, s.authority), &models.InitializeRequest{
			Authority:          s.authority,
			BasePriceUsdCents:  basePrice,
			GracePeriodSeconds: gracePeriod,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyInitialized))
	})
}

func (s *ServiceSuite) TestInitialize_Validation() {
	cases := []struct {
		name string
		ctx  context.Context
		req  *models.InitializeRequest
		code dErrors.Code
	}{
		{
			name: "unsigned authority",
			ctx:  s.as(t0),
			req:  &models.InitializeRequest{Authority: s.authority, BasePriceUsdCents: basePrice, GracePeriodSeconds: gracePeriod},
			code: dErrors.CodeMissingSignature,
		},
		{
			name: "mismatched config account",
			ctx:  s.as(t0, s.authority),
			req:  &models.InitializeRequest{Authority: s.authority, ConfigAccount: s.bob, BasePriceUsdCents: basePrice, GracePeriodSeconds: gracePeriod},
			code: dErrors.CodeInvalidAccountAddress,
		},
		{
			name: "zero price",
			ctx:  s.as(t0, s.authority),
			req:  &models.InitializeRequest{Authority: s.authority, GracePeriodSeconds: gracePeriod},
			code: dErrors.CodeInvalidPrice,
		},
		{
			name: "zero grace period",
			ctx:  s.as(t0, s.authority),
			req:  &models.InitializeRequest{Authority: s.authority, BasePriceUsdCents: basePrice},
			code: dErrors.CodeInvalidGracePeriod,
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Initialize(tc.ctx, tc.req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tc.code), "got %v", err)
		})
	}

	_, err := s.service.GetConfig(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeNotInitialized))
}

func (s *ServiceSuite) TestUpdatePrice() {
	s.initialize()

	configAddr := domain.ConfigAddress(s.program)
	stored := s.accountData(configAddr)

	s.Run("non-authority is rejected before value validation", func() {
		_, err := s.service.UpdatePrice(s.as(t0, s.alice), &models.UpdatePriceRequest{Authority: s.alice, NewPrice: 0})
		s.True(dErrors.HasCode(err, dErrors.CodeNotProgramAuthority))
	})

	s.Run("non-authority cannot change the price", func() {
		_, err := s.service.UpdatePrice(s.as(t0, s.alice), &models.UpdatePriceRequest{Authority: s.alice, NewPrice: 9_999})
		s.True(dErrors.HasCode(err, dErrors.CodeNotProgramAuthority))
		s.Equal(stored, s.accountData(configAddr))
	})

	s.Run("zero price is rejected", func() {
		_, err := s.service.UpdatePrice(s.as(t0, s.authority), &models.UpdatePriceRequest{Authority: s.authority, NewPrice: 0})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidPrice))
		s.Equal(stored, s.accountData(configAddr))
	})

	s.Run("authority updates price and later quotes follow it", func() {
		cfg, err := s.service.UpdatePrice(s.as(t0, s.authority), &models.UpdatePriceRequest{Authority: s.authority, NewPrice: 1_000})
		s.Require().NoError(err)
		s.Equal(uint64(1_000), cfg.BasePriceUsdCents)

		q, err := s.service.Quote(s.as(t0), 1, "")
		s.Require().NoError(err)
		s.Equal(2*oneYearFee, q.Lamports)
	})
}

func (s *ServiceSuite) TestUpdateGracePeriod() {
	s.initialize()

	configAddr := domain.ConfigAddress(s.program)
	stored := s.accountData(configAddr)

	s.Run("non-authority is rejected", func() {
		_, err := s.service.UpdateGracePeriod(s.as(t0, s.bob), &models.UpdateGracePeriodRequest{Authority: s.bob, GracePeriodSeconds: 10})
		s.True(dErrors.HasCode(err, dErrors.CodeNotProgramAuthority))
		s.Equal(stored, s.accountData(configAddr))
	})

	s.Run("negative grace period is rejected", func() {
		_, err := s.service.UpdateGracePeriod(s.as(t0, s.authority), &models.UpdateGracePeriodRequest{Authority: s.authority, GracePeriodSeconds: -1})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidGracePeriod))
		s.Equal(stored, s.accountData(configAddr))
	})

	s.Run("new grace period applies to existing records", func() {
		receipt := s.register("alice", s.alice)
		expiry := receipt.Domain.ExpiryTimestamp

		_, err := s.service.UpdateGracePeriod(s.as(t0, s.authority), &models.UpdateGracePeriodRequest{Authority: s.authority, GracePeriodSeconds: 60})
		s.Require().NoError(err)

		view, err := s.service.GetDomain(s.as(unix(expiry+61)), "alice")
		s.Require().NoError(err)
		s.Equal(models.StateReclaimable, view.State)
	})
}

func (s *ServiceSuite) TestWithdrawFees() {
	s.initialize()
	s.register("alice", s.alice)
	before := s.balance(s.authority)

	s.Run("any signer triggers a withdrawal to the authority", func() {
		result, err := s.service.WithdrawFees(s.as(t0, s.bob), &models.WithdrawRequest{Caller: s.bob})
		s.Require().NoError(err)
		s.Equal(s.authority, result.Destination)
		s.Equal(oneYearFee, result.Lamports)
		s.Equal(before+oneYearFee, s.balance(s.authority))
		s.Equal(startingFunds, s.balance(s.bob))

		view, err := s.service.GetConfig(context.Background())
		s.Require().NoError(err)
		s.Equal(ledger.MinimumBalance(models.ConfigSpace), view.BalanceLamports)
	})

	s.Run("nothing left to withdraw succeeds with zero", func() {
		result, err := s.service.WithdrawFees(s.as(t0, s.bob), &models.WithdrawRequest{Caller: s.bob})
		s.Require().NoError(err)
		s.Equal(uint64(0), result.Lamports)
	})

	s.Run("unsigned caller is rejected", func() {
		_, err := s.service.WithdrawFees(s.as(t0), &models.WithdrawRequest{Caller: s.bob})
		s.True(dErrors.HasCode(err, dErrors.CodeMissingSignature))
	})
}
