package service

import (
	"context"

	"registrar/internal/registrar/models"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

func (s *ServiceSuite) TestGetDomain_State() {
	s.initialize()
	expiry := s.register("alice", s.alice).Domain.ExpiryTimestamp

	for _, tc := range []struct {
		at   int64
		want models.State
	}{
		{t0.Unix(), models.StateActive},
		{expiry, models.StateActive},
		{expiry + 1, models.StateGrace},
		{expiry + gracePeriod, models.StateGrace},
		{expiry + gracePeriod + 1, models.StateReclaimable},
	} {
		view, err := s.service.GetDomain(s.as(unix(tc.at)), "alice")
		s.Require().NoError(err)
		s.Equal(tc.want, view.State, "at %d", tc.at)
		s.Equal(domain.DomainAddress(s.program, "alice"), view.Account)
	}
}

func (s *ServiceSuite) TestQuote() {
	s.Run("requires initialization", func() {
		_, err := s.service.Quote(s.as(t0), 1, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotInitialized))
	})

	s.initialize()

	s.Run("scales with years", func() {
		q, err := s.service.Quote(s.as(t0), 4, "")
		s.Require().NoError(err)
		s.Equal(4*oneYearFee, q.Lamports)
		s.Equal(basePrice, q.BasePriceUsdCents)
		s.Equal(t0.Unix(), q.PublishTime)
	})

	s.Run("rejects zero years", func() {
		_, err := s.service.Quote(s.as(t0), 0, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidRegisterYears))
	})
}

func (s *ServiceSuite) TestAddressesAndAirdrop() {
	addrs, err := s.service.Addresses("alice")
	s.Require().NoError(err)
	s.Equal(s.program, addrs.Program)
	s.Equal(domain.ConfigAddress(s.program), addrs.ConfigAccount)
	s.Equal(domain.DomainAddress(s.program, "alice"), addrs.DomainAccount)

	addrs, err = s.service.Addresses("")
	s.Require().NoError(err)
	s.True(addrs.DomainAccount.IsNil())

	fresh := identity(0x42)
	s.Equal(uint64(0), s.balance(fresh))
	balance, err := s.service.Airdrop(context.Background(), fresh, 1_000)
	s.Require().NoError(err)
	s.Equal(uint64(1_000), balance)

	_, err = s.service.Airdrop(context.Background(), fresh, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
