package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"registrar/internal/audit"
	"registrar/internal/ledger"
	"registrar/internal/oracle"
	"registrar/internal/registrar/models"
	"registrar/internal/registrar/service/mocks"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
	bdd "registrar/pkg/testutil"
)

func unix(sec int64) time.Time {
	return time.Unix(sec, 0)
}

func (s *ServiceSuite) TestRegisterDomain() {
	s.initialize()

	s.Run("payer covers fee and reserve, owner defaults to payer", func() {
		receipt := s.register("alice", s.alice)

		reserve := ledger.MinimumBalance(models.DomainRecordSpace)
		s.Equal(oneYearFee, receipt.FeeLamports)
		s.Equal(reserve, receipt.ReserveLamports)
		s.Equal(s.alice, receipt.Domain.Owner)
		s.Equal(t0.Unix(), receipt.Domain.RegistrationTimestamp)
		s.Equal(t0.Unix()+models.SecondsPerYear, receipt.Domain.ExpiryTimestamp)
		s.Equal(startingFunds-oneYearFee-reserve, s.balance(s.alice))
		s.Equal(reserve, s.balance(receipt.DomainAccount))

		view, err := s.service.GetConfig(context.Background())
		s.Require().NoError(err)
		s.Equal(uint64(1), view.Config.DomainsRegistered)
		s.Equal(oneYearFee, view.WithdrawableLamports)

		events := s.events("alice")
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventDomainRegistered), events[0].Action)
		s.Equal(oneYearFee, events[0].Amount)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.DomainsRegistered))
	})

	s.Run("payer may register for another owner", func() {
		receipt, err := s.service.RegisterDomain(s.as(t0, s.bob), &models.RegisterRequest{
			Payer: s.bob,
			Owner: s.alice,
			Name:  "gift",
			Years: 3,
		})
		s.Require().NoError(err)
		s.Equal(s.alice, receipt.Domain.Owner)
		s.Equal(3*oneYearFee, receipt.FeeLamports)
		s.Empty(receipt.Domain.Addresses)
	})

	s.Run("name already taken", func() {
		_, err := s.service.RegisterDomain(s.as(t0, s.bob), &models.RegisterRequest{Payer: s.bob, Name: "alice", Years: 1})
		s.True(dErrors.HasCode(err, dErrors.CodeDomainAlreadyRegistered))
	})

	s.Run("failed payment leaves no trace", func() {
		poor := identity(0x09)
		s.Require().NoError(s.ledger.Deposit(context.Background(), poor, oneYearFee))

		_, err := s.service.RegisterDomain(s.as(t0, poor), &models.RegisterRequest{Payer: poor, Name: "poor", Years: 1})
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
		s.Equal(oneYearFee, s.balance(poor))

		_, err = s.service.GetDomain(context.Background(), "poor")
		s.True(dErrors.HasCode(err, dErrors.CodeDomainNotFound))

		view, err := s.service.GetConfig(context.Background())
		s.Require().NoError(err)
		s.Equal(uint64(2), view.Config.DomainsRegistered)
	})
}

func (s *ServiceSuite) TestRegisterDomain_Rejections() {
	s.initialize()
	tooMany := make([]models.ChainAddress, models.MaxAddresses+1)

	cases := []struct {
		name string
		req  models.RegisterRequest
		code dErrors.Code
	}{
		{"empty name", models.RegisterRequest{Payer: s.alice, Years: 1}, dErrors.CodeInvalidDomainLength},
		{"name too long", models.RegisterRequest{Payer: s.alice, Name: strings.Repeat("a", 254), Years: 1}, dErrors.CodeInvalidDomainLength},
		{"zero years", models.RegisterRequest{Payer: s.alice, Name: "alice", Years: 0}, dErrors.CodeInvalidRegisterYears},
		{"hundred years", models.RegisterRequest{Payer: s.alice, Name: "alice", Years: 100}, dErrors.CodeInvalidRegisterYears},
		{"too many addresses", models.RegisterRequest{Payer: s.alice, Name: "alice", Years: 1, Addresses: tooMany}, dErrors.CodeTooManyAddresses},
		{"address too long", models.RegisterRequest{Payer: s.alice, Name: "alice", Years: 1, Addresses: []models.ChainAddress{{ChainID: 1, Address: strings.Repeat("x", 65)}}}, dErrors.CodeInvalidAddress},
		{"wrong domain account", models.RegisterRequest{Payer: s.alice, Name: "alice", Years: 1, DomainAccount: s.bob}, dErrors.CodeInvalidAccountAddress},
		{"foreign price feed", models.RegisterRequest{Payer: s.alice, Name: "alice", Years: 1, FeedID: "0xdeadbeef"}, dErrors.CodeInvalidPriceFeed},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.RegisterDomain(s.as(t0, s.alice), &tc.req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tc.code), "got %v", err)
		})
	}

	s.Run("name of exactly 253 bytes is accepted", func() {
		_, err := s.service.RegisterDomain(s.as(t0, s.alice), &models.RegisterRequest{Payer: s.alice, Name: strings.Repeat("a", 253), Years: 1})
		s.Require().NoError(err)
	})

	s.Run("stale price", func() {
		s.setPrice(t0)
		ctx := bdd.At(bdd.SignedContext(context.Background(), s.alice), t0.Add(61*time.Second))
		_, err := s.service.RegisterDomain(ctx, &models.RegisterRequest{Payer: s.alice, Name: "late", Years: 1})
		s.True(dErrors.HasCode(err, dErrors.CodeStalePriceFeed))
	})

	s.Run("unreliable price", func() {
		ctx := s.as(t0, s.alice)
		s.feed.Set(oracle.PriceReading{FeedID: oracle.DefaultFeedID, Price: hundredDollars, Conf: uint64(hundredDollars) / 10, Exponent: -8, PublishTime: t0.Unix()})
		_, err := s.service.RegisterDomain(ctx, &models.RegisterRequest{Payer: s.alice, Name: "shaky", Years: 1})
		s.True(dErrors.HasCode(err, dErrors.CodePriceFeedUnreliable))
	})
}

func (s *ServiceSuite) TestRenewDomain() {
	s.initialize()
	expiry := s.register("alice", s.alice).Domain.ExpiryTimestamp

	s.Run("extends from current expiry, any payer", func() {
		receipt, err := s.service.RenewDomain(s.as(t0, s.bob), &models.RenewRequest{Payer: s.bob, Name: "alice", Years: 2})
		s.Require().NoError(err)
		s.Equal(expiry, receipt.OldExpiry)
		s.Equal(expiry+2*models.SecondsPerYear, receipt.NewExpiry)
		s.Equal(s.alice, receipt.Domain.Owner)
		s.Equal([]models.ChainAddress{{ChainID: 1, Address: "0xabc"}}, receipt.Domain.Addresses)
		s.Equal(startingFunds-2*oneYearFee, s.balance(s.bob))
		expiry = receipt.NewExpiry
	})

	s.Run("allowed during grace", func() {
		receipt, err := s.service.RenewDomain(s.as(unix(expiry+gracePeriod), s.alice), &models.RenewRequest{Payer: s.alice, Name: "alice", Years: 1})
		s.Require().NoError(err)
		s.Equal(expiry+models.SecondsPerYear, receipt.NewExpiry)
		expiry = receipt.NewExpiry
	})

	s.Run("rejected once reclaimable", func() {
		_, err := s.service.RenewDomain(s.as(unix(expiry+gracePeriod+1), s.alice), &models.RenewRequest{Payer: s.alice, Name: "alice", Years: 1})
		s.True(dErrors.HasCode(err, dErrors.CodeDomainExpiredBeyondGracePeriod))
	})

	s.Run("unknown domain", func() {
		_, err := s.service.RenewDomain(s.as(t0, s.alice), &models.RenewRequest{Payer: s.alice, Name: "nobody", Years: 1})
		s.True(dErrors.HasCode(err, dErrors.CodeDomainNotFound))
	})

	s.Run("renewal emits old and new expiry", func() {
		var found bool
		for _, e := range s.events("alice") {
			if e.Action == string(audit.EventDomainRenewed) {
				found = true
				s.Greater(e.NewExpiry, e.OldExpiry)
			}
		}
		s.True(found)
	})
}

func (s *ServiceSuite) TestTransferDomain() {
	s.initialize()
	expiry := s.register("alice", s.alice).Domain.ExpiryTimestamp

	s.Run("non-owner is rejected", func() {
		_, err := s.service.TransferDomain(s.as(t0, s.bob), &models.TransferRequest{Owner: s.bob, Name: "alice", NewOwner: s.bob})
		s.True(dErrors.HasCode(err, dErrors.CodeNotDomainOwner))
	})

	s.Run("zero new owner is rejected", func() {
		_, err := s.service.TransferDomain(s.as(t0, s.alice), &models.TransferRequest{Owner: s.alice, Name: "alice"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("expired domain cannot move", func() {
		_, err := s.service.TransferDomain(s.as(unix(expiry+1), s.alice), &models.TransferRequest{Owner: s.alice, Name: "alice", NewOwner: s.bob})
		s.True(dErrors.HasCode(err, dErrors.CodeDomainExpired))
	})

	s.Run("owner transfers at the expiry instant", func() {
		record, err := s.service.TransferDomain(s.as(unix(expiry), s.alice), &models.TransferRequest{Owner: s.alice, Name: "alice", NewOwner: s.bob})
		s.Require().NoError(err)
		s.Equal(s.bob, record.Owner)
		s.Equal(expiry, record.ExpiryTimestamp)
		s.Len(record.Addresses, 1)
	})

	s.Run("former owner loses control immediately", func() {
		_, err := s.service.UpdateAddresses(s.as(unix(expiry), s.alice), &models.UpdateAddressesRequest{Owner: s.alice, Name: "alice"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotDomainOwner))

		_, err = s.service.TransferDomain(s.as(unix(expiry), s.alice), &models.TransferRequest{Owner: s.alice, Name: "alice", NewOwner: s.alice})
		s.True(dErrors.HasCode(err, dErrors.CodeNotDomainOwner))

		record, err := s.service.UpdateAddresses(s.as(unix(expiry), s.bob), &models.UpdateAddressesRequest{Owner: s.bob, Name: "alice"})
		s.Require().NoError(err)
		s.Empty(record.Addresses)
	})
}

func (s *ServiceSuite) TestUpdateAddresses() {
	s.initialize()
	expiry := s.register("alice", s.alice).Domain.ExpiryTimestamp
	addrs := []models.ChainAddress{{ChainID: 2, Address: "bc1q"}, {ChainID: 2, Address: "bc1r"}}

	s.Run("non-owner is rejected", func() {
		_, err := s.service.UpdateAddresses(s.as(t0, s.bob), &models.UpdateAddressesRequest{Owner: s.bob, Name: "alice", Addresses: addrs})
		s.True(dErrors.HasCode(err, dErrors.CodeNotDomainOwner))
	})

	s.Run("owner replaces list, duplicates kept", func() {
		record, err := s.service.UpdateAddresses(s.as(t0, s.alice), &models.UpdateAddressesRequest{Owner: s.alice, Name: "alice", Addresses: addrs})
		s.Require().NoError(err)
		s.Equal(addrs, record.Addresses)
	})

	s.Run("owner keeps the right after expiry until bought", func() {
		record, err := s.service.UpdateAddresses(s.as(unix(expiry+gracePeriod+10), s.alice), &models.UpdateAddressesRequest{Owner: s.alice, Name: "alice"})
		s.Require().NoError(err)
		s.Empty(record.Addresses)
	})
}

func (s *ServiceSuite) TestBuyDomain() {
	s.initialize()

	s.Run("unknown domain", func() {
		_, err := s.service.BuyDomain(s.as(t0, s.bob), &models.BuyRequest{Payer: s.bob, Name: "ghost", Years: 1})
		s.True(dErrors.HasCode(err, dErrors.CodeDomainNotFound))
	})

	bdd.Given(s.T(), "alice registered for one year", func(t *testing.T) {
		expiry := s.register("alice", s.alice).Domain.ExpiryTimestamp
		reclaimAt := expiry + gracePeriod + 1

		bdd.When(t, "bob buys at the last grace second", func(t *testing.T) {
			_, err := s.service.BuyDomain(s.as(unix(expiry+gracePeriod), s.bob), &models.BuyRequest{Payer: s.bob, Name: "alice", Years: 1})
			bdd.Then(t, "purchase is refused", func(t *testing.T) {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeDomainNotAvailableForPurchase))
			})
		})

		bdd.When(t, "bob buys one second later", func(t *testing.T) {
			receipt, err := s.service.BuyDomain(s.as(unix(reclaimAt), s.bob), &models.BuyRequest{
				Payer:     s.bob,
				Name:      "alice",
				Years:     2,
				Addresses: []models.ChainAddress{{ChainID: 7, Address: "bob"}},
			})
			require.NoError(t, err)

			bdd.Then(t, "bob owns a fresh record", func(t *testing.T) {
				assert.Equal(t, s.bob, receipt.Domain.Owner)
				assert.Equal(t, reclaimAt, receipt.Domain.RegistrationTimestamp)
				assert.Equal(t, reclaimAt+2*models.SecondsPerYear, receipt.Domain.ExpiryTimestamp)
				assert.Equal(t, []models.ChainAddress{{ChainID: 7, Address: "bob"}}, receipt.Domain.Addresses)
				assert.Equal(t, 2*oneYearFee, receipt.FeeLamports)
				assert.Zero(t, receipt.ReserveLamports)
			})

			bdd.Then(t, "the registered count is unchanged", func(t *testing.T) {
				view, err := s.service.GetConfig(context.Background())
				require.NoError(t, err)
				assert.Equal(t, uint64(1), view.Config.DomainsRegistered)
			})

			bdd.Then(t, "the previous owner lost control", func(t *testing.T) {
				_, err := s.service.UpdateAddresses(s.as(unix(reclaimAt), s.alice), &models.UpdateAddressesRequest{Owner: s.alice, Name: "alice"})
				assert.True(t, dErrors.HasCode(err, dErrors.CodeNotDomainOwner))
			})

			bdd.Then(t, "the record is active again", func(t *testing.T) {
				view, err := s.service.GetDomain(s.as(unix(reclaimAt)), "alice")
				require.NoError(t, err)
				assert.Equal(t, models.StateActive, view.State)
			})
		})
	})
}

func TestService_FeedAndAuditFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	program := identity(0xAA)
	payer := identity(0x02)
	store := ledger.NewMemoryStore()
	ctx := bdd.At(bdd.SignedContext(context.Background(), payer), t0)
	require.NoError(t, store.Deposit(ctx, payer, startingFunds))

	t.Run("unreachable feed maps to unavailable", func(t *testing.T) {
		feed := mocks.NewMockPriceFeed(ctrl)
		feed.EXPECT().Latest(gomock.Any(), oracle.DefaultFeedID).Return(oracle.PriceReading{}, sentinel.ErrUnavailable)
		svc := New(program, store, feed)

		_, err := svc.RegisterDomain(ctx, &models.RegisterRequest{Payer: payer, Name: "alice", Years: 1})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("audit failure does not fail the operation", func(t *testing.T) {
		feed := oracle.NewStatic(oracle.PriceReading{FeedID: oracle.DefaultFeedID, Price: hundredDollars, Exponent: -8, PublishTime: t0.Unix()})
		publisher := mocks.NewMockAuditPublisher(ctrl)
		publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).AnyTimes()
		svc := New(program, store, feed, WithAuditPublisher(publisher))

		_, err := svc.Initialize(ctx, &models.InitializeRequest{Authority: payer, BasePriceUsdCents: basePrice, GracePeriodSeconds: gracePeriod})
		require.NoError(t, err)
		_, err = svc.RegisterDomain(ctx, &models.RegisterRequest{Payer: payer, Name: "alice", Years: 1})
		require.NoError(t, err)
	})

	t.Run("ledger outage maps to unavailable", func(t *testing.T) {
		led := mocks.NewMockLedger(ctrl)
		led.EXPECT().RunInTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(sentinel.ErrUnavailable)
		svc := New(program, led, oracle.NewStatic())

		_, err := svc.TransferDomain(ctx, &models.TransferRequest{Owner: payer, Name: "alice", NewOwner: program})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *ServiceSuite) TestAccountResolution() {
	s.initialize()

	s.Run("explicit derived accounts are accepted", func() {
		domainAcct := domain.DomainAddress(s.program, "carol")
		receipt, err := s.service.RegisterDomain(s.as(t0, s.alice), &models.RegisterRequest{
			Payer:         s.alice,
			Name:          "carol",
			Years:         1,
			DomainAccount: domainAcct,
			ConfigAccount: domain.ConfigAddress(s.program),
		})
		s.Require().NoError(err)
		s.Equal(domainAcct, receipt.DomainAccount)
	})

	s.Run("omitted accounts are derived", func() {
		receipt := s.register("dave", s.alice)
		s.Equal(domain.DomainAddress(s.program, "dave"), receipt.DomainAccount)
	})

	s.Run("a mismatched account is never substituted", func() {
		_, err := s.service.RenewDomain(s.as(t0, s.alice), &models.RenewRequest{Payer: s.alice, Name: "carol", Years: 1, ConfigAccount: s.bob})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAccountAddress))
		_, err = s.service.RenewDomain(s.as(t0, s.alice), &models.RenewRequest{Payer: s.alice, Name: "carol", Years: 1, DomainAccount: domain.DomainAddress(s.program, "dave")})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAccountAddress))
	})
}

func (s *ServiceSuite) TestHashedNameAlias() {
	s.initialize()
	long := strings.Repeat("a", 40) + ".sol"
	s.register(long, s.alice)

	sum := sha256.Sum256([]byte(long))
	alias := string(sum[:])
	s.Require().Equal(domain.DomainAddress(s.program, long), domain.DomainAddress(s.program, alias))

	s.Run("alias cannot renew the long name's record", func() {
		_, err := s.service.RenewDomain(s.as(t0, s.bob), &models.RenewRequest{Payer: s.bob, Name: alias, Years: 1})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAccountAddress))
	})

	s.Run("alias cannot move or edit it", func() {
		_, err := s.service.TransferDomain(s.as(t0, s.alice), &models.TransferRequest{Owner: s.alice, Name: alias, NewOwner: s.bob})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAccountAddress))
		_, err = s.service.UpdateAddresses(s.as(t0, s.alice), &models.UpdateAddressesRequest{Owner: s.alice, Name: alias})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAccountAddress))
	})

	s.Run("lookups by alias fail, by name succeed", func() {
		_, err := s.service.GetDomain(s.as(t0), alias)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAccountAddress))

		view, err := s.service.GetDomain(s.as(t0), long)
		s.Require().NoError(err)
		s.Equal(long, view.Record.DomainName)
		s.Equal(s.alice, view.Record.Owner)
	})
}
