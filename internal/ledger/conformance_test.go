package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
)

// StoreSuite holds the behavior every backend must share. Backend test files
// embed it and provide newStore.
type StoreSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
	ctx      context.Context
}

var (
	walletA = domain.Identity{0xa1}
	walletB = domain.Identity{0xb2}
	program = domain.Identity{0x99}
	record  = domain.Identity{0x42}
)

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreSuite) balance(addr domain.Identity) uint64 {
	acct, err := s.store.Account(s.ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		return 0
	}
	s.Require().NoError(err)
	return acct.Lamports
}

func (s *StoreSuite) TestDepositAndRead() {
	s.Require().NoError(s.store.Deposit(s.ctx, walletA, 1_000))
	s.Require().NoError(s.store.Deposit(s.ctx, walletA, 500))
	s.Equal(uint64(1_500), s.balance(walletA))

	_, err := s.store.Account(s.ctx, walletB)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestCreateAndTransferCommitTogether() {
	s.Require().NoError(s.store.Deposit(s.ctx, walletA, 10_000))

	err := s.store.RunInTx(s.ctx, []domain.Identity{walletA, record}, func(tx Tx) error {
		if err := tx.Create(s.ctx, &Account{Address: record, Owner: program, Data: []byte("hello")}); err != nil {
			return err
		}
		return tx.Transfer(s.ctx, walletA, record, 4_000)
	})
	s.Require().NoError(err)

	acct, err := s.store.Account(s.ctx, record)
	s.Require().NoError(err)
	s.Equal(program, acct.Owner)
	s.Equal([]byte("hello"), acct.Data)
	s.Equal(uint64(4_000), acct.Lamports)
	s.Equal(uint64(6_000), s.balance(walletA))
}

func (s *StoreSuite) TestFailedCallbackWritesNothing() {
	s.Require().NoError(s.store.Deposit(s.ctx, walletA, 10_000))

	boom := errors.New("boom")
	err := s.store.RunInTx(s.ctx, []domain.Identity{walletA, record}, func(tx Tx) error {
		s.Require().NoError(tx.Create(s.ctx, &Account{Address: record, Owner: program, Data: []byte{1}}))
		s.Require().NoError(tx.Transfer(s.ctx, walletA, record, 2_000))
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.Account(s.ctx, record)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(uint64(10_000), s.balance(walletA))
}

func (s *StoreSuite) TestInsufficientFunds() {
	s.Require().NoError(s.store.Deposit(s.ctx, walletA, 100))

	err := s.store.RunInTx(s.ctx, []domain.Identity{walletA, walletB}, func(tx Tx) error {
		return tx.Transfer(s.ctx, walletA, walletB, 101)
	})
	s.ErrorIs(err, sentinel.ErrInsufficientFunds)

	err = s.store.RunInTx(s.ctx, []domain.Identity{walletB, walletA}, func(tx Tx) error {
		return tx.Transfer(s.ctx, walletB, walletA, 1)
	})
	s.ErrorIs(err, sentinel.ErrInsufficientFunds, "missing source behaves as empty")
}

func (s *StoreSuite) TestCreateRejectsExisting() {
	s.Require().NoError(s.store.Deposit(s.ctx, walletA, 1))
	err := s.store.RunInTx(s.ctx, []domain.Identity{walletA}, func(tx Tx) error {
		return tx.Create(s.ctx, &Account{Address: walletA})
	})
	s.ErrorIs(err, sentinel.ErrAlreadyExists)
}

func (s *StoreSuite) TestPutKeepsBalance() {
	s.Require().NoError(s.store.Deposit(s.ctx, record, 700))
	err := s.store.RunInTx(s.ctx, []domain.Identity{record}, func(tx Tx) error {
		return tx.Put(s.ctx, &Account{Address: record, Owner: program, Lamports: 1, Data: []byte("v2")})
	})
	s.Require().NoError(err)

	acct, err := s.store.Account(s.ctx, record)
	s.Require().NoError(err)
	s.Equal(uint64(700), acct.Lamports)
	s.Equal([]byte("v2"), acct.Data)
}

func (s *StoreSuite) TestUndeclaredAccountRejected() {
	err := s.store.RunInTx(s.ctx, []domain.Identity{walletA}, func(tx Tx) error {
		_, err := tx.Get(s.ctx, walletB)
		return err
	})
	s.ErrorIs(err, ErrUndeclaredAccount)
}

func (s *StoreSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	called := false
	err := s.store.RunInTx(ctx, []domain.Identity{walletA}, func(tx Tx) error {
		called = true
		return nil
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.False(called)
}

func (s *StoreSuite) TestConcurrentTransfersSerialize() {
	const workers = 20
	s.Require().NoError(s.store.Deposit(s.ctx, walletA, workers*10))

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.store.RunInTx(ctx, []domain.Identity{walletA, walletB}, func(tx Tx) error {
				return tx.Transfer(ctx, walletA, walletB, 10)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	s.Equal(uint64(0), s.balance(walletA))
	s.Equal(uint64(workers*10), s.balance(walletB))
}

func (s *StoreSuite) TestDepositDuringTransactionsIsKept() {
	const workers = 20
	s.Require().NoError(s.store.Deposit(s.ctx, walletA, workers*5))

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2*workers)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- s.store.RunInTx(ctx, []domain.Identity{walletA, walletB}, func(tx Tx) error {
				return tx.Transfer(ctx, walletA, walletB, 5)
			})
		}()
		go func() {
			defer wg.Done()
			errs <- s.store.Deposit(ctx, walletA, 10)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	s.Equal(uint64(workers*10), s.balance(walletA), "no deposit is lost to a concurrent write")
	s.Equal(uint64(workers*5), s.balance(walletB))
}
