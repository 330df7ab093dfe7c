package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

const (
	boltAllocSize = 8 * 1024 * 1024
	boltFileName  = "ledger.db"
)

var accountsBucket = []byte("accounts")

// BoltStore persists the ledger in an embedded bbolt file. bbolt allows a
// single writer, so every transaction is serialized.
type BoltStore struct {
	db      *bolt.DB
	timeout time.Duration
}

// NewBoltStore opens (or creates) the ledger file under dir.
func NewBoltStore(dir string) (*BoltStore, error) {
	if dir == "" {
		return nil, errors.New("bolt ledger dir path cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create bolt dir: %w", err)
	}
	db, err := bolt.Open(filepath.Join(dir, boltFileName), 0o660, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("cannot obtain ledger lock, database may be in use by another process")
		}
		return nil, fmt.Errorf("open bolt ledger: %w", err)
	}
	db.AllocSize = boltAllocSize
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(accountsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create accounts bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) RunInTx(ctx context.Context, accounts []domain.Identity, fn func(tx Tx) error) error {
	ctx, cancel, err := withTxDeadline(ctx, s.timeout)
	defer cancel()
	if err != nil {
		return err
	}

	return s.db.Update(func(btx *bolt.Tx) error {
		bucket := btx.Bucket(accountsBucket)
		if err := ctxAborted(ctx); err != nil {
			return err
		}
		tx := newStagedTx(accounts, func(_ context.Context, addr domain.Identity) (*Account, error) {
			return getBolt(bucket, addr)
		})
		if err := fn(tx); err != nil {
			return err
		}
		if err := ctxAborted(ctx); err != nil {
			return err
		}
		for _, acct := range tx.writes() {
			if err := bucket.Put(acct.Address[:], encodeAccount(acct)); err != nil {
				return fmt.Errorf("write account %s: %w", acct.Address, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) Account(_ context.Context, addr domain.Identity) (acct *Account, err error) {
	err = s.db.View(func(btx *bolt.Tx) error {
		acct, err = getBolt(btx.Bucket(accountsBucket), addr)
		return err
	})
	return acct, err
}

func (s *BoltStore) Deposit(_ context.Context, addr domain.Identity, lamports uint64) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		bucket := btx.Bucket(accountsBucket)
		acct, err := getBolt(bucket, addr)
		if errors.Is(err, sentinel.ErrNotFound) {
			acct = &Account{Address: addr}
		} else if err != nil {
			return err
		}
		if acct.Lamports > math.MaxUint64-lamports {
			return fmt.Errorf("deposit to %s: balance overflow", addr)
		}
		acct.Lamports += lamports
		return bucket.Put(addr[:], encodeAccount(acct))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func getBolt(bucket *bolt.Bucket, addr domain.Identity) (*Account, error) {
	raw := bucket.Get(addr[:])
	if raw == nil {
		return nil, sentinel.ErrNotFound
	}
	// bbolt values are only valid for the life of the transaction
	return decodeAccount(addr, raw)
}
