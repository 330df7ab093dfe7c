package ledger

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

// numShards spreads account locks so transactions over disjoint accounts run
// in parallel.
const numShards = 128

// MemoryStore keeps the ledger in process memory. Transactions lock the shards
// of every declared account in ascending order, so overlapping transactions
// serialize and disjoint ones do not contend.
type MemoryStore struct {
	shards [numShards]sync.Mutex

	mu       sync.RWMutex
	accounts map[domain.Identity]*Account

	timeout time.Duration
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryTxTimeout overrides the default transaction timeout.
func WithMemoryTxTimeout(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.timeout = d
	}
}

// NewMemoryStore constructs an empty in-memory ledger.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{accounts: make(map[domain.Identity]*Account)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) RunInTx(ctx context.Context, accounts []domain.Identity, fn func(tx Tx) error) error {
	ctx, cancel, err := withTxDeadline(ctx, s.timeout)
	defer cancel()
	if err != nil {
		return err
	}

	unlock := s.lockShards(accounts)
	defer unlock()

	// Check again after acquiring locks
	if err := ctxAborted(ctx); err != nil {
		return err
	}

	tx := newStagedTx(accounts, s.load)
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctxAborted(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range tx.writes() {
		s.accounts[acct.Address] = acct.Clone()
	}
	return nil
}

func (s *MemoryStore) Account(ctx context.Context, addr domain.Identity) (*Account, error) {
	return s.load(ctx, addr)
}

func (s *MemoryStore) Deposit(_ context.Context, addr domain.Identity, lamports uint64) error {
	shard := &s.shards[shardFor(addr)]
	shard.Lock()
	defer shard.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[addr]
	if !ok {
		acct = &Account{Address: addr}
		s.accounts[addr] = acct
	}
	if acct.Lamports > math.MaxUint64-lamports {
		return fmt.Errorf("deposit to %s: balance overflow", addr)
	}
	acct.Lamports += lamports
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) load(_ context.Context, addr domain.Identity) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return acct.Clone(), nil
}

// lockShards acquires each distinct shard once, lowest index first.
func (s *MemoryStore) lockShards(accounts []domain.Identity) func() {
	seen := make(map[int]struct{}, len(accounts))
	idx := make([]int, 0, len(accounts))
	for _, a := range accounts {
		sh := shardFor(a)
		if _, ok := seen[sh]; ok {
			continue
		}
		seen[sh] = struct{}{}
		idx = append(idx, sh)
	}
	sort.Ints(idx)
	for _, i := range idx {
		s.shards[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			s.shards[idx[j]].Unlock()
		}
	}
}

// shardFor uses FNV-1a over the address bytes.
func shardFor(addr domain.Identity) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for _, b := range addr {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return int(h % numShards)
}
