package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
)

// ErrUndeclaredAccount is returned when a transaction touches an account that
// was not named when the transaction began.
var ErrUndeclaredAccount = errors.New("account not declared in transaction")

// defaultTxTimeout bounds a transaction when the caller's context has no deadline.
const defaultTxTimeout = 5 * time.Second

// Tx is the view of the ledger inside one atomic step. Every write is staged
// and becomes visible only if the enclosing RunInTx callback returns nil.
type Tx interface {
	// Get returns a copy of the account or sentinel.ErrNotFound.
	Get(ctx context.Context, addr domain.Identity) (*Account, error)
	// Create allocates a new account; sentinel.ErrAlreadyExists if present.
	Create(ctx context.Context, acct *Account) error
	// Put overwrites an existing account's owner and data; lamports move only
	// through Transfer.
	Put(ctx context.Context, acct *Account) error
	// Transfer moves lamports between accounts. A missing destination is
	// created as a wallet. sentinel.ErrInsufficientFunds if from cannot cover it.
	Transfer(ctx context.Context, from, to domain.Identity, lamports uint64) error
}

// Store is a ledger backend. Transactions that declare overlapping accounts
// are serialized; all writes inside one RunInTx commit together or not at all.
type Store interface {
	RunInTx(ctx context.Context, accounts []domain.Identity, fn func(tx Tx) error) error
	// Account reads committed state outside any transaction.
	Account(ctx context.Context, addr domain.Identity) (*Account, error)
	// Deposit credits a wallet from outside the ledger (faucet, tests).
	Deposit(ctx context.Context, addr domain.Identity, lamports uint64) error
	Close() error
}

// withTxDeadline applies the default timeout when ctx carries none, and fails
// fast on an already cancelled context.
func withTxDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}

func ctxAborted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return nil
}

// loader reads committed state for one address, returning sentinel.ErrNotFound
// when absent.
type loader func(ctx context.Context, addr domain.Identity) (*Account, error)

// stagedTx implements Tx over any backend: reads go through load once per
// address, writes are held until the backend flushes them.
type stagedTx struct {
	declared map[domain.Identity]struct{}
	load     loader
	cache    map[domain.Identity]*Account
	dirty    []domain.Identity
	isDirty  map[domain.Identity]bool
}

func newStagedTx(accounts []domain.Identity, load loader) *stagedTx {
	declared := make(map[domain.Identity]struct{}, len(accounts))
	for _, a := range accounts {
		declared[a] = struct{}{}
	}
	return &stagedTx{
		declared: declared,
		load:     load,
		cache:    make(map[domain.Identity]*Account, len(accounts)),
		isDirty:  make(map[domain.Identity]bool, len(accounts)),
	}
}

func (t *stagedTx) lookup(ctx context.Context, addr domain.Identity) (*Account, error) {
	if _, ok := t.declared[addr]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndeclaredAccount, addr)
	}
	if acct, ok := t.cache[addr]; ok {
		if acct == nil {
			return nil, sentinel.ErrNotFound
		}
		return acct, nil
	}
	acct, err := t.load(ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		t.cache[addr] = nil
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.cache[addr] = acct
	return acct, nil
}

func (t *stagedTx) stage(acct *Account) {
	t.cache[acct.Address] = acct
	if !t.isDirty[acct.Address] {
		t.isDirty[acct.Address] = true
		t.dirty = append(t.dirty, acct.Address)
	}
}

func (t *stagedTx) Get(ctx context.Context, addr domain.Identity) (*Account, error) {
	acct, err := t.lookup(ctx, addr)
	if err != nil {
		return nil, err
	}
	return acct.Clone(), nil
}

func (t *stagedTx) Create(ctx context.Context, acct *Account) error {
	_, err := t.lookup(ctx, acct.Address)
	if err == nil {
		return fmt.Errorf("create account %s: %w", acct.Address, sentinel.ErrAlreadyExists)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	t.stage(acct.Clone())
	return nil
}

func (t *stagedTx) Put(ctx context.Context, acct *Account) error {
	current, err := t.lookup(ctx, acct.Address)
	if err != nil {
		return fmt.Errorf("put account %s: %w", acct.Address, err)
	}
	next := acct.Clone()
	next.Lamports = current.Lamports
	t.stage(next)
	return nil
}

func (t *stagedTx) Transfer(ctx context.Context, from, to domain.Identity, lamports uint64) error {
	if lamports == 0 {
		return nil
	}
	src, err := t.lookup(ctx, from)
	if errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("transfer from %s: %w", from, sentinel.ErrInsufficientFunds)
	}
	if err != nil {
		return err
	}
	if src.Lamports < lamports {
		return fmt.Errorf("transfer from %s: %w", from, sentinel.ErrInsufficientFunds)
	}
	if from == to {
		return nil
	}
	dst, err := t.lookup(ctx, to)
	if errors.Is(err, sentinel.ErrNotFound) {
		dst = &Account{Address: to}
	} else if err != nil {
		return err
	}
	if dst.Lamports > math.MaxUint64-lamports {
		return fmt.Errorf("transfer to %s: balance overflow", to)
	}

	debited := src.Clone()
	debited.Lamports -= lamports
	credited := dst.Clone()
	credited.Lamports += lamports
	t.stage(debited)
	t.stage(credited)
	return nil
}

// writes returns staged accounts in first-write order.
func (t *stagedTx) writes() []*Account {
	out := make([]*Account, 0, len(t.dirty))
	for _, addr := range t.dirty {
		out = append(out, t.cache[addr])
	}
	return out
}
