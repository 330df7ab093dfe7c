package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

// Schema creates the ledger table. Lamports are stored as BIGINT; balances
// above math.MaxInt64 are refused on write.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_accounts (
	address    BYTEA PRIMARY KEY,
	owner      BYTEA NOT NULL,
	lamports   BIGINT NOT NULL CHECK (lamports >= 0),
	data       BYTEA NOT NULL DEFAULT ''::bytea,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps the ledger in PostgreSQL. Each transaction takes a
// transaction-scoped advisory lock per declared account (ascending address
// order), which also serializes creation of accounts that do not exist yet.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies Schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) RunInTx(ctx context.Context, accounts []domain.Identity, fn func(tx Tx) error) error {
	ctx, cancel, err := withTxDeadline(ctx, s.timeout)
	defer cancel()
	if err != nil {
		return err
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translatePgError(fmt.Errorf("begin ledger tx: %w", err))
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	sorted := sortedUnique(accounts)
	if err := lockAccounts(ctx, sqlTx, sorted); err != nil {
		return err
	}

	prefetched, err := loadMany(ctx, sqlTx, sorted)
	if err != nil {
		return err
	}
	tx := newStagedTx(accounts, func(_ context.Context, addr domain.Identity) (*Account, error) {
		if acct, ok := prefetched[addr]; ok {
			return acct.Clone(), nil
		}
		return nil, sentinel.ErrNotFound
	})
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctxAborted(ctx); err != nil {
		return err
	}

	for _, acct := range tx.writes() {
		if err := upsert(ctx, sqlTx, acct); err != nil {
			return err
		}
	}
	if err := sqlTx.Commit(); err != nil {
		return translatePgError(fmt.Errorf("commit ledger tx: %w", err))
	}
	return nil
}

func (s *PostgresStore) Account(ctx context.Context, addr domain.Identity) (*Account, error) {
	return loadOne(ctx, s.db, addr)
}

func (s *PostgresStore) Deposit(ctx context.Context, addr domain.Identity, lamports uint64) error {
	if lamports > math.MaxInt64 {
		return fmt.Errorf("deposit to %s: amount exceeds storable balance", addr)
	}
	ctx, cancel, err := withTxDeadline(ctx, s.timeout)
	defer cancel()
	if err != nil {
		return err
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translatePgError(fmt.Errorf("begin deposit tx: %w", err))
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	// Same lock as RunInTx, so a concurrent transaction's upsert cannot
	// overwrite the credited balance.
	if err := lockAccounts(ctx, sqlTx, []domain.Identity{addr}); err != nil {
		return err
	}
	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO ledger_accounts (address, owner, lamports)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE SET
			lamports = ledger_accounts.lamports + EXCLUDED.lamports,
			updated_at = now()
	`, addr[:], make([]byte, domain.IdentitySize), int64(lamports))
	if err != nil {
		return translatePgError(fmt.Errorf("deposit to %s: %w", addr, err))
	}
	if err := sqlTx.Commit(); err != nil {
		return translatePgError(fmt.Errorf("commit deposit: %w", err))
	}
	return nil
}

// lockAccounts takes a transaction-scoped advisory lock per address. Callers
// pass addresses in ascending order.
func lockAccounts(ctx context.Context, sqlTx *sql.Tx, addrs []domain.Identity) error {
	for _, addr := range addrs {
		if _, err := sqlTx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended(encode($1::bytea, 'hex'), 0))`, addr[:]); err != nil {
			return translatePgError(fmt.Errorf("lock account %s: %w", addr, err))
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func loadOne(ctx context.Context, q queryer, addr domain.Identity) (*Account, error) {
	var (
		owner    []byte
		lamports int64
		data     []byte
	)
	err := q.QueryRowContext(ctx,
		`SELECT owner, lamports, data FROM ledger_accounts WHERE address = $1`, addr[:]).
		Scan(&owner, &lamports, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, translatePgError(fmt.Errorf("load account %s: %w", addr, err))
	}
	return rowToAccount(addr[:], owner, lamports, data)
}

// loadMany fetches every existing account in addrs with one round trip.
func loadMany(ctx context.Context, q queryer, addrs []domain.Identity) (map[domain.Identity]*Account, error) {
	out := make(map[domain.Identity]*Account, len(addrs))
	if len(addrs) == 0 {
		return out, nil
	}
	keys := make([][]byte, len(addrs))
	for i := range addrs {
		keys[i] = addrs[i][:]
	}
	rows, err := q.QueryContext(ctx,
		`SELECT address, owner, lamports, data FROM ledger_accounts WHERE address = ANY($1::bytea[])`,
		pq.Array(keys))
	if err != nil {
		return nil, translatePgError(fmt.Errorf("load accounts: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		var (
			address, owner, data []byte
			lamports             int64
		)
		if err := rows.Scan(&address, &owner, &lamports, &data); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		acct, err := rowToAccount(address, owner, lamports, data)
		if err != nil {
			return nil, err
		}
		out[acct.Address] = acct
	}
	if err := rows.Err(); err != nil {
		return nil, translatePgError(fmt.Errorf("iterate accounts: %w", err))
	}
	return out, nil
}

func upsert(ctx context.Context, tx *sql.Tx, acct *Account) error {
	if acct.Lamports > math.MaxInt64 {
		return fmt.Errorf("write account %s: balance exceeds storable range", acct.Address)
	}
	data := acct.Data
	if data == nil {
		data = []byte{}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_accounts (address, owner, lamports, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO UPDATE SET
			owner = EXCLUDED.owner,
			lamports = EXCLUDED.lamports,
			data = EXCLUDED.data,
			updated_at = now()
	`, acct.Address[:], acct.Owner[:], int64(acct.Lamports), data)
	if err != nil {
		return translatePgError(fmt.Errorf("write account %s: %w", acct.Address, err))
	}
	return nil
}

func rowToAccount(address, owner []byte, lamports int64, data []byte) (*Account, error) {
	if len(address) != domain.IdentitySize || len(owner) != domain.IdentitySize {
		return nil, fmt.Errorf("account row has malformed key columns")
	}
	if lamports < 0 {
		return nil, fmt.Errorf("account row has negative balance")
	}
	acct := &Account{Lamports: uint64(lamports), Data: data}
	copy(acct.Address[:], address)
	copy(acct.Owner[:], owner)
	return acct, nil
}

// translatePgError maps lock contention and unavailability onto
// sentinel.ErrUnavailable so callers can tell them apart from logic failures.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03", "57014":
			return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
		}
	}
	return err
}

func sortedUnique(accounts []domain.Identity) []domain.Identity {
	seen := make(map[domain.Identity]struct{}, len(accounts))
	out := make([]domain.Identity, 0, len(accounts))
	for _, a := range accounts {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}
