// Package ledger models the host ledger the registrar program runs on: funded
// accounts addressed by identity, program-owned data, and atomic transactions
// over a declared set of accounts.
package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"registrar/pkg/domain"
)

const (
	// accountStorageOverhead is the fixed per-account metadata charged on top of
	// the data length when sizing the minimum reserve.
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionYears         = 2

	// LamportsPerNativeUnit is the number of smallest units in one native coin.
	LamportsPerNativeUnit = 1_000_000_000
)

// Account is one ledger entry. Data is only meaningful to Owner, the program
// that may write it; wallets have a zero Owner and no data.
type Account struct {
	Address  domain.Identity
	Owner    domain.Identity
	Lamports uint64
	Data     []byte
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	return &Account{
		Address:  a.Address,
		Owner:    a.Owner,
		Lamports: a.Lamports,
		Data:     bytes.Clone(a.Data),
	}
}

// MinimumBalance is the reserve an account holding space bytes must keep to
// continue existing.
func MinimumBalance(space int) uint64 {
	return uint64(accountStorageOverhead+space) * lamportsPerByteYear * exemptionYears
}

// encodeAccount serializes the non-address fields for key/value backends:
// owner(32) || lamports(u64 LE) || data.
func encodeAccount(a *Account) []byte {
	buf := make([]byte, domain.IdentitySize+8+len(a.Data))
	copy(buf, a.Owner[:])
	binary.LittleEndian.PutUint64(buf[domain.IdentitySize:], a.Lamports)
	copy(buf[domain.IdentitySize+8:], a.Data)
	return buf
}

func decodeAccount(addr domain.Identity, raw []byte) (*Account, error) {
	if len(raw) < domain.IdentitySize+8 {
		return nil, fmt.Errorf("decode account %s: truncated entry", addr)
	}
	a := &Account{Address: addr}
	copy(a.Owner[:], raw[:domain.IdentitySize])
	a.Lamports = binary.LittleEndian.Uint64(raw[domain.IdentitySize:])
	a.Data = bytes.Clone(raw[domain.IdentitySize+8:])
	return a, nil
}
