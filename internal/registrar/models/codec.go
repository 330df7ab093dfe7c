package models

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"registrar/pkg/domain"
)

// Account data is an 8-byte type discriminator followed by a little-endian
// body. Strings and vectors carry a u32 length prefix. Buffers are allocated
// at the type's maximum size so an account's reserve never changes.

const discriminatorSize = 8

var (
	ErrDiscriminatorMismatch = errors.New("account discriminator mismatch")
	ErrTruncated             = errors.New("account data truncated")
)

var (
	configDiscriminator = discriminatorFor("RegistryConfig")
	domainDiscriminator = discriminatorFor("DomainRecord")
)

// ConfigSpace is the allocated data size of the configuration account.
const ConfigSpace = discriminatorSize +
	domain.IdentitySize + // authority
	8 + // base price
	8 + // domains registered
	8 // grace period

// DomainRecordSpace is the allocated data size of a domain record account.
const DomainRecordSpace = discriminatorSize +
	4 + MaxDomainLength + // name
	domain.IdentitySize + // owner
	8 + // expiry
	8 + // registration
	4 + MaxAddresses*(1+4+MaxAddressLength) // addresses

func discriminatorFor(typeName string) [discriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + typeName))
	var d [discriminatorSize]byte
	copy(d[:], sum[:discriminatorSize])
	return d
}

// EncodeConfig serializes c into a ConfigSpace buffer.
func EncodeConfig(c *RegistryConfig) []byte {
	w := newWriter(ConfigSpace, configDiscriminator)
	w.bytes(c.Authority[:])
	w.u64(c.BasePriceUsdCents)
	w.u64(c.DomainsRegistered)
	w.i64(c.GracePeriodSeconds)
	return w.buf
}

// DecodeConfig parses configuration account data.
func DecodeConfig(data []byte) (*RegistryConfig, error) {
	r, err := newReader(data, configDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("decode registry config: %w", err)
	}
	c := &RegistryConfig{}
	r.identity(&c.Authority)
	c.BasePriceUsdCents = r.u64()
	c.DomainsRegistered = r.u64()
	c.GracePeriodSeconds = r.i64()
	if r.err != nil {
		return nil, fmt.Errorf("decode registry config: %w", r.err)
	}
	return c, nil
}

// EncodeDomainRecord serializes d into a DomainRecordSpace buffer. Callers
// validate lengths first; oversized fields would overrun the allocation.
func EncodeDomainRecord(d *DomainRecord) ([]byte, error) {
	if err := ValidateName(d.DomainName); err != nil {
		return nil, err
	}
	if err := ValidateAddresses(d.Addresses); err != nil {
		return nil, err
	}
	w := newWriter(DomainRecordSpace, domainDiscriminator)
	w.str(d.DomainName)
	w.bytes(d.Owner[:])
	w.i64(d.ExpiryTimestamp)
	w.i64(d.RegistrationTimestamp)
	w.u32(uint32(len(d.Addresses)))
	for _, a := range d.Addresses {
		w.u8(a.ChainID)
		w.str(a.Address)
	}
	return w.buf, nil
}

// DecodeDomainRecord parses domain record account data.
func DecodeDomainRecord(data []byte) (*DomainRecord, error) {
	r, err := newReader(data, domainDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("decode domain record: %w", err)
	}
	d := &DomainRecord{}
	d.DomainName = r.str(MaxDomainLength)
	r.identity(&d.Owner)
	d.ExpiryTimestamp = r.i64()
	d.RegistrationTimestamp = r.i64()
	n := r.u32()
	if r.err == nil && n > MaxAddresses {
		return nil, fmt.Errorf("decode domain record: %d addresses exceeds limit", n)
	}
	d.Addresses = make([]ChainAddress, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		var a ChainAddress
		a.ChainID = r.u8()
		a.Address = r.str(MaxAddressLength)
		d.Addresses = append(d.Addresses, a)
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode domain record: %w", r.err)
	}
	return d, nil
}

type writer struct {
	buf []byte
	off int
}

func newWriter(space int, disc [discriminatorSize]byte) *writer {
	w := &writer{buf: make([]byte, space)}
	w.bytes(disc[:])
	return w
}

func (w *writer) bytes(b []byte) {
	w.off += copy(w.buf[w.off:], b)
}

func (w *writer) u8(v uint8) {
	w.buf[w.off] = v
	w.off++
}

func (w *writer) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *writer) u64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.off:], v)
	w.off += 8
}

func (w *writer) i64(v int64) {
	w.u64(uint64(v))
}

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.bytes([]byte(s))
}

// reader records the first failure and returns zero values afterwards, so
// decoders check err once at the end.
type reader struct {
	data []byte
	off  int
	err  error
}

func newReader(data []byte, want [discriminatorSize]byte) (*reader, error) {
	if len(data) < discriminatorSize {
		return nil, ErrTruncated
	}
	var got [discriminatorSize]byte
	copy(got[:], data[:discriminatorSize])
	if got != want {
		return nil, ErrDiscriminatorMismatch
	}
	return &reader{data: data, off: discriminatorSize}, nil
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.off < n {
		r.err = ErrTruncated
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i64() int64 {
	return int64(r.u64())
}

func (r *reader) identity(out *domain.Identity) {
	b := r.take(domain.IdentitySize)
	if b != nil {
		copy(out[:], b)
	}
}

func (r *reader) str(limit int) string {
	n := r.u32()
	if r.err != nil {
		return ""
	}
	if int(n) > limit {
		r.err = fmt.Errorf("string length %d exceeds %d", n, limit)
		return ""
	}
	return string(r.take(int(n)))
}
