// Package quote converts a USD-cent base price into native lamports using an
// oracle reading. It is a pure function of its inputs and never touches state.
package quote

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"registrar/internal/ledger"
	"registrar/internal/oracle"
	dErrors "registrar/pkg/domain-errors"
)

const (
	DefaultMaxAge = 60 * time.Second

	centsPerDollar = 100
)

// DefaultMaxConfidenceRatio rejects readings whose confidence interval is
// wider than 2% of the price.
var DefaultMaxConfidenceRatio = decimal.New(2, -2)

// Resolver holds the deployment thresholds for accepting a reading.
type Resolver struct {
	MaxAge             time.Duration
	MaxConfidenceRatio decimal.Decimal
}

// NewResolver applies defaults for zero thresholds.
func NewResolver(maxAge time.Duration, maxConfidenceRatio decimal.Decimal) Resolver {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if !maxConfidenceRatio.IsPositive() {
		maxConfidenceRatio = DefaultMaxConfidenceRatio
	}
	return Resolver{MaxAge: maxAge, MaxConfidenceRatio: maxConfidenceRatio}
}

// Quote returns the lamports owed for years of registration at baseUsdCents
// per year, rounded up so the protocol is never underpaid:
//
//	ceil(base * years * 1e9 / (price * 10^exponent * 100))
func (r Resolver) Quote(reading oracle.PriceReading, baseUsdCents, years uint64, now time.Time) (uint64, error) {
	if years == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidRegisterYears, "years must be positive")
	}
	if err := r.Check(reading, now); err != nil {
		return 0, err
	}

	numerator := fromUint(baseUsdCents).
		Mul(fromUint(years)).
		Mul(decimal.NewFromInt(ledger.LamportsPerNativeUnit))
	denominator := decimal.New(reading.Price, reading.Exponent).
		Mul(decimal.NewFromInt(centsPerDollar))

	// Scale both sides to integers so Mod and the division are exact.
	if exp := denominator.Exponent(); exp < 0 {
		shift := -exp
		numerator = numerator.Shift(shift)
		denominator = denominator.Shift(shift)
	}

	remainder := numerator.Mod(denominator)
	whole := numerator.Sub(remainder).Div(denominator).Truncate(0)
	if remainder.IsPositive() {
		whole = whole.Add(decimal.NewFromInt(1))
	}

	amount := whole.BigInt()
	if !amount.IsUint64() {
		return 0, dErrors.New(dErrors.CodeMathOverflow, "quoted amount overflows")
	}
	return amount.Uint64(), nil
}

// Check validates freshness, sign and confidence of a reading.
func (r Resolver) Check(reading oracle.PriceReading, now time.Time) error {
	maxAge := r.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if now.Unix()-reading.PublishTime > int64(maxAge/time.Second) {
		return dErrors.New(dErrors.CodeStalePriceFeed, "price reading is older than the allowed age")
	}
	if reading.Price <= 0 {
		return dErrors.New(dErrors.CodeInvalidPriceFeed, "price reading must be positive")
	}
	ratio := r.MaxConfidenceRatio
	if !ratio.IsPositive() {
		ratio = DefaultMaxConfidenceRatio
	}
	if fromUint(reading.Conf).GreaterThan(ratio.Mul(decimal.NewFromInt(reading.Price))) {
		return dErrors.New(dErrors.CodePriceFeedUnreliable, "price confidence interval too wide")
	}
	return nil
}

func fromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
