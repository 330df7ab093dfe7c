package quote

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registrar/internal/oracle"
	dErrors "registrar/pkg/domain-errors"
)

var now = time.Unix(1_700_000_000, 0)

func reading(price int64, conf uint64) oracle.PriceReading {
	return oracle.PriceReading{
		FeedID:      oracle.DefaultFeedID,
		Price:       price,
		Conf:        conf,
		Exponent:    -8,
		PublishTime: now.Unix(),
	}
}

func TestQuote(t *testing.T) {
	r := NewResolver(0, decimal.Zero)

	tests := []struct {
		name  string
		base  uint64
		years uint64
		price int64
		want  uint64
	}{
		{"exact division", 500, 1, 100_00000000, 50_000_000},
		{"rounds up fractional lamports", 500, 1, 150_12345678, 33_305_922},
		{"multiplies before rounding", 500, 3, 150_12345678, 99_917_764},
		{"tiny price", 500, 1, 1, 500_000_000_000_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Quote(reading(tt.price, 0), tt.base, tt.years, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("positive exponent", func(t *testing.T) {
		rd := oracle.PriceReading{Price: 2, Exponent: 1, PublishTime: now.Unix()}
		got, err := r.Quote(rd, 1_000, 2, now)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000_000_000), got)
	})
}

func TestQuoteFailures(t *testing.T) {
	r := NewResolver(60*time.Second, decimal.New(2, -2))

	t.Run("zero years", func(t *testing.T) {
		_, err := r.Quote(reading(100_00000000, 0), 500, 0, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidRegisterYears))
	})

	t.Run("stale reading", func(t *testing.T) {
		rd := reading(100_00000000, 0)
		rd.PublishTime = now.Unix() - 61
		_, err := r.Quote(rd, 500, 1, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStalePriceFeed))

		rd.PublishTime = now.Unix() - 60
		_, err = r.Quote(rd, 500, 1, now)
		assert.NoError(t, err, "age equal to the limit is accepted")
	})

	t.Run("non positive price", func(t *testing.T) {
		_, err := r.Quote(reading(0, 0), 500, 1, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPriceFeed))
		_, err = r.Quote(reading(-5, 0), 500, 1, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPriceFeed))
	})

	t.Run("wide confidence", func(t *testing.T) {
		_, err := r.Quote(reading(100_00000000, 2_00000001), 500, 1, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePriceFeedUnreliable))

		_, err = r.Quote(reading(100_00000000, 2_00000000), 500, 1, now)
		assert.NoError(t, err, "ratio equal to the limit is accepted")
	})

	t.Run("overflow", func(t *testing.T) {
		_, err := r.Quote(reading(1, 0), math.MaxUint64, 99, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMathOverflow))
	})
}
