// Package oracle supplies point-in-time price readings for the native asset
// against USD. The registrar only reads from a feed; it never writes one.
package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"registrar/pkg/platform/sentinel"
)

// DefaultFeedID is the SOL/USD feed on the Pyth network.
const DefaultFeedID = "0xef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"

// PriceReading is one observation. The USD value of one native unit is
// Price * 10^Exponent; Conf is the confidence interval in the same units.
type PriceReading struct {
	FeedID      string `json:"feed_id"`
	Price       int64  `json:"price"`
	Conf        uint64 `json:"conf"`
	Exponent    int32  `json:"exponent"`
	PublishTime int64  `json:"publish_time"`
}

// Feed returns the latest reading for a feed. Implementations return
// sentinel.ErrNotFound for unknown feeds and sentinel.ErrUnavailable when the
// source cannot be reached.
type Feed interface {
	Latest(ctx context.Context, feedID string) (PriceReading, error)
}

// Static serves readings set in process. Used in tests and dev mode.
type Static struct {
	mu       sync.RWMutex
	readings map[string]PriceReading
}

// NewStatic seeds a static feed with readings keyed by their FeedID.
func NewStatic(readings ...PriceReading) *Static {
	s := &Static{readings: make(map[string]PriceReading, len(readings))}
	for _, r := range readings {
		s.readings[r.FeedID] = r
	}
	return s
}

// Set replaces the reading for r.FeedID.
func (s *Static) Set(r PriceReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[r.FeedID] = r
}

func (s *Static) Latest(_ context.Context, feedID string) (PriceReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.readings[feedID]
	if !ok {
		return PriceReading{}, fmt.Errorf("feed %s: %w", feedID, sentinel.ErrNotFound)
	}
	return r, nil
}

// Fixed serves one reading stamped with the time of each call, so it never
// goes stale. Dev mode only.
type Fixed struct {
	reading PriceReading
	now     func() time.Time
}

func NewFixed(r PriceReading) *Fixed {
	return &Fixed{reading: r, now: time.Now}
}

func (f *Fixed) Latest(_ context.Context, feedID string) (PriceReading, error) {
	if feedID != f.reading.FeedID {
		return PriceReading{}, fmt.Errorf("feed %s: %w", feedID, sentinel.ErrNotFound)
	}
	r := f.reading
	r.PublishTime = f.now().Unix()
	return r, nil
}
