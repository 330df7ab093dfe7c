package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "oracle:price:"

// CachedFeed is a read-through Redis cache in front of another feed. The
// TTL should stay well under the quote staleness limit so a cached reading is
// never the reason a quote goes stale.
type CachedFeed struct {
	inner  Feed
	client redis.Cmdable
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCachedFeed wraps inner. A nil logger discards cache warnings.
func NewCachedFeed(inner Feed, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedFeed {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CachedFeed{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (c *CachedFeed) Latest(ctx context.Context, feedID string) (PriceReading, error) {
	key := cacheKeyPrefix + feedID
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var r PriceReading
		if jsonErr := json.Unmarshal(raw, &r); jsonErr == nil {
			return r, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// cache trouble degrades to a direct read
		c.logger.WarnContext(ctx, "price cache read failed", "feed_id", feedID, "error", err)
	}

	// concurrent misses for one feed share a single upstream fetch
	v, err, _ := c.group.Do(feedID, func() (any, error) {
		r, err := c.inner.Latest(ctx, feedID)
		if err != nil {
			return PriceReading{}, err
		}
		payload, err := json.Marshal(r)
		if err != nil {
			return PriceReading{}, fmt.Errorf("encode price reading: %w", err)
		}
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "price cache write failed", "feed_id", feedID, "error", err)
		}
		return r, nil
	})
	if err != nil {
		return PriceReading{}, err
	}
	return v.(PriceReading), nil
}
