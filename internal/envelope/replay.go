package envelope

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"registrar/pkg/platform/sentinel"
)

var markUsedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "registrar_replay_guard_duration_ms",
	Help:    "Latency of authorization replay checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const replayKeyPrefix = "envelope:jti:"

func replayKey(subject, jti string) string {
	return replayKeyPrefix + subject + ":" + jti
}

// MemoryReplayGuard keeps seen authorizations in process.
type MemoryReplayGuard struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	clock func() time.Time
}

func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{seen: make(map[string]time.Time), clock: time.Now}
}

func (g *MemoryReplayGuard) MarkUsed(_ context.Context, subject, jti string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clock()
	for k, exp := range g.seen {
		if now.After(exp) {
			delete(g.seen, k)
		}
	}
	key := replayKey(subject, jti)
	if exp, ok := g.seen[key]; ok && !now.After(exp) {
		return fmt.Errorf("authorization %s: %w", jti, sentinel.ErrAlreadyUsed)
	}
	g.seen[key] = now.Add(ttl)
	return nil
}

// RedisReplayGuard shares seen authorizations across instances.
type RedisReplayGuard struct {
	client redis.Cmdable
}

func NewRedisReplayGuard(client redis.Cmdable) *RedisReplayGuard {
	return &RedisReplayGuard{client: client}
}

// MarkUsed claims the key with SET NX so only the first submission wins.
func (g *RedisReplayGuard) MarkUsed(ctx context.Context, subject, jti string, ttl time.Duration) error {
	start := time.Now()
	defer func() {
		markUsedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	ok, err := g.client.SetNX(ctx, replayKey(subject, jti), "1", ttl).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("mark authorization used: %w: %v", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("authorization %s: %w", jti, sentinel.ErrAlreadyUsed)
	}
	return nil
}
