package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CapGuard atomically reserves one of a child's daily departure slots.
// Reserve is called after the store count check passed; existing is that count.
type CapGuard interface {
	Reserve(ctx context.Context, childID int64, date string, existing, limit int) (release func(context.Context), err error)
	Reset(ctx context.Context, date string) error
}

// errGuardFull is returned by guards when the slot counter is exhausted.
var errGuardFull = errors.New("daily slot counter exhausted")

// NopGuard keeps the plain read-then-insert behaviour.
type NopGuard struct{}

func (NopGuard) Reserve(context.Context, int64, string, int, int) (func(context.Context), error) {
	return func(context.Context) {}, nil
}

func (NopGuard) Reset(context.Context, string) error { return nil }

// MemoryGuard counts reservations in process; it only protects a single instance.
type MemoryGuard struct {
	mu     sync.Mutex
	day    string
	counts map[int64]int
}

// NewMemoryGuard creates an empty in-process guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{counts: make(map[int64]int)}
}

func (g *MemoryGuard) Reserve(_ context.Context, childID int64, date string, existing, limit int) (func(context.Context), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if date != g.day {
		g.day = date
		g.counts = make(map[int64]int)
	}
	n, ok := g.counts[childID]
	if !ok || n < existing {
		n = existing
	}
	if n >= limit {
		return nil, errGuardFull
	}
	g.counts[childID] = n + 1
	return func(context.Context) {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.day == date && g.counts[childID] > 0 {
			g.counts[childID]--
		}
	}, nil
}

func (g *MemoryGuard) Reset(_ context.Context, date string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.day == date {
		g.counts = make(map[int64]int)
	}
	return nil
}

// RedisGuard keeps a per-child per-date counter in Redis so several API
// instances share one view of the daily cap.
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisGuard builds a guard using SETNX+INCR counters.
func NewRedisGuard(client *redis.Client, prefix string) *RedisGuard {
	if prefix == "" {
		prefix = "pickup:cap"
	}
	return &RedisGuard{client: client, prefix: prefix, ttl: 36 * time.Hour}
}

func (g *RedisGuard) key(date string, childID int64) string {
	return fmt.Sprintf("%s:%s:%d", g.prefix, date, childID)
}

func (g *RedisGuard) Reserve(ctx context.Context, childID int64, date string, existing, limit int) (func(context.Context), error) {
	key := g.key(date, childID)
	if err := g.client.SetNX(ctx, key, existing, g.ttl).Err(); err != nil {
		return nil, fmt.Errorf("cap guard seed: %w", err)
	}
	n, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cap guard incr: %w", err)
	}
	if n > int64(limit) {
		_ = g.client.Decr(ctx, key).Err()
		return nil, errGuardFull
	}
	return func(ctx context.Context) {
		_ = g.client.Decr(ctx, key).Err()
	}, nil
}

func (g *RedisGuard) Reset(ctx context.Context, date string) error {
	match := g.prefix + ":" + date + ":*"
	iter := g.client.Scan(ctx, 0, match, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		if strings.HasPrefix(iter.Val(), g.prefix+":"+date+":") {
			keys = append(keys, iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return g.client.Del(ctx, keys...).Err()
}
