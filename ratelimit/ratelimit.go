// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Default policy: 3 requests per minute per client.
const (
	MaxRequests = 3
	Window      = 60 * time.Second
	KeyPrefix   = "rate_limit"
)

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RedisLimiter keeps a capped list of recent hits per key in Redis so the
// limit holds across instances. Redis errors let the request through.
type RedisLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration

	// An unreachable Redis fails every request; log that once per interval.
	errLog rate.Sometimes
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		maxRequests: MaxRequests,
		window:      Window,
		errLog:      rate.Sometimes{Interval: 10 * time.Second},
	}
}

// NewRedisLimiterFromURL parses a redis:// URL and returns a limiter
// backed by a new client.
func NewRedisLimiterFromURL(url string) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisLimiter(redis.NewClient(opts)), nil
}

func (l *RedisLimiter) key(k string) string {
	return KeyPrefix + ":" + k
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}

	k := l.key(key)

	count, err := l.client.LLen(ctx, k).Result()
	if err != nil {
		l.logError(err)
		return true
	}
	if count >= int64(l.maxRequests) {
		return false
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, k, time.Now().UnixMilli())
		pipe.LTrim(ctx, k, 0, int64(l.maxRequests-1))
		pipe.Expire(ctx, k, l.window)
		return nil
	})
	if err != nil {
		l.logError(err)
	}
	return true
}

func (l *RedisLimiter) logError(err error) {
	l.errLog.Do(func() {
		slog.Error("rate limiter error (failing open)", "error", err)
	})
}

func (l *RedisLimiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}

// LocalLimiter is the in-process counterpart of RedisLimiter, used when no
// Redis is configured. Each key allows max hits; the count clears once
// window has passed since the last allowed hit. Keys are held in a
// bounded LRU.
type LocalLimiter struct {
	mu     sync.Mutex
	keys   *lru.Cache[string, *localHits]
	max    int
	window time.Duration
	now    func() time.Time
}

type localHits struct {
	count   int
	expires time.Time
}

const localKeys = 10000

func NewLocalLimiter() *LocalLimiter {
	return NewLocalLimiterWith(MaxRequests, Window)
}

// NewLocalLimiterWith allows max requests per window.
func NewLocalLimiterWith(max int, window time.Duration) *LocalLimiter {
	cache, _ := lru.New[string, *localHits](localKeys) // only fails on size <= 0
	return &LocalLimiter{
		keys:   cache,
		max:    max,
		window: window,
		now:    time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	h, ok := l.keys.Get(key)
	if !ok || !now.Before(h.expires) {
		h = &localHits{}
		l.keys.Add(key, h)
	}
	if h.count >= l.max {
		return false
	}
	h.count++
	h.expires = now.Add(l.window)
	return true
}
