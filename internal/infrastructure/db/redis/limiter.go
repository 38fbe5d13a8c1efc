package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = 15 * time.Minute
)

// AttemptLimiter counts failed sign-ins per key in Redis. Once maxAttempts
// failures accumulate inside the window the key stays blocked until the
// counter expires.
// Key format: signin:attempts:<sha256(lower(key))>
type AttemptLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewAttemptLimiter wraps client. Non-positive limits fall back to 5 attempts
// per 15 minutes.
func NewAttemptLimiter(client *redis.Client, maxAttempts int, window time.Duration) *AttemptLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &AttemptLimiter{client: client, maxAttempts: int64(maxAttempts), window: window}
}

// Blocked returns the remaining lock-out for key, or zero when sign-in may
// proceed.
func (l *AttemptLimiter) Blocked(ctx context.Context, key string) (time.Duration, error) {
	k := l.key(key)
	n, err := l.client.Get(ctx, k).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("limiter get: %w", err)
	}
	if n < l.maxAttempts {
		return 0, nil
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("limiter ttl: %w", err)
	}
	if ttl <= 0 {
		// Counter without expiry: treat as a full window.
		return l.window, nil
	}
	return ttl, nil
}

// RecordFailure increments the failure counter, starting the window on the
// first failure.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, key string) error {
	k := l.key(key)
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("limiter record: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful sign-in.
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("limiter reset: %w", err)
	}
	return nil
}

// key hashes the identifier so raw emails never appear in Redis.
func (l *AttemptLimiter) key(id string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(id))))
	return "signin:attempts:" + hex.EncodeToString(sum[:])
}
