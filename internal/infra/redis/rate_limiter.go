package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter keyed by caller-supplied strings.
type RateLimiter struct {
	client Client
}

func NewRateLimiter(client Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		// A failed Expire on the first hit leaves the key without a TTL;
		// re-arm it so the window still ends.
		if ttl, err := r.client.TTL(ctx, key); err == nil && ttl == -1 {
			_ = r.client.Expire(ctx, key, window)
		}
		return false, nil
	}

	return true, nil
}

func RedeemKey(accountID int64) string {
	return fmt.Sprintf("rate_limit:redeem:%d", accountID)
}

// AttemptLimiter allows at most Limit claim attempts per account per Window.
type AttemptLimiter struct {
	rl     *RateLimiter
	Limit  int
	Window time.Duration
}

func NewAttemptLimiter(client Client, limit int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{rl: NewRateLimiter(client), Limit: limit, Window: window}
}

func (a *AttemptLimiter) Allow(ctx context.Context, accountID int64) (bool, error) {
	if a.Limit <= 0 {
		return true, nil
	}
	return a.rl.Allow(ctx, RedeemKey(accountID), a.Limit, a.Window)
}
