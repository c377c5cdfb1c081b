package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("telegram-credit-ledger/usecase")

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// AttemptLimiter throttles claim attempts per account.
type AttemptLimiter interface {
	Allow(ctx context.Context, accountID int64) (bool, error)
}

// Messages renders user-facing texts by key.
type Messages interface {
	T(key string, args ...interface{}) string
}

// TaskSubmitter queues best-effort background work.
type TaskSubmitter interface {
	Submit(task func(ctx context.Context) error) error
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
