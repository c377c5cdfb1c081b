package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
	"telegram-credit-ledger/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ repository.AccountRepository = (*reportCache)(nil)

// reportCache serves the aggregate reports from redis for up to ttl.
// Balance-bearing reads and all writes go straight to the wrapped repository.
type reportCache struct {
	repository.AccountRepository
	cache Client
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewReportCache(inner repository.AccountRepository, cache Client, ttl time.Duration, logger *zerolog.Logger) repository.AccountRepository {
	l := logger.With().Str("component", "report_cache").Logger()
	return &reportCache{AccountRepository: inner, cache: cache, ttl: ttl, log: &l}
}

func (c *reportCache) Totals(ctx context.Context, tx repository.Tx) (*model.Totals, error) {
	if tx != nil {
		return c.AccountRepository.Totals(ctx, tx)
	}
	var out model.Totals
	if c.lookup(ctx, "totals", "report:totals", &out) {
		return &out, nil
	}
	t, err := c.AccountRepository.Totals(ctx, tx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, "report:totals", t)
	return t, nil
}

func (c *reportCache) TopReferrers(ctx context.Context, tx repository.Tx, limit int) ([]*model.ReferrerRank, error) {
	if tx != nil {
		return c.AccountRepository.TopReferrers(ctx, tx, limit)
	}
	key := fmt.Sprintf("report:top_referrers:%d", limit)
	var out []*model.ReferrerRank
	if c.lookup(ctx, "top_referrers", key, &out) {
		return out, nil
	}
	ranks, err := c.AccountRepository.TopReferrers(ctx, tx, limit)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, ranks)
	return ranks, nil
}

func (c *reportCache) lookup(ctx context.Context, report, key string, dst interface{}) bool {
	val, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		if json.Unmarshal([]byte(val), dst) == nil {
			metrics.IncCacheRequest(report, "hit")
			return true
		}
		metrics.IncCacheRequest(report, "error")
	case errors.Is(err, ErrMiss):
		metrics.IncCacheRequest(report, "miss")
	default:
		metrics.IncCacheRequest(report, "error")
		c.log.Warn().Err(err).Str("key", key).Msg("report cache get failed")
	}
	return false
}

func (c *reportCache) store(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("report cache set failed")
	}
}
