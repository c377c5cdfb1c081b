package sched

import (
	"context"
	"fmt"
	"time"

	"telegram-credit-ledger/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CodeSweeper removes redeem codes whose expiry has passed.
type CodeSweeper interface {
	CleanupExpiredCodes(ctx context.Context) (int, error)
}

// CleanupJob runs the expired-code sweep on a cron schedule.
type CleanupJob struct {
	sweeper CodeSweeper
	timeout time.Duration
	cron    *cron.Cron
	log     *zerolog.Logger
}

// NewCleanupJob validates spec (standard 5-field cron or a descriptor such as "@hourly").
func NewCleanupJob(spec string, sweeper CodeSweeper, logger *zerolog.Logger) (*CleanupJob, error) {
	l := logger.With().Str("component", "CleanupJob").Logger()
	j := &CleanupJob{
		sweeper: sweeper,
		timeout: 30 * time.Second,
		cron:    cron.New(),
		log:     &l,
	}
	if _, err := j.cron.AddFunc(spec, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("cleanup schedule %q: %w", spec, err)
	}
	return j, nil
}

func (j *CleanupJob) Start() {
	j.log.Info().Msg("Starting expired code cleanup")
	j.cron.Start()
}

// Stop waits for a running sweep to finish or ctx to end.
func (j *CleanupJob) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	j.log.Info().Msg("Stopped expired code cleanup")
}

// RunOnce performs a single sweep and reports how many codes were removed.
func (j *CleanupJob) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	n, err := j.sweeper.CleanupExpiredCodes(ctx)
	if err != nil {
		metrics.IncJobRun("cleanup_expired_codes", "failed")
		j.log.Error().Err(err).Msg("cleanup run failed")
		return 0
	}
	metrics.IncJobRun("cleanup_expired_codes", "ok")
	if n > 0 {
		j.log.Info().Int("count", n).Msg("expired codes removed")
	}
	return n
}
