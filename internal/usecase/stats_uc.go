package usecase

import (
	"context"
	"time"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
	"telegram-credit-ledger/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// StatsUseCase serves read-only reports over ledger state.
type StatsUseCase interface {
	Totals(ctx context.Context) (*model.Totals, error)
	TopReferrers(ctx context.Context, limit int) ([]*model.ReferrerRank, error)
	Leaderboard(ctx context.Context, limit int) ([]*model.Account, error)
	RecentAccounts(ctx context.Context, limit int) ([]*model.Account, error)
	InactiveAccounts(ctx context.Context, olderThan time.Time, limit int) (total int, sample []*model.Account, err error)
	JoinedBetween(ctx context.Context, from, to time.Time) ([]*model.Account, error)
	AccountStats(ctx context.Context, id int64) (*model.AccountStats, error)
}

type statsUC struct {
	accounts    repository.AccountRepository
	redemptions repository.RedemptionRepository

	log *zerolog.Logger
}

func NewStatsUseCase(accounts repository.AccountRepository, redemptions repository.RedemptionRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{accounts: accounts, redemptions: redemptions, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (*model.Totals, error) {
	defer logging.TraceDuration(s.log, "StatsUC.Totals")()
	return s.accounts.Totals(ctx, repository.NoTX)
}

func (s *statsUC) TopReferrers(ctx context.Context, limit int) ([]*model.ReferrerRank, error) {
	return s.accounts.TopReferrers(ctx, repository.NoTX, clampLimit(limit, 10, 100))
}

func (s *statsUC) Leaderboard(ctx context.Context, limit int) ([]*model.Account, error) {
	return s.accounts.Leaderboard(ctx, repository.NoTX, clampLimit(limit, 10, 100))
}

func (s *statsUC) RecentAccounts(ctx context.Context, limit int) ([]*model.Account, error) {
	return s.accounts.ListRecent(ctx, repository.NoTX, clampLimit(limit, 20, 500))
}

func (s *statsUC) InactiveAccounts(ctx context.Context, olderThan time.Time, limit int) (int, []*model.Account, error) {
	defer logging.TraceDuration(s.log, "StatsUC.InactiveAccounts")()
	n, err := s.accounts.CountInactive(ctx, repository.NoTX, olderThan)
	if err != nil {
		return 0, nil, err
	}
	sample, err := s.accounts.ListInactive(ctx, repository.NoTX, olderThan, clampLimit(limit, 20, 500))
	if err != nil {
		return 0, nil, err
	}
	return n, sample, nil
}

// JoinedBetween backs the account export; the range is half-open [from, to).
func (s *statsUC) JoinedBetween(ctx context.Context, from, to time.Time) ([]*model.Account, error) {
	if !to.After(from) {
		return nil, &domain.ValidationError{Field: "to", Reason: "must be after from"}
	}
	return s.accounts.ListJoinedBetween(ctx, repository.NoTX, from, to)
}

func (s *statsUC) AccountStats(ctx context.Context, id int64) (*model.AccountStats, error) {
	defer logging.TraceDuration(s.log, "StatsUC.AccountStats")()
	ok, err := s.accounts.Exists(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	refs, err := s.accounts.CountReferrals(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	claimed, credits, err := s.redemptions.AccountStats(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	return &model.AccountStats{AccountID: id, Referrals: refs, CodesClaimed: claimed, CreditsFromCode: credits}, nil
}
