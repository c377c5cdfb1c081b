package application

import (
	"context"
	"errors"
	"time"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/usecase"
)

var _ LedgerService = (*Ledger)(nil)

// Ledger composes the use cases into the operations exposed to callers.
type Ledger struct {
	Accounts    usecase.AccountUseCase
	Codes       usecase.CodeUseCase
	Redemptions usecase.RedemptionUseCase
	Stats       usecase.StatsUseCase
}

func NewLedger(accounts usecase.AccountUseCase, codes usecase.CodeUseCase, redemptions usecase.RedemptionUseCase, stats usecase.StatsUseCase) *Ledger {
	return &Ledger{Accounts: accounts, Codes: codes, Redemptions: redemptions, Stats: stats}
}

func (l *Ledger) CreateAccount(ctx context.Context, id int64, displayName string, referrerID *int64) (*model.Account, bool, error) {
	return l.Accounts.Register(ctx, id, displayName, referrerID)
}

func (l *Ledger) GetAccount(ctx context.Context, id int64) (*model.Account, bool, error) {
	acc, err := l.Accounts.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return acc, true, nil
}

func (l *Ledger) AdjustBalance(ctx context.Context, id int64, delta int64) (*model.Account, error) {
	return l.Accounts.AdjustBalance(ctx, id, delta)
}

func (l *Ledger) ChargeUsage(ctx context.Context, id int64, cost int64) (*model.Account, error) {
	return l.Accounts.Charge(ctx, id, cost)
}

func (l *Ledger) SetBanned(ctx context.Context, id int64, banned bool) error {
	return l.Accounts.SetBanned(ctx, id, banned)
}

func (l *Ledger) TouchActivity(ctx context.Context, id int64) error {
	return l.Accounts.Touch(ctx, id)
}

func (l *Ledger) DeleteAccount(ctx context.Context, id int64) error {
	return l.Accounts.Delete(ctx, id)
}

func (l *Ledger) BulkAdjust(ctx context.Context, ids []int64, delta int64) (int, error) {
	return l.Accounts.BulkAdjust(ctx, ids, delta)
}

func (l *Ledger) Redeem(ctx context.Context, accountID int64, code string) (model.RedemptionResult, error) {
	return l.Redemptions.Redeem(ctx, accountID, code)
}

func (l *Ledger) CreateCode(ctx context.Context, code string, amount int64, maxUses int, expiryMinutes *int) (*model.RedeemCode, error) {
	return l.Codes.Create(ctx, model.CodeSpec{Code: code, Amount: amount, MaxUses: maxUses, ExpiryMinutes: deref(expiryMinutes)})
}

func (l *Ledger) GenerateCode(ctx context.Context, amount int64, maxUses int, expiryMinutes *int) (*model.RedeemCode, error) {
	return l.Codes.Generate(ctx, amount, maxUses, deref(expiryMinutes))
}

func (l *Ledger) GetCode(ctx context.Context, code string) (*model.RedeemCode, error) {
	return l.Codes.Get(ctx, code)
}

func (l *Ledger) DeactivateCode(ctx context.Context, code string) error {
	return l.Codes.Deactivate(ctx, code)
}

func (l *Ledger) DeleteCode(ctx context.Context, code string) error {
	return l.Codes.Delete(ctx, code)
}

func (l *Ledger) ListCodes(ctx context.Context, filter model.CodeFilter) ([]*model.RedeemCode, error) {
	return l.Codes.List(ctx, filter)
}

func (l *Ledger) CleanupExpiredCodes(ctx context.Context) (int, error) {
	return l.Codes.CleanupExpired(ctx)
}

func (l *Ledger) CodeClaimants(ctx context.Context, code string) ([]*model.CodeClaimant, error) {
	return l.Codes.Claimants(ctx, code)
}

func (l *Ledger) ParseDuration(text string) (int, bool) {
	return model.ParseDuration(text)
}

func (l *Ledger) AccountStats(ctx context.Context, id int64) (*model.AccountStats, error) {
	return l.Stats.AccountStats(ctx, id)
}

func (l *Ledger) AccountLedger(ctx context.Context, id int64, limit int) ([]*model.LedgerEntry, error) {
	return l.Accounts.Ledger(ctx, id, limit)
}

func (l *Ledger) RedemptionHistory(ctx context.Context, id int64) ([]*model.Redemption, error) {
	return l.Redemptions.History(ctx, id)
}

func (l *Ledger) Totals(ctx context.Context) (*model.Totals, error) {
	return l.Stats.Totals(ctx)
}

func (l *Ledger) TopReferrers(ctx context.Context, limit int) ([]*model.ReferrerRank, error) {
	return l.Stats.TopReferrers(ctx, limit)
}

func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]*model.Account, error) {
	return l.Stats.Leaderboard(ctx, limit)
}

func (l *Ledger) RecentAccounts(ctx context.Context, limit int) ([]*model.Account, error) {
	return l.Stats.RecentAccounts(ctx, limit)
}

func (l *Ledger) InactiveAccounts(ctx context.Context, olderThan time.Time, limit int) (int, []*model.Account, error) {
	return l.Stats.InactiveAccounts(ctx, olderThan, limit)
}

func (l *Ledger) JoinedBetween(ctx context.Context, from, to time.Time) ([]*model.Account, error) {
	return l.Stats.JoinedBetween(ctx, from, to)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
