package application

import (
	"context"
	"time"

	"telegram-credit-ledger/internal/domain/model"
)

// LedgerService is the surface the bot layer and the internal API call into.
// Ledger implements it; transports depend on the interface so tests can swap it.
type LedgerService interface {
	CreateAccount(ctx context.Context, id int64, displayName string, referrerID *int64) (*model.Account, bool, error)
	// GetAccount reports found=false, with a nil error, for an unknown id.
	GetAccount(ctx context.Context, id int64) (acc *model.Account, found bool, err error)
	AdjustBalance(ctx context.Context, id int64, delta int64) (*model.Account, error)
	ChargeUsage(ctx context.Context, id int64, cost int64) (*model.Account, error)
	SetBanned(ctx context.Context, id int64, banned bool) error
	TouchActivity(ctx context.Context, id int64) error
	DeleteAccount(ctx context.Context, id int64) error
	BulkAdjust(ctx context.Context, ids []int64, delta int64) (int, error)

	Redeem(ctx context.Context, accountID int64, code string) (model.RedemptionResult, error)

	// CreateCode takes expiryMinutes nil or 0 for a code that never expires.
	CreateCode(ctx context.Context, code string, amount int64, maxUses int, expiryMinutes *int) (*model.RedeemCode, error)
	GenerateCode(ctx context.Context, amount int64, maxUses int, expiryMinutes *int) (*model.RedeemCode, error)
	GetCode(ctx context.Context, code string) (*model.RedeemCode, error)
	DeactivateCode(ctx context.Context, code string) error
	DeleteCode(ctx context.Context, code string) error
	ListCodes(ctx context.Context, filter model.CodeFilter) ([]*model.RedeemCode, error)
	CleanupExpiredCodes(ctx context.Context) (int, error)
	CodeClaimants(ctx context.Context, code string) ([]*model.CodeClaimant, error)

	ParseDuration(text string) (minutes int, ok bool)

	AccountStats(ctx context.Context, id int64) (*model.AccountStats, error)
	AccountLedger(ctx context.Context, id int64, limit int) ([]*model.LedgerEntry, error)
	RedemptionHistory(ctx context.Context, id int64) ([]*model.Redemption, error)
	Totals(ctx context.Context) (*model.Totals, error)
	TopReferrers(ctx context.Context, limit int) ([]*model.ReferrerRank, error)
	Leaderboard(ctx context.Context, limit int) ([]*model.Account, error)
	RecentAccounts(ctx context.Context, limit int) ([]*model.Account, error)
	InactiveAccounts(ctx context.Context, olderThan time.Time, limit int) (int, []*model.Account, error)
	JoinedBetween(ctx context.Context, from, to time.Time) ([]*model.Account, error)
}
