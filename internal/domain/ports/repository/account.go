package repository

import (
	"context"
	"time"

	"telegram-credit-ledger/internal/domain/model"
)

// -----------------------------
// Accounts
// -----------------------------

type AccountRepository interface {
	// Create inserts a if no account with the same id exists. created is false on a no-op.
	Create(ctx context.Context, tx Tx, a *model.Account) (created bool, err error)
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Account, error)
	Exists(ctx context.Context, tx Tx, id int64) (bool, error)

	// AdjustBalance adds delta in one statement; positive deltas also raise total_granted.
	AdjustBalance(ctx context.Context, tx Tx, id int64, delta int64) error
	// Debit subtracts amount only if balance >= amount, else ErrInsufficientCredits.
	Debit(ctx context.Context, tx Tx, id int64, amount int64) error
	SetBanned(ctx context.Context, tx Tx, id int64, banned bool) error
	Touch(ctx context.Context, tx Tx, id int64, displayName string, at time.Time) error
	// Delete removes the account and nulls referrer_id on accounts it referred.
	Delete(ctx context.Context, tx Tx, id int64) error

	Count(ctx context.Context, tx Tx) (int, error)
	CountInactive(ctx context.Context, tx Tx, since time.Time) (int, error)
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.Account, error)
	ListJoinedBetween(ctx context.Context, tx Tx, from, to time.Time) ([]*model.Account, error)
	ListInactive(ctx context.Context, tx Tx, since time.Time, limit int) ([]*model.Account, error)
	Leaderboard(ctx context.Context, tx Tx, limit int) ([]*model.Account, error)
	TopReferrers(ctx context.Context, tx Tx, limit int) ([]*model.ReferrerRank, error)
	CountReferrals(ctx context.Context, tx Tx, id int64) (int, error)
	Totals(ctx context.Context, tx Tx) (*model.Totals, error)
}
