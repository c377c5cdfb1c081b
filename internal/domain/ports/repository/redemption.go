package repository

import (
	"context"

	"telegram-credit-ledger/internal/domain/model"
)

// -----------------------------
// Redemption ledger
// -----------------------------

type RedemptionRepository interface {
	// Insert fails with ErrAlreadyClaimed when (account, code) already exists.
	Insert(ctx context.Context, tx Tx, r *model.Redemption) error
	ExistsForCode(ctx context.Context, tx Tx, code string) (bool, error)
	CountForCode(ctx context.Context, tx Tx, code string) (int, error)
	ListByAccount(ctx context.Context, tx Tx, accountID int64) ([]*model.Redemption, error)
	ListClaimants(ctx context.Context, tx Tx, code string) ([]*model.CodeClaimant, error)
	// DeleteByAccount removes an account's records and returns the codes they referenced.
	DeleteByAccount(ctx context.Context, tx Tx, accountID int64) ([]string, error)
	AccountStats(ctx context.Context, tx Tx, accountID int64) (claimed int, credits int64, err error)
}
