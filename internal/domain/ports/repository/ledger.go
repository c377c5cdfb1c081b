package repository

import (
	"context"

	"telegram-credit-ledger/internal/domain/model"
)

// -----------------------------
// Balance ledger
// -----------------------------

type LedgerRepository interface {
	Append(ctx context.Context, tx Tx, e *model.LedgerEntry) error
	ListByAccount(ctx context.Context, tx Tx, accountID int64, limit int) ([]*model.LedgerEntry, error)
	DeleteByAccount(ctx context.Context, tx Tx, accountID int64) error
}
