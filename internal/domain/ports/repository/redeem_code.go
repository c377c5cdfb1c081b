package repository

import (
	"context"
	"time"

	"telegram-credit-ledger/internal/domain/model"
)

// -----------------------------
// Redeem codes
// -----------------------------

type RedeemCodeRepository interface {
	// Create fails with ErrAlreadyExists when the code is taken.
	Create(ctx context.Context, tx Tx, c *model.RedeemCode) error
	FindByCode(ctx context.Context, tx Tx, code string) (*model.RedeemCode, error)
	Deactivate(ctx context.Context, tx Tx, code string) error
	Delete(ctx context.Context, tx Tx, code string) error
	List(ctx context.Context, tx Tx, filter model.CodeFilter, now time.Time) ([]*model.RedeemCode, error)

	// TryIncrementUse bumps current_uses by one only if it is below max_uses.
	// It is a single conditional UPDATE; applied is false when the bound held.
	TryIncrementUse(ctx context.Context, tx Tx, code string) (applied bool, err error)
	// ReleaseUse undoes one increment, never going below zero.
	ReleaseUse(ctx context.Context, tx Tx, code string) error
	// DeleteExpired removes active codes whose expiry passed before now.
	DeleteExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
}
