package usecase

import (
	"context"
	"errors"
	"time"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
	"telegram-credit-ledger/internal/infra/metrics"
)

// balanceWriter pairs every balance mutation with its ledger entry so both
// land in the same transaction.
type balanceWriter struct {
	accounts repository.AccountRepository
	ledger   repository.LedgerRepository
}

func (w balanceWriter) apply(ctx context.Context, tx repository.Tx, accountID, delta int64, reason model.EntryReason, ref string, now time.Time) error {
	if err := w.accounts.AdjustBalance(ctx, tx, accountID, delta); err != nil {
		return err
	}
	return w.ledger.Append(ctx, tx, &model.LedgerEntry{
		AccountID: accountID,
		Delta:     delta,
		Reason:    reason,
		Ref:       ref,
		CreatedAt: now,
	})
}

func (w balanceWriter) debit(ctx context.Context, tx repository.Tx, accountID, amount int64, reason model.EntryReason, ref string, now time.Time) error {
	if err := w.accounts.Debit(ctx, tx, accountID, amount); err != nil {
		return err
	}
	return w.ledger.Append(ctx, tx, &model.LedgerEntry{
		AccountID: accountID,
		Delta:     -amount,
		Reason:    reason,
		Ref:       ref,
		CreatedAt: now,
	})
}

// observeStoreErr counts store failures that escape a use case.
func observeStoreErr(op string, err error) {
	switch {
	case err == nil:
	case domain.IsTransient(err):
		metrics.IncStoreError(op, "transient")
	case isBusinessErr(err):
	default:
		metrics.IncStoreError(op, "fatal")
	}
}

func isBusinessErr(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound, domain.ErrAlreadyExists, domain.ErrInvalidArgument,
		domain.ErrInsufficientCredits, domain.ErrRateLimited,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
