//go:build !integration

package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
)

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func seedAccount(t *testing.T, repo *AccountRepo, id int64, ref *int64) {
	t.Helper()
	a, err := model.NewAccount(id, "user", ref, t0)
	require.NoError(t, err)
	created, err := repo.Create(context.Background(), nil, a)
	require.NoError(t, err)
	require.True(t, created)
}

func TestAccountRepo_CreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepo(newTestDB(t))
	seedAccount(t, repo, 1, nil)

	a, _ := model.NewAccount(1, "other", nil, t0)
	created, err := repo.Create(ctx, nil, a)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.FindByID(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, "user", got.DisplayName)
	assert.True(t, got.JoinedAt.Equal(t0))

	_, err = repo.FindByID(ctx, nil, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountRepo_BalanceOps(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepo(newTestDB(t))
	seedAccount(t, repo, 1, nil)

	require.NoError(t, repo.AdjustBalance(ctx, nil, 1, 10))
	require.NoError(t, repo.AdjustBalance(ctx, nil, 1, -3))
	require.NoError(t, repo.Debit(ctx, nil, 1, 7))
	assert.ErrorIs(t, repo.Debit(ctx, nil, 1, 1), domain.ErrInsufficientCredits)
	assert.ErrorIs(t, repo.AdjustBalance(ctx, nil, 99, 1), domain.ErrNotFound)

	got, err := repo.FindByID(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Balance)
	assert.Equal(t, int64(10), got.TotalGranted, "debits never lower total granted")

	// admin debits may take the balance negative
	require.NoError(t, repo.AdjustBalance(ctx, nil, 1, -4))
	got, _ = repo.FindByID(ctx, nil, 1)
	assert.Equal(t, int64(-4), got.Balance)
}

func TestAccountRepo_DeleteNullsReferrals(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepo(newTestDB(t))
	seedAccount(t, repo, 1, nil)
	ref := int64(1)
	seedAccount(t, repo, 2, &ref)

	n, err := repo.CountReferrals(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Delete(ctx, nil, 1))
	got, err := repo.FindByID(ctx, nil, 2)
	require.NoError(t, err)
	assert.Nil(t, got.ReferrerID)
}

func TestRedeemCodeRepo_TryIncrementUseHonorsBound(t *testing.T) {
	ctx := context.Background()
	repo := NewRedeemCodeRepo(newTestDB(t))
	require.NoError(t, repo.Create(ctx, nil, model.CodeSpec{Code: "TWO", Amount: 5, MaxUses: 2}.Build(t0)))

	for i := 0; i < 2; i++ {
		ok, err := repo.TryIncrementUse(ctx, nil, "TWO")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := repo.TryIncrementUse(ctx, nil, "TWO")
	require.NoError(t, err)
	assert.False(t, ok)

	c, err := repo.FindByCode(ctx, nil, "TWO")
	require.NoError(t, err)
	assert.Equal(t, 2, c.CurrentUses)

	require.NoError(t, repo.ReleaseUse(ctx, nil, "TWO"))
	c, _ = repo.FindByCode(ctx, nil, "TWO")
	assert.Equal(t, 1, c.CurrentUses)

	ok, err = repo.TryIncrementUse(ctx, nil, "MISSING")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Deactivate(ctx, nil, "TWO"))
	ok, err = repo.TryIncrementUse(ctx, nil, "TWO")
	require.NoError(t, err)
	assert.False(t, ok, "an inactive code never gains uses")
	c, _ = repo.FindByCode(ctx, nil, "TWO")
	assert.Equal(t, 1, c.CurrentUses)
}

func TestRedeemCodeRepo_CreateConflictAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewRedeemCodeRepo(newTestDB(t))
	now := t0.Add(2 * time.Hour)

	require.NoError(t, repo.Create(ctx, nil, model.CodeSpec{Code: "FOREVER", Amount: 1, MaxUses: 1}.Build(t0)))
	require.NoError(t, repo.Create(ctx, nil, model.CodeSpec{Code: "HOURLY", Amount: 1, MaxUses: 1, ExpiryMinutes: 60}.Build(t0)))
	require.NoError(t, repo.Create(ctx, nil, model.CodeSpec{Code: "OFF", Amount: 1, MaxUses: 1, ExpiryMinutes: 60}.Build(t0)))
	require.NoError(t, repo.Deactivate(ctx, nil, "OFF"))

	err := repo.Create(ctx, nil, model.CodeSpec{Code: "FOREVER", Amount: 9, MaxUses: 9}.Build(t0))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	codes := func(f model.CodeFilter) []string {
		list, err := repo.List(ctx, nil, f, now)
		require.NoError(t, err)
		out := make([]string, 0, len(list))
		for _, c := range list {
			out = append(out, c.Code)
		}
		return out
	}
	assert.ElementsMatch(t, []string{"FOREVER", "HOURLY", "OFF"}, codes(model.CodeFilterAll))
	assert.ElementsMatch(t, []string{"FOREVER", "HOURLY"}, codes(model.CodeFilterActive))
	assert.ElementsMatch(t, []string{"OFF"}, codes(model.CodeFilterInactive))
	assert.ElementsMatch(t, []string{"HOURLY"}, codes(model.CodeFilterExpired))

	n, err := repo.DeleteExpired(ctx, nil, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = repo.FindByCode(ctx, nil, "HOURLY")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, nil, "HOURLY"), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Deactivate(ctx, nil, "NOPE"), domain.ErrNotFound)
}

func TestRedemptionRepo_UniquePerAccountAndCode(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	accounts := NewAccountRepo(db)
	repo := NewRedemptionRepo(db)
	seedAccount(t, accounts, 1, nil)
	seedAccount(t, accounts, 2, nil)

	require.NoError(t, repo.Insert(ctx, nil, model.NewRedemption(1, "X", t0)))
	assert.ErrorIs(t, repo.Insert(ctx, nil, model.NewRedemption(1, "X", t0)), domain.ErrAlreadyClaimed)
	require.NoError(t, repo.Insert(ctx, nil, model.NewRedemption(2, "X", t0)))
	require.NoError(t, repo.Insert(ctx, nil, model.NewRedemption(1, "Y", t0)))

	n, err := repo.CountForCode(ctx, nil, "X")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	codes, err := repo.DeleteByAccount(ctx, nil, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"X", "Y"}, codes)

	list, err := repo.ListByAccount(ctx, nil, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tm := NewTxManager(db)
	accounts := NewAccountRepo(db)
	ledger := NewLedgerRepo(db)
	seedAccount(t, accounts, 1, nil)

	boom := errors.New("boom")
	err := tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := accounts.AdjustBalance(ctx, tx, 1, 50); err != nil {
			return err
		}
		if err := ledger.Append(ctx, tx, &model.LedgerEntry{AccountID: 1, Delta: 50, Reason: model.ReasonAdjustment, CreatedAt: t0}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := accounts.FindByID(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Balance)
	entries, err := ledger.ListByAccount(ctx, nil, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGetExecutor_RejectsForeignTx(t *testing.T) {
	repo := NewAccountRepo(newTestDB(t))
	_, err := repo.FindByID(context.Background(), "not a tx", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidExecContext)
}
