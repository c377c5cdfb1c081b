//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
)

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func mustCreateAccount(t *testing.T, repo *PostgresAccountRepo, id int64, ref *int64) {
	t.Helper()
	a, err := model.NewAccount(id, "member", ref, t0)
	if err != nil {
		t.Fatalf("model.NewAccount() failed: %v", err)
	}
	created, err := repo.Create(context.Background(), nil, a)
	if err != nil || !created {
		t.Fatalf("Create(%d) = %t, %v", id, created, err)
	}
}

func TestAccountRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	repo := NewPostgresAccountRepo(testPool)
	ctx := context.Background()

	t.Run("create is idempotent", func(t *testing.T) {
		cleanup(t)
		mustCreateAccount(t, repo, 1, nil)

		again, _ := model.NewAccount(1, "renamed", nil, t0)
		created, err := repo.Create(ctx, nil, again)
		if err != nil {
			t.Fatalf("second Create failed: %v", err)
		}
		if created {
			t.Error("expected created=false for an existing account")
		}
		got, err := repo.FindByID(ctx, nil, 1)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.DisplayName != "member" {
			t.Errorf("display name overwritten: %q", got.DisplayName)
		}
		if _, err := repo.FindByID(ctx, nil, 2); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("balance operations", func(t *testing.T) {
		cleanup(t)
		mustCreateAccount(t, repo, 1, nil)

		if err := repo.AdjustBalance(ctx, nil, 1, 10); err != nil {
			t.Fatalf("AdjustBalance failed: %v", err)
		}
		if err := repo.Debit(ctx, nil, 1, 4); err != nil {
			t.Fatalf("Debit failed: %v", err)
		}
		if err := repo.Debit(ctx, nil, 1, 7); !errors.Is(err, domain.ErrInsufficientCredits) {
			t.Errorf("expected ErrInsufficientCredits, got %v", err)
		}
		if err := repo.AdjustBalance(ctx, nil, 1, -9); err != nil {
			t.Fatalf("negative AdjustBalance failed: %v", err)
		}
		if err := repo.AdjustBalance(ctx, nil, 42, 1); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing account, got %v", err)
		}
		got, _ := repo.FindByID(ctx, nil, 1)
		if got.Balance != -3 || got.TotalGranted != 10 {
			t.Errorf("got balance=%d granted=%d, want -3 and 10", got.Balance, got.TotalGranted)
		}
	})

	t.Run("delete clears referrals", func(t *testing.T) {
		cleanup(t)
		mustCreateAccount(t, repo, 1, nil)
		ref := int64(1)
		mustCreateAccount(t, repo, 2, &ref)

		if err := repo.Delete(ctx, nil, 1); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		got, err := repo.FindByID(ctx, nil, 2)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.ReferrerID != nil {
			t.Errorf("expected referrer to be cleared, got %d", *got.ReferrerID)
		}
		if err := repo.Delete(ctx, nil, 1); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("reports", func(t *testing.T) {
		cleanup(t)
		mustCreateAccount(t, repo, 1, nil)
		ref := int64(1)
		mustCreateAccount(t, repo, 2, &ref)
		mustCreateAccount(t, repo, 3, &ref)
		_ = repo.AdjustBalance(ctx, nil, 3, 20)

		top, err := repo.TopReferrers(ctx, nil, 5)
		if err != nil {
			t.Fatalf("TopReferrers failed: %v", err)
		}
		if len(top) != 1 || top[0].AccountID != 1 || top[0].Referrals != 2 {
			t.Errorf("unexpected top referrers: %+v", top)
		}
		board, err := repo.Leaderboard(ctx, nil, 1)
		if err != nil {
			t.Fatalf("Leaderboard failed: %v", err)
		}
		if len(board) != 1 || board[0].ID != 3 {
			t.Errorf("unexpected leaderboard: %+v", board)
		}
		totals, err := repo.Totals(ctx, nil)
		if err != nil {
			t.Fatalf("Totals failed: %v", err)
		}
		if totals.Accounts != 3 || totals.CreditsOutstanding != 20 {
			t.Errorf("unexpected totals: %+v", totals)
		}
	})
}

func TestRedeemCodeRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	repo := NewPostgresRedeemCodeRepo(testPool)
	ctx := context.Background()

	t.Run("create conflict and filters", func(t *testing.T) {
		cleanup(t)
		now := t0.Add(2 * time.Hour)
		for _, spec := range []model.CodeSpec{
			{Code: "FOREVER", Amount: 1, MaxUses: 1},
			{Code: "HOURLY", Amount: 1, MaxUses: 1, ExpiryMinutes: 60},
			{Code: "OFF", Amount: 1, MaxUses: 1},
		} {
			if err := repo.Create(ctx, nil, spec.Build(t0)); err != nil {
				t.Fatalf("Create(%s) failed: %v", spec.Code, err)
			}
		}
		if err := repo.Deactivate(ctx, nil, "OFF"); err != nil {
			t.Fatalf("Deactivate failed: %v", err)
		}
		dup := model.CodeSpec{Code: "FOREVER", Amount: 50, MaxUses: 50}.Build(t0)
		if err := repo.Create(ctx, nil, dup); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}

		cases := map[model.CodeFilter]int{
			model.CodeFilterAll:      3,
			model.CodeFilterActive:   2,
			model.CodeFilterInactive: 1,
			model.CodeFilterExpired:  1,
		}
		for f, want := range cases {
			list, err := repo.List(ctx, nil, f, now)
			if err != nil {
				t.Fatalf("List(%v) failed: %v", f, err)
			}
			if len(list) != want {
				t.Errorf("List(%v) returned %d codes, want %d", f, len(list), want)
			}
		}

		n, err := repo.DeleteExpired(ctx, nil, now)
		if err != nil || n != 1 {
			t.Errorf("DeleteExpired = %d, %v; want 1", n, err)
		}
	})

	t.Run("use counter is bounded under contention", func(t *testing.T) {
		cleanup(t)
		if err := repo.Create(ctx, nil, model.CodeSpec{Code: "FLASH", Amount: 5, MaxUses: 3}.Build(t0)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		tm := NewTxManager(testPool)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < 12; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
					ok, err := repo.TryIncrementUse(ctx, tx, "FLASH")
					if err != nil {
						return err
					}
					if ok {
						mu.Lock()
						wins++
						mu.Unlock()
					}
					return nil
				})
			}()
		}
		wg.Wait()

		if wins != 3 {
			t.Errorf("expected exactly 3 successful increments, got %d", wins)
		}
		c, err := repo.FindByCode(ctx, nil, "FLASH")
		if err != nil {
			t.Fatalf("FindByCode failed: %v", err)
		}
		if c.CurrentUses != 3 {
			t.Errorf("current uses = %d, want 3", c.CurrentUses)
		}
	})

	t.Run("inactive code never gains uses", func(t *testing.T) {
		cleanup(t)
		if err := repo.Create(ctx, nil, model.CodeSpec{Code: "OFF", Amount: 5, MaxUses: 3}.Build(t0)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := repo.Deactivate(ctx, nil, "OFF"); err != nil {
			t.Fatalf("Deactivate failed: %v", err)
		}
		ok, err := repo.TryIncrementUse(ctx, nil, "OFF")
		if err != nil {
			t.Fatalf("TryIncrementUse failed: %v", err)
		}
		if ok {
			t.Error("expected no increment on an inactive code")
		}
	})

	t.Run("max expiry round-trips", func(t *testing.T) {
		cleanup(t)
		spec := model.CodeSpec{Code: "LONG", Amount: 5, MaxUses: 3, ExpiryMinutes: model.MaxExpiryMinutes}
		if err := repo.Create(ctx, nil, spec.Build(t0)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		c, err := repo.FindByCode(ctx, nil, "LONG")
		if err != nil {
			t.Fatalf("FindByCode failed: %v", err)
		}
		if c.ExpiryMinutes != model.MaxExpiryMinutes {
			t.Errorf("expiry = %d, want %d", c.ExpiryMinutes, model.MaxExpiryMinutes)
		}
		expired, err := repo.List(ctx, nil, model.CodeFilterExpired, t0.AddDate(500, 0, 0))
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(expired) != 0 {
			t.Errorf("code listed as expired %d times", len(expired))
		}
	})
}

func TestRedemptionAndLedgerRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	accounts := NewPostgresAccountRepo(testPool)
	redemptions := NewPostgresRedemptionRepo(testPool)
	ledger := NewPostgresLedgerRepo(testPool)
	tm := NewTxManager(testPool)
	ctx := context.Background()

	t.Run("one claim per account and code", func(t *testing.T) {
		cleanup(t)
		mustCreateAccount(t, accounts, 1, nil)

		if err := redemptions.Insert(ctx, nil, model.NewRedemption(1, "X", t0)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if err := redemptions.Insert(ctx, nil, model.NewRedemption(1, "X", t0)); !errors.Is(err, domain.ErrAlreadyClaimed) {
			t.Errorf("expected ErrAlreadyClaimed, got %v", err)
		}
		if err := redemptions.Insert(ctx, nil, model.NewRedemption(99, "X", t0)); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for unknown account, got %v", err)
		}
		claimants, err := redemptions.ListClaimants(ctx, nil, "X")
		if err != nil || len(claimants) != 1 {
			t.Errorf("ListClaimants = %d, %v; want 1 claimant", len(claimants), err)
		}
		codes, err := redemptions.DeleteByAccount(ctx, nil, 1)
		if err != nil || len(codes) != 1 || codes[0] != "X" {
			t.Errorf("DeleteByAccount = %v, %v", codes, err)
		}
	})

	t.Run("transaction rolls back every write", func(t *testing.T) {
		cleanup(t)
		mustCreateAccount(t, accounts, 1, nil)

		boom := errors.New("boom")
		err := tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := accounts.AdjustBalance(ctx, tx, 1, 25); err != nil {
				return err
			}
			if err := ledger.Append(ctx, tx, &model.LedgerEntry{AccountID: 1, Delta: 25, Reason: model.ReasonRedemption, Ref: "X", CreatedAt: t0}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		got, _ := accounts.FindByID(ctx, nil, 1)
		if got.Balance != 0 {
			t.Errorf("balance leaked out of rolled back tx: %d", got.Balance)
		}
		entries, err := ledger.ListByAccount(ctx, nil, 1, 0)
		if err != nil {
			t.Fatalf("ListByAccount failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected no ledger entries, got %d", len(entries))
		}
	})

	t.Run("ledger replays to balance", func(t *testing.T) {
		cleanup(t)
		mustCreateAccount(t, accounts, 1, nil)
		for _, d := range []int64{5, 30, -4} {
			err := tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
				if err := accounts.AdjustBalance(ctx, tx, 1, d); err != nil {
					return err
				}
				return ledger.Append(ctx, tx, &model.LedgerEntry{AccountID: 1, Delta: d, Reason: model.ReasonAdjustment, CreatedAt: t0})
			})
			if err != nil {
				t.Fatalf("WithTx failed: %v", err)
			}
		}
		entries, err := ledger.ListByAccount(ctx, nil, 1, 0)
		if err != nil {
			t.Fatalf("ListByAccount failed: %v", err)
		}
		balance, granted := model.Replay(entries)
		got, _ := accounts.FindByID(ctx, nil, 1)
		if balance != got.Balance || granted != got.TotalGranted {
			t.Errorf("replay (%d, %d) disagrees with account (%d, %d)", balance, granted, got.Balance, got.TotalGranted)
		}
	})
}

func TestGetExecutor_RejectsForeignTx(t *testing.T) {
	repo := NewPostgresAccountRepo(testPool)
	if _, err := repo.FindByID(context.Background(), "not a tx", 1); !errors.Is(err, domain.ErrInvalidExecContext) {
		t.Errorf("expected ErrInvalidExecContext, got %v", err)
	}
}
