//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/usecase"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[int64][]string
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, accountID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if n.sent == nil {
		n.sent = map[int64][]string{}
	}
	n.sent[accountID] = append(n.sent[accountID], text)
	return nil
}

func TestRegister_GrantsInitialCreditsOnce(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	acc, created, err := e.accounts.Register(ctx, 10, "Ann", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(5), acc.Balance)
	assert.Equal(t, int64(5), acc.TotalGranted)

	acc, created, err = e.accounts.Register(ctx, 10, "Ann B", nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(5), acc.Balance)
	assert.Equal(t, "Ann B", acc.DisplayName)
	e.requireLedgerConsistent(t, 10)
}

func TestRegister_ZeroInitialCreditsHonored(t *testing.T) {
	e := newEnv(t, func(o *envOptions) { o.policy = usecase.AccountPolicy{InitialCredits: 0, ReferralBonus: 3} })
	acc := e.register(t, 1, nil)
	assert.Equal(t, int64(0), acc.Balance)

	entries, err := e.accounts.Ledger(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRegister_ReferralBonus(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	tasks := &inlineTasks{}
	e := newEnv(t, func(o *envOptions) {
		o.notifier = notifier
		o.tasks = tasks
	})
	e.register(t, 1, nil)

	t.Run("granted once per referred account", func(t *testing.T) {
		acc := e.register(t, 2, ptr(int64(1)))
		require.NotNil(t, acc.ReferrerID)
		assert.Equal(t, int64(1), *acc.ReferrerID)
		assert.Equal(t, int64(8), e.balance(t, 1))

		// re-registering with the same referrer must not pay again
		e.register(t, 2, ptr(int64(1)))
		assert.Equal(t, int64(8), e.balance(t, 1))

		assert.Len(t, notifier.sent[1], 1)
		e.requireLedgerConsistent(t, 1)

		n, err := e.stats.AccountStats(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, n.Referrals)
	})

	t.Run("unknown referrer dropped", func(t *testing.T) {
		acc := e.register(t, 3, ptr(int64(777)))
		assert.Nil(t, acc.ReferrerID)
		assert.Equal(t, int64(5), acc.Balance)
	})

	t.Run("self referral dropped", func(t *testing.T) {
		acc := e.register(t, 4, ptr(int64(4)))
		assert.Nil(t, acc.ReferrerID)
		assert.Equal(t, int64(5), acc.Balance)
	})
}

type upperMessages struct{}

func (upperMessages) T(key string, args ...interface{}) string {
	return fmt.Sprintf("%s:%v", strings.ToUpper(key), args)
}

func TestRegister_LocalizedNotification(t *testing.T) {
	notifier := &recordingNotifier{}
	e := newEnv(t, func(o *envOptions) {
		o.notifier = notifier
		o.tasks = &inlineTasks{}
		o.msgs = upperMessages{}
	})
	e.register(t, 1, nil)
	e.register(t, 2, ptr(int64(1)))

	require.Len(t, notifier.sent[1], 1)
	assert.Equal(t, "REFERRAL_BONUS:[3]", notifier.sent[1][0])
}

func TestRegister_NotificationFailureKeepsGrant(t *testing.T) {
	tasks := &inlineTasks{}
	e := newEnv(t, func(o *envOptions) {
		o.notifier = &recordingNotifier{err: errors.New("bot blocked")}
		o.tasks = tasks
	})
	e.register(t, 1, nil)
	acc := e.register(t, 2, ptr(int64(1)))

	assert.Equal(t, int64(5), acc.Balance)
	assert.Equal(t, int64(8), e.balance(t, 1))
	require.Len(t, tasks.errs, 1)
	assert.Contains(t, tasks.errs[0].Error(), "bot blocked")
}

func TestRegister_InvalidID(t *testing.T) {
	e := newEnv(t)
	_, _, err := e.accounts.Register(context.Background(), -1, "x", nil)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "id", ve.Field)
}

func TestAdjustBalance(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, 1, nil)

	acc, err := e.accounts.AdjustBalance(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(25), acc.Balance)
	assert.Equal(t, int64(25), acc.TotalGranted)

	acc, err = e.accounts.AdjustBalance(ctx, 1, -40)
	require.NoError(t, err)
	assert.Equal(t, int64(-15), acc.Balance)
	assert.Equal(t, int64(25), acc.TotalGranted)

	_, err = e.accounts.AdjustBalance(ctx, 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = e.accounts.AdjustBalance(ctx, 404, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	e.requireLedgerConsistent(t, 1)
}

func TestCharge(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, 1, nil)

	acc, err := e.accounts.Charge(ctx, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.Balance)

	_, err = e.accounts.Charge(ctx, 1, 2)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.Equal(t, int64(1), e.balance(t, 1))

	_, err = e.accounts.Charge(ctx, 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	e.requireLedgerConsistent(t, 1)
}

func TestSetBannedAndTouch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, 1, nil)

	require.NoError(t, e.accounts.SetBanned(ctx, 1, true))
	acc, err := e.accounts.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.Banned)
	assert.ErrorIs(t, e.accounts.SetBanned(ctx, 2, true), domain.ErrNotFound)

	// banned accounts still redeem; gating belongs to the caller
	e.createCode(t, "B", 3, 1, 0)
	res, err := e.redemptions.Redeem(ctx, 1, "B")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, res.Outcome)

	before := acc.LastActiveAt
	e.clock.Advance(time.Hour)
	require.NoError(t, e.accounts.Touch(ctx, 1))
	acc, err = e.accounts.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.LastActiveAt.After(before))
	assert.Equal(t, "user", acc.DisplayName)
}

func TestDeleteAccount_ReleasesCodeUses(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, 1, nil)
	e.register(t, 2, ptr(int64(1)))
	e.register(t, 3, nil)
	e.createCode(t, "SOLO", 9, 1, 0)

	res, err := e.redemptions.Redeem(ctx, 2, "SOLO")
	require.NoError(t, err)
	require.Equal(t, model.OutcomeSuccess, res.Outcome)

	require.NoError(t, e.accounts.Delete(ctx, 2))
	_, err = e.accounts.Get(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, e.accounts.Delete(ctx, 2), domain.ErrNotFound)

	c, err := e.codes.Get(ctx, "SOLO")
	require.NoError(t, err)
	assert.Equal(t, 0, c.CurrentUses)

	res, err = e.redemptions.Redeem(ctx, 3, "SOLO")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, res.Outcome)

	// the referrer keeps its bonus
	assert.Equal(t, int64(8), e.balance(t, 1))
}

func TestBulkAdjust(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, 1, nil)
	e.register(t, 2, nil)

	n, err := e.accounts.BulkAdjust(ctx, []int64{1, 1, 2, 99}, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(15), e.balance(t, 1))
	assert.Equal(t, int64(15), e.balance(t, 2))

	_, err = e.accounts.BulkAdjust(ctx, nil, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = e.accounts.BulkAdjust(ctx, []int64{1}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	entries, err := e.accounts.Ledger(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ReasonSignup, entries[0].Reason)
	assert.Equal(t, model.ReasonBulkGift, entries[1].Reason)
}
