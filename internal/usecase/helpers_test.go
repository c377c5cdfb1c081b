//go:build !integration

package usecase_test

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/adapter"
	"telegram-credit-ledger/internal/domain/ports/repository"
	"telegram-credit-ledger/internal/infra/db/sqlite"
	"telegram-credit-ledger/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// fakeClock is a settable time source shared by every use case in an env.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// inlineTasks runs submitted work synchronously and records task errors.
type inlineTasks struct {
	mu   sync.Mutex
	errs []error
}

func (s *inlineTasks) Submit(task func(ctx context.Context) error) error {
	err := task(context.Background())
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errs = append(s.errs, err)
	}
	return nil
}

type envOptions struct {
	policy   usecase.AccountPolicy
	limiter  usecase.AttemptLimiter
	notifier adapter.Notifier
	tasks    usecase.TaskSubmitter
	msgs     usecase.Messages
	wrap     func(*repos)
}

type repos struct {
	accounts    repository.AccountRepository
	codes       repository.RedeemCodeRepository
	redemptions repository.RedemptionRepository
	ledger      repository.LedgerRepository
}

type env struct {
	db    *sql.DB
	repos repos
	tm    repository.TransactionManager
	clock *fakeClock

	accounts    usecase.AccountUseCase
	codes       usecase.CodeUseCase
	redemptions usecase.RedemptionUseCase
	stats       usecase.StatsUseCase
}

func newEnv(t *testing.T, opts ...func(*envOptions)) *env {
	t.Helper()
	o := envOptions{policy: usecase.AccountPolicy{InitialCredits: 5, ReferralBonus: 3}}
	for _, fn := range opts {
		fn(&o)
	}

	path := filepath.Join(t.TempDir(), "ledger.db")
	logger := newTestLogger()
	require.NoError(t, sqlite.Migrate(path, logger))
	db, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	r := repos{
		accounts:    sqlite.NewAccountRepo(db),
		codes:       sqlite.NewRedeemCodeRepo(db),
		redemptions: sqlite.NewRedemptionRepo(db),
		ledger:      sqlite.NewLedgerRepo(db),
	}
	if o.wrap != nil {
		o.wrap(&r)
	}
	tm := sqlite.NewTxManager(db)
	clock := &fakeClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}

	return &env{
		db:    db,
		repos: r,
		tm:    tm,
		clock: clock,
		accounts: usecase.NewAccountUseCase(r.accounts, r.codes, r.redemptions, r.ledger, tm, o.policy, o.notifier, o.tasks, logger).
			WithClock(clock.Now).WithMessages(o.msgs),
		codes: usecase.NewCodeUseCase(r.codes, r.redemptions, tm, "PRO", logger, true).
			WithClock(clock.Now),
		redemptions: usecase.NewRedemptionUseCase(r.accounts, r.codes, r.redemptions, r.ledger, tm, o.limiter, logger, true).
			WithClock(clock.Now),
		stats: usecase.NewStatsUseCase(r.accounts, r.redemptions, logger),
	}
}

func (e *env) register(t *testing.T, id int64, ref *int64) *model.Account {
	t.Helper()
	acc, _, err := e.accounts.Register(context.Background(), id, "user", ref)
	require.NoError(t, err)
	return acc
}

func (e *env) createCode(t *testing.T, code string, amount int64, maxUses, expiry int) *model.RedeemCode {
	t.Helper()
	c, err := e.codes.Create(context.Background(), model.CodeSpec{Code: code, Amount: amount, MaxUses: maxUses, ExpiryMinutes: expiry})
	require.NoError(t, err)
	return c
}

func (e *env) balance(t *testing.T, id int64) int64 {
	t.Helper()
	acc, err := e.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

// requireLedgerConsistent checks that replaying the ledger reproduces the stored counters.
func (e *env) requireLedgerConsistent(t *testing.T, id int64) {
	t.Helper()
	ctx := context.Background()
	acc, err := e.accounts.Get(ctx, id)
	require.NoError(t, err)
	entries, err := e.accounts.Ledger(ctx, id, 0)
	require.NoError(t, err)
	bal, granted := model.Replay(entries)
	require.Equal(t, acc.Balance, bal, "balance of %d", id)
	require.Equal(t, acc.TotalGranted, granted, "total granted of %d", id)
}

func ptr[T any](v T) *T { return &v }
