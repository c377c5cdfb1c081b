package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/adapter"
	"telegram-credit-ledger/internal/domain/ports/repository"
	"telegram-credit-ledger/internal/infra/logging"
	"telegram-credit-ledger/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase owns account lifecycle, balances and referral crediting.
type AccountUseCase interface {
	// Register creates the account on first contact. On later calls it only
	// refreshes the display name and activity time; created reports which.
	Register(ctx context.Context, id int64, displayName string, referrerID *int64) (acc *model.Account, created bool, err error)
	Get(ctx context.Context, id int64) (*model.Account, error)
	AdjustBalance(ctx context.Context, id int64, delta int64) (*model.Account, error)
	// Charge debits cost only if the balance covers it.
	Charge(ctx context.Context, id int64, cost int64) (*model.Account, error)
	SetBanned(ctx context.Context, id int64, banned bool) error
	Touch(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	BulkAdjust(ctx context.Context, ids []int64, delta int64) (int, error)
	Ledger(ctx context.Context, id int64, limit int) ([]*model.LedgerEntry, error)
}

// AccountPolicy holds the credit constants applied at registration.
type AccountPolicy struct {
	InitialCredits int64
	ReferralBonus  int64
}

type accountUC struct {
	accounts    repository.AccountRepository
	codes       repository.RedeemCodeRepository
	redemptions repository.RedemptionRepository
	ledger      repository.LedgerRepository
	tm          repository.TransactionManager
	policy      AccountPolicy
	notifier    adapter.Notifier
	msgs        Messages
	tasks       TaskSubmitter
	now         Clock
	log         *zerolog.Logger
}

func NewAccountUseCase(
	accounts repository.AccountRepository,
	codes repository.RedeemCodeRepository,
	redemptions repository.RedemptionRepository,
	ledger repository.LedgerRepository,
	tm repository.TransactionManager,
	policy AccountPolicy,
	notifier adapter.Notifier,
	tasks TaskSubmitter,
	logger *zerolog.Logger,
) *accountUC {
	return &accountUC{
		accounts:    accounts,
		codes:       codes,
		redemptions: redemptions,
		ledger:      ledger,
		tm:          tm,
		policy:      policy,
		notifier:    notifier,
		tasks:       tasks,
		now:         systemClock,
		log:         logger,
	}
}

// WithClock replaces the time source.
func (u *accountUC) WithClock(c Clock) *accountUC {
	u.now = c
	return u
}

// WithMessages localizes notification texts.
func (u *accountUC) WithMessages(m Messages) *accountUC {
	u.msgs = m
	return u
}

func (u *accountUC) writer() balanceWriter {
	return balanceWriter{accounts: u.accounts, ledger: u.ledger}
}

func (u *accountUC) Register(ctx context.Context, id int64, displayName string, referrerID *int64) (*model.Account, bool, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Register")()
	ctx, span := tracer.Start(ctx, "AccountUC.Register")
	defer span.End()

	now := u.now()
	acc, err := model.NewAccount(id, displayName, referrerID, now)
	if err != nil {
		return nil, false, err
	}
	if referrerID != nil && acc.ReferrerID == nil {
		metrics.IncReferral("self")
	}

	var (
		created      bool
		bonusGranted bool
		result       *model.Account
	)
	err = u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		created, bonusGranted, result = false, false, nil

		if acc.ReferrerID != nil {
			ok, err := u.accounts.Exists(ctx, tx, *acc.ReferrerID)
			if err != nil {
				return err
			}
			if !ok {
				acc.ReferrerID = nil
				metrics.IncReferral("unknown_referrer")
			}
		}

		var err error
		created, err = u.accounts.Create(ctx, tx, acc)
		if err != nil {
			return err
		}
		if !created {
			if err := u.accounts.Touch(ctx, tx, id, acc.DisplayName, now); err != nil {
				return err
			}
			result, err = u.accounts.FindByID(ctx, tx, id)
			return err
		}

		w := u.writer()
		if u.policy.InitialCredits > 0 {
			if err := w.apply(ctx, tx, id, u.policy.InitialCredits, model.ReasonSignup, "", now); err != nil {
				return err
			}
		}
		// Create is a no-op for existing ids, so this branch runs once per account.
		if acc.ReferrerID != nil && u.policy.ReferralBonus > 0 {
			ref := strconv.FormatInt(id, 10)
			if err := w.apply(ctx, tx, *acc.ReferrerID, u.policy.ReferralBonus, model.ReasonReferral, ref, now); err != nil {
				return err
			}
			bonusGranted = true
		}
		result, err = u.accounts.FindByID(ctx, tx, id)
		return err
	})
	if err != nil {
		observeStoreErr("register", err)
		span.RecordError(err)
		return nil, false, err
	}

	span.SetAttributes(attribute.Bool("account.created", created), attribute.Bool("referral.granted", bonusGranted))
	if created {
		metrics.IncAccountCreated()
		metrics.ObserveCredit(string(model.ReasonSignup), u.policy.InitialCredits)
		logging.With(logging.WithAccountID(ctx, id), u.log).Info().Msg("account created")
	}
	if bonusGranted {
		metrics.IncReferral("granted")
		metrics.ObserveCredit(string(model.ReasonReferral), u.policy.ReferralBonus)
		u.notifyReferrer(*acc.ReferrerID, id)
	}
	return result, created, nil
}

// notifyReferrer runs after commit; its failure never touches the grant.
func (u *accountUC) notifyReferrer(referrerID, newID int64) {
	if u.notifier == nil || u.tasks == nil {
		return
	}
	bonus := u.policy.ReferralBonus
	text := fmt.Sprintf("A new user joined through your referral link. You received %d credits.", bonus)
	if u.msgs != nil {
		text = u.msgs.T("referral_bonus", bonus)
	}
	task := func(ctx context.Context) error {
		if err := u.notifier.Notify(ctx, referrerID, text); err != nil {
			metrics.IncNotification("failed")
			return fmt.Errorf("notify referrer %d about %d: %w", referrerID, newID, err)
		}
		metrics.IncNotification("sent")
		return nil
	}
	if err := u.tasks.Submit(task); err != nil {
		metrics.IncNotification("dropped")
		u.log.Warn().Err(err).Int64("referrer_id", referrerID).Msg("referral notification dropped")
	}
}

func (u *accountUC) Get(ctx context.Context, id int64) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Get")()
	acc, err := u.accounts.FindByID(ctx, repository.NoTX, id)
	observeStoreErr("get_account", err)
	return acc, err
}

func (u *accountUC) AdjustBalance(ctx context.Context, id int64, delta int64) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.AdjustBalance")()
	if delta == 0 {
		return nil, &domain.ValidationError{Field: "delta", Reason: "must not be zero"}
	}
	ctx, span := tracer.Start(ctx, "AccountUC.AdjustBalance")
	defer span.End()

	var acc *model.Account
	err := u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := u.writer().apply(ctx, tx, id, delta, model.ReasonAdjustment, "", u.now()); err != nil {
			return err
		}
		var err error
		acc, err = u.accounts.FindByID(ctx, tx, id)
		return err
	})
	if err != nil {
		observeStoreErr("adjust_balance", err)
		return nil, err
	}
	metrics.ObserveCredit(string(model.ReasonAdjustment), delta)
	return acc, nil
}

func (u *accountUC) Charge(ctx context.Context, id int64, cost int64) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Charge")()
	if cost <= 0 {
		return nil, &domain.ValidationError{Field: "cost", Reason: "must be positive"}
	}

	var acc *model.Account
	err := u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := u.writer().debit(ctx, tx, id, cost, model.ReasonCharge, "", u.now()); err != nil {
			return err
		}
		var err error
		acc, err = u.accounts.FindByID(ctx, tx, id)
		return err
	})
	if err != nil {
		observeStoreErr("charge", err)
		return nil, err
	}
	metrics.ObserveCredit(string(model.ReasonCharge), -cost)
	return acc, nil
}

func (u *accountUC) SetBanned(ctx context.Context, id int64, banned bool) error {
	defer logging.TraceDuration(u.log, "AccountUC.SetBanned")()
	err := u.accounts.SetBanned(ctx, repository.NoTX, id, banned)
	observeStoreErr("set_banned", err)
	if err == nil {
		u.log.Info().Int64("account_id", id).Bool("banned", banned).Msg("ban flag changed")
	}
	return err
}

func (u *accountUC) Touch(ctx context.Context, id int64) error {
	defer logging.TraceDuration(u.log, "AccountUC.Touch")()
	err := u.accounts.Touch(ctx, repository.NoTX, id, "", u.now())
	observeStoreErr("touch", err)
	return err
}

// Delete removes the account with its claims and ledger history. Codes it had
// claimed get their use released, so current_uses keeps matching the records.
func (u *accountUC) Delete(ctx context.Context, id int64) error {
	defer logging.TraceDuration(u.log, "AccountUC.Delete")()
	err := u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.accounts.Exists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		claimed, err := u.redemptions.DeleteByAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, code := range claimed {
			if err := u.codes.ReleaseUse(ctx, tx, code); err != nil {
				return err
			}
		}
		if err := u.ledger.DeleteByAccount(ctx, tx, id); err != nil {
			return err
		}
		return u.accounts.Delete(ctx, tx, id)
	})
	if err != nil {
		observeStoreErr("delete_account", err)
		return err
	}
	u.log.Info().Int64("account_id", id).Msg("account deleted")
	return nil
}

// BulkAdjust applies delta to every known id in one transaction and returns
// how many accounts were changed. Unknown ids are skipped.
func (u *accountUC) BulkAdjust(ctx context.Context, ids []int64, delta int64) (int, error) {
	defer logging.TraceDuration(u.log, "AccountUC.BulkAdjust")()
	if delta == 0 {
		return 0, &domain.ValidationError{Field: "delta", Reason: "must not be zero"}
	}
	if len(ids) == 0 {
		return 0, &domain.ValidationError{Field: "ids", Reason: "must not be empty"}
	}

	var n int
	err := u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		n = 0
		seen := make(map[int64]struct{}, len(ids))
		now := u.now()
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			err := u.writer().apply(ctx, tx, id, delta, model.ReasonBulkGift, "", now)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		observeStoreErr("bulk_adjust", err)
		return 0, err
	}
	metrics.ObserveCredit(string(model.ReasonBulkGift), delta*int64(n))
	return n, nil
}

func (u *accountUC) Ledger(ctx context.Context, id int64, limit int) ([]*model.LedgerEntry, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Ledger")()
	entries, err := u.ledger.ListByAccount(ctx, repository.NoTX, id, limit)
	observeStoreErr("ledger", err)
	return entries, err
}
