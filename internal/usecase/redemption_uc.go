package usecase

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
	"telegram-credit-ledger/internal/infra/logging"
	"telegram-credit-ledger/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ RedemptionUseCase = (*redemptionUC)(nil)

// RedemptionUseCase is the claim engine.
type RedemptionUseCase interface {
	// Redeem attempts one claim. Business outcomes come back in the result
	// with a nil error. A store failure yields OutcomeTransientError together
	// with an error matching domain.ErrStoreUnavailable; nothing is applied.
	// An unknown account is ErrNotFound and a throttled one ErrRateLimited.
	Redeem(ctx context.Context, accountID int64, code string) (model.RedemptionResult, error)
	History(ctx context.Context, accountID int64) ([]*model.Redemption, error)
}

// errRollback aborts the unit of work after an outcome has been decided.
var errRollback = errors.New("rollback")

type redemptionUC struct {
	accounts    repository.AccountRepository
	codes       repository.RedeemCodeRepository
	redemptions repository.RedemptionRepository
	ledger      repository.LedgerRepository
	tm          repository.TransactionManager
	limiter     AttemptLimiter
	now         Clock
	log         *zerolog.Logger
	dev         bool
}

func NewRedemptionUseCase(
	accounts repository.AccountRepository,
	codes repository.RedeemCodeRepository,
	redemptions repository.RedemptionRepository,
	ledger repository.LedgerRepository,
	tm repository.TransactionManager,
	limiter AttemptLimiter,
	logger *zerolog.Logger,
	dev bool,
) *redemptionUC {
	return &redemptionUC{
		accounts:    accounts,
		codes:       codes,
		redemptions: redemptions,
		ledger:      ledger,
		tm:          tm,
		limiter:     limiter,
		now:         systemClock,
		log:         logger,
		dev:         dev,
	}
}

// WithClock replaces the time source.
func (u *redemptionUC) WithClock(c Clock) *redemptionUC {
	u.now = c
	return u
}

func (u *redemptionUC) Redeem(ctx context.Context, accountID int64, code string) (model.RedemptionResult, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.Redeem")()
	start := time.Now()
	code = model.NormalizeCode(code)
	ctx = logging.WithCode(logging.WithAccountID(ctx, accountID), logging.Redact(code, u.dev))
	ctx, span := tracer.Start(ctx, "RedemptionUC.Redeem")
	defer span.End()
	log := logging.With(ctx, u.log)

	res := model.RedemptionResult{Code: code}
	if code == "" {
		res.Outcome = model.OutcomeInvalidCode
		metrics.IncRedemption(res.Outcome.String())
		return res, nil
	}

	if u.limiter != nil {
		ok, err := u.limiter.Allow(ctx, accountID)
		switch {
		case err != nil:
			// The limiter is advisory; an outage must not block claims.
			log.Warn().Err(err).Msg("attempt limiter unavailable")
		case !ok:
			metrics.IncRateLimited()
			return res, domain.ErrRateLimited
		}
	}

	err := u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		res = model.RedemptionResult{Code: code}
		now := u.now()

		ok, err := u.accounts.Exists(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}

		c, err := u.codes.FindByCode(ctx, tx, code)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			res.Outcome = model.OutcomeInvalidCode
			return errRollback
		case err != nil:
			return err
		case !c.Active:
			res.Outcome = model.OutcomeInactive
			return errRollback
		case c.IsExpired(now):
			res.Outcome = model.OutcomeExpired
			return errRollback
		}

		// The unique key on (account, code) is the duplicate check; nothing
		// before this point is trusted to have excluded a concurrent claim.
		err = u.redemptions.Insert(ctx, tx, model.NewRedemption(accountID, code, now))
		if errors.Is(err, domain.ErrAlreadyClaimed) {
			res.Outcome = model.OutcomeAlreadyClaimed
			return errRollback
		}
		if err != nil {
			return err
		}

		applied, err := u.codes.TryIncrementUse(ctx, tx, code)
		if err != nil {
			return err
		}
		if !applied {
			// Re-read: a concurrent deactivation or delete also fails the increment.
			res.Outcome = model.OutcomeLimitReached
			latest, err := u.codes.FindByCode(ctx, tx, code)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				res.Outcome = model.OutcomeInvalidCode
			case err != nil:
				return err
			case !latest.Active:
				res.Outcome = model.OutcomeInactive
			}
			return errRollback
		}

		if err := (balanceWriter{accounts: u.accounts, ledger: u.ledger}).
			apply(ctx, tx, accountID, c.Amount, model.ReasonRedemption, code, now); err != nil {
			return err
		}
		res.Outcome = model.OutcomeSuccess
		res.Amount = c.Amount
		return nil
	})
	metrics.ObserveRedeemSeconds(time.Since(start).Seconds())

	switch {
	case err == nil, errors.Is(err, errRollback):
	case domain.IsTransient(err):
		observeStoreErr("redeem", err)
		span.RecordError(err)
		log.Error().Err(err).Msg("claim aborted by store failure")
		res = model.RedemptionResult{Code: code, Outcome: model.OutcomeTransientError}
		metrics.IncRedemption(res.Outcome.String())
		return res, err
	default:
		observeStoreErr("redeem", err)
		span.RecordError(err)
		return model.RedemptionResult{Code: code}, err
	}

	span.SetAttributes(attribute.String("redemption.outcome", res.Outcome.String()))
	metrics.IncRedemption(res.Outcome.String())
	if res.Succeeded() {
		metrics.ObserveCredit(string(model.ReasonRedemption), res.Amount)
		log.Info().Int64("amount", res.Amount).Msg("code redeemed")
	} else {
		log.Debug().Str("outcome", res.Outcome.String()).Msg("claim refused")
	}
	return res, nil
}

func (u *redemptionUC) History(ctx context.Context, accountID int64) ([]*model.Redemption, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.History")()
	out, err := u.redemptions.ListByAccount(ctx, repository.NoTX, accountID)
	observeStoreErr("redemption_history", err)
	return out, err
}
