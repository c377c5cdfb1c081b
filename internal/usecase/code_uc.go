package usecase

import (
	"context"
	"errors"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
	"telegram-credit-ledger/internal/infra/logging"
	"telegram-credit-ledger/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ CodeUseCase = (*codeUC)(nil)

// CodeUseCase manages the redeem code lifecycle.
type CodeUseCase interface {
	// Create rejects an identifier that is already taken, or that still has
	// claim records from a deleted code, with ErrAlreadyExists.
	Create(ctx context.Context, spec model.CodeSpec) (*model.RedeemCode, error)
	// Generate creates a code with a random identifier.
	Generate(ctx context.Context, amount int64, maxUses, expiryMinutes int) (*model.RedeemCode, error)
	Get(ctx context.Context, code string) (*model.RedeemCode, error)
	Deactivate(ctx context.Context, code string) error
	Delete(ctx context.Context, code string) error
	List(ctx context.Context, filter model.CodeFilter) ([]*model.RedeemCode, error)
	Claimants(ctx context.Context, code string) ([]*model.CodeClaimant, error)
	// CleanupExpired physically removes every code listed as expired.
	CleanupExpired(ctx context.Context) (int, error)
}

type codeUC struct {
	codes       repository.RedeemCodeRepository
	redemptions repository.RedemptionRepository
	tm          repository.TransactionManager
	prefix      string
	now         Clock
	log         *zerolog.Logger
	dev         bool
}

func NewCodeUseCase(codes repository.RedeemCodeRepository, redemptions repository.RedemptionRepository, tm repository.TransactionManager, prefix string, logger *zerolog.Logger, dev bool) *codeUC {
	return &codeUC{codes: codes, redemptions: redemptions, tm: tm, prefix: prefix, now: systemClock, log: logger, dev: dev}
}

// WithClock replaces the time source.
func (u *codeUC) WithClock(c Clock) *codeUC {
	u.now = c
	return u
}

func (u *codeUC) Create(ctx context.Context, spec model.CodeSpec) (*model.RedeemCode, error) {
	defer logging.TraceDuration(u.log, "CodeUC.Create")()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "CodeUC.Create")
	defer span.End()

	code := spec.Build(u.now())
	err := u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		orphaned, err := u.redemptions.ExistsForCode(ctx, tx, code.Code)
		if err != nil {
			return err
		}
		if orphaned {
			return domain.ErrAlreadyExists
		}
		return u.codes.Create(ctx, tx, code)
	})
	if err != nil {
		observeStoreErr("create_code", err)
		return nil, err
	}
	u.log.Info().
		Str("code", logging.Redact(code.Code, u.dev)).
		Int64("amount", code.Amount).
		Int("max_uses", code.MaxUses).
		Int("expiry_minutes", code.ExpiryMinutes).
		Msg("redeem code created")
	return code, nil
}

func (u *codeUC) Generate(ctx context.Context, amount int64, maxUses, expiryMinutes int) (*model.RedeemCode, error) {
	defer logging.TraceDuration(u.log, "CodeUC.Generate")()
	const attempts = 5
	var lastErr error
	for i := 0; i < attempts; i++ {
		id, err := generateCode(u.prefix)
		if err != nil {
			return nil, err
		}
		code, err := u.Create(ctx, model.CodeSpec{Code: id, Amount: amount, MaxUses: maxUses, ExpiryMinutes: expiryMinutes})
		if errors.Is(err, domain.ErrAlreadyExists) {
			lastErr = err
			continue
		}
		return code, err
	}
	return nil, lastErr
}

func (u *codeUC) Get(ctx context.Context, code string) (*model.RedeemCode, error) {
	defer logging.TraceDuration(u.log, "CodeUC.Get")()
	c, err := u.codes.FindByCode(ctx, repository.NoTX, model.NormalizeCode(code))
	observeStoreErr("get_code", err)
	return c, err
}

func (u *codeUC) Deactivate(ctx context.Context, code string) error {
	defer logging.TraceDuration(u.log, "CodeUC.Deactivate")()
	code = model.NormalizeCode(code)
	err := u.codes.Deactivate(ctx, repository.NoTX, code)
	observeStoreErr("deactivate_code", err)
	if err == nil {
		u.log.Info().Str("code", logging.Redact(code, u.dev)).Msg("redeem code deactivated")
	}
	return err
}

// Delete removes the code row. Claim records stay, so the identifier cannot be reused.
func (u *codeUC) Delete(ctx context.Context, code string) error {
	defer logging.TraceDuration(u.log, "CodeUC.Delete")()
	code = model.NormalizeCode(code)
	err := u.codes.Delete(ctx, repository.NoTX, code)
	observeStoreErr("delete_code", err)
	if err == nil {
		u.log.Info().Str("code", logging.Redact(code, u.dev)).Msg("redeem code deleted")
	}
	return err
}

func (u *codeUC) List(ctx context.Context, filter model.CodeFilter) ([]*model.RedeemCode, error) {
	defer logging.TraceDuration(u.log, "CodeUC.List")()
	if filter == "" {
		filter = model.CodeFilterAll
	}
	if _, ok := model.ParseCodeFilter(string(filter)); !ok {
		return nil, &domain.ValidationError{Field: "filter", Reason: "must be all, active, inactive or expired"}
	}
	out, err := u.codes.List(ctx, repository.NoTX, filter, u.now())
	observeStoreErr("list_codes", err)
	return out, err
}

func (u *codeUC) Claimants(ctx context.Context, code string) ([]*model.CodeClaimant, error) {
	defer logging.TraceDuration(u.log, "CodeUC.Claimants")()
	out, err := u.redemptions.ListClaimants(ctx, repository.NoTX, model.NormalizeCode(code))
	observeStoreErr("code_claimants", err)
	return out, err
}

func (u *codeUC) CleanupExpired(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "CodeUC.CleanupExpired")()
	ctx, span := tracer.Start(ctx, "CodeUC.CleanupExpired")
	defer span.End()

	n, err := u.codes.DeleteExpired(ctx, repository.NoTX, u.now())
	if err != nil {
		observeStoreErr("cleanup_codes", err)
		return 0, err
	}
	metrics.AddExpiredCodesRemoved(n)
	if n > 0 {
		u.log.Info().Int("removed", n).Msg("expired redeem codes removed")
	}
	return n, nil
}
