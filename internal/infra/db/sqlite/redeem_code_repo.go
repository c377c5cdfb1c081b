package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
)

var _ repository.RedeemCodeRepository = (*RedeemCodeRepo)(nil)

type RedeemCodeRepo struct {
	db *sql.DB
}

func NewRedeemCodeRepo(db *sql.DB) *RedeemCodeRepo {
	return &RedeemCodeRepo{db: db}
}

const codeColumns = `code, amount, max_uses, current_uses, expiry_minutes, created_at, active`

// expiredPredicate matches active codes whose expiry instant is strictly before the bound parameter.
const expiredPredicate = `active = 1 AND expiry_minutes IS NOT NULL AND expiry_minutes > 0 AND created_at + expiry_minutes * 60000 < ?`

func scanCode(row scanner) (*model.RedeemCode, error) {
	var (
		c       model.RedeemCode
		expiry  sql.NullInt64
		created int64
		active  int
	)
	if err := row.Scan(&c.Code, &c.Amount, &c.MaxUses, &c.CurrentUses, &expiry, &created, &active); err != nil {
		return nil, err
	}
	if expiry.Valid {
		c.ExpiryMinutes = int(expiry.Int64)
	}
	c.CreatedAt = fromMillis(created)
	c.Active = active != 0
	return &c, nil
}

func (r *RedeemCodeRepo) Create(ctx context.Context, tx repository.Tx, c *model.RedeemCode) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	var expiry sql.NullInt64
	if c.ExpiryMinutes > 0 {
		expiry = sql.NullInt64{Int64: int64(c.ExpiryMinutes), Valid: true}
	}
	_, err = exec.ExecContext(ctx, `INSERT INTO redeem_codes (`+codeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Code, c.Amount, c.MaxUses, c.CurrentUses, expiry, toMillis(c.CreatedAt), boolInt(c.Active))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return classify("create code", err)
	}
	return nil
}

func (r *RedeemCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.RedeemCode, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	c, err := scanCode(exec.QueryRowContext(ctx, `SELECT `+codeColumns+` FROM redeem_codes WHERE code = ?`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify("find code", err)
	}
	return c, nil
}

func (r *RedeemCodeRepo) Deactivate(ctx context.Context, tx repository.Tx, code string) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	res, err := exec.ExecContext(ctx, `UPDATE redeem_codes SET active = 0 WHERE code = ?`, code)
	return affectedOne(res, err, "deactivate code")
}

func (r *RedeemCodeRepo) Delete(ctx context.Context, tx repository.Tx, code string) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	res, err := exec.ExecContext(ctx, `DELETE FROM redeem_codes WHERE code = ?`, code)
	return affectedOne(res, err, "delete code")
}

func (r *RedeemCodeRepo) List(ctx context.Context, tx repository.Tx, filter model.CodeFilter, now time.Time) ([]*model.RedeemCode, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + codeColumns + ` FROM redeem_codes`
	var args []any
	switch filter {
	case model.CodeFilterActive:
		q += ` WHERE active = 1`
	case model.CodeFilterInactive:
		q += ` WHERE active = 0`
	case model.CodeFilterExpired:
		q += ` WHERE ` + expiredPredicate
		args = append(args, toMillis(now))
	}
	q += ` ORDER BY created_at DESC, code`

	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify("list codes", err)
	}
	defer rows.Close()

	var out []*model.RedeemCode
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, classify("scan code", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list codes", err)
	}
	return out, nil
}

func (r *RedeemCodeRepo) TryIncrementUse(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return false, err
	}
	res, err := exec.ExecContext(ctx, `
UPDATE redeem_codes
   SET current_uses = current_uses + 1
 WHERE code = ? AND active = 1 AND current_uses < max_uses`, code)
	if err != nil {
		return false, classify("increment code use", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("increment code use", err)
	}
	return n == 1, nil
}

func (r *RedeemCodeRepo) ReleaseUse(ctx context.Context, tx repository.Tx, code string) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `UPDATE redeem_codes SET current_uses = current_uses - 1 WHERE code = ? AND current_uses > 0`, code)
	return classify("release code use", err)
}

func (r *RedeemCodeRepo) DeleteExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return 0, err
	}
	res, err := exec.ExecContext(ctx, `DELETE FROM redeem_codes WHERE `+expiredPredicate, toMillis(now))
	if err != nil {
		return 0, classify("delete expired codes", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("delete expired codes", err)
	}
	return int(n), nil
}
