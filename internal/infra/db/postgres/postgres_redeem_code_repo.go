package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.RedeemCodeRepository = (*PostgresRedeemCodeRepo)(nil)

type PostgresRedeemCodeRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRedeemCodeRepo(pool *pgxpool.Pool) *PostgresRedeemCodeRepo {
	return &PostgresRedeemCodeRepo{pool: pool}
}

const codeColumns = `code, amount, max_uses, current_uses, expiry_minutes, created_at, active`

const expiredPredicate = `active AND expiry_minutes IS NOT NULL AND created_at + make_interval(mins => expiry_minutes) < $1`

func scanCode(row pgx.Row) (*model.RedeemCode, error) {
	var (
		c      model.RedeemCode
		expiry *int32
	)
	if err := row.Scan(&c.Code, &c.Amount, &c.MaxUses, &c.CurrentUses, &expiry, &c.CreatedAt, &c.Active); err != nil {
		return nil, err
	}
	if expiry != nil {
		c.ExpiryMinutes = int(*expiry)
	}
	return &c, nil
}

// Create inserts a new code. An existing identifier is never overwritten.
func (r *PostgresRedeemCodeRepo) Create(ctx context.Context, tx repository.Tx, c *model.RedeemCode) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	var expiry *int32
	if c.ExpiryMinutes > model.MaxExpiryMinutes {
		return &domain.ValidationError{Field: "expiryMinutes", Reason: "exceeds maximum expiry"}
	}
	if c.ExpiryMinutes > 0 {
		v := int32(c.ExpiryMinutes)
		expiry = &v
	}
	const q = `INSERT INTO redeem_codes (` + codeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7);`
	_, err = exec.Exec(ctx, q, c.Code, c.Amount, c.MaxUses, c.CurrentUses, expiry, c.CreatedAt, c.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return classify("create code", err)
	}
	return nil
}

// FindByCode returns the code regardless of state; the caller decides usability.
func (r *PostgresRedeemCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.RedeemCode, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	c, err := scanCode(exec.QueryRow(ctx, `SELECT `+codeColumns+` FROM redeem_codes WHERE code = $1;`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify("find code", err)
	}
	return c, nil
}

func (r *PostgresRedeemCodeRepo) Deactivate(ctx context.Context, tx repository.Tx, code string) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := exec.Exec(ctx, `UPDATE redeem_codes SET active = FALSE WHERE code = $1;`, code)
	return affectedOne(tag, err, "deactivate code")
}

func (r *PostgresRedeemCodeRepo) Delete(ctx context.Context, tx repository.Tx, code string) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := exec.Exec(ctx, `DELETE FROM redeem_codes WHERE code = $1;`, code)
	return affectedOne(tag, err, "delete code")
}

func (r *PostgresRedeemCodeRepo) List(ctx context.Context, tx repository.Tx, filter model.CodeFilter, now time.Time) ([]*model.RedeemCode, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + codeColumns + ` FROM redeem_codes`
	var args []interface{}
	switch filter {
	case model.CodeFilterActive:
		q += ` WHERE active`
	case model.CodeFilterInactive:
		q += ` WHERE NOT active`
	case model.CodeFilterExpired:
		q += ` WHERE ` + expiredPredicate
		args = append(args, now)
	}
	q += ` ORDER BY created_at DESC, code;`

	rows, err := exec.Query(ctx, q, args...)
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

// TryIncrementUse is the only writer of current_uses on the claim path.
// Under READ COMMITTED a blocked UPDATE re-evaluates the WHERE clause against
// the committed row, so concurrent claimers cannot push past max_uses.
func (r *PostgresRedeemCodeRepo) TryIncrementUse(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	const q = `
UPDATE redeem_codes
   SET current_uses = current_uses + 1
 WHERE code = $1 AND active AND current_uses < max_uses;`
	tag, err := exec.Exec(ctx, q, code)
	if err != nil {
		return false, classify("increment code use", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRedeemCodeRepo) ReleaseUse(ctx context.Context, tx repository.Tx, code string) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = exec.Exec(ctx, `UPDATE redeem_codes SET current_uses = current_uses - 1 WHERE code = $1 AND current_uses > 0;`, code)
	return classify("release code use", err)
}

func (r *PostgresRedeemCodeRepo) DeleteExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	tag, err := exec.Exec(ctx, `DELETE FROM redeem_codes WHERE `+expiredPredicate+`;`, now)
	if err != nil {
		return 0, classify("delete expired codes", err)
	}
	return int(tag.RowsAffected()), nil
}
