package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*PostgresAccountRepo)(nil)

type PostgresAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{pool: pool}
}

const accountColumns = `id, display_name, balance, total_granted, referrer_id, banned, joined_at, last_active_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.DisplayName, &a.Balance, &a.TotalGranted, &a.ReferrerID, &a.Banned, &a.JoinedAt, &a.LastActiveAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresAccountRepo) Create(ctx context.Context, tx repository.Tx, a *model.Account) (bool, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	const q = `
INSERT INTO accounts (` + accountColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING;`
	tag, err := exec.Exec(ctx, q, a.ID, a.DisplayName, a.Balance, a.TotalGranted, a.ReferrerID, a.Banned, a.JoinedAt, a.LastActiveAt)
	if err != nil {
		return false, classify("create account", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Account, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(exec.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1;`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify("find account", err)
	}
	return a, nil
}

func (r *PostgresAccountRepo) Exists(ctx context.Context, tx repository.Tx, id int64) (bool, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1);`, id).Scan(&ok); err != nil {
		return false, classify("account exists", err)
	}
	return ok, nil
}

func (r *PostgresAccountRepo) AdjustBalance(ctx context.Context, tx repository.Tx, id int64, delta int64) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const q = `
UPDATE accounts
   SET balance = balance + $2,
       total_granted = total_granted + GREATEST($2, 0)
 WHERE id = $1;`
	tag, err := exec.Exec(ctx, q, id, delta)
	return affectedOne(tag, err, "adjust balance")
}

func (r *PostgresAccountRepo) Debit(ctx context.Context, tx repository.Tx, id int64, amount int64) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := exec.Exec(ctx, `UPDATE accounts SET balance = balance - $2 WHERE id = $1 AND balance >= $2;`, id, amount)
	if err != nil {
		return classify("debit", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	ok, err := r.Exists(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientCredits
}

func (r *PostgresAccountRepo) SetBanned(ctx context.Context, tx repository.Tx, id int64, banned bool) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := exec.Exec(ctx, `UPDATE accounts SET banned = $2 WHERE id = $1;`, id, banned)
	return affectedOne(tag, err, "set banned")
}

func (r *PostgresAccountRepo) Touch(ctx context.Context, tx repository.Tx, id int64, displayName string, at time.Time) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const q = `
UPDATE accounts
   SET last_active_at = $2,
       display_name = COALESCE(NULLIF($3, ''), display_name)
 WHERE id = $1;`
	tag, err := exec.Exec(ctx, q, id, at, displayName)
	return affectedOne(tag, err, "touch account")
}

func (r *PostgresAccountRepo) Delete(ctx context.Context, tx repository.Tx, id int64) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := exec.Exec(ctx, `UPDATE accounts SET referrer_id = NULL WHERE referrer_id = $1;`, id); err != nil {
		return classify("clear referrals", err)
	}
	tag, err := exec.Exec(ctx, `DELETE FROM accounts WHERE id = $1;`, id)
	if isForeignKeyViolation(err) {
		return domain.ErrInvalidArgument
	}
	return affectedOne(tag, err, "delete account")
}

func (r *PostgresAccountRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM accounts;`)
}

func (r *PostgresAccountRepo) CountInactive(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM accounts WHERE last_active_at < $1;`, since)
}

func (r *PostgresAccountRepo) CountReferrals(ctx context.Context, tx repository.Tx, id int64) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM accounts WHERE referrer_id = $1;`, id)
}

func (r *PostgresAccountRepo) count(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (int, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := exec.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, classify("count accounts", err)
	}
	return n, nil
}

func (r *PostgresAccountRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.Account, error) {
	return r.list(ctx, tx, `SELECT `+accountColumns+` FROM accounts ORDER BY joined_at DESC, id DESC LIMIT $1;`, limit)
}

func (r *PostgresAccountRepo) ListJoinedBetween(ctx context.Context, tx repository.Tx, from, to time.Time) ([]*model.Account, error) {
	return r.list(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE joined_at >= $1 AND joined_at < $2 ORDER BY joined_at, id;`, from, to)
}

func (r *PostgresAccountRepo) ListInactive(ctx context.Context, tx repository.Tx, since time.Time, limit int) ([]*model.Account, error) {
	return r.list(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE last_active_at < $1 ORDER BY last_active_at, id LIMIT $2;`, since, limit)
}

func (r *PostgresAccountRepo) Leaderboard(ctx context.Context, tx repository.Tx, limit int) ([]*model.Account, error) {
	return r.list(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE NOT banned ORDER BY balance DESC, id LIMIT $1;`, limit)
}

func (r *PostgresAccountRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Account, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := exec.Query(ctx, q, args...)
	if err != nil {
		return nil, classify("list accounts", err)
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, classify("scan account", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list accounts", err)
	}
	return out, nil
}

func (r *PostgresAccountRepo) TopReferrers(ctx context.Context, tx repository.Tx, limit int) ([]*model.ReferrerRank, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT ref.id, ref.display_name, COUNT(a.id) AS referrals
  FROM accounts a
  JOIN accounts ref ON ref.id = a.referrer_id
 GROUP BY ref.id, ref.display_name
 ORDER BY referrals DESC, ref.id
 LIMIT $1;`
	rows, err := exec.Query(ctx, q, limit)
	if err != nil {
		return nil, classify("top referrers", err)
	}
	defer rows.Close()

	var out []*model.ReferrerRank
	for rows.Next() {
		var rr model.ReferrerRank
		if err := rows.Scan(&rr.AccountID, &rr.DisplayName, &rr.Referrals); err != nil {
			return nil, classify("scan referrer", err)
		}
		out = append(out, &rr)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("top referrers", err)
	}
	return out, nil
}

func (r *PostgresAccountRepo) Totals(ctx context.Context, tx repository.Tx) (*model.Totals, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT
  (SELECT COUNT(*) FROM accounts),
  (SELECT COUNT(*) FROM accounts WHERE balance > 0),
  (SELECT COALESCE(SUM(balance), 0)::BIGINT FROM accounts),
  (SELECT COALESCE(SUM(total_granted), 0)::BIGINT FROM accounts),
  (SELECT COUNT(*) FROM redeem_codes WHERE active),
  (SELECT COUNT(*) FROM redemptions);`
	var t model.Totals
	err = exec.QueryRow(ctx, q).Scan(&t.Accounts, &t.AccountsWithCredits, &t.CreditsOutstanding, &t.CreditsDistributed, &t.ActiveCodes, &t.Redemptions)
	if err != nil {
		return nil, classify("totals", err)
	}
	return &t, nil
}

func affectedOne(tag pgconn.CommandTag, err error, op string) error {
	if err != nil {
		return classify(op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
