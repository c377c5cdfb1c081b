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

var _ repository.AccountRepository = (*AccountRepo)(nil)

type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountColumns = `id, display_name, balance, total_granted, referrer_id, banned, joined_at, last_active_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*model.Account, error) {
	var (
		a        model.Account
		referrer sql.NullInt64
		banned   int
		joined   int64
		active   int64
	)
	if err := row.Scan(&a.ID, &a.DisplayName, &a.Balance, &a.TotalGranted, &referrer, &banned, &joined, &active); err != nil {
		return nil, err
	}
	if referrer.Valid {
		v := referrer.Int64
		a.ReferrerID = &v
	}
	a.Banned = banned != 0
	a.JoinedAt = fromMillis(joined)
	a.LastActiveAt = fromMillis(active)
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, tx repository.Tx, a *model.Account) (bool, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return false, err
	}
	var referrer sql.NullInt64
	if a.ReferrerID != nil {
		referrer = sql.NullInt64{Int64: *a.ReferrerID, Valid: true}
	}
	res, err := exec.ExecContext(ctx, `
INSERT INTO accounts (`+accountColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`,
		a.ID, a.DisplayName, a.Balance, a.TotalGranted, referrer, boolInt(a.Banned), toMillis(a.JoinedAt), toMillis(a.LastActiveAt))
	if err != nil {
		return false, classify("create account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("create account", err)
	}
	return n == 1, nil
}

func (r *AccountRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Account, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(exec.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify("find account", err)
	}
	return a, nil
}

func (r *AccountRepo) Exists(ctx context.Context, tx repository.Tx, id int64) (bool, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return false, err
	}
	var one int
	err = exec.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify("account exists", err)
	}
	return true, nil
}

func (r *AccountRepo) AdjustBalance(ctx context.Context, tx repository.Tx, id int64, delta int64) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	res, err := exec.ExecContext(ctx, `
UPDATE accounts
   SET balance = balance + ?,
       total_granted = total_granted + MAX(?, 0)
 WHERE id = ?`, delta, delta, id)
	return affectedOne(res, err, "adjust balance")
}

func (r *AccountRepo) Debit(ctx context.Context, tx repository.Tx, id int64, amount int64) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	res, err := exec.ExecContext(ctx, `UPDATE accounts SET balance = balance - ? WHERE id = ? AND balance >= ?`, amount, id, amount)
	if err != nil {
		return classify("debit", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("debit", err)
	}
	if n == 1 {
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

func (r *AccountRepo) SetBanned(ctx context.Context, tx repository.Tx, id int64, banned bool) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	res, err := exec.ExecContext(ctx, `UPDATE accounts SET banned = ? WHERE id = ?`, boolInt(banned), id)
	return affectedOne(res, err, "set banned")
}

func (r *AccountRepo) Touch(ctx context.Context, tx repository.Tx, id int64, displayName string, at time.Time) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	res, err := exec.ExecContext(ctx, `
UPDATE accounts
   SET last_active_at = ?,
       display_name = CASE WHEN ? = '' THEN display_name ELSE ? END
 WHERE id = ?`, toMillis(at), displayName, displayName, id)
	return affectedOne(res, err, "touch account")
}

func (r *AccountRepo) Delete(ctx context.Context, tx repository.Tx, id int64) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	if _, err := exec.ExecContext(ctx, `UPDATE accounts SET referrer_id = NULL WHERE referrer_id = ?`, id); err != nil {
		return classify("clear referrals", err)
	}
	res, err := exec.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	return affectedOne(res, err, "delete account")
}

func (r *AccountRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM accounts`)
}

func (r *AccountRepo) CountInactive(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM accounts WHERE last_active_at < ?`, toMillis(since))
}

func (r *AccountRepo) CountReferrals(ctx context.Context, tx repository.Tx, id int64) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM accounts WHERE referrer_id = ?`, id)
}

func (r *AccountRepo) count(ctx context.Context, tx repository.Tx, q string, args ...any) (int, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := exec.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, classify("count accounts", err)
	}
	return n, nil
}

func (r *AccountRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.Account, error) {
	return r.list(ctx, tx, `SELECT `+accountColumns+` FROM accounts ORDER BY joined_at DESC, id DESC LIMIT ?`, limit)
}

func (r *AccountRepo) ListJoinedBetween(ctx context.Context, tx repository.Tx, from, to time.Time) ([]*model.Account, error) {
	return r.list(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE joined_at >= ? AND joined_at < ? ORDER BY joined_at, id`,
		toMillis(from), toMillis(to))
}

func (r *AccountRepo) ListInactive(ctx context.Context, tx repository.Tx, since time.Time, limit int) ([]*model.Account, error) {
	return r.list(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE last_active_at < ? ORDER BY last_active_at, id LIMIT ?`,
		toMillis(since), limit)
}

func (r *AccountRepo) Leaderboard(ctx context.Context, tx repository.Tx, limit int) ([]*model.Account, error) {
	return r.list(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE banned = 0 ORDER BY balance DESC, id LIMIT ?`, limit)
}

func (r *AccountRepo) list(ctx context.Context, tx repository.Tx, q string, args ...any) ([]*model.Account, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	rows, err := exec.QueryContext(ctx, q, args...)
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

func (r *AccountRepo) TopReferrers(ctx context.Context, tx repository.Tx, limit int) ([]*model.ReferrerRank, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	rows, err := exec.QueryContext(ctx, `
SELECT ref.id, ref.display_name, COUNT(a.id) AS referrals
  FROM accounts a
  JOIN accounts ref ON ref.id = a.referrer_id
 GROUP BY ref.id, ref.display_name
 ORDER BY referrals DESC, ref.id
 LIMIT ?`, limit)
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

func (r *AccountRepo) Totals(ctx context.Context, tx repository.Tx) (*model.Totals, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	var t model.Totals
	err = exec.QueryRowContext(ctx, `
SELECT
  (SELECT COUNT(*) FROM accounts),
  (SELECT COUNT(*) FROM accounts WHERE balance > 0),
  (SELECT COALESCE(SUM(balance), 0) FROM accounts),
  (SELECT COALESCE(SUM(total_granted), 0) FROM accounts),
  (SELECT COUNT(*) FROM redeem_codes WHERE active = 1),
  (SELECT COUNT(*) FROM redemptions)`).Scan(
		&t.Accounts, &t.AccountsWithCredits, &t.CreditsOutstanding, &t.CreditsDistributed, &t.ActiveCodes, &t.Redemptions)
	if err != nil {
		return nil, classify("totals", err)
	}
	return &t, nil
}

func affectedOne(res sql.Result, err error, op string) error {
	if err != nil {
		return classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
