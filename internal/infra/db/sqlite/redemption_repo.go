package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
)

var _ repository.RedemptionRepository = (*RedemptionRepo)(nil)

type RedemptionRepo struct {
	db *sql.DB
}

func NewRedemptionRepo(db *sql.DB) *RedemptionRepo {
	return &RedemptionRepo{db: db}
}

func (r *RedemptionRepo) Insert(ctx context.Context, tx repository.Tx, rd *model.Redemption) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `INSERT INTO redemptions (id, account_id, code, claimed_at) VALUES (?, ?, ?, ?)`,
		rd.ID, rd.AccountID, rd.Code, toMillis(rd.ClaimedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyClaimed
		}
		return classify("insert redemption", err)
	}
	return nil
}

func (r *RedemptionRepo) ExistsForCode(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return false, err
	}
	var one int
	err = exec.QueryRowContext(ctx, `SELECT 1 FROM redemptions WHERE code = ? LIMIT 1`, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify("redemption exists", err)
	}
	return true, nil
}

func (r *RedemptionRepo) CountForCode(ctx context.Context, tx repository.Tx, code string) (int, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM redemptions WHERE code = ?`, code).Scan(&n); err != nil {
		return 0, classify("count redemptions", err)
	}
	return n, nil
}

func (r *RedemptionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID int64) ([]*model.Redemption, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	rows, err := exec.QueryContext(ctx, `
SELECT id, account_id, code, claimed_at FROM redemptions
 WHERE account_id = ? ORDER BY claimed_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, classify("list redemptions", err)
	}
	defer rows.Close()

	var out []*model.Redemption
	for rows.Next() {
		var (
			rd      model.Redemption
			claimed int64
		)
		if err := rows.Scan(&rd.ID, &rd.AccountID, &rd.Code, &claimed); err != nil {
			return nil, classify("scan redemption", err)
		}
		rd.ClaimedAt = fromMillis(claimed)
		out = append(out, &rd)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list redemptions", err)
	}
	return out, nil
}

func (r *RedemptionRepo) ListClaimants(ctx context.Context, tx repository.Tx, code string) ([]*model.CodeClaimant, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	rows, err := exec.QueryContext(ctx, `
SELECT rd.account_id, COALESCE(a.display_name, ''), rd.claimed_at
  FROM redemptions rd
  LEFT JOIN accounts a ON a.id = rd.account_id
 WHERE rd.code = ?
 ORDER BY rd.claimed_at, rd.id`, code)
	if err != nil {
		return nil, classify("list claimants", err)
	}
	defer rows.Close()

	var out []*model.CodeClaimant
	for rows.Next() {
		var (
			c       model.CodeClaimant
			claimed int64
		)
		if err := rows.Scan(&c.AccountID, &c.DisplayName, &claimed); err != nil {
			return nil, classify("scan claimant", err)
		}
		c.ClaimedAt = fromMillis(claimed)
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list claimants", err)
	}
	return out, nil
}

func (r *RedemptionRepo) DeleteByAccount(ctx context.Context, tx repository.Tx, accountID int64) ([]string, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	rows, err := exec.QueryContext(ctx, `SELECT code FROM redemptions WHERE account_id = ? ORDER BY code`, accountID)
	if err != nil {
		return nil, classify("list account redemptions", err)
	}
	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			rows.Close()
			return nil, classify("scan redemption code", err)
		}
		codes = append(codes, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classify("list account redemptions", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM redemptions WHERE account_id = ?`, accountID); err != nil {
		return nil, classify("delete redemptions", err)
	}
	return codes, nil
}

func (r *RedemptionRepo) AccountStats(ctx context.Context, tx repository.Tx, accountID int64) (int, int64, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return 0, 0, err
	}
	var (
		claimed int
		credits int64
	)
	err = exec.QueryRowContext(ctx, `
SELECT COUNT(rd.id), COALESCE(SUM(c.amount), 0)
  FROM redemptions rd
  LEFT JOIN redeem_codes c ON c.code = rd.code
 WHERE rd.account_id = ?`, accountID).Scan(&claimed, &credits)
	if err != nil {
		return 0, 0, classify("account redemption stats", err)
	}
	return claimed, credits, nil
}
