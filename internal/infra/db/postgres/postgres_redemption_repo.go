package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
)

var _ repository.RedemptionRepository = (*PostgresRedemptionRepo)(nil)

type PostgresRedemptionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRedemptionRepo(pool *pgxpool.Pool) *PostgresRedemptionRepo {
	return &PostgresRedemptionRepo{pool: pool}
}

// Insert relies on redemptions_account_code_key; a concurrent duplicate
// blocks until the first transaction settles, then fails with 23505.
func (r *PostgresRedemptionRepo) Insert(ctx context.Context, tx repository.Tx, rd *model.Redemption) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = exec.Exec(ctx, `INSERT INTO redemptions (id, account_id, code, claimed_at) VALUES ($1, $2, $3, $4);`,
		rd.ID, rd.AccountID, rd.Code, rd.ClaimedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyClaimed
		}
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return classify("insert redemption", err)
	}
	return nil
}

func (r *PostgresRedemptionRepo) ExistsForCode(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM redemptions WHERE code = $1);`, code).Scan(&ok); err != nil {
		return false, classify("redemption exists", err)
	}
	return ok, nil
}

func (r *PostgresRedemptionRepo) CountForCode(ctx context.Context, tx repository.Tx, code string) (int, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM redemptions WHERE code = $1;`, code).Scan(&n); err != nil {
		return 0, classify("count redemptions", err)
	}
	return n, nil
}

func (r *PostgresRedemptionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID int64) ([]*model.Redemption, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := exec.Query(ctx, `
SELECT id, account_id, code, claimed_at FROM redemptions
 WHERE account_id = $1 ORDER BY claimed_at DESC, id DESC;`, accountID)
	if err != nil {
		return nil, classify("list redemptions", err)
	}
	defer rows.Close()

	var out []*model.Redemption
	for rows.Next() {
		var rd model.Redemption
		if err := rows.Scan(&rd.ID, &rd.AccountID, &rd.Code, &rd.ClaimedAt); err != nil {
			return nil, classify("scan redemption", err)
		}
		out = append(out, &rd)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list redemptions", err)
	}
	return out, nil
}

func (r *PostgresRedemptionRepo) ListClaimants(ctx context.Context, tx repository.Tx, code string) ([]*model.CodeClaimant, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := exec.Query(ctx, `
SELECT rd.account_id, COALESCE(a.display_name, ''), rd.claimed_at
  FROM redemptions rd
  LEFT JOIN accounts a ON a.id = rd.account_id
 WHERE rd.code = $1
 ORDER BY rd.claimed_at, rd.id;`, code)
	if err != nil {
		return nil, classify("list claimants", err)
	}
	defer rows.Close()

	var out []*model.CodeClaimant
	for rows.Next() {
		var c model.CodeClaimant
		if err := rows.Scan(&c.AccountID, &c.DisplayName, &c.ClaimedAt); err != nil {
			return nil, classify("scan claimant", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list claimants", err)
	}
	return out, nil
}

func (r *PostgresRedemptionRepo) DeleteByAccount(ctx context.Context, tx repository.Tx, accountID int64) ([]string, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := exec.Query(ctx, `DELETE FROM redemptions WHERE account_id = $1 RETURNING code;`, accountID)
	if err != nil {
		return nil, classify("delete redemptions", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, classify("scan redemption code", err)
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("delete redemptions", err)
	}
	return codes, nil
}

func (r *PostgresRedemptionRepo) AccountStats(ctx context.Context, tx repository.Tx, accountID int64) (int, int64, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, 0, err
	}
	var (
		claimed int
		credits int64
	)
	err = exec.QueryRow(ctx, `
SELECT COUNT(rd.id), COALESCE(SUM(c.amount), 0)::BIGINT
  FROM redemptions rd
  LEFT JOIN redeem_codes c ON c.code = rd.code
 WHERE rd.account_id = $1;`, accountID).Scan(&claimed, &credits)
	if err != nil {
		return 0, 0, classify("account redemption stats", err)
	}
	return claimed, credits, nil
}
