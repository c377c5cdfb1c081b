package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*PostgresLedgerRepo)(nil)

type PostgresLedgerRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresLedgerRepo(pool *pgxpool.Pool) *PostgresLedgerRepo {
	return &PostgresLedgerRepo{pool: pool}
}

func (r *PostgresLedgerRepo) Append(ctx context.Context, tx repository.Tx, e *model.LedgerEntry) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO ledger_entries (account_id, delta, reason, ref, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;`
	if err := exec.QueryRow(ctx, q, e.AccountID, e.Delta, string(e.Reason), e.Ref, e.CreatedAt).Scan(&e.ID); err != nil {
		return classify("append ledger entry", err)
	}
	return nil
}

// ListByAccount returns entries oldest first. limit <= 0 means all.
func (r *PostgresLedgerRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID int64, limit int) ([]*model.LedgerEntry, error) {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := exec.Query(ctx, `
SELECT id, account_id, delta, reason, ref, created_at FROM ledger_entries
 WHERE account_id = $1 ORDER BY id LIMIT $2;`, accountID, lim)
	if err != nil {
		return nil, classify("list ledger", err)
	}
	defer rows.Close()

	var out []*model.LedgerEntry
	for rows.Next() {
		var (
			e      model.LedgerEntry
			reason string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Delta, &reason, &e.Ref, &e.CreatedAt); err != nil {
			return nil, classify("scan ledger entry", err)
		}
		e.Reason = model.EntryReason(reason)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list ledger", err)
	}
	return out, nil
}

func (r *PostgresLedgerRepo) DeleteByAccount(ctx context.Context, tx repository.Tx, accountID int64) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = exec.Exec(ctx, `DELETE FROM ledger_entries WHERE account_id = $1;`, accountID)
	return classify("delete ledger", err)
}
