package sqlite

import (
	"context"
	"database/sql"

	"telegram-credit-ledger/internal/domain/model"
	"telegram-credit-ledger/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

type LedgerRepo struct {
	db *sql.DB
}

func NewLedgerRepo(db *sql.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

func (r *LedgerRepo) Append(ctx context.Context, tx repository.Tx, e *model.LedgerEntry) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	res, err := exec.ExecContext(ctx, `
INSERT INTO ledger_entries (account_id, delta, reason, ref, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.AccountID, e.Delta, string(e.Reason), e.Ref, toMillis(e.CreatedAt))
	if err != nil {
		return classify("append ledger entry", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// ListByAccount returns entries oldest first. limit <= 0 means all.
func (r *LedgerRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID int64, limit int) ([]*model.LedgerEntry, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := exec.QueryContext(ctx, `
SELECT id, account_id, delta, reason, ref, created_at FROM ledger_entries
 WHERE account_id = ? ORDER BY id LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, classify("list ledger", err)
	}
	defer rows.Close()

	var out []*model.LedgerEntry
	for rows.Next() {
		var (
			e       model.LedgerEntry
			reason  string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Delta, &reason, &e.Ref, &created); err != nil {
			return nil, classify("scan ledger entry", err)
		}
		e.Reason = model.EntryReason(reason)
		e.CreatedAt = fromMillis(created)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list ledger", err)
	}
	return out, nil
}

func (r *LedgerRepo) DeleteByAccount(ctx context.Context, tx repository.Tx, accountID int64) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `DELETE FROM ledger_entries WHERE account_id = ?`, accountID)
	return classify("delete ledger", err)
}
