package postgres

import (
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"telegram-credit-ledger/internal/domain"
)

const (
	sqlUniqueViolation     = "23505"
	sqlForeignKeyViolation = "23503"
	sqlSerialization       = "40001"
	sqlDeadlock            = "40P01"
	sqlTooManyConnections  = "53300"
	sqlAdminShutdown       = "57P01"
	sqlCannotConnectNow    = "57P03"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool { return pgCode(err) == sqlUniqueViolation }

func isForeignKeyViolation(err error) bool { return pgCode(err) == sqlForeignKeyViolation }

func isTransient(err error) bool {
	switch code := pgCode(err); {
	case code == "":
	case len(code) == 5 && code[:2] == "08":
		return true
	case code == sqlSerialization, code == sqlDeadlock, code == sqlTooManyConnections,
		code == sqlAdminShutdown, code == sqlCannotConnectNow:
		return true
	default:
		return false
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.SafeToRetry(err) || errors.Is(err, pgx.ErrTxClosed)
}

// classify wraps retryable failures in domain.TransientError and annotates the rest.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return &domain.TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
