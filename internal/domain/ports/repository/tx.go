package repository

import "context"

// Tx is the backend-specific transaction handle (pgx.Tx, *sql.Tx).
type Tx interface{}

// NoTX runs a repository call outside any transaction.
var NoTX interface{}

// TransactionManager runs fn inside one store transaction. The tx handle is
// passed to repositories, which must also accept NoTX.
//
// If fn returns an error the transaction is rolled back and the error is
// returned unchanged, so business sentinels survive for errors.Is.
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
