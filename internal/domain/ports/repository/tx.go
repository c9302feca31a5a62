package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. The concrete type is infra-defined
// (pgx.Tx for Postgres). Repositories accept a nil Tx and fall back to the pool.
type Tx interface{}

var NoTX Tx

// TransactionManager executes fn inside one database transaction. The tx
// handle passed to fn must be forwarded to every repository call that takes
// part in the unit of work. fn returning an error rolls everything back.
//
//	tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx Tx) error {
//		t, err := tenants.FindByEmail(ctx, tx, email)
//		...
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
