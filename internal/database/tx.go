package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"storybook-server/internal/interfaces"
)

// PgTxRunner реализует interfaces.TxRunner поверх пула.
type PgTxRunner struct {
	db TxBeginner
}

var _ interfaces.TxRunner = (*PgTxRunner)(nil)

func NewTxRunner(db TxBeginner) *PgTxRunner {
	return &PgTxRunner{db: db}
}

func (r *PgTxRunner) WithTx(ctx context.Context, fn func(tx interfaces.DBTX) error) error {
	return WithTx(ctx, r.db, func(tx pgx.Tx) error { return fn(tx) })
}
