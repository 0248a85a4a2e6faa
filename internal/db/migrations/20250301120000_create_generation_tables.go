package migrations

import (
	"context"

	"github.com/cozy-creator/product-studio/internal/db"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, conn *bun.DB) error {
		return conn.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return db.CreateTables(ctx, tx)
		})
	}, func(ctx context.Context, conn *bun.DB) error {
		return db.DropTables(ctx, conn)
	})
}
