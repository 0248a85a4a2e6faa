package db

import (
	"context"
	"fmt"

	"github.com/cozy-creator/product-studio/internal/config"
	"github.com/cozy-creator/product-studio/internal/db/drivers"
	"github.com/cozy-creator/product-studio/internal/db/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

func NewConnection(ctx context.Context, cfg *config.Config) (drivers.Driver, error) {
	if cfg.DB == nil {
		return nil, config.ErrDBNotConfigured
	}

	var (
		driver drivers.Driver
		err    error
	)
	switch cfg.DB.Driver {
	case "sqlite":
		driver, err = drivers.NewSQLiteDriver(ctx, cfg.DB.DSN)
	case "pg":
		driver, err = drivers.NewPGDriver(ctx, cfg.DB.DSN)
	default:
		return nil, fmt.Errorf("invalid database driver: %s", cfg.DB.Driver)
	}
	if err != nil {
		return nil, err
	}

	driver.GetDB().AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(cfg.DB.Debug),
		bundebug.FromEnv(),
	))

	return driver, nil
}

// CreateTables creates every table and index the pipeline needs if they do
// not already exist.
func CreateTables(ctx context.Context, db bun.IDB) error {
	for _, model := range models.Tables() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		model   interface{}
		name    string
		columns []string
	}{
		{(*models.Job)(nil), "generation_jobs_tenant_status_idx", []string{"tenant_id", "status"}},
		{(*models.Job)(nil), "generation_jobs_batch_idx", []string{"batch_id"}},
		{(*models.CreditLedgerEntry)(nil), "credit_ledger_tenant_period_idx", []string{"tenant_id", "unit", "period_start"}},
		{(*models.Event)(nil), "job_events_job_idx", []string{"job_id"}},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

// DropTables removes every table, in reverse creation order.
func DropTables(ctx context.Context, db bun.IDB) error {
	tables := models.Tables()
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", tables[i], err)
		}
	}

	return nil
}
