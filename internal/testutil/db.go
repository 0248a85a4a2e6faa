package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/cozy-creator/product-studio/internal/db"
	"github.com/cozy-creator/product-studio/internal/db/drivers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// NewDB returns a fresh in-memory sqlite database with every table created.
func NewDB(t testing.TB) *bun.DB {
	t.Helper()

	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	driver, err := drivers.NewSQLiteDriver(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	require.NoError(t, db.CreateTables(ctx, driver.GetDB()))
	return driver.GetDB()
}
