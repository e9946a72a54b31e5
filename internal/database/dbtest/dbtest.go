// Package dbtest opens throwaway in-memory databases with the production schema
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a fresh sqlite database named after the test
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(models.All()...))
	// Partial index the postgres migration also creates
	require.NoError(t, db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS uniq_sales_active_lot ON sales (lot_id) WHERE status = 'active'").Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Keep the shared in-memory database alive for the whole test
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}
