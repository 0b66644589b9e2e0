package database

import (
	"fmt"
	"testing"
	"vip-payment-api/internal/config"
	"vip-payment-api/pkg/logging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// setupTestDB points the package at a fresh in-memory SQLite instance.
// The shared-cache DSN keeps GORM's connection pool on one database, and
// the busy timeout lets the concurrency tests serialize on SQLite's
// write lock instead of failing.
func setupTestDB(t *testing.T) {
	t.Helper()

	require.NoError(t, config.InitConfig())
	logging.InitLogging()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	DB = db
}
