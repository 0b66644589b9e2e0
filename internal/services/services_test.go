package services

import (
	"fmt"
	"testing"
	"vip-payment-api/internal/config"
	"vip-payment-api/internal/database"
	"vip-payment-api/internal/models"
	"vip-payment-api/pkg/logging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// setupTest initializes config, logging, and a fresh in-memory SQLite
// database. Gateway config falls back to the env defaults because the
// settings table starts empty.
func setupTest(t *testing.T) {
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
	require.NoError(t, database.AutoMigrate(db))

	database.DB = db
	database.RedisClient = nil
}

func seedUser(t *testing.T, user *models.User) *models.User {
	t.Helper()
	require.NoError(t, database.DB.Create(user).Error)
	return user
}

func seedPackage(t *testing.T, pkg *models.VIPPackage) *models.VIPPackage {
	t.Helper()
	require.NoError(t, database.DB.Create(pkg).Error)
	return pkg
}
