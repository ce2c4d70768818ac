package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"leafscan/internal/config"
	"leafscan/internal/models"
)

func TestConnectDatabase_SQLite(t *testing.T) {
	cfg := &config.Config{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "leafscan.db"),
	}

	db, err := ConnectDatabase(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, MigrateDatabase(db))
	assert.True(t, db.Migrator().HasTable(&models.Prediction{}))
	assert.True(t, db.Migrator().HasIndex(&models.Prediction{}, "UserID"))
	assert.NoError(t, Ping(context.Background(), db))
}

func TestConnectDatabase_UnknownDriver(t *testing.T) {
	db, err := ConnectDatabase(&config.Config{DBDriver: "mysql"})
	assert.Nil(t, db)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestMonitorDBConnections_StopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := &config.Config{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "monitor.db"),
	}
	db, err := ConnectDatabase(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	MonitorDBConnections(ctx, db, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()

	require.NoError(t, sqlDB.Close())
	// let the monitor goroutine observe the cancellation
	time.Sleep(20 * time.Millisecond)
}
