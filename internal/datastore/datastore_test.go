package datastore

import (
	"io"
	"testing"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteMigrates(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file::memory:?cache=shared"},
		logger.NewZerologLogger(io.Discard, logger.LogLevelError, nil))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, model := range entities.All() {
		assert.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"}, logger.NewZerologLogger(io.Discard, logger.LogLevelError, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestMySQLDSN_ForcesUTCTimes(t *testing.T) {
	dsn, err := mysqlDSN("notify:secret@tcp(db:3306)/notify")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "tcp(db:3306)/notify")

	_, err = mysqlDSN("not a dsn")
	assert.Error(t, err)
}
