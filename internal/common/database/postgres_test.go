package database

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dumeirei/funzone-backend/internal/models"
)

func openMemoryDB(t *testing.T, l gormlogger.Interface) *gorm.DB {
	t.Helper()
	if l == nil {
		l = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: l})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = Close(testDB) })
	return testDB
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	testDB := openMemoryDB(t, nil)

	require.NoError(t, Migrate(testDB))

	for _, table := range []string{
		"users", "events", "games", "promotions", "tickets", "payments",
		"point_ledger_entries", "weekly_challenges", "challenge_progress",
		"challenge_rewards", "operation_logs", "game_clicks",
	} {
		assert.True(t, testDB.Migrator().HasTable(table), table)
	}
	assert.True(t, testDB.Migrator().HasIndex(&models.ChallengeReward{}, "uniq_reward_user_challenge_week"))
	assert.True(t, testDB.Migrator().HasIndex(&models.ChallengeProgress{}, "uniq_progress_challenge_user"))
	assert.True(t, testDB.Migrator().HasIndex(&models.GameClick{}, "uniq_click_user_game"))

	// 重复迁移是幂等的
	assert.NoError(t, Migrate(testDB))
}

func TestLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLogger(zap.New(core), 100*time.Millisecond, false)
	ctx := context.Background()
	fc := func() (string, int64) { return "SELECT * FROM tickets", 3 }

	l.Trace(ctx, time.Now(), fc, nil)
	assert.Zero(t, logs.Len(), "fast query is not logged unless verbose")

	l.Trace(ctx, time.Now(), fc, gorm.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	l.Trace(ctx, time.Now().Add(-time.Second), fc, nil)
	l.Trace(ctx, time.Now(), fc, stderrors.New("deadlock detected"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "slow sql", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, int64(3), entries[0].ContextMap()["rows"])
	assert.Equal(t, "sql error", entries[1].Message)
	assert.Equal(t, "SELECT * FROM tickets", entries[1].ContextMap()["sql"])
}

func TestLogger_VerboseAndSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	verbose := NewLogger(zap.New(core), 0, true)
	fc := func() (string, int64) { return "SELECT 1", 1 }

	verbose.Trace(context.Background(), time.Now(), fc, nil)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "sql", logs.All()[0].Message)

	silent := verbose.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), fc, stderrors.New("boom"))
	silent.Error(context.Background(), "ignored %d", 1)
	assert.Equal(t, 1, logs.Len())
}

func TestLogger_WithGorm(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	testDB := openMemoryDB(t, NewLogger(zap.New(core), 0, true))

	require.NoError(t, testDB.Exec("CREATE TABLE kv (k TEXT)").Error)
	assert.NotZero(t, logs.FilterMessage("sql").Len())
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
