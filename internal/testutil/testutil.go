// Package testutil 提供测试辅助工具：内存数据库、miniredis 与测试数据构造
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/funzone-backend/internal/common/database"
	"github.com/dumeirei/funzone-backend/internal/models"
)

// NewTestDB 为每个测试创建独立的内存 SQLite 数据库并完成迁移
// 只开一个连接，事务内必须沿用 tx，否则会自锁
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewTestRedis 启动 miniredis 并返回客户端
func NewTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

// CreateUser 创建顾客
func CreateUser(t *testing.T, db *gorm.DB, username, tier string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		PasswordHash: "x",
		FullName:     username,
		Role:         models.UserRoleCustomer,
		Tier:         tier,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateEvent 创建开放中的活动
func CreateEvent(t *testing.T, db *gorm.DB, name string, price int64) *models.Event {
	t.Helper()
	e := &models.Event{Name: name, Price: price, Status: models.CatalogStatusOpen}
	require.NoError(t, db.Create(e).Error)
	return e
}

// CreateGame 创建开放中的游戏
func CreateGame(t *testing.T, db *gorm.DB, name string, price int64) *models.Game {
	t.Helper()
	g := &models.Game{Name: name, Price: price, Status: models.CatalogStatusOpen}
	require.NoError(t, db.Create(g).Error)
	return g
}

// CreatePromotion 创建当前生效的促销
func CreatePromotion(t *testing.T, db *gorm.DB, name string, rate float64, conditions string) *models.Promotion {
	t.Helper()
	now := time.Now()
	p := &models.Promotion{
		Name:       name,
		Rate:       rate,
		Conditions: conditions,
		StartAt:    now.Add(-24 * time.Hour),
		EndAt:      now.Add(24 * time.Hour),
		Active:     models.PromotionActive,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateChallenge 创建当前生效的周挑战
func CreateChallenge(t *testing.T, db *gorm.DB, title string, goal, reward int64) *models.WeeklyChallenge {
	t.Helper()
	now := time.Now()
	c := &models.WeeklyChallenge{
		Title:        title,
		Goal:         goal,
		RewardPoints: reward,
		StartAt:      now.Add(-24 * time.Hour),
		EndAt:        now.Add(6 * 24 * time.Hour),
		Active:       1,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// CreateTicket 直接写入一张票
func CreateTicket(t *testing.T, db *gorm.DB, ticket *models.Ticket) *models.Ticket {
	t.Helper()
	if ticket.Status == "" {
		ticket.Status = models.TicketStatusBooked
	}
	if ticket.Quantity == 0 {
		ticket.Quantity = 1
	}
	require.NoError(t, db.Create(ticket).Error)
	return ticket
}

// Int64Ptr 返回指针
func Int64Ptr(v int64) *int64 {
	return &v
}
