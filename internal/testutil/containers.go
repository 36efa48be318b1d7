//go:build integration

package testutil

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/common/cache"
	"github.com/dumeirei/funzone-backend/internal/common/config"
	"github.com/dumeirei/funzone-backend/internal/common/database"
)

const (
	PostgresImage = "postgres:16-alpine"
	RedisImage    = "redis:7-alpine"
)

// hostPort 容器映射到宿主机的地址
func hostPort(t *testing.T, ctx context.Context, c testcontainers.Container, port nat.Port) (string, int) {
	t.Helper()
	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, port)
	require.NoError(t, err)
	n, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)
	return host, n
}

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("container test")
	}
}

// StartPostgres 经 database.Init 连接容器库并迁移
func StartPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	skipShort(t)
	ctx := context.Background()

	c, err := tcPostgres.Run(ctx, PostgresImage,
		tcPostgres.WithDatabase("funzone_test"),
		tcPostgres.WithUsername("funzone"),
		tcPostgres.WithPassword("funzone"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(time.Minute)),
	)
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err, "postgres container")

	host, port := hostPort(t, ctx, c, "5432/tcp")
	db, err := database.Init(&config.DatabaseConfig{
		Host:         host,
		Port:         port,
		User:         "funzone",
		Password:     "funzone",
		Name:         "funzone_test",
		SSLMode:      "disable",
		Timezone:     "UTC",
		MaxIdleConns: 2,
		MaxOpenConns: 5,
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// StartRedis 经 cache.Init 连接容器 Redis
func StartRedis(t *testing.T) *redis.Client {
	t.Helper()
	skipShort(t)
	ctx := context.Background()

	c, err := tcRedis.Run(ctx, RedisImage)
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err, "redis container")

	host, port := hostPort(t, ctx, c, "6379/tcp")
	client, err := cache.Init(&config.RedisConfig{Host: host, Port: port, PoolSize: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}
