package main

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const readyTimeout = 3 * time.Second

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// probe 依赖探测，返回 nil 表示可用
type probe func(ctx context.Context) error

func databaseProbe(db *gorm.DB) probe {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func redisProbe(client *redis.Client) probe {
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: version, Timestamp: time.Now().Unix()})
}

func pingHandler(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// readyHandler 所有探测通过才返回 200
func readyHandler(probes map[string]probe) gin.HandlerFunc {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		resp := HealthResponse{Status: "ready", Version: version, Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for _, name := range names {
			if err := probes[name](ctx); err != nil {
				resp.Checks[name] = "error: " + err.Error()
				resp.Status = "not ready"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		resp.Timestamp = time.Now().Unix()
		c.JSON(status, resp)
	}
}
