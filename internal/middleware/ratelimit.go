package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dumeirei/funzone-backend/internal/common/cache"
	"github.com/dumeirei/funzone-backend/internal/common/logger"
	"github.com/dumeirei/funzone-backend/internal/common/response"
)

// 固定窗口计数：首次计数时设置过期，返回 {count, pttl}
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// RateLimitConfig 限流配置，RedisClient 为 nil 或 Limit 不为正时不限流
type RateLimitConfig struct {
	RedisClient *redis.Client
	Limit       int
	Window      time.Duration
	// KeyFunc 默认按 IP 加路由
	KeyFunc func(*gin.Context) string
}

// counter 一次计数的结果
type counter struct {
	count int64
	reset time.Duration
}

func (cfg *RateLimitConfig) hit(ctx context.Context, key string) (counter, error) {
	res, err := fixedWindow.Run(ctx, cfg.RedisClient, []string{key}, cfg.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return counter{}, err
	}
	w := counter{count: res[0]}
	if len(res) > 1 && res[1] > 0 {
		w.reset = time.Duration(res[1]) * time.Millisecond
	}
	return w, nil
}

// RateLimit 固定窗口限流，Redis 出错时放行
func RateLimit(cfg *RateLimitConfig) gin.HandlerFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string {
			return cache.BuildKey(cache.KeyPrefixRateLimit, c.ClientIP(), c.FullPath())
		}
	}

	return func(c *gin.Context) {
		if cfg.RedisClient == nil || cfg.Limit <= 0 {
			c.Next()
			return
		}

		key := keyFunc(c)
		w, err := cfg.hit(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(cfg.Limit) - w.count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(w.reset).Unix(), 10))

		if w.count > int64(cfg.Limit) {
			c.Header("Retry-After", strconv.Itoa(int(w.reset.Round(time.Second).Seconds())))
			response.TooManyRequests(c, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserRateLimit 已登录按用户计数，否则按 IP
func UserRateLimit(redisClient *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		RedisClient: redisClient,
		Limit:       limit,
		Window:      window,
		KeyFunc: func(c *gin.Context) string {
			if userID := GetUserID(c); userID > 0 {
				return cache.BuildKey(cache.KeyPrefixRateLimit, "user", strconv.FormatInt(userID, 10))
			}
			return cache.BuildKey(cache.KeyPrefixRateLimit, "ip", c.ClientIP())
		},
	})
}
