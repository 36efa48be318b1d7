// Package cache Redis 连接与 JSON 缓存
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dumeirei/funzone-backend/internal/common/config"
	"github.com/dumeirei/funzone-backend/internal/common/logger"
)

const pingTimeout = 5 * time.Second

// 缓存键前缀
const (
	KeyPrefixPromotion   = "promo:"
	KeyPrefixLeaderboard = "leaderboard:"
	KeyPrefixRateLimit   = "ratelimit:"
	KeyPrefixRecommend   = "recommend:"
)

// Init 创建客户端并 PING，失败时关闭客户端
func Init(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// BuildKey 前缀加冒号分隔的各段
func BuildKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return strings.TrimSuffix(prefix, ":")
	}
	return prefix + strings.Join(parts, ":")
}

// Store JSON 缓存，client 为 nil 时读取一律未命中、写入为空操作
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Enabled 是否连接了 Redis
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// GetJSON 未命中返回 (false, nil)
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	data, err := s.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Recorder 命中率统计，*metrics.Metrics 满足该接口
type Recorder interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
}

// Remember 先读缓存，未命中时调用 load 并回写
// 缓存读写失败只记日志，不影响返回结果；load 出错时不写缓存
func Remember[T any](ctx context.Context, s *Store, rec Recorder, name, key string, ttl time.Duration,
	load func(context.Context) (T, error)) (T, error) {
	if s.Enabled() {
		var cached T
		hit, err := s.GetJSON(ctx, key, &cached)
		if err != nil {
			logger.Warn("cache read failed", zap.String("cache", name), zap.String("key", key), zap.Error(err))
		}
		if hit {
			if rec != nil {
				rec.RecordCacheHit(name)
			}
			return cached, nil
		}
		if rec != nil {
			rec.RecordCacheMiss(name)
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := s.SetJSON(ctx, key, value, ttl); err != nil {
		logger.Warn("cache write failed", zap.String("cache", name), zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
