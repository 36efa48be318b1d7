// Package recommend 记录顾客查看游戏的点击，并给出热门与个人推荐
package recommend

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/common/cache"
	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/metrics"
	"github.com/dumeirei/funzone-backend/internal/models"
	"github.com/dumeirei/funzone-backend/internal/repository"
)

// 列表条数
const (
	GlobalLimit = 24
	UserLimit   = 12
)

// Service 推荐服务
type Service struct {
	catalogRepo   *repository.CatalogRepository
	recommendRepo *repository.RecommendRepository

	store   *cache.Store
	ttl     time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option 服务选项
type Option func(*Service)

// WithCache 缓存热门列表
func WithCache(store *cache.Store, ttl time.Duration) Option {
	return func(s *Service) {
		s.store = store
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMetrics 记录缓存命中
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService 创建推荐服务
func NewService(catalogRepo *repository.CatalogRepository, recommendRepo *repository.RecommendRepository, opts ...Option) *Service {
	s := &Service{
		catalogRepo:   catalogRepo,
		recommendRepo: recommendRepo,
		ttl:           time.Minute,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClickResult 点击后的累计次数
type ClickResult struct {
	GameID int64 `json:"game_id"`
	Clicks int64 `json:"clicks"`
}

// Result 推荐结果，Personalized 为 false 时是热门列表
type Result struct {
	Personalized bool                      `json:"personalized"`
	Items        []repository.RecommendRow `json:"items"`
}

// RecordClick 记录一次点击，只接受开放中的游戏
func (s *Service) RecordClick(ctx context.Context, userID, gameID int64) (*ClickResult, error) {
	game, err := s.catalogRepo.GetGame(ctx, gameID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrGameNotOpen
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if game.Status != models.CatalogStatusOpen {
		return nil, errors.ErrGameNotOpen
	}

	if err := s.recommendRepo.RecordClick(ctx, userID, gameID, s.now()); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	clicks, err := s.recommendRepo.ClickCount(ctx, userID, gameID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return &ClickResult{GameID: gameID, Clicks: clicks}, nil
}

// Global 热门游戏，按缓存时长刷新
func (s *Service) Global(ctx context.Context) ([]repository.RecommendRow, error) {
	key := cache.BuildKey(cache.KeyPrefixRecommend, "global")
	return cache.Remember(ctx, s.store, s.metrics, "recommend", key, s.ttl,
		func(ctx context.Context) ([]repository.RecommendRow, error) {
			rows, err := s.recommendRepo.Popular(ctx, GlobalLimit)
			if err != nil {
				return nil, errors.ErrDatabaseError.WithError(err)
			}
			if rows == nil {
				rows = []repository.RecommendRow{}
			}
			return rows, nil
		})
}

// ForUser 个人推荐，没有点击记录时退回热门列表
func (s *Service) ForUser(ctx context.Context, userID int64) (*Result, error) {
	rows, err := s.recommendRepo.ForUser(ctx, userID, UserLimit)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if len(rows) > 0 {
		return &Result{Personalized: true, Items: rows}, nil
	}

	global, err := s.Global(ctx)
	if err != nil {
		return nil, err
	}
	if len(global) > UserLimit {
		global = global[:UserLimit]
	}
	return &Result{Items: global}, nil
}
