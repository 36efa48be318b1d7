package promotion

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/funzone-backend/internal/common/cache"
	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/logger"
	"github.com/dumeirei/funzone-backend/internal/common/metrics"
	"github.com/dumeirei/funzone-backend/internal/common/tracing"
	"github.com/dumeirei/funzone-backend/internal/models"
)

const cacheName = "promotion"

// DefaultCacheTTL 生效促销快照缓存时间
const DefaultCacheTTL = 30 * time.Second

// OpenPromotionSource 促销数据源，返回未结束的促销，开始时间由调用方按 IsOpen 过滤
type OpenPromotionSource interface {
	ListUnexpired(ctx context.Context, now time.Time) ([]*models.Promotion, error)
}

// Applicable 适用的促销及其在当前金额下的优惠
type Applicable struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Rate       float64 `json:"rate"`
	Discount   int64   `json:"discount"`
	FinalTotal int64   `json:"final_total"`
}

// Quote 报价
type Quote struct {
	Original  int64       `json:"original"`
	Rate      float64     `json:"rate"`
	Discount  int64       `json:"discount"`
	Final     int64       `json:"final"`
	Promotion *Applicable `json:"promotion,omitempty"`
}

// PromotionID 所选促销 ID，无促销时为 nil
func (q *Quote) PromotionID() *int64 {
	if q == nil || q.Promotion == nil {
		return nil
	}
	id := q.Promotion.ID
	return &id
}

// Resolver 促销匹配器
type Resolver struct {
	source   OpenPromotionSource
	store    *cache.Store
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

// ResolverOption 匹配器选项
type ResolverOption func(*Resolver)

// WithCache 使用 Redis 缓存生效促销快照
func WithCache(store *cache.Store, ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.store = store
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

// WithMetrics 记录匹配结果指标
func WithMetrics(m *metrics.Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithClock 替换时钟
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver 创建促销匹配器
func NewResolver(source OpenPromotionSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		source:   source,
		cacheTTL: DefaultCacheTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ListApplicable 列出适用的促销，按折扣率降序、ID 降序
func (r *Resolver) ListApplicable(ctx context.Context, amount int64, tier string, eventID *int64) ([]Applicable, error) {
	ctx, span := tracing.StartSpan(ctx, "promotion.ListApplicable",
		tracing.WithAmount(amount),
		tracing.WithTier(tier),
	)
	defer span.End()

	now := r.now()
	promotions, err := r.openPromotions(ctx, now)
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	result := make([]Applicable, 0, len(promotions))
	for _, p := range promotions {
		if !p.IsOpen(now) || p.Rate <= 0 {
			continue
		}
		cond, err := ParseCondition([]byte(p.Conditions))
		if err != nil {
			logger.Warn("promotion condition unreadable, treating as unrestricted",
				logger.PromotionID(p.ID),
				zap.Error(err),
			)
		}
		if !cond.Allows(amount, tier, eventID) {
			continue
		}
		discount, final := ComputeDiscount(amount, p.Rate)
		result = append(result, Applicable{
			ID:         p.ID,
			Name:       p.Name,
			Rate:       p.Rate,
			Discount:   discount,
			FinalTotal: final,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Rate != result[j].Rate {
			return result[i].Rate > result[j].Rate
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// FindBest 折扣率最高的适用促销，没有时返回 (nil, 0)
func (r *Resolver) FindBest(ctx context.Context, amount int64, tier string, eventID *int64) (*Applicable, float64, error) {
	list, err := r.ListApplicable(ctx, amount, tier, eventID)
	if err != nil {
		return nil, 0, err
	}
	if len(list) == 0 {
		return nil, 0, nil
	}
	best := list[0]
	return &best, best.Rate, nil
}

// Resolve 计算报价
// 指定 requestedID 时该促销必须在适用列表中，否则返回 ErrPromotionNotApplicable
func (r *Resolver) Resolve(ctx context.Context, amount int64, tier string, eventID *int64, requestedID *int64) (*Quote, error) {
	list, err := r.ListApplicable(ctx, amount, tier, eventID)
	if err != nil {
		return nil, err
	}

	quote := &Quote{Original: amount, Final: amount}
	var chosen *Applicable
	if requestedID != nil {
		for i := range list {
			if list[i].ID == *requestedID {
				chosen = &list[i]
				break
			}
		}
		if chosen == nil {
			r.metrics.RecordPromotionQuote("rejected")
			return nil, errors.ErrPromotionNotApplicable
		}
	} else if len(list) > 0 {
		chosen = &list[0]
	}

	if chosen == nil {
		r.metrics.RecordPromotionQuote("none")
		return quote, nil
	}

	quote.Rate = chosen.Rate
	quote.Discount = chosen.Discount
	quote.Final = chosen.FinalTotal
	quote.Promotion = chosen
	r.metrics.RecordPromotionQuote("applied")
	tracing.AddEvent(ctx, "promotion.selected", tracing.WithPromotionID(chosen.ID))
	return quote, nil
}

// Invalidate 清除生效促销缓存
func (r *Resolver) Invalidate(ctx context.Context) {
	if err := r.store.Delete(ctx, openCacheKey()); err != nil {
		logger.Warn("failed to invalidate promotion cache", zap.Error(err))
	}
}

func openCacheKey() string {
	return cache.BuildKey(cache.KeyPrefixPromotion, "open")
}

// openPromotions 读取未结束的促销快照，缓存不可用时回源数据库
// 快照包含尚未开始的促销，缓存期内开始的促销无需等待过期即可生效
func (r *Resolver) openPromotions(ctx context.Context, now time.Time) ([]*models.Promotion, error) {
	return cache.Remember(ctx, r.store, r.metrics, cacheName, openCacheKey(), r.cacheTTL,
		func(ctx context.Context) ([]*models.Promotion, error) {
			return r.source.ListUnexpired(ctx, now)
		})
}
