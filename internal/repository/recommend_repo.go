package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/funzone-backend/internal/models"
)

// RecommendRow 推荐列表中的一项
type RecommendRow struct {
	GameID int64   `json:"game_id"`
	Name   string  `json:"name"`
	Zone   *string `json:"zone,omitempty"`
	Price  int64   `json:"price"`
	Plays  int64   `json:"plays"`
	Clicks int64   `json:"clicks"`
	Score  int64   `json:"score"`
}

// RecommendRepository 游戏点击与推荐查询
type RecommendRepository struct {
	db *gorm.DB
}

// NewRecommendRepository 创建推荐仓储
func NewRecommendRepository(db *gorm.DB) *RecommendRepository {
	return &RecommendRepository{db: db}
}

// RecordClick 累加用户对游戏的点击次数，不存在时创建
func (r *RecommendRepository) RecordClick(ctx context.Context, userID, gameID int64, at time.Time) error {
	click := &models.GameClick{
		UserID:      userID,
		GameID:      gameID,
		Count:       1,
		LastClickAt: at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "game_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":         gorm.Expr("game_clicks.count + excluded.count"),
			"last_click_at": gorm.Expr("excluded.last_click_at"),
		}),
	}).Create(click).Error
}

// ClickCount 用户对游戏的点击次数
func (r *RecommendRepository) ClickCount(ctx context.Context, userID, gameID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GameClick{}).
		Where("user_id = ? AND game_id = ?", userID, gameID).
		Select("COALESCE(SUM(count), 0)").
		Scan(&count).Error
	return count, err
}

// 已付款票的游戏次数权重远高于点击
const popularSQL = `
SELECT g.id AS game_id,
       g.name AS name,
       g.zone AS zone,
       g.price AS price,
       COALESCE(pl.plays, 0) AS plays,
       COALESCE(ck.clicks, 0) AS clicks,
       COALESCE(pl.plays, 0) * 100 + COALESCE(ck.clicks, 0) AS score
FROM games g
LEFT JOIN (
    SELECT game_id, SUM(quantity) AS plays
    FROM tickets
    WHERE game_id IS NOT NULL AND status = ?
    GROUP BY game_id
) pl ON pl.game_id = g.id
LEFT JOIN (
    SELECT game_id, SUM(count) AS clicks
    FROM game_clicks
    GROUP BY game_id
) ck ON ck.game_id = g.id
WHERE g.status = ?
ORDER BY COALESCE(pl.plays, 0) DESC, COALESCE(ck.clicks, 0) DESC, g.id DESC
LIMIT ?`

// Popular 全站热门游戏：已付款游戏次数降序，点击数降序，游戏 ID 降序
func (r *RecommendRepository) Popular(ctx context.Context, limit int) ([]RecommendRow, error) {
	var rows []RecommendRow
	err := r.db.WithContext(ctx).
		Raw(popularSQL, models.TicketStatusPaid, models.CatalogStatusOpen, limit).
		Scan(&rows).Error
	return rows, err
}

const forUserSQL = `
SELECT g.id AS game_id,
       g.name AS name,
       g.zone AS zone,
       g.price AS price,
       0 AS plays,
       c.count AS clicks,
       c.count AS score
FROM game_clicks c
JOIN games g ON g.id = c.game_id
WHERE c.user_id = ? AND g.status = ? AND c.count > 0
ORDER BY c.count DESC, c.last_click_at DESC, g.id DESC
LIMIT ?`

// ForUser 用户点过的开放游戏：点击数降序，最近点击优先
func (r *RecommendRepository) ForUser(ctx context.Context, userID int64, limit int) ([]RecommendRow, error) {
	var rows []RecommendRow
	err := r.db.WithContext(ctx).
		Raw(forUserSQL, userID, models.CatalogStatusOpen, limit).
		Scan(&rows).Error
	return rows, err
}
