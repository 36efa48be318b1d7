package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/models"
)

// CatalogRepository 活动与游戏仓储（只读）
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository 创建活动与游戏仓储
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetEvent 获取活动
func (r *CatalogRepository) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// GetGame 获取游戏
func (r *CatalogRepository) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	var game models.Game
	if err := r.db.WithContext(ctx).First(&game, id).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// ListOpenEvents 获取开放中的活动
func (r *CatalogRepository) ListOpenEvents(ctx context.Context) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("status = ?", models.CatalogStatusOpen).
		Order("id ASC").
		Find(&events).Error
	return events, err
}

// ListOpenGames 获取开放中的游戏
func (r *CatalogRepository) ListOpenGames(ctx context.Context) ([]*models.Game, error) {
	var games []*models.Game
	err := r.db.WithContext(ctx).
		Where("status = ?", models.CatalogStatusOpen).
		Order("id ASC").
		Find(&games).Error
	return games, err
}
