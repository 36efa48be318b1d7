package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/models"
)

// PromotionRepository 促销仓储
type PromotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository 创建促销仓储
func NewPromotionRepository(db *gorm.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// Create 创建促销
func (r *PromotionRepository) Create(ctx context.Context, promotion *models.Promotion) error {
	return r.db.WithContext(ctx).Create(promotion).Error
}

// GetByID 根据 ID 获取促销
func (r *PromotionRepository) GetByID(ctx context.Context, id int64) (*models.Promotion, error) {
	var promotion models.Promotion
	if err := r.db.WithContext(ctx).First(&promotion, id).Error; err != nil {
		return nil, err
	}
	return &promotion, nil
}

// Update 更新促销
func (r *PromotionRepository) Update(ctx context.Context, promotion *models.Promotion) error {
	return r.db.WithContext(ctx).Save(promotion).Error
}

// Delete 删除促销
func (r *PromotionRepository) Delete(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Promotion{}, id)
	return result.RowsAffected, result.Error
}

// SetActive 启用或停用促销
func (r *PromotionRepository) SetActive(ctx context.Context, id int64, active int8) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Promotion{}).
		Where("id = ?", id).
		Update("active", active)
	return result.RowsAffected, result.Error
}

// List 分页获取促销列表
func (r *PromotionRepository) List(ctx context.Context, offset, limit int, keyword string, activeOnly bool) ([]*models.Promotion, int64, error) {
	var promotions []*models.Promotion
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Promotion{})
	if keyword != "" {
		query = query.Where("name LIKE ?", "%"+keyword+"%")
	}
	if activeOnly {
		query = query.Where("active = ?", models.PromotionActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&promotions).Error; err != nil {
		return nil, 0, err
	}
	return promotions, total, nil
}

// ListUnexpired 启用且在 now 时刻未结束的促销（含尚未开始的），按折扣率降序、ID 降序
func (r *PromotionRepository) ListUnexpired(ctx context.Context, now time.Time) ([]*models.Promotion, error) {
	var promotions []*models.Promotion
	err := r.db.WithContext(ctx).
		Where("active = ?", models.PromotionActive).
		Where("end_at >= ?", now).
		Order("rate DESC, id DESC").
		Find(&promotions).Error
	return promotions, err
}
