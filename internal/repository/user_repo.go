// Package repository 提供数据访问层
package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/models"
)

// UserRepository 用户仓储，用户名查找不区分大小写
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, args...).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID 不存在时返回 gorm.ErrRecordNotFound
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// GetByUsername 登录查找
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "LOWER(username) = ?", strings.ToLower(username))
}

// ExistsByUsername 注册查重
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = ?", strings.ToLower(username)).
		Count(&count).Error
	return count > 0, err
}

// UpdateTier 用户不存在时返回 gorm.ErrRecordNotFound
func (r *UserRepository) UpdateTier(ctx context.Context, id int64, tier string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("tier", tier)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddPointsTx 累加积分余额，余额为冗余字段，以流水汇总为准
func (r *UserRepository) AddPointsTx(ctx context.Context, tx *gorm.DB, id int64, delta int64) error {
	return tx.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("points", gorm.Expr("points + ?", delta)).Error
}
