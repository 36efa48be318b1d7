package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/models"
)

// OperationLogFilter 操作日志筛选条件，零值字段不参与筛选
type OperationLogFilter struct {
	OperatorID int64
	Role       string
	Module     string
	Action     string
	TargetType string
	TargetID   int64
	Since      *time.Time
	Until      *time.Time
}

func (f OperationLogFilter) apply(q *gorm.DB) *gorm.DB {
	if f.OperatorID > 0 {
		q = q.Where("operator_id = ?", f.OperatorID)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Module != "" {
		q = q.Where("module = ?", f.Module)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.TargetType != "" {
		q = q.Where("target_type = ?", f.TargetType)
	}
	if f.TargetID > 0 {
		q = q.Where("target_id = ?", f.TargetID)
	}
	if f.Since != nil {
		q = q.Where("created_at >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("created_at < ?", *f.Until)
	}
	return q
}

// OperationLogRepository 后台操作日志，只追加，按保留期批量清理
type OperationLogRepository struct {
	db *gorm.DB
}

// NewOperationLogRepository 创建操作日志仓储
func NewOperationLogRepository(db *gorm.DB) *OperationLogRepository {
	return &OperationLogRepository{db: db}
}

// Create 写入一条操作日志
func (r *OperationLogRepository) Create(ctx context.Context, log *models.OperationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// List 按条件分页查询，最新的在前
func (r *OperationLogRepository) List(ctx context.Context, offset, limit int, filter OperationLogFilter) ([]*models.OperationLog, int64, error) {
	q := filter.apply(r.db.WithContext(ctx).Model(&models.OperationLog{}))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []*models.OperationLog
	if err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// purgeBatchSize 单次删除的最大行数
const purgeBatchSize = 1000

// DeleteBefore 分批删除 before 之前的日志，返回删除总数
func (r *OperationLogRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	for {
		var ids []int64
		if err := r.db.WithContext(ctx).Model(&models.OperationLog{}).
			Where("created_at < ?", before).
			Order("id").Limit(purgeBatchSize).
			Pluck("id", &ids).Error; err != nil {
			return deleted, err
		}
		if len(ids) == 0 {
			return deleted, nil
		}
		result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.OperationLog{})
		if result.Error != nil {
			return deleted, result.Error
		}
		deleted += result.RowsAffected
		if len(ids) < purgeBatchSize {
			return deleted, nil
		}
	}
}
