package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/funzone-backend/internal/models"
)

// TicketRepository 票仓储
type TicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository 创建票仓储
func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create 创建票
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

// GetByID 根据 ID 获取票（含活动、游戏、促销）
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Preload("Event").
		Preload("Game").
		Preload("Promotion").
		First(&ticket, id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetForUpdate 在事务内获取票（加锁）
func (r *TicketRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&ticket, id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateStatusTx 条件更新票状态，仅当当前状态在 fromStatuses 中时生效，返回影响行数
func (r *TicketRepository) UpdateStatusTx(ctx context.Context, tx *gorm.DB, id int64, fromStatuses []string, fields map[string]interface{}) (int64, error) {
	result := tx.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(fields)
	return result.RowsAffected, result.Error
}

// SetPaymentRef 记录网关交易号
func (r *TicketRepository) SetPaymentRef(ctx context.Context, id int64, ref string) error {
	return r.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ?", id).
		Update("payment_ref", ref).Error
}

// ListByUser 获取用户的票
func (r *TicketRepository) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*models.Ticket, int64, error) {
	var tickets []*models.Ticket
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Ticket{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Event").Preload("Game").
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&tickets).Error
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// AdminList 后台票列表，keyword 匹配用户名、活动名或游戏名
func (r *TicketRepository) AdminList(ctx context.Context, offset, limit int, statuses []string, keyword string) ([]*models.Ticket, int64, error) {
	var tickets []*models.Ticket
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Ticket{})
	if len(statuses) > 0 {
		query = query.Where("tickets.status IN ?", statuses)
	}
	if keyword != "" {
		like := "%" + keyword + "%"
		query = query.
			Joins("LEFT JOIN users ON users.id = tickets.user_id").
			Joins("LEFT JOIN events ON events.id = tickets.event_id").
			Joins("LEFT JOIN games ON games.id = tickets.game_id").
			Where("users.username LIKE ? OR events.name LIKE ? OR games.name LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Event").Preload("Game").
		Order("tickets.id DESC").
		Offset(offset).Limit(limit).
		Find(&tickets).Error
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// ListStaleBooked 获取在 before 之前创建且仍未付款的票 ID
func (r *TicketRepository) ListStaleBooked(ctx context.Context, before time.Time, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("status IN ? AND created_at < ?", []string{models.TicketStatusBooked, models.TicketStatusUnpaid}, before).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
