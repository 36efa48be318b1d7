package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/funzone-backend/internal/models"
)

// LeaderboardRow 排行榜行
type LeaderboardRow struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Points   int64  `json:"points"`
	Plays    int64  `json:"plays"`
}

// LedgerRepository 积分流水仓储，只提供追加与查询
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建积分流水仓储
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// AppendTx 在事务内追加一条流水
// 带幂等键的流水重复写入时不插入，返回 false
func (r *LedgerRepository) AppendTx(ctx context.Context, tx *gorm.DB, entry *models.PointLedgerEntry) (bool, error) {
	q := tx.WithContext(ctx)
	if entry.IdempotencyKey != nil {
		q = q.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		})
	}
	result := q.Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SumByUser 用户积分余额（流水汇总）
func (r *LedgerRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.PointLedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&total).Error
	return total, err
}

// ListByUser 分页获取用户流水，最新在前
func (r *LedgerRepository) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*models.PointLedgerEntry, int64, error) {
	var entries []*models.PointLedgerEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&models.PointLedgerEntry{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

const leaderboardSQL = `
SELECT u.id AS user_id,
       u.username AS username,
       COALESCE(p.points, 0) AS points,
       COALESCE(pl.plays, 0) AS plays
FROM users u
LEFT JOIN (
    SELECT user_id, SUM(delta) AS points
    FROM point_ledger_entries
    GROUP BY user_id
) p ON p.user_id = u.id
LEFT JOIN (
    SELECT user_id, SUM(quantity) AS plays
    FROM tickets
    WHERE game_id IS NOT NULL AND status = ?
    GROUP BY user_id
) pl ON pl.user_id = u.id
WHERE COALESCE(p.points, 0) > 0 OR COALESCE(pl.plays, 0) > 0
ORDER BY COALESCE(p.points, 0) DESC, COALESCE(pl.plays, 0) DESC, u.id ASC
LIMIT ?`

// Leaderboard 全时段排行榜：积分降序，已付款游戏次数降序，用户 ID 升序
func (r *LedgerRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.db.WithContext(ctx).Raw(leaderboardSQL, models.TicketStatusPaid, limit).Scan(&rows).Error
	return rows, err
}
