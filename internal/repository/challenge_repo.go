package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/funzone-backend/internal/models"
)

// ChallengeRepository 周挑战仓储（挑战、进度、奖励发放）
type ChallengeRepository struct {
	db *gorm.DB
}

// NewChallengeRepository 创建周挑战仓储
func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Create 创建挑战
func (r *ChallengeRepository) Create(ctx context.Context, challenge *models.WeeklyChallenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

// GetByID 根据 ID 获取挑战
func (r *ChallengeRepository) GetByID(ctx context.Context, id int64) (*models.WeeklyChallenge, error) {
	var challenge models.WeeklyChallenge
	if err := r.db.WithContext(ctx).First(&challenge, id).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

// Update 更新挑战
func (r *ChallengeRepository) Update(ctx context.Context, challenge *models.WeeklyChallenge) error {
	return r.db.WithContext(ctx).Save(challenge).Error
}

// Delete 删除挑战及其进度
func (r *ChallengeRepository) Delete(ctx context.Context, id int64) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("challenge_id = ?", id).Delete(&models.ChallengeProgress{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.WeeklyChallenge{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

// List 分页获取挑战列表
// filters: active_at 在该时刻生效；start 结束不早于该时间；end 开始不晚于该时间
func (r *ChallengeRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.WeeklyChallenge, int64, error) {
	var challenges []*models.WeeklyChallenge
	var total int64

	query := r.db.WithContext(ctx).Model(&models.WeeklyChallenge{})
	if at, ok := filters["active_at"].(time.Time); ok {
		query = query.Where("active = 1 AND start_at <= ? AND end_at >= ?", at, at)
	}
	if start, ok := filters["start"].(time.Time); ok {
		query = query.Where("end_at >= ?", start)
	}
	if end, ok := filters["end"].(time.Time); ok {
		query = query.Where("start_at <= ?", end)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("start_at DESC, id ASC").Offset(offset).Limit(limit).Find(&challenges).Error; err != nil {
		return nil, 0, err
	}
	return challenges, total, nil
}

// ListActive 获取 now 时刻生效的挑战
func (r *ChallengeRepository) ListActive(ctx context.Context, now time.Time) ([]*models.WeeklyChallenge, error) {
	return r.ListActiveTx(ctx, r.db, now)
}

// ListActiveTx 在事务内获取 now 时刻生效的挑战
func (r *ChallengeRepository) ListActiveTx(ctx context.Context, tx *gorm.DB, now time.Time) ([]*models.WeeklyChallenge, error) {
	var challenges []*models.WeeklyChallenge
	err := tx.WithContext(ctx).
		Where("active = 1 AND start_at <= ? AND end_at >= ?", now, now).
		Order("id ASC").
		Find(&challenges).Error
	return challenges, err
}

// IncrementProgressTx 累加用户在挑战上的进度，不存在时创建
func (r *ChallengeRepository) IncrementProgressTx(ctx context.Context, tx *gorm.DB, challengeID, userID, inc int64) error {
	progress := &models.ChallengeProgress{
		ChallengeID: challengeID,
		UserID:      userID,
		Value:       inc,
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "challenge_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      gorm.Expr("challenge_progress.value + excluded.value"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(progress).Error
}

// ProgressByUser 获取用户在指定挑战上的进度，键为挑战 ID
func (r *ChallengeRepository) ProgressByUser(ctx context.Context, userID int64, challengeIDs []int64) (map[int64]int64, error) {
	result := make(map[int64]int64, len(challengeIDs))
	if len(challengeIDs) == 0 {
		return result, nil
	}
	var rows []models.ChallengeProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND challenge_id IN ?", userID, challengeIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ChallengeID] = row.Value
	}
	return result, nil
}

// ListCompletedTx 获取用户在 now 时刻生效且已达成目标的挑战
func (r *ChallengeRepository) ListCompletedTx(ctx context.Context, tx *gorm.DB, userID int64, now time.Time) ([]*models.WeeklyChallenge, error) {
	var challenges []*models.WeeklyChallenge
	err := tx.WithContext(ctx).
		Model(&models.WeeklyChallenge{}).
		Joins("JOIN challenge_progress ON challenge_progress.challenge_id = weekly_challenges.id AND challenge_progress.user_id = ?", userID).
		Where("weekly_challenges.active = 1").
		Where("weekly_challenges.start_at <= ? AND weekly_challenges.end_at >= ?", now, now).
		Where("challenge_progress.value >= weekly_challenges.goal").
		Order("weekly_challenges.id ASC").
		Find(&challenges).Error
	return challenges, err
}

// ClaimRewardTx 登记奖励发放，同一 (用户, 挑战, 周) 已登记时返回 false
func (r *ChallengeRepository) ClaimRewardTx(ctx context.Context, tx *gorm.DB, reward *models.ChallengeReward) (bool, error) {
	result := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "challenge_id"}, {Name: "week_start"}},
		DoNothing: true,
	}).Create(reward)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetRewardLedgerTx 关联奖励与积分流水
func (r *ChallengeRepository) SetRewardLedgerTx(ctx context.Context, tx *gorm.DB, rewardID, ledgerID int64) error {
	return tx.WithContext(ctx).Model(&models.ChallengeReward{}).
		Where("id = ?", rewardID).
		Update("ledger_entry_id", ledgerID).Error
}

// ClaimedWeeks 获取用户在指定挑战上已领取奖励的周，键为挑战 ID
func (r *ChallengeRepository) ClaimedWeeks(ctx context.Context, userID int64, challengeIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string)
	if len(challengeIDs) == 0 {
		return result, nil
	}
	var rows []models.ChallengeReward
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND challenge_id IN ?", userID, challengeIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ChallengeID] = append(result[row.ChallengeID], row.WeekStart)
	}
	return result, nil
}
