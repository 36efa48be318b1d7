package models

import (
	"time"
)

// WeeklyChallenge 每周挑战
type WeeklyChallenge struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string    `gorm:"type:varchar(150);not null" json:"title"`
	Description  *string   `gorm:"type:text" json:"description,omitempty"`
	Goal         int64     `gorm:"not null;default:1" json:"goal"`
	RewardPoints int64     `gorm:"not null;default:0" json:"reward_points"`
	StartAt      time.Time `gorm:"not null;index" json:"start_at"`
	EndAt        time.Time `gorm:"not null;index" json:"end_at"`
	Active       int8      `gorm:"type:smallint;not null;default:1" json:"active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (WeeklyChallenge) TableName() string {
	return "weekly_challenges"
}

// WeekStart 挑战周的起始日期（YYYY-MM-DD）
func (c *WeeklyChallenge) WeekStart() string {
	return c.StartAt.Format("2006-01-02")
}

// ChallengeProgress 用户挑战进度，每个 (挑战, 用户) 唯一
type ChallengeProgress struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ChallengeID int64     `gorm:"not null;uniqueIndex:uniq_progress_challenge_user" json:"challenge_id"`
	UserID      int64     `gorm:"not null;uniqueIndex:uniq_progress_challenge_user;index" json:"user_id"`
	Value       int64     `gorm:"not null;default:0" json:"value"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (ChallengeProgress) TableName() string {
	return "challenge_progress"
}

// ChallengeReward 挑战奖励发放记录，(用户, 挑战, 周起始日) 唯一
type ChallengeReward struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"not null;uniqueIndex:uniq_reward_user_challenge_week" json:"user_id"`
	ChallengeID   int64     `gorm:"not null;uniqueIndex:uniq_reward_user_challenge_week" json:"challenge_id"`
	WeekStart     string    `gorm:"type:varchar(10);not null;uniqueIndex:uniq_reward_user_challenge_week" json:"week_start"`
	Points        int64     `gorm:"not null" json:"points"`
	LedgerEntryID *int64    `json:"ledger_entry_id,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 表名
func (ChallengeReward) TableName() string {
	return "challenge_rewards"
}
