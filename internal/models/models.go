// Package models 定义数据库模型
package models

// All 返回需要迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Event{},
		&Game{},
		&Promotion{},
		&Ticket{},
		&Payment{},
		&PointLedgerEntry{},
		&WeeklyChallenge{},
		&ChallengeProgress{},
		&ChallengeReward{},
		&OperationLog{},
		&GameClick{},
	}
}
