package models

import (
	"time"
)

// PointLedgerEntry 积分流水，只追加不修改
type PointLedgerEntry struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64     `gorm:"index;not null" json:"user_id"`
	Delta          int64     `gorm:"not null" json:"delta"`
	Reason         string    `gorm:"type:varchar(255);not null" json:"reason"`
	RefType        string    `gorm:"type:varchar(32);not null;default:''" json:"ref_type"`
	RefID          *int64    `json:"ref_id,omitempty"`
	IdempotencyKey *string   `gorm:"type:varchar(100);uniqueIndex:uniq_ledger_idem" json:"-"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 表名
func (PointLedgerEntry) TableName() string {
	return "point_ledger_entries"
}

// LedgerRefType 流水来源
const (
	LedgerRefTicket    = "ticket"
	LedgerRefChallenge = "challenge"
	LedgerRefManual    = "manual"
)
