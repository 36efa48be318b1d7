package models

import (
	"time"
)

// Promotion 促销活动
// Conditions 保存原始条件 JSON，读取时由促销服务解析，解析失败按无附加条件处理
type Promotion struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"type:varchar(150);not null" json:"name"`
	Rate       float64   `gorm:"type:decimal(5,2);not null;default:0" json:"rate"`
	Conditions string    `gorm:"type:text" json:"conditions,omitempty"`
	StartAt    time.Time `gorm:"not null;index" json:"start_at"`
	EndAt      time.Time `gorm:"not null;index" json:"end_at"`
	Active     int8      `gorm:"type:smallint;not null;default:1;index" json:"active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Promotion) TableName() string {
	return "promotions"
}

// PromotionActive 启用标记
const (
	PromotionInactive = 0
	PromotionActive   = 1
)

// IsOpen 启用且 now 落在 [StartAt, EndAt] 内
func (p *Promotion) IsOpen(now time.Time) bool {
	return p.Active == PromotionActive && !now.Before(p.StartAt) && !now.After(p.EndAt)
}
