package models

import (
	"time"
)

// Event 活动（可售票）
type Event struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string     `gorm:"type:varchar(150);not null" json:"name"`
	Location  *string    `gorm:"type:varchar(150)" json:"location,omitempty"`
	Price     int64      `gorm:"not null;default:0" json:"price"`
	Status    string     `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	StartAt   *time.Time `json:"start_at,omitempty"`
	EndAt     *time.Time `json:"end_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Event) TableName() string {
	return "events"
}

// Game 游戏项目（游乐区内的机台或项目）
type Game struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(150);not null" json:"name"`
	Zone      *string   `gorm:"type:varchar(100)" json:"zone,omitempty"`
	Price     int64     `gorm:"not null;default:0" json:"price"`
	Status    string    `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	DeviceSN  *string   `gorm:"type:varchar(64)" json:"device_sn,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Game) TableName() string {
	return "games"
}

// CatalogStatus 活动/游戏状态
const (
	CatalogStatusOpen   = "OPEN"
	CatalogStatusClosed = "CLOSED"
)
