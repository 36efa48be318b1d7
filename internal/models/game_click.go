package models

import "time"

// GameClick 顾客查看游戏的次数，(用户, 游戏) 唯一
type GameClick struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex:uniq_click_user_game" json:"user_id"`
	GameID      int64     `gorm:"not null;uniqueIndex:uniq_click_user_game;index" json:"game_id"`
	Count       int64     `gorm:"not null;default:0" json:"count"`
	LastClickAt time.Time `gorm:"not null" json:"last_click_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 表名
func (GameClick) TableName() string {
	return "game_clicks"
}
