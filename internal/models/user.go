package models

import (
	"time"
)

// User 用户（顾客、员工、管理员共用）
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string    `gorm:"type:varchar(100)" json:"full_name"`
	Phone        *string   `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Role         string    `gorm:"type:varchar(20);not null;default:'CUSTOMER'" json:"role"`
	Tier         string    `gorm:"type:varchar(20);not null;default:'STANDARD'" json:"tier"`
	Points       int64     `gorm:"not null;default:0" json:"points"`
	Status       int8      `gorm:"type:smallint;not null;default:1" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (User) TableName() string {
	return "users"
}

// UserRole 用户角色
const (
	UserRoleCustomer = "CUSTOMER"
	UserRoleStaff    = "STAFF"
	UserRoleAdmin    = "ADMIN"
)

// UserStatus 用户状态
const (
	UserStatusDisabled = 0
	UserStatusActive   = 1
)

// IsActive 是否启用
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
