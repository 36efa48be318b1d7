package models

import (
	"time"
)

// OperationLog 员工与管理员的写操作审计记录
// Route 为 "方法 路由模板"，Payload 是脱敏后的请求体
type OperationLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OperatorID int64     `gorm:"index;not null" json:"operator_id"`
	Role       string    `gorm:"type:varchar(20);not null" json:"role"`
	Module     string    `gorm:"type:varchar(50);not null;index:idx_oplog_module_action" json:"module"`
	Action     string    `gorm:"type:varchar(50);not null;index:idx_oplog_module_action" json:"action"`
	Route      string    `gorm:"type:varchar(128);not null;default:''" json:"route"`
	TargetType *string   `gorm:"type:varchar(50)" json:"target_type,omitempty"`
	TargetID   *int64    `json:"target_id,omitempty"`
	Payload    JSONMap   `json:"payload,omitempty"`
	StatusCode int       `gorm:"not null;default:0" json:"status_code"`
	RequestID  string    `gorm:"type:varchar(64);not null;default:''" json:"request_id,omitempty"`
	IP         string    `gorm:"type:varchar(45);not null" json:"ip"`
	UserAgent  *string   `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (OperationLog) TableName() string { return "operation_logs" }

// Succeeded 响应状态为 2xx
func (l *OperationLog) Succeeded() bool {
	return l.StatusCode >= 200 && l.StatusCode < 300
}
