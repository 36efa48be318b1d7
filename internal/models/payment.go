package models

import (
	"time"
)

// Payment 票的网关支付记录，每次发起支付生成一条
type Payment struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_no"`
	TicketID      int64      `gorm:"index;not null" json:"ticket_id"`
	UserID        int64      `gorm:"index;not null" json:"user_id"`
	Amount        int64      `gorm:"not null" json:"amount"`
	Channel       string     `gorm:"type:varchar(20);not null" json:"channel"`
	TransactionID *string    `gorm:"type:varchar(64)" json:"transaction_id,omitempty"`
	Status        int8       `gorm:"type:smallint;not null;default:0" json:"status"`
	ResponseCode  *string    `gorm:"type:varchar(10)" json:"response_code,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	ExpiredAt     *time.Time `json:"expired_at,omitempty"`
	CallbackData  JSONMap    `json:"callback_data,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Payment) TableName() string {
	return "payments"
}

// PaymentChannel 支付渠道
const (
	PaymentChannelVNPay = "vnpay"
)

// PaymentStatus 支付状态
const (
	PaymentStatusPending = 0 // 待支付
	PaymentStatusSuccess = 1 // 支付成功
	PaymentStatusFailed  = 2 // 支付失败
)
