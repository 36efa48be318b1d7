package models

import (
	"time"
)

// Ticket 票（活动票或游戏票，二者互斥）
type Ticket struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64      `gorm:"index;not null" json:"user_id"`
	EventID        *int64     `gorm:"index" json:"event_id,omitempty"`
	GameID         *int64     `gorm:"index" json:"game_id,omitempty"`
	Quantity       int        `gorm:"not null" json:"quantity"`
	UnitPrice      int64      `gorm:"not null" json:"unit_price"`
	OriginalTotal  int64      `gorm:"not null" json:"original_total"`
	DiscountRate   float64    `gorm:"type:decimal(5,2);not null;default:0" json:"discount_rate"`
	DiscountAmount int64      `gorm:"not null;default:0" json:"discount_amount"`
	TotalPrice     int64      `gorm:"not null" json:"total_price"`
	PromotionID    *int64     `json:"promotion_id,omitempty"`
	Status         string     `gorm:"type:varchar(20);not null;default:'BOOKED';index" json:"status"`
	PaymentRef     *string    `gorm:"type:varchar(64);index" json:"payment_ref,omitempty"`
	GatewayTxnNo   *string    `gorm:"type:varchar(64)" json:"gateway_txn_no,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Event     *Event     `gorm:"foreignKey:EventID" json:"event,omitempty"`
	Game      *Game      `gorm:"foreignKey:GameID" json:"game,omitempty"`
	Promotion *Promotion `gorm:"foreignKey:PromotionID" json:"promotion,omitempty"`
}

// TableName 表名
func (Ticket) TableName() string {
	return "tickets"
}

// TicketStatus 票状态
const (
	TicketStatusBooked    = "BOOKED"
	TicketStatusPending   = "PENDING"
	TicketStatusPaid      = "PAID"
	TicketStatusCancelled = "CANCELLED"
	// 旧版数据中的未支付状态，等同 BOOKED
	TicketStatusUnpaid = "UNPAID"
)

// IsGame 是否为游戏票
func (t *Ticket) IsGame() bool {
	return t.GameID != nil
}
