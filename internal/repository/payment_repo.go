package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/funzone-backend/internal/models"
)

// PaymentRepository 网关支付记录仓储，payment_no 即网关的 vnp_TxnRef
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func takeByPaymentNo(db *gorm.DB, paymentNo string) (*models.Payment, error) {
	var payment models.Payment
	if err := db.Where("payment_no = ?", paymentNo).Take(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByPaymentNoTx 回调处理时锁定支付记录，重复回调在此串行化
// 不存在时返回 gorm.ErrRecordNotFound
func (r *PaymentRepository) GetByPaymentNoTx(ctx context.Context, tx *gorm.DB, paymentNo string) (*models.Payment, error) {
	return takeByPaymentNo(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), paymentNo)
}

func (r *PaymentRepository) UpdateFieldsTx(ctx context.Context, tx *gorm.DB, id int64, fields map[string]interface{}) error {
	return tx.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Updates(fields).Error
}

// ListByTicket 票的全部支付尝试，新的在前
func (r *PaymentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Order("id DESC").Find(&payments).Error
	return payments, err
}

// ExpirePending 过期仍待支付的记录置为失败，返回影响行数
// 没有过期时间的记录不处理
func (r *PaymentRepository) ExpirePending(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("status = ?", models.PaymentStatusPending).
		Where("expired_at IS NOT NULL AND expired_at < ?", before).
		Update("status", models.PaymentStatusFailed)
	return res.RowsAffected, res.Error
}
