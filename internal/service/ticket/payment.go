package ticket

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/logger"
	"github.com/dumeirei/funzone-backend/internal/common/tracing"
	"github.com/dumeirei/funzone-backend/internal/common/utils"
	"github.com/dumeirei/funzone-backend/internal/models"
	"github.com/dumeirei/funzone-backend/pkg/vnpay"
)

// Gateway 支付网关
type Gateway interface {
	CreatePayment(ctx context.Context, req *vnpay.PaymentRequest) (*vnpay.PaymentSession, error)
	VerifyCallback(params url.Values) (*vnpay.CallbackResult, error)
}

// PaymentSession 发起支付结果
type PaymentSession struct {
	TicketID  int64     `json:"ticket_id"`
	PaymentNo string    `json:"payment_no"`
	Amount    int64     `json:"amount"`
	PayURL    string    `json:"pay_url"`
	ExpiredAt time.Time `json:"expired_at"`
}

// CallbackOutcome 网关回调处理结果
type CallbackOutcome struct {
	TicketID         int64  `json:"ticket_id"`
	PaymentNo        string `json:"payment_no"`
	Status           string `json:"status"`
	Success          bool   `json:"success"`
	AlreadyConfirmed bool   `json:"already_confirmed"`
}

// PaymentQR 转账二维码
type PaymentQR struct {
	TicketID   int64  `json:"ticket_id"`
	Memo       string `json:"memo"`
	Amount     int64  `json:"amount"`
	AmountText string `json:"amount_text"`
	PNG        []byte `json:"-"`
}

// PaymentRecord 后台查看的网关支付尝试
type PaymentRecord struct {
	PaymentNo     string     `json:"payment_no"`
	Amount        int64      `json:"amount"`
	Channel       string     `json:"channel"`
	Status        string     `json:"status"`
	ResponseCode  string     `json:"response_code,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

var paymentStatusNames = map[int8]string{
	models.PaymentStatusPending: "pending",
	models.PaymentStatusSuccess: "success",
	models.PaymentStatusFailed:  "failed",
}

var payableStatuses = []string{models.TicketStatusBooked, models.TicketStatusPending, models.TicketStatusUnpaid}

// InitiatePayment 向网关申请支付链接，网关失败时不改变票状态
func (s *Service) InitiatePayment(ctx context.Context, userID, ticketID int64, clientIP string) (*PaymentSession, error) {
	ctx, span := tracing.StartSpan(ctx, "ticket.InitiatePayment", tracing.WithTicketID(ticketID))
	defer span.End()

	if s.gateway == nil {
		return nil, errors.ErrGatewayUnavailable.WithMessage("未配置支付网关")
	}
	ticket, err := s.getOwned(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}
	if !containsStatus(payableStatuses, ticket.Status) {
		return nil, stateError(ticket.Status, "BOOKED|PENDING")
	}

	paymentNo := fmt.Sprintf("FZ%d%s", ticket.ID, strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	session, err := s.gateway.CreatePayment(ctx, &vnpay.PaymentRequest{
		TxnRef:    paymentNo,
		Amount:    ticket.TotalPrice,
		OrderInfo: fmt.Sprintf("Thanh toan ve %d", ticket.ID),
		ClientIP:  clientIP,
	})
	if err != nil {
		tracing.SetError(ctx, err)
		s.metrics.RecordPayment(models.PaymentChannelVNPay, "initiate_failed")
		logger.Warn("payment gateway request failed", logger.TicketID(ticket.ID), zap.Error(err))
		if stderrors.Is(err, vnpay.ErrRejected) {
			return nil, errors.ErrGatewayRejected.WithError(err)
		}
		return nil, errors.ErrGatewayUnavailable.WithError(err)
	}

	expiredAt := session.ExpiredAt
	payment := &models.Payment{
		PaymentNo: paymentNo,
		TicketID:  ticket.ID,
		UserID:    userID,
		Amount:    ticket.TotalPrice,
		Channel:   models.PaymentChannelVNPay,
		Status:    models.PaymentStatusPending,
		ExpiredAt: &expiredAt,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if err := s.ticketRepo.SetPaymentRef(ctx, ticket.ID, paymentNo); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	s.metrics.RecordPayment(models.PaymentChannelVNPay, "initiated")

	return &PaymentSession{
		TicketID:  ticket.ID,
		PaymentNo: paymentNo,
		Amount:    ticket.TotalPrice,
		PayURL:    session.PayURL,
		ExpiredAt: session.ExpiredAt,
	}, nil
}

// HandleGatewayCallback 处理网关回调：验签、核对金额后将票置为已付款
// 已付款的票只确认不重复执行副作用，已取消的票不会被恢复
func (s *Service) HandleGatewayCallback(ctx context.Context, params url.Values) (*CallbackOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "ticket.HandleGatewayCallback")
	defer span.End()

	if s.gateway == nil {
		return nil, errors.ErrGatewayUnavailable.WithMessage("未配置支付网关")
	}
	result, err := s.gateway.VerifyCallback(params)
	if stderrors.Is(err, vnpay.ErrInvalidAmount) {
		s.metrics.RecordPayment(models.PaymentChannelVNPay, "bad_amount")
		logger.Warn("payment callback rejected", zap.Error(err))
		return nil, errors.ErrGatewayAmountMismatch.WithError(err)
	}
	if err != nil {
		s.metrics.RecordPayment(models.PaymentChannelVNPay, "bad_signature")
		logger.Warn("payment callback rejected", zap.Error(err))
		return nil, errors.ErrGatewaySignature.WithError(err)
	}

	var (
		ticket  *models.Ticket
		outcome = &CallbackOutcome{PaymentNo: result.TxnRef, Success: result.Success()}
		paid    bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.paymentRepo.GetByPaymentNoTx(ctx, tx, result.TxnRef)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrTicketNotFound.WithMessage("支付单不存在")
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		if result.Amount != payment.Amount {
			return errors.ErrGatewayAmountMismatch.WithMessagef("回调金额 %d 与支付单金额 %d 不一致", result.Amount, payment.Amount)
		}

		ticket, err = s.lockTicket(ctx, tx, payment.TicketID)
		if err != nil {
			return err
		}
		outcome.TicketID = ticket.ID

		if payment.Status == models.PaymentStatusSuccess || ticket.Status == models.TicketStatusPaid {
			outcome.AlreadyConfirmed = true
			outcome.Status = ticket.Status
			return nil
		}

		fields := map[string]interface{}{
			"response_code": result.ResponseCode,
			"callback_data": callbackData(result.Raw),
		}
		if result.TransactionNo != "" {
			fields["transaction_id"] = result.TransactionNo
		}
		if !result.Success() {
			fields["status"] = models.PaymentStatusFailed
			outcome.Status = NormalizeStatus(ticket.Status)
			return s.paymentRepo.UpdateFieldsTx(ctx, tx, payment.ID, fields)
		}

		now := s.now()
		fields["status"] = models.PaymentStatusSuccess
		fields["paid_at"] = now
		if err := s.paymentRepo.UpdateFieldsTx(ctx, tx, payment.ID, fields); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}

		if ticket.Status == models.TicketStatusCancelled {
			logger.Warn("payment received for cancelled ticket",
				logger.TicketID(ticket.ID),
				logger.PaymentNo(payment.PaymentNo),
			)
			outcome.Status = ticket.Status
			return nil
		}

		extra := map[string]interface{}{}
		if result.TransactionNo != "" {
			extra["gateway_txn_no"] = result.TransactionNo
		}
		paid, err = s.markPaidTx(ctx, tx, ticket, payableStatuses, extra)
		if err != nil {
			return err
		}
		outcome.Status = ticket.Status
		return nil
	})
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, asAppError(err)
	}

	switch {
	case outcome.AlreadyConfirmed:
		s.metrics.RecordPayment(models.PaymentChannelVNPay, "duplicate")
	case outcome.Success:
		s.metrics.RecordPayment(models.PaymentChannelVNPay, "success")
	default:
		s.metrics.RecordPayment(models.PaymentChannelVNPay, "failed")
	}
	if paid {
		s.afterPaid(ctx, ticket)
	}
	return outcome, nil
}

// PaymentQR 生成转账二维码，内容为备注与金额
func (s *Service) PaymentQR(ctx context.Context, userID, ticketID int64) (*PaymentQR, error) {
	ticket, err := s.getOwned(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}
	if !containsStatus(payableStatuses, ticket.Status) {
		return nil, stateError(ticket.Status, "BOOKED|PENDING")
	}

	memo := s.Memo(ticket.ID)
	png, err := s.qr.TransferPNG(memo, ticket.TotalPrice)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return &PaymentQR{
		TicketID:   ticket.ID,
		Memo:       memo,
		Amount:     ticket.TotalPrice,
		AmountText: utils.FormatVND(ticket.TotalPrice),
		PNG:        png,
	}, nil
}

// Payments 票的全部网关支付尝试，最新的在前，员工审核前核对用
func (s *Service) Payments(ctx context.Context, ticketID int64) ([]*PaymentRecord, error) {
	if _, err := s.ticketRepo.GetByID(ctx, ticketID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTicketNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	payments, err := s.paymentRepo.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	records := make([]*PaymentRecord, 0, len(payments))
	for _, p := range payments {
		r := &PaymentRecord{
			PaymentNo: p.PaymentNo,
			Amount:    p.Amount,
			Channel:   p.Channel,
			Status:    paymentStatusNames[p.Status],
			PaidAt:    p.PaidAt,
			CreatedAt: p.CreatedAt,
		}
		if p.ResponseCode != nil {
			r.ResponseCode = *p.ResponseCode
		}
		if p.TransactionID != nil {
			r.TransactionID = *p.TransactionID
		}
		records = append(records, r)
	}
	return records, nil
}

func callbackData(raw map[string]string) models.JSONMap {
	data := make(models.JSONMap, len(raw))
	for k, v := range raw {
		data[k] = v
	}
	return data
}
