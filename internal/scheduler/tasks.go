package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BookingExpirer 过期预订关闭
type BookingExpirer interface {
	ExpireStaleBookings(ctx context.Context, olderThan time.Duration) (int, error)
}

// PaymentExpirer 过期支付关闭
type PaymentExpirer interface {
	ExpirePending(ctx context.Context, before time.Time) (int64, error)
}

// OperationLogPurger 操作日志清理
type OperationLogPurger interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// TaskConfig 任务参数
type TaskConfig struct {
	BookingTTL         time.Duration
	CheckInterval      time.Duration
	LogRetention       time.Duration
	LogPurgeInterval   time.Duration
	PaymentSweepPeriod time.Duration
}

// TaskHandler 任务处理器
type TaskHandler struct {
	bookings BookingExpirer
	payments PaymentExpirer
	opLogs   OperationLogPurger
	cfg      TaskConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewTaskHandler 创建任务处理器，依赖为 nil 的任务不会被注册
func NewTaskHandler(bookings BookingExpirer, payments PaymentExpirer, opLogs OperationLogPurger, cfg TaskConfig, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{
		bookings: bookings,
		payments: payments,
		opLogs:   opLogs,
		cfg:      cfg,
		logger:   logger.Named("tasks"),
		now:      time.Now,
	}
}

// ExpireStaleBookings 取消超时未付款的预订
func (h *TaskHandler) ExpireStaleBookings(ctx context.Context) error {
	n, err := h.bookings.ExpireStaleBookings(ctx, h.cfg.BookingTTL)
	if err != nil {
		return err
	}
	if n > 0 {
		h.logger.Info("stale bookings cancelled", zap.Int("count", n))
	}
	return nil
}

// ExpirePendingPayments 将过期的待支付记录置为失败
func (h *TaskHandler) ExpirePendingPayments(ctx context.Context) error {
	n, err := h.payments.ExpirePending(ctx, h.now())
	if err != nil {
		return err
	}
	if n > 0 {
		h.logger.Info("pending payments expired", zap.Int64("count", n))
	}
	return nil
}

// PurgeOperationLogs 清理超过保留期的操作日志
func (h *TaskHandler) PurgeOperationLogs(ctx context.Context) error {
	n, err := h.opLogs.DeleteBefore(ctx, h.now().Add(-h.cfg.LogRetention))
	if err != nil {
		return err
	}
	if n > 0 {
		h.logger.Info("operation logs purged", zap.Int64("count", n))
	}
	return nil
}

// SetupTasks 设置所有任务
func SetupTasks(scheduler *Scheduler, handler *TaskHandler) {
	if handler.bookings != nil && handler.cfg.BookingTTL > 0 {
		scheduler.AddTask("ExpireStaleBookings", handler.cfg.CheckInterval, handler.ExpireStaleBookings)
	}
	if handler.payments != nil {
		scheduler.AddTask("ExpirePendingPayments", handler.cfg.PaymentSweepPeriod, handler.ExpirePendingPayments)
	}
	if handler.opLogs != nil && handler.cfg.LogRetention > 0 {
		scheduler.AddTask("PurgeOperationLogs", handler.cfg.LogPurgeInterval, handler.PurgeOperationLogs)
	}
}
