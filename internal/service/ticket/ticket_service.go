// Package ticket 提供票的预订、状态流转与付款对账服务
package ticket

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/logger"
	"github.com/dumeirei/funzone-backend/internal/common/metrics"
	"github.com/dumeirei/funzone-backend/internal/common/qrcode"
	"github.com/dumeirei/funzone-backend/internal/common/tracing"
	"github.com/dumeirei/funzone-backend/internal/common/utils"
	"github.com/dumeirei/funzone-backend/internal/models"
	"github.com/dumeirei/funzone-backend/internal/repository"
	"github.com/dumeirei/funzone-backend/internal/service/promotion"
	"github.com/dumeirei/funzone-backend/internal/service/reward"
)

// DefaultTier 用户没有会员等级时按普通会员报价
const DefaultTier = "STANDARD"

// DefaultMemoPrefix 转账备注前缀
const DefaultMemoPrefix = "FZ-VE-"

// PaidEffects 付款后的积分与挑战副作用，必须在同一事务内执行
type PaidEffects interface {
	OnTicketPaidTx(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) (*reward.PaidEffects, error)
}

// PaidNotifier 票付款提交后的通知，失败只记录日志
type PaidNotifier interface {
	OnTicketPaid(ctx context.Context, ticket *models.Ticket) error
}

// Service 票服务
type Service struct {
	db          *gorm.DB
	ticketRepo  *repository.TicketRepository
	catalogRepo *repository.CatalogRepository
	userRepo    *repository.UserRepository
	paymentRepo *repository.PaymentRepository
	resolver    *promotion.Resolver
	effects     PaidEffects

	gateway    Gateway
	notifiers  []PaidNotifier
	qr         *qrcode.Generator
	memoPrefix string
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option 服务选项
type Option func(*Service)

// WithGateway 设置支付网关
func WithGateway(g Gateway) Option {
	return func(s *Service) {
		s.gateway = g
	}
}

// WithNotifier 追加付款通知
func WithNotifier(n PaidNotifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
}

// WithQRGenerator 设置二维码生成器
func WithQRGenerator(g *qrcode.Generator) Option {
	return func(s *Service) {
		s.qr = g
	}
}

// WithMemoPrefix 设置转账备注前缀
func WithMemoPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.memoPrefix = prefix
		}
	}
}

// WithMetrics 记录票状态与支付指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService 创建票服务
func NewService(
	db *gorm.DB,
	ticketRepo *repository.TicketRepository,
	catalogRepo *repository.CatalogRepository,
	userRepo *repository.UserRepository,
	paymentRepo *repository.PaymentRepository,
	resolver *promotion.Resolver,
	effects PaidEffects,
	opts ...Option,
) *Service {
	s := &Service{
		db:          db,
		ticketRepo:  ticketRepo,
		catalogRepo: catalogRepo,
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
		resolver:    resolver,
		effects:     effects,
		qr:          qrcode.NewGenerator(),
		memoPrefix:  DefaultMemoPrefix,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxQuantity 单张票的最大数量
const MaxQuantity = 100

// BookRequest 订票请求，EventID 与 GameID 必须且只能填一个
type BookRequest struct {
	EventID     *int64 `json:"event_id"`
	GameID      *int64 `json:"game_id"`
	Quantity    int    `json:"quantity" binding:"required,min=1,max=100"`
	PromotionID *int64 `json:"promotion_id"`
}

// PreviewResponse 报价预览
type PreviewResponse struct {
	TargetName string           `json:"target_name"`
	UnitPrice  int64            `json:"unit_price"`
	Quantity   int              `json:"quantity"`
	Tier       string           `json:"tier"`
	Quote      *promotion.Quote `json:"quote"`
}

// TicketInfo 票信息
type TicketInfo struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	EventID        *int64     `json:"event_id,omitempty"`
	GameID         *int64     `json:"game_id,omitempty"`
	TargetName     string     `json:"target_name"`
	Quantity       int        `json:"quantity"`
	UnitPrice      int64      `json:"unit_price"`
	OriginalTotal  int64      `json:"original_total"`
	DiscountRate   float64    `json:"discount_rate"`
	DiscountAmount int64      `json:"discount_amount"`
	TotalPrice     int64      `json:"total_price"`
	PromotionID    *int64     `json:"promotion_id,omitempty"`
	Status         string     `json:"status"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TicketListResponse 票列表
type TicketListResponse = utils.Page[*TicketInfo]

// NormalizeStatus 旧数据中的 UNPAID 视为 BOOKED
func NormalizeStatus(status string) string {
	if status == models.TicketStatusUnpaid {
		return models.TicketStatusBooked
	}
	return status
}

// quoteTarget 校验目标并计算报价
type quoteTarget struct {
	name      string
	unitPrice int64
	eventID   *int64
}

func (s *Service) resolveTarget(ctx context.Context, req *BookRequest) (*quoteTarget, error) {
	if req.Quantity <= 0 || req.Quantity > MaxQuantity {
		return nil, errors.ErrInvalidQuantity
	}
	if (req.EventID == nil) == (req.GameID == nil) {
		return nil, errors.ErrInvalidTarget
	}

	if req.EventID != nil {
		event, err := s.catalogRepo.GetEvent(ctx, *req.EventID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.ErrEventNotOpen
			}
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if event.Status != models.CatalogStatusOpen {
			return nil, errors.ErrEventNotOpen
		}
		id := event.ID
		return &quoteTarget{name: event.Name, unitPrice: event.Price, eventID: &id}, nil
	}

	game, err := s.catalogRepo.GetGame(ctx, *req.GameID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrGameNotOpen
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if game.Status != models.CatalogStatusOpen {
		return nil, errors.ErrGameNotOpen
	}
	// 游戏票不带活动 ID，活动限定条件不参与校验
	return &quoteTarget{name: game.Name, unitPrice: game.Price}, nil
}

func (s *Service) customerTier(ctx context.Context, userID int64) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.ErrUserNotFound
		}
		return "", errors.ErrDatabaseError.WithError(err)
	}
	if strings.TrimSpace(user.Tier) == "" {
		return DefaultTier, nil
	}
	return user.Tier, nil
}

// Preview 计算订票报价，不落库
func (s *Service) Preview(ctx context.Context, userID int64, req *BookRequest) (*PreviewResponse, error) {
	target, err := s.resolveTarget(ctx, req)
	if err != nil {
		return nil, err
	}
	tier, err := s.customerTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.unitPrice > 0 && int64(req.Quantity) > math.MaxInt64/target.unitPrice {
		return nil, errors.ErrInvalidQuantity
	}
	original := target.unitPrice * int64(req.Quantity)
	quote, err := s.resolver.Resolve(ctx, original, tier, target.eventID, req.PromotionID)
	if err != nil {
		return nil, err
	}
	return &PreviewResponse{
		TargetName: target.name,
		UnitPrice:  target.unitPrice,
		Quantity:   req.Quantity,
		Tier:       tier,
		Quote:      quote,
	}, nil
}

// Book 订票，按下单时的会员等级与生效促销冻结价格
func (s *Service) Book(ctx context.Context, userID int64, req *BookRequest) (*TicketInfo, error) {
	ctx, span := tracing.StartSpan(ctx, "ticket.Book", tracing.WithUserID(userID))
	defer span.End()

	preview, err := s.Preview(ctx, userID, req)
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, err
	}

	quote := preview.Quote
	ticket := &models.Ticket{
		UserID:         userID,
		EventID:        req.EventID,
		GameID:         req.GameID,
		Quantity:       req.Quantity,
		UnitPrice:      preview.UnitPrice,
		OriginalTotal:  quote.Original,
		DiscountRate:   quote.Rate,
		DiscountAmount: quote.Discount,
		TotalPrice:     quote.Final,
		PromotionID:    quote.PromotionID(),
		Status:         models.TicketStatusBooked,
	}
	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	s.metrics.RecordTicketTransition("", models.TicketStatusBooked)
	tracing.SetAttributes(ctx, tracing.WithTicketID(ticket.ID), tracing.WithAmount(ticket.TotalPrice))

	info := toTicketInfo(ticket)
	info.TargetName = preview.TargetName
	return info, nil
}

// GetMine 获取自己的票
func (s *Service) GetMine(ctx context.Context, userID, ticketID int64) (*TicketInfo, error) {
	ticket, err := s.getOwned(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}
	return toTicketInfo(ticket), nil
}

// MarkPending 顾客声明已付款，等待人工审核
func (s *Service) MarkPending(ctx context.Context, userID, ticketID int64) (*TicketInfo, error) {
	return s.transition(ctx, ticketID, &userID,
		[]string{models.TicketStatusBooked, models.TicketStatusUnpaid},
		models.TicketStatusPending, nil)
}

// Cancel 顾客取消未付款的票
func (s *Service) Cancel(ctx context.Context, userID, ticketID int64) (*TicketInfo, error) {
	now := s.now()
	return s.transition(ctx, ticketID, &userID,
		[]string{models.TicketStatusBooked, models.TicketStatusPending, models.TicketStatusUnpaid},
		models.TicketStatusCancelled,
		map[string]interface{}{"cancelled_at": now})
}

// Reject 审核驳回，退回待付款
func (s *Service) Reject(ctx context.Context, ticketID int64) (*TicketInfo, error) {
	return s.transition(ctx, ticketID, nil,
		[]string{models.TicketStatusPending},
		models.TicketStatusBooked, nil)
}

// Approve 审核通过，PENDING -> PAID 并在同一事务内积分与累计挑战
// 已付款或已取消的票直接返回当前状态
func (s *Service) Approve(ctx context.Context, ticketID int64) (*TicketInfo, error) {
	ctx, span := tracing.StartSpan(ctx, "ticket.Approve", tracing.WithTicketID(ticketID))
	defer span.End()

	var (
		ticket *models.Ticket
		paid   bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ticket, err = s.lockTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		switch ticket.Status {
		case models.TicketStatusPaid, models.TicketStatusCancelled:
			return nil
		case models.TicketStatusPending:
		default:
			return stateError(ticket.Status, models.TicketStatusPending)
		}
		paid, err = s.markPaidTx(ctx, tx, ticket, []string{models.TicketStatusPending}, nil)
		return err
	})
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, asAppError(err)
	}
	if paid {
		s.afterPaid(ctx, ticket)
	}
	return toTicketInfo(ticket), nil
}

// markPaidTx 条件更新为 PAID 并执行积分副作用，返回是否由本次调用完成付款
func (s *Service) markPaidTx(ctx context.Context, tx *gorm.DB, ticket *models.Ticket, from []string, extra map[string]interface{}) (bool, error) {
	now := s.now()
	fields := map[string]interface{}{
		"status":  models.TicketStatusPaid,
		"paid_at": now,
	}
	for k, v := range extra {
		fields[k] = v
	}
	affected, err := s.ticketRepo.UpdateStatusTx(ctx, tx, ticket.ID, from, fields)
	if err != nil {
		return false, errors.ErrDatabaseError.WithError(err)
	}
	if affected == 0 {
		return false, nil
	}

	previous := ticket.Status
	ticket.Status = models.TicketStatusPaid
	ticket.PaidAt = &now

	effects, err := s.effects.OnTicketPaidTx(ctx, tx, ticket)
	if err != nil {
		return false, errors.ErrDatabaseError.WithError(err)
	}
	s.metrics.RecordTicketTransition(NormalizeStatus(previous), models.TicketStatusPaid)
	logger.Info("ticket paid",
		logger.TicketID(ticket.ID),
		logger.UserID(ticket.UserID),
		zap.Int64("points", effects.Points),
		zap.Int("rewards", effects.Rewards),
	)
	return true, nil
}

// afterPaid 提交后的通知
func (s *Service) afterPaid(ctx context.Context, ticket *models.Ticket) {
	for _, n := range s.notifiers {
		if err := n.OnTicketPaid(ctx, ticket); err != nil {
			logger.Warn("ticket paid notification failed", logger.TicketID(ticket.ID), zap.Error(err))
		}
	}
}

// transition 通用状态流转，userID 非空时校验归属
func (s *Service) transition(ctx context.Context, ticketID int64, userID *int64, from []string, to string, extra map[string]interface{}) (*TicketInfo, error) {
	var ticket *models.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ticket, err = s.lockTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if userID != nil && ticket.UserID != *userID {
			return errors.ErrTicketNotOwned
		}
		if !containsStatus(from, ticket.Status) {
			return stateError(ticket.Status, strings.Join(from, "|"))
		}

		fields := map[string]interface{}{"status": to}
		for k, v := range extra {
			fields[k] = v
		}
		affected, err := s.ticketRepo.UpdateStatusTx(ctx, tx, ticket.ID, from, fields)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if affected == 0 {
			return stateError(ticket.Status, strings.Join(from, "|"))
		}
		s.metrics.RecordTicketTransition(NormalizeStatus(ticket.Status), to)
		ticket.Status = to
		if to == models.TicketStatusCancelled {
			now := s.now()
			ticket.CancelledAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}
	return toTicketInfo(ticket), nil
}

func (s *Service) lockTicket(ctx context.Context, tx *gorm.DB, ticketID int64) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetForUpdate(ctx, tx, ticketID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTicketNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return ticket, nil
}

func (s *Service) getOwned(ctx context.Context, userID, ticketID int64) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTicketNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if ticket.UserID != userID {
		return nil, errors.ErrTicketNotOwned
	}
	return ticket, nil
}

// ListMine 我的票
func (s *Service) ListMine(ctx context.Context, userID int64, page utils.Pagination) (*TicketListResponse, error) {
	page.Normalize()
	tickets, total, err := s.ticketRepo.ListByUser(ctx, userID, page.Offset(), page.Limit())
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return toTicketList(tickets, total), nil
}

// AdminList 后台票列表，status 可逗号分隔，筛选 BOOKED 时一并包含旧的 UNPAID
func (s *Service) AdminList(ctx context.Context, status, keyword string, page utils.Pagination) (*TicketListResponse, error) {
	page.Normalize()
	var statuses []string
	for _, part := range strings.Split(status, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		statuses = append(statuses, part)
		if part == models.TicketStatusBooked {
			statuses = append(statuses, models.TicketStatusUnpaid)
		}
	}

	tickets, total, err := s.ticketRepo.AdminList(ctx, page.Offset(), page.Limit(), statuses, strings.TrimSpace(keyword))
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return toTicketList(tickets, total), nil
}

// ExpireStaleBookings 取消超过预订时限仍未付款的票，返回取消数量
func (s *Service) ExpireStaleBookings(ctx context.Context, olderThan time.Duration) (int, error) {
	before := s.now().Add(-olderThan)
	ids, err := s.ticketRepo.ListStaleBooked(ctx, before, 200)
	if err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}

	from := []string{models.TicketStatusBooked, models.TicketStatusUnpaid}
	cancelled := 0
	for _, id := range ids {
		var affected int64
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			affected, err = s.ticketRepo.UpdateStatusTx(ctx, tx, id, from, map[string]interface{}{
				"status":       models.TicketStatusCancelled,
				"cancelled_at": s.now(),
			})
			return err
		})
		if err != nil {
			logger.Warn("failed to expire booking", logger.TicketID(id), zap.Error(err))
			continue
		}
		if affected > 0 {
			cancelled++
			s.metrics.RecordTicketTransition(models.TicketStatusBooked, models.TicketStatusCancelled)
		}
	}
	return cancelled, nil
}

func containsStatus(list []string, status string) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func stateError(current, required string) *errors.AppError {
	return errors.ErrTicketStateInvalid.WithMessagef("票当前状态为 %s，需要 %s", current, required)
}

// asAppError 事务返回的错误统一为 AppError
func asAppError(err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.ErrDatabaseError.WithError(err)
}

func toTicketInfo(t *models.Ticket) *TicketInfo {
	info := &TicketInfo{
		ID:             t.ID,
		UserID:         t.UserID,
		EventID:        t.EventID,
		GameID:         t.GameID,
		Quantity:       t.Quantity,
		UnitPrice:      t.UnitPrice,
		OriginalTotal:  t.OriginalTotal,
		DiscountRate:   t.DiscountRate,
		DiscountAmount: t.DiscountAmount,
		TotalPrice:     t.TotalPrice,
		PromotionID:    t.PromotionID,
		Status:         NormalizeStatus(t.Status),
		PaidAt:         t.PaidAt,
		CreatedAt:      t.CreatedAt,
	}
	switch {
	case t.Event != nil:
		info.TargetName = t.Event.Name
	case t.Game != nil:
		info.TargetName = t.Game.Name
	}
	return info
}

func toTicketList(tickets []*models.Ticket, total int64) *TicketListResponse {
	list := make([]*TicketInfo, 0, len(tickets))
	for _, t := range tickets {
		list = append(list, toTicketInfo(t))
	}
	return &TicketListResponse{List: list, Total: total}
}

// Memo 票的转账备注
func (s *Service) Memo(ticketID int64) string {
	return fmt.Sprintf("%s%d", s.memoPrefix, ticketID)
}
