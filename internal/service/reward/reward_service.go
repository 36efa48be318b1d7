// Package reward 提供积分流水、周挑战进度与奖励发放服务
package reward

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/common/cache"
	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/logger"
	"github.com/dumeirei/funzone-backend/internal/common/metrics"
	"github.com/dumeirei/funzone-backend/internal/common/tracing"
	"github.com/dumeirei/funzone-backend/internal/common/utils"
	"github.com/dumeirei/funzone-backend/internal/models"
	"github.com/dumeirei/funzone-backend/internal/repository"
)

// DefaultSpendPerPoint 每消费多少金额积 1 分
const DefaultSpendPerPoint int64 = 5000

// Service 积分与周挑战服务
type Service struct {
	db            *gorm.DB
	userRepo      *repository.UserRepository
	ledgerRepo    *repository.LedgerRepository
	challengeRepo *repository.ChallengeRepository

	spendPerPoint  int64
	store          *cache.Store
	leaderboardTTL time.Duration
	metrics        *metrics.Metrics
	now            func() time.Time
}

// Option 服务选项
type Option func(*Service)

// WithSpendPerPoint 设置积分换算基数
func WithSpendPerPoint(v int64) Option {
	return func(s *Service) {
		if v > 0 {
			s.spendPerPoint = v
		}
	}
}

// WithLeaderboardCache 缓存排行榜
func WithLeaderboardCache(store *cache.Store, ttl time.Duration) Option {
	return func(s *Service) {
		s.store = store
		if ttl > 0 {
			s.leaderboardTTL = ttl
		}
	}
}

// WithMetrics 记录积分与奖励指标
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

// NewService 创建积分与周挑战服务
func NewService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	ledgerRepo *repository.LedgerRepository,
	challengeRepo *repository.ChallengeRepository,
	opts ...Option,
) *Service {
	s := &Service{
		db:             db,
		userRepo:       userRepo,
		ledgerRepo:     ledgerRepo,
		challengeRepo:  challengeRepo,
		spendPerPoint:  DefaultSpendPerPoint,
		leaderboardTTL: time.Minute,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PointsFor 消费金额可积的分数（向下取整）
func (s *Service) PointsFor(total int64) int64 {
	if total <= 0 {
		return 0
	}
	return total / s.spendPerPoint
}

// RewardMarker 奖励幂等标记
func RewardMarker(challengeID int64, weekStart string) string {
	return fmt.Sprintf("TT#%d@%s", challengeID, weekStart)
}

// RewardReason 奖励流水原因
func RewardReason(marker string) string {
	return "Thưởng thử thách tuần " + marker
}

// AwardPurchasePointsTx 票付款后按实付金额积分，同一张票只积一次
func (s *Service) AwardPurchasePointsTx(ctx context.Context, tx *gorm.DB, userID, ticketID, total int64) (int64, error) {
	points := s.PointsFor(total)
	if points <= 0 {
		return 0, nil
	}

	key := fmt.Sprintf("ticket:%d:points", ticketID)
	refID := ticketID
	entry := &models.PointLedgerEntry{
		UserID:         userID,
		Delta:          points,
		Reason:         fmt.Sprintf("Cộng %d điểm từ chi tiêu %s", points, utils.FormatVND(total)),
		RefType:        models.LedgerRefTicket,
		RefID:          &refID,
		IdempotencyKey: &key,
	}
	inserted, err := s.ledgerRepo.AppendTx(ctx, tx, entry)
	if err != nil {
		return 0, err
	}
	if !inserted {
		return 0, nil
	}
	if err := s.userRepo.AddPointsTx(ctx, tx, userID, points); err != nil {
		return 0, err
	}
	s.metrics.RecordPointsAwarded(models.LedgerRefTicket, points)
	return points, nil
}

// IncrementActiveChallengesTx 为用户在所有生效挑战上累加进度，返回涉及的挑战数
func (s *Service) IncrementActiveChallengesTx(ctx context.Context, tx *gorm.DB, userID, inc int64) (int, error) {
	if inc <= 0 {
		return 0, nil
	}
	challenges, err := s.challengeRepo.ListActiveTx(ctx, tx, s.now())
	if err != nil {
		return 0, err
	}
	for _, c := range challenges {
		if err := s.challengeRepo.IncrementProgressTx(ctx, tx, c.ID, userID, inc); err != nil {
			return 0, err
		}
	}
	return len(challenges), nil
}

// EvaluateAndRewardTx 为已达成目标的生效挑战发放奖励，每个 (挑战, 周) 至多一次
// 返回本次新发放的奖励数
func (s *Service) EvaluateAndRewardTx(ctx context.Context, tx *gorm.DB, userID int64) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "reward.EvaluateAndReward", tracing.WithUserID(userID))
	defer span.End()

	completed, err := s.challengeRepo.ListCompletedTx(ctx, tx, userID, s.now())
	if err != nil {
		tracing.SetError(ctx, err)
		return 0, err
	}

	issued := 0
	for _, c := range completed {
		if c.RewardPoints <= 0 {
			continue
		}

		weekStart := c.WeekStart()
		reward := &models.ChallengeReward{
			UserID:      userID,
			ChallengeID: c.ID,
			WeekStart:   weekStart,
			Points:      c.RewardPoints,
		}
		claimed, err := s.challengeRepo.ClaimRewardTx(ctx, tx, reward)
		if err != nil {
			tracing.SetError(ctx, err)
			return issued, err
		}
		if !claimed {
			continue
		}

		marker := RewardMarker(c.ID, weekStart)
		key := fmt.Sprintf("user:%d:%s", userID, marker)
		refID := c.ID
		entry := &models.PointLedgerEntry{
			UserID:         userID,
			Delta:          c.RewardPoints,
			Reason:         RewardReason(marker),
			RefType:        models.LedgerRefChallenge,
			RefID:          &refID,
			IdempotencyKey: &key,
		}
		inserted, err := s.ledgerRepo.AppendTx(ctx, tx, entry)
		if err != nil {
			return issued, err
		}
		if !inserted {
			continue
		}
		if err := s.challengeRepo.SetRewardLedgerTx(ctx, tx, reward.ID, entry.ID); err != nil {
			return issued, err
		}
		if err := s.userRepo.AddPointsTx(ctx, tx, userID, c.RewardPoints); err != nil {
			return issued, err
		}

		issued++
		s.metrics.RecordRewardIssued()
		s.metrics.RecordPointsAwarded(models.LedgerRefChallenge, c.RewardPoints)
		tracing.AddEvent(ctx, "reward.issued", tracing.WithChallengeID(c.ID))
	}
	return issued, nil
}

// EvaluateAndReward 在独立事务中评估并发放奖励
func (s *Service) EvaluateAndReward(ctx context.Context, userID int64) (int, error) {
	var issued int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		issued, err = s.EvaluateAndRewardTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}
	if issued > 0 {
		logger.Info("weekly challenge rewards issued", logger.UserID(userID), zap.Int("count", issued))
	}
	return issued, nil
}

// OnTicketPaidTx 票付款后的积分副作用：积分；游戏票累加挑战进度并发放奖励
func (s *Service) OnTicketPaidTx(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) (*PaidEffects, error) {
	effects := &PaidEffects{}
	points, err := s.AwardPurchasePointsTx(ctx, tx, ticket.UserID, ticket.ID, ticket.TotalPrice)
	if err != nil {
		return nil, err
	}
	effects.Points = points

	if !ticket.IsGame() {
		return effects, nil
	}
	if _, err := s.IncrementActiveChallengesTx(ctx, tx, ticket.UserID, int64(ticket.Quantity)); err != nil {
		return nil, err
	}
	effects.Rewards, err = s.EvaluateAndRewardTx(ctx, tx, ticket.UserID)
	if err != nil {
		return nil, err
	}
	return effects, nil
}

// PaidEffects 付款副作用结果
type PaidEffects struct {
	Points  int64 `json:"points"`
	Rewards int   `json:"rewards"`
}
