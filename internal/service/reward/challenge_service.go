package reward

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/utils"
	"github.com/dumeirei/funzone-backend/internal/models"
)

// ChallengeRequest 创建或更新挑战
// EndDateOnly 为 true 表示结束时间只给了日期，按当天 23:59:59 处理
type ChallengeRequest struct {
	Title        string
	Description  *string
	Goal         int64
	RewardPoints int64
	StartAt      time.Time
	EndAt        time.Time
	EndDateOnly  bool
	Active       *bool
}

// ChallengeInfo 挑战信息
type ChallengeInfo struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	Goal         int64     `json:"goal"`
	RewardPoints int64     `json:"reward_points"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	Active       bool      `json:"active"`
}

// ChallengeListResponse 挑战列表
type ChallengeListResponse = utils.Page[*ChallengeInfo]

// ChallengeFilter 挑战列表过滤
type ChallengeFilter struct {
	All   bool
	Start *time.Time
	End   *time.Time
}

// MyChallenge 用户视角的挑战进度
type MyChallenge struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Goal         int64  `json:"goal"`
	RewardPoints int64  `json:"reward_points"`
	WeekStart    string `json:"week_start"`
	WeekEnd      string `json:"week_end"`
	Progress     int64  `json:"progress"`
	Completed    bool   `json:"completed"`
	Rewarded     bool   `json:"rewarded"`
}

// LedgerListResponse 积分流水列表
type LedgerListResponse = utils.Page[*models.PointLedgerEntry]

// NormalizeWindow 规范化挑战时间窗：仅日期的结束时间取当天最后一秒，起止颠倒时交换
func NormalizeWindow(start, end time.Time, endDateOnly bool) (time.Time, time.Time) {
	if endDateOnly && end.Hour() == 0 && end.Minute() == 0 && end.Second() == 0 {
		end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, end.Location())
	}
	if end.Before(start) {
		start, end = end, start
	}
	return start, end
}

func validateChallenge(req *ChallengeRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return errors.ErrInvalidParams.WithMessage("挑战名称不能为空")
	}
	if req.Goal < 1 {
		return errors.ErrChallengeInvalidGoal
	}
	if req.RewardPoints < 0 {
		return errors.ErrChallengeInvalidPts
	}
	if req.StartAt.IsZero() || req.EndAt.IsZero() {
		return errors.ErrInvalidParams.WithMessage("缺少挑战时间")
	}
	return nil
}

// CreateChallenge 创建挑战
func (s *Service) CreateChallenge(ctx context.Context, req *ChallengeRequest) (*ChallengeInfo, error) {
	if err := validateChallenge(req); err != nil {
		return nil, err
	}
	start, end := NormalizeWindow(req.StartAt, req.EndAt, req.EndDateOnly)
	c := &models.WeeklyChallenge{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Goal:         req.Goal,
		RewardPoints: req.RewardPoints,
		StartAt:      start,
		EndAt:        end,
		Active:       1,
	}
	if req.Active != nil && !*req.Active {
		c.Active = 0
	}
	if err := s.challengeRepo.Create(ctx, c); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return toChallengeInfo(c), nil
}

// UpdateChallenge 更新挑战
func (s *Service) UpdateChallenge(ctx context.Context, id int64, req *ChallengeRequest) (*ChallengeInfo, error) {
	if err := validateChallenge(req); err != nil {
		return nil, err
	}
	c, err := s.getChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Title = strings.TrimSpace(req.Title)
	c.Description = req.Description
	c.Goal = req.Goal
	c.RewardPoints = req.RewardPoints
	c.StartAt, c.EndAt = NormalizeWindow(req.StartAt, req.EndAt, req.EndDateOnly)
	if req.Active != nil {
		c.Active = 0
		if *req.Active {
			c.Active = 1
		}
	}
	if err := s.challengeRepo.Update(ctx, c); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return toChallengeInfo(c), nil
}

// DeleteChallenge 删除挑战及其进度，已发放的奖励与流水保留
func (s *Service) DeleteChallenge(ctx context.Context, id int64) error {
	affected, err := s.challengeRepo.Delete(ctx, id)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if affected == 0 {
		return errors.ErrChallengeNotFound
	}
	return nil
}

// GetChallenge 获取挑战
func (s *Service) GetChallenge(ctx context.Context, id int64) (*ChallengeInfo, error) {
	c, err := s.getChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	return toChallengeInfo(c), nil
}

// ListChallenges 挑战列表，默认只列出当前生效的
func (s *Service) ListChallenges(ctx context.Context, page utils.Pagination, filter ChallengeFilter) (*ChallengeListResponse, error) {
	page.Normalize()
	filters := map[string]interface{}{}
	if !filter.All {
		filters["active_at"] = s.now()
	}
	if filter.Start != nil {
		filters["start"] = *filter.Start
	}
	if filter.End != nil {
		filters["end"] = *filter.End
	}

	challenges, total, err := s.challengeRepo.List(ctx, page.Offset(), page.Limit(), filters)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	list := make([]*ChallengeInfo, 0, len(challenges))
	for _, c := range challenges {
		list = append(list, toChallengeInfo(c))
	}
	return &ChallengeListResponse{List: list, Total: total}, nil
}

// MyScore 用户积分余额（流水汇总）
func (s *Service) MyScore(ctx context.Context, userID int64) (int64, error) {
	score, err := s.ledgerRepo.SumByUser(ctx, userID)
	if err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}
	return score, nil
}

// MyLedger 用户积分流水
func (s *Service) MyLedger(ctx context.Context, userID int64, page utils.Pagination) (*LedgerListResponse, error) {
	page.Normalize()
	entries, total, err := s.ledgerRepo.ListByUser(ctx, userID, page.Offset(), page.Limit())
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return &LedgerListResponse{List: entries, Total: total}, nil
}

// MyChallenges 当前生效的挑战及用户进度
func (s *Service) MyChallenges(ctx context.Context, userID int64) ([]*MyChallenge, error) {
	challenges, err := s.challengeRepo.ListActive(ctx, s.now())
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	ids := make([]int64, 0, len(challenges))
	for _, c := range challenges {
		ids = append(ids, c.ID)
	}

	progress, err := s.challengeRepo.ProgressByUser(ctx, userID, ids)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	claimed, err := s.challengeRepo.ClaimedWeeks(ctx, userID, ids)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	result := make([]*MyChallenge, 0, len(challenges))
	for _, c := range challenges {
		weekStart := c.WeekStart()
		item := &MyChallenge{
			ID:           c.ID,
			Title:        c.Title,
			Goal:         c.Goal,
			RewardPoints: c.RewardPoints,
			WeekStart:    weekStart,
			WeekEnd:      c.EndAt.Format("2006-01-02"),
			Progress:     progress[c.ID],
		}
		item.Completed = item.Progress >= c.Goal
		for _, w := range claimed[c.ID] {
			if w == weekStart {
				item.Rewarded = true
				break
			}
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *Service) getChallenge(ctx context.Context, id int64) (*models.WeeklyChallenge, error) {
	c, err := s.challengeRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrChallengeNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return c, nil
}

func toChallengeInfo(c *models.WeeklyChallenge) *ChallengeInfo {
	return &ChallengeInfo{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		Goal:         c.Goal,
		RewardPoints: c.RewardPoints,
		StartAt:      c.StartAt,
		EndAt:        c.EndAt,
		Active:       c.Active == 1,
	}
}
