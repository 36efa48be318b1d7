package promotion

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/utils"
	"github.com/dumeirei/funzone-backend/internal/models"
	"github.com/dumeirei/funzone-backend/internal/repository"
)

// AdminService 促销管理服务
type AdminService struct {
	repo     *repository.PromotionRepository
	resolver *Resolver
}

// NewAdminService 创建促销管理服务
func NewAdminService(repo *repository.PromotionRepository, resolver *Resolver) *AdminService {
	return &AdminService{repo: repo, resolver: resolver}
}

// SaveRequest 创建或更新促销
type SaveRequest struct {
	Name       string
	Rate       float64
	Conditions json.RawMessage
	StartAt    time.Time
	EndAt      time.Time
	Active     bool
}

// PromotionInfo 促销信息
type PromotionInfo struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Rate       float64         `json:"rate"`
	Conditions json.RawMessage `json:"conditions,omitempty"`
	StartAt    time.Time       `json:"start_at"`
	EndAt      time.Time       `json:"end_at"`
	Active     bool            `json:"active"`
	Open       bool            `json:"open"`
}

// PromotionListResponse 促销列表
type PromotionListResponse = utils.Page[*PromotionInfo]

// Create 创建促销
func (s *AdminService) Create(ctx context.Context, req *SaveRequest) (*PromotionInfo, error) {
	conditions, err := validateSave(req)
	if err != nil {
		return nil, err
	}

	p := &models.Promotion{
		Name:       strings.TrimSpace(req.Name),
		Rate:       req.Rate,
		Conditions: conditions,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Active:     activeFlag(req.Active),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	s.resolver.Invalidate(ctx)
	return toPromotionInfo(p, time.Now()), nil
}

// Update 更新促销
func (s *AdminService) Update(ctx context.Context, id int64, req *SaveRequest) (*PromotionInfo, error) {
	conditions, err := validateSave(req)
	if err != nil {
		return nil, err
	}

	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(req.Name)
	p.Rate = req.Rate
	p.Conditions = conditions
	p.StartAt = req.StartAt
	p.EndAt = req.EndAt
	p.Active = activeFlag(req.Active)

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	s.resolver.Invalidate(ctx)
	return toPromotionInfo(p, time.Now()), nil
}

// Delete 删除促销
func (s *AdminService) Delete(ctx context.Context, id int64) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if affected == 0 {
		return errors.ErrPromotionNotFound
	}
	s.resolver.Invalidate(ctx)
	return nil
}

// Toggle 启用或停用促销
func (s *AdminService) Toggle(ctx context.Context, id int64, active bool) (*PromotionInfo, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.SetActive(ctx, id, activeFlag(active)); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	p.Active = activeFlag(active)
	s.resolver.Invalidate(ctx)
	return toPromotionInfo(p, time.Now()), nil
}

// Get 获取促销
func (s *AdminService) Get(ctx context.Context, id int64) (*PromotionInfo, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPromotionInfo(p, time.Now()), nil
}

// List 分页获取促销
func (s *AdminService) List(ctx context.Context, page utils.Pagination, keyword string, activeOnly bool) (*PromotionListResponse, error) {
	page.Normalize()
	promotions, total, err := s.repo.List(ctx, page.Offset(), page.Limit(), strings.TrimSpace(keyword), activeOnly)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	now := time.Now()
	list := make([]*PromotionInfo, 0, len(promotions))
	for _, p := range promotions {
		list = append(list, toPromotionInfo(p, now))
	}
	return &PromotionListResponse{List: list, Total: total}, nil
}

// ListOpen 当前生效的促销（不做条件过滤）
func (s *AdminService) ListOpen(ctx context.Context) ([]*PromotionInfo, error) {
	now := time.Now()
	promotions, err := s.resolver.openPromotions(ctx, now)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	list := make([]*PromotionInfo, 0, len(promotions))
	for _, p := range promotions {
		if p.IsOpen(now) {
			list = append(list, toPromotionInfo(p, now))
		}
	}
	return list, nil
}

func (s *AdminService) get(ctx context.Context, id int64) (*models.Promotion, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrPromotionNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return p, nil
}

// validateSave 校验请求并返回规范化后的条件 JSON
func validateSave(req *SaveRequest) (string, error) {
	if strings.TrimSpace(req.Name) == "" {
		return "", errors.ErrInvalidParams.WithMessage("促销名称不能为空")
	}
	if req.Rate < 0 || req.Rate > 100 {
		return "", errors.ErrPromotionInvalidRate
	}
	if req.EndAt.Before(req.StartAt) {
		return "", errors.ErrPromotionInvalidWindow
	}

	raw := bytes.TrimSpace(req.Conditions)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", errors.ErrPromotionInvalidRule.WithError(err)
	}
	if len(obj) == 0 {
		return "", nil
	}
	return string(raw), nil
}

func activeFlag(active bool) int8 {
	if active {
		return models.PromotionActive
	}
	return models.PromotionInactive
}

func toPromotionInfo(p *models.Promotion, now time.Time) *PromotionInfo {
	info := &PromotionInfo{
		ID:      p.ID,
		Name:    p.Name,
		Rate:    p.Rate,
		StartAt: p.StartAt,
		EndAt:   p.EndAt,
		Active:  p.Active == models.PromotionActive,
		Open:    p.IsOpen(now),
	}
	if p.Conditions != "" && json.Valid([]byte(p.Conditions)) {
		info.Conditions = json.RawMessage(p.Conditions)
	}
	return info
}
