package admin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/handler"
	"github.com/dumeirei/funzone-backend/internal/common/response"
	rewardService "github.com/dumeirei/funzone-backend/internal/service/reward"
)

// ChallengeHandler 周挑战管理处理器
type ChallengeHandler struct {
	rewardService *rewardService.Service
}

// NewChallengeHandler 创建周挑战管理处理器
func NewChallengeHandler(rewardSvc *rewardService.Service) *ChallengeHandler {
	return &ChallengeHandler{rewardService: rewardSvc}
}

// SaveChallengeRequest 创建或更新挑战请求，end_at 只给日期时取当天 23:59:59
type SaveChallengeRequest struct {
	Title        string  `json:"title" binding:"required,max=255"`
	Description  *string `json:"description"`
	Goal         int64   `json:"goal" binding:"required,min=1"`
	RewardPoints int64   `json:"reward_points" binding:"min=0"`
	StartAt      string  `json:"start_at" binding:"required"`
	EndAt        string  `json:"end_at" binding:"required"`
	Active       *bool   `json:"active"`
}

func (r *SaveChallengeRequest) toServiceRequest() (*rewardService.ChallengeRequest, error) {
	start, err := handler.ParseDateTime(r.StartAt)
	if err != nil {
		return nil, err
	}
	end, err := handler.ParseDateTime(r.EndAt)
	if err != nil {
		return nil, err
	}
	return &rewardService.ChallengeRequest{
		Title:        r.Title,
		Description:  r.Description,
		Goal:         r.Goal,
		RewardPoints: r.RewardPoints,
		StartAt:      start,
		EndAt:        end,
		EndDateOnly:  handler.IsDateOnly(r.EndAt),
		Active:       r.Active,
	}, nil
}

// bindChallengeFilter 解析 all/start/end 查询参数
func bindChallengeFilter(c *gin.Context) (rewardService.ChallengeFilter, bool) {
	filter := rewardService.ChallengeFilter{All: c.Query("all") == "true"}
	parse := func(key string) (*time.Time, bool) {
		raw := c.Query(key)
		if raw == "" {
			return nil, true
		}
		t, err := handler.ParseDateTime(raw)
		if err != nil {
			response.BadRequest(c, "时间格式错误")
			return nil, false
		}
		return &t, true
	}

	var ok bool
	if filter.Start, ok = parse("start"); !ok {
		return filter, false
	}
	if filter.End, ok = parse("end"); !ok {
		return filter, false
	}
	return filter, true
}

// List 挑战列表
// @Summary 挑战列表
// @Description 默认只列出当前生效的挑战，all=true 列出全部
// @Tags 管理-周挑战
// @Produce json
// @Security Bearer
// @Param all query bool false "全部"
// @Param start query string false "开始时间下限"
// @Param end query string false "结束时间上限"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData{list=[]rewardService.ChallengeInfo}}
// @Router /api/v1/admin/challenges [get]
func (h *ChallengeHandler) List(c *gin.Context) {
	filter, ok := bindChallengeFilter(c)
	if !ok {
		return
	}

	p := handler.BindPagination(c)
	result, err := h.rewardService.ListChallenges(c.Request.Context(), p, filter)
	handler.RespondPage(c, err, result, p)
}

// Get 挑战详情
// @Summary 挑战详情
// @Tags 管理-周挑战
// @Produce json
// @Security Bearer
// @Param id path int true "挑战ID"
// @Success 200 {object} response.Response{data=rewardService.ChallengeInfo}
// @Router /api/v1/admin/challenges/{id} [get]
func (h *ChallengeHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "挑战")
	if !ok {
		return
	}

	result, err := h.rewardService.GetChallenge(c.Request.Context(), id)
	handler.MustSucceed(c, err, result)
}

// Create 创建挑战
// @Summary 创建挑战
// @Tags 管理-周挑战
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body SaveChallengeRequest true "请求参数"
// @Success 201 {object} response.Response{data=rewardService.ChallengeInfo}
// @Router /api/v1/admin/challenges [post]
func (h *ChallengeHandler) Create(c *gin.Context) {
	var req SaveChallengeRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	saveReq, err := req.toServiceRequest()
	if handler.HandleError(c, err) {
		return
	}

	result, err := h.rewardService.CreateChallenge(c.Request.Context(), saveReq)
	if handler.HandleError(c, err) {
		return
	}
	response.Created(c, result)
}

// Update 更新挑战
// @Summary 更新挑战
// @Tags 管理-周挑战
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "挑战ID"
// @Param request body SaveChallengeRequest true "请求参数"
// @Success 200 {object} response.Response{data=rewardService.ChallengeInfo}
// @Router /api/v1/admin/challenges/{id} [put]
func (h *ChallengeHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "挑战")
	if !ok {
		return
	}

	var req SaveChallengeRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	saveReq, err := req.toServiceRequest()
	if handler.HandleError(c, err) {
		return
	}

	result, err := h.rewardService.UpdateChallenge(c.Request.Context(), id, saveReq)
	handler.MustSucceed(c, err, result)
}

// Delete 删除挑战
// @Summary 删除挑战
// @Tags 管理-周挑战
// @Produce json
// @Security Bearer
// @Param id path int true "挑战ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/challenges/{id} [delete]
func (h *ChallengeHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "挑战")
	if !ok {
		return
	}

	handler.MustSucceed(c, h.rewardService.DeleteChallenge(c.Request.Context(), id), nil)
}

// RegisterRoutes 注册路由
func (h *ChallengeHandler) RegisterRoutes(r *gin.RouterGroup) {
	challenges := r.Group("/challenges")
	{
		challenges.GET("", h.List)
		challenges.POST("", h.Create)
		challenges.GET("/:id", h.Get)
		challenges.PUT("/:id", h.Update)
		challenges.DELETE("/:id", h.Delete)
	}
}
