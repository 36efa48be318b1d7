package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/handler"
	authService "github.com/dumeirei/funzone-backend/internal/service/auth"
	rewardService "github.com/dumeirei/funzone-backend/internal/service/reward"
)

// UserHandler 用户积分与等级管理处理器
type UserHandler struct {
	authService   *authService.AuthService
	rewardService *rewardService.Service
}

// NewUserHandler 创建用户管理处理器
func NewUserHandler(authSvc *authService.AuthService, rewardSvc *rewardService.Service) *UserHandler {
	return &UserHandler{authService: authSvc, rewardService: rewardSvc}
}

// SetTierRequest 设置会员等级请求
type SetTierRequest struct {
	Tier string `json:"tier" binding:"required,tier"`
}

// EvaluateResponse 挑战结算结果
type EvaluateResponse struct {
	UserID  int64 `json:"user_id"`
	Rewards int   `json:"rewards"`
}

// Evaluate 手动结算用户本周挑战奖励
// @Summary 结算挑战奖励
// @Description 重复调用不会重复发放
// @Tags 管理-积分
// @Produce json
// @Security Bearer
// @Param id path int true "用户ID"
// @Success 200 {object} response.Response{data=EvaluateResponse}
// @Router /api/v1/admin/gamify/users/{id}/evaluate [post]
func (h *UserHandler) Evaluate(c *gin.Context) {
	userID, ok := handler.ParseID(c, "用户")
	if !ok {
		return
	}

	n, err := h.rewardService.EvaluateAndReward(c.Request.Context(), userID)
	handler.MustSucceed(c, err, &EvaluateResponse{UserID: userID, Rewards: n})
}

// SetTier 设置会员等级
// @Summary 设置会员等级
// @Description 支持 STANDARD/SILVER/GOLD/DIAMOND 及越南语名称
// @Tags 管理-用户
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "用户ID"
// @Param request body SetTierRequest true "请求参数"
// @Success 200 {object} response.Response{data=authService.UserInfo}
// @Router /api/v1/admin/users/{id}/tier [put]
func (h *UserHandler) SetTier(c *gin.Context) {
	userID, ok := handler.ParseID(c, "用户")
	if !ok {
		return
	}

	var req SetTierRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.SetTier(c.Request.Context(), userID, req.Tier)
	handler.MustSucceed(c, err, result)
}

// RegisterRoutes 注册员工可用的路由
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/gamify/users/:id/evaluate", h.Evaluate)
}

// RegisterAdminRoutes 注册仅管理员可用的路由
func (h *UserHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.PUT("/users/:id/tier", h.SetTier)
}
