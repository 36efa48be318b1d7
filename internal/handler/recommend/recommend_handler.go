// Package recommend 提供游戏推荐的 HTTP Handler
package recommend

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/handler"
	recommendService "github.com/dumeirei/funzone-backend/internal/service/recommend"
)

// Handler 推荐处理器
type Handler struct {
	recommendService *recommendService.Service
}

// NewHandler 创建推荐处理器
func NewHandler(recommendSvc *recommendService.Service) *Handler {
	return &Handler{recommendService: recommendSvc}
}

// ClickRequest 记录点击请求
type ClickRequest struct {
	GameID int64 `json:"game_id" binding:"required,min=1"`
}

// Click 记录查看游戏
// @Summary 记录游戏点击
// @Tags 推荐
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body ClickRequest true "游戏"
// @Success 200 {object} response.Response{data=recommendService.ClickResult}
// @Router /api/v1/recommendations/click [post]
func (h *Handler) Click(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}
	var req ClickRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	result, err := h.recommendService.RecordClick(c.Request.Context(), userID, req.GameID)
	handler.MustSucceed(c, err, result)
}

// Global 热门游戏
// @Summary 热门游戏
// @Tags 推荐
// @Produce json
// @Success 200 {object} response.Response{data=[]repository.RecommendRow}
// @Router /api/v1/recommendations/global [get]
func (h *Handler) Global(c *gin.Context) {
	result, err := h.recommendService.Global(c.Request.Context())
	handler.MustSucceed(c, err, result)
}

// Mine 个人推荐
// @Summary 个人推荐
// @Tags 推荐
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=recommendService.Result}
// @Router /api/v1/recommendations/me [get]
func (h *Handler) Mine(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	result, err := h.recommendService.ForUser(c.Request.Context(), userID)
	handler.MustSucceed(c, err, result)
}

// RegisterPublicRoutes 注册公开路由
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/recommendations/global", h.Global)
}

// RegisterRoutes 注册需要登录的路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	recommendations := r.Group("/recommendations")
	{
		recommendations.POST("/click", h.Click)
		recommendations.GET("/me", h.Mine)
	}
}
