// Package promotion 提供促销查询的 HTTP Handler
package promotion

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/handler"
	promotionService "github.com/dumeirei/funzone-backend/internal/service/promotion"
)

// Handler 促销处理器
type Handler struct {
	adminService *promotionService.AdminService
	resolver     *promotionService.Resolver
}

// NewHandler 创建促销处理器
func NewHandler(adminSvc *promotionService.AdminService, resolver *promotionService.Resolver) *Handler {
	return &Handler{adminService: adminSvc, resolver: resolver}
}

// ApplicableQuery 适用促销查询参数
type ApplicableQuery struct {
	Amount  int64  `form:"amount" binding:"required,min=1"`
	Tier    string `form:"tier" binding:"omitempty,tier"`
	EventID *int64 `form:"event_id"`
}

// ListOpen 当前生效的促销
// @Summary 当前生效的促销
// @Tags 促销
// @Produce json
// @Success 200 {object} response.Response{data=[]promotionService.PromotionInfo}
// @Router /api/v1/promotions/open [get]
func (h *Handler) ListOpen(c *gin.Context) {
	list, err := h.adminService.ListOpen(c.Request.Context())
	handler.MustSucceed(c, err, list)
}

// ListApplicable 按金额、会员等级与活动列出适用促销
// @Summary 适用促销
// @Tags 促销
// @Produce json
// @Param amount query int true "订单金额"
// @Param tier query string false "会员等级"
// @Param event_id query int false "活动ID"
// @Success 200 {object} response.Response{data=[]promotionService.Applicable}
// @Router /api/v1/promotions/applicable [get]
func (h *Handler) ListApplicable(c *gin.Context) {
	var q ApplicableQuery
	if !handler.BindQuery(c, &q) {
		return
	}

	list, err := h.resolver.ListApplicable(c.Request.Context(), q.Amount, q.Tier, q.EventID)
	handler.MustSucceed(c, err, list)
}

// RegisterRoutes 注册公开路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	promotions := r.Group("/promotions")
	{
		promotions.GET("/open", h.ListOpen)
		promotions.GET("/applicable", h.ListApplicable)
	}
}
