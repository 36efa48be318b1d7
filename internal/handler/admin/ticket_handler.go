package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/handler"
	ticketService "github.com/dumeirei/funzone-backend/internal/service/ticket"
)

// TicketHandler 票务审核处理器
type TicketHandler struct {
	ticketService *ticketService.Service
}

// NewTicketHandler 创建票务审核处理器
func NewTicketHandler(ticketSvc *ticketService.Service) *TicketHandler {
	return &TicketHandler{ticketService: ticketSvc}
}

// List 票列表
// @Summary 票列表
// @Description status 可逗号分隔，例如 PENDING,BOOKED
// @Tags 管理-票务
// @Produce json
// @Security Bearer
// @Param status query string false "状态"
// @Param keyword query string false "用户名或项目名"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData{list=[]ticketService.TicketInfo}}
// @Router /api/v1/admin/tickets [get]
func (h *TicketHandler) List(c *gin.Context) {
	p := handler.BindPagination(c)
	result, err := h.ticketService.AdminList(c.Request.Context(), c.Query("status"), c.Query("keyword"), p)
	handler.RespondPage(c, err, result, p)
}

// Approve 确认收款
// @Summary 确认收款
// @Tags 管理-票务
// @Produce json
// @Security Bearer
// @Param id path int true "票ID"
// @Success 200 {object} response.Response{data=ticketService.TicketInfo}
// @Router /api/v1/admin/tickets/{id}/approve [post]
func (h *TicketHandler) Approve(c *gin.Context) {
	id, ok := handler.ParseID(c, "票")
	if !ok {
		return
	}

	result, err := h.ticketService.Approve(c.Request.Context(), id)
	handler.MustSucceed(c, err, result)
}

// Reject 驳回付款声明
// @Summary 驳回付款
// @Tags 管理-票务
// @Produce json
// @Security Bearer
// @Param id path int true "票ID"
// @Success 200 {object} response.Response{data=ticketService.TicketInfo}
// @Router /api/v1/admin/tickets/{id}/reject [post]
func (h *TicketHandler) Reject(c *gin.Context) {
	id, ok := handler.ParseID(c, "票")
	if !ok {
		return
	}

	result, err := h.ticketService.Reject(c.Request.Context(), id)
	handler.MustSucceed(c, err, result)
}

// Payments 票的支付记录
// @Summary 票的网关支付记录
// @Tags 管理-票务
// @Produce json
// @Security Bearer
// @Param id path int true "票ID"
// @Success 200 {object} response.Response{data=[]ticketService.PaymentRecord}
// @Router /api/v1/admin/tickets/{id}/payments [get]
func (h *TicketHandler) Payments(c *gin.Context) {
	id, ok := handler.ParseID(c, "票")
	if !ok {
		return
	}

	records, err := h.ticketService.Payments(c.Request.Context(), id)
	handler.MustSucceed(c, err, records)
}

// RegisterRoutes 注册路由
func (h *TicketHandler) RegisterRoutes(r *gin.RouterGroup) {
	tickets := r.Group("/tickets")
	{
		tickets.GET("", h.List)
		tickets.GET("/:id/payments", h.Payments)
		tickets.POST("/:id/approve", h.Approve)
		tickets.POST("/:id/reject", h.Reject)
	}
}
