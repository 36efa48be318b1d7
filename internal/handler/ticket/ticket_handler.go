// Package ticket 提供订票与付款的 HTTP Handler
package ticket

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/handler"
	"github.com/dumeirei/funzone-backend/internal/common/qrcode"
	"github.com/dumeirei/funzone-backend/internal/common/response"
	ticketService "github.com/dumeirei/funzone-backend/internal/service/ticket"
)

// Handler 票务处理器
type Handler struct {
	ticketService *ticketService.Service
}

// NewHandler 创建票务处理器
func NewHandler(ticketSvc *ticketService.Service) *Handler {
	return &Handler{ticketService: ticketSvc}
}

// QRResponse 转账二维码（JSON 形式）
type QRResponse struct {
	TicketID   int64  `json:"ticket_id"`
	Memo       string `json:"memo"`
	Amount     int64  `json:"amount"`
	AmountText string `json:"amount_text"`
	Image      string `json:"image"`
}

// Catalog 可预订的活动与游戏
// @Summary 可预订项目
// @Tags 票务
// @Produce json
// @Success 200 {object} response.Response{data=ticketService.CatalogResponse}
// @Router /api/v1/catalog [get]
func (h *Handler) Catalog(c *gin.Context) {
	result, err := h.ticketService.Catalog(c.Request.Context())
	handler.MustSucceed(c, err, result)
}

// Preview 报价预览
// @Summary 订票报价预览
// @Tags 票务
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body ticketService.BookRequest true "请求参数"
// @Success 200 {object} response.Response{data=ticketService.PreviewResponse}
// @Router /api/v1/tickets/preview [post]
func (h *Handler) Preview(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req ticketService.BookRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	result, err := h.ticketService.Preview(c.Request.Context(), userID, &req)
	handler.MustSucceed(c, err, result)
}

// Book 订票
// @Summary 订票
// @Tags 票务
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body ticketService.BookRequest true "请求参数"
// @Success 201 {object} response.Response{data=ticketService.TicketInfo}
// @Router /api/v1/tickets [post]
func (h *Handler) Book(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req ticketService.BookRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	ticket, err := h.ticketService.Book(c.Request.Context(), userID, &req)
	if handler.HandleError(c, err) {
		return
	}
	response.Created(c, ticket)
}

// ListMine 我的票
// @Summary 我的票
// @Tags 票务
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData{list=[]ticketService.TicketInfo}}
// @Router /api/v1/tickets/mine [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	p := handler.BindPagination(c)
	result, err := h.ticketService.ListMine(c.Request.Context(), userID, p)
	handler.RespondPage(c, err, result, p)
}

// Get 票详情
// @Summary 票详情
// @Tags 票务
// @Produce json
// @Security Bearer
// @Param id path int true "票ID"
// @Success 200 {object} response.Response{data=ticketService.TicketInfo}
// @Router /api/v1/tickets/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, ticketID, ok := handler.RequireUserAndParseID(c, "票")
	if !ok {
		return
	}

	result, err := h.ticketService.GetMine(c.Request.Context(), userID, ticketID)
	handler.MustSucceed(c, err, result)
}

// Cancel 取消未付款的票
// @Summary 取消票
// @Tags 票务
// @Produce json
// @Security Bearer
// @Param id path int true "票ID"
// @Success 200 {object} response.Response{data=ticketService.TicketInfo}
// @Router /api/v1/tickets/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	userID, ticketID, ok := handler.RequireUserAndParseID(c, "票")
	if !ok {
		return
	}

	result, err := h.ticketService.Cancel(c.Request.Context(), userID, ticketID)
	handler.MustSucceed(c, err, result)
}

// MarkPaid 声明已转账，等待审核
// @Summary 声明已付款
// @Tags 票务
// @Produce json
// @Security Bearer
// @Param id path int true "票ID"
// @Success 200 {object} response.Response{data=ticketService.TicketInfo}
// @Router /api/v1/tickets/{id}/mark-paid [post]
func (h *Handler) MarkPaid(c *gin.Context) {
	userID, ticketID, ok := handler.RequireUserAndParseID(c, "票")
	if !ok {
		return
	}

	result, err := h.ticketService.MarkPending(c.Request.Context(), userID, ticketID)
	handler.MustSucceed(c, err, result)
}

// Pay 发起网关支付
// @Summary 发起在线支付
// @Tags 票务
// @Produce json
// @Security Bearer
// @Param id path int true "票ID"
// @Success 200 {object} response.Response{data=ticketService.PaymentSession}
// @Router /api/v1/tickets/{id}/pay [post]
func (h *Handler) Pay(c *gin.Context) {
	userID, ticketID, ok := handler.RequireUserAndParseID(c, "票")
	if !ok {
		return
	}

	session, err := h.ticketService.InitiatePayment(c.Request.Context(), userID, ticketID, c.ClientIP())
	handler.MustSucceed(c, err, session)
}

// QR 转账二维码，format=json 时返回 data URL
// @Summary 转账二维码
// @Tags 票务
// @Produce png
// @Produce json
// @Security Bearer
// @Param id path int true "票ID"
// @Param format query string false "json 返回 data URL"
// @Success 200 {file} file
// @Router /api/v1/tickets/{id}/qr [get]
func (h *Handler) QR(c *gin.Context) {
	userID, ticketID, ok := handler.RequireUserAndParseID(c, "票")
	if !ok {
		return
	}

	qr, err := h.ticketService.PaymentQR(c.Request.Context(), userID, ticketID)
	if handler.HandleError(c, err) {
		return
	}

	if c.Query("format") == "json" {
		response.Success(c, &QRResponse{
			TicketID:   qr.TicketID,
			Memo:       qr.Memo,
			Amount:     qr.Amount,
			AmountText: qr.AmountText,
			Image:      qrcode.DataURL(qr.PNG),
		})
		return
	}
	c.Header("X-Transfer-Memo", qr.Memo)
	c.Data(http.StatusOK, "image/png", qr.PNG)
}

// RegisterPublicRoutes 注册公开路由
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/catalog", h.Catalog)
}

// RegisterRoutes 注册需要登录的路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	tickets := r.Group("/tickets")
	{
		tickets.POST("", h.Book)
		tickets.POST("/preview", h.Preview)
		tickets.GET("/mine", h.ListMine)
		tickets.GET("/:id", h.Get)
		tickets.POST("/:id/cancel", h.Cancel)
		tickets.POST("/:id/mark-paid", h.MarkPaid)
		tickets.POST("/:id/pay", h.Pay)
		tickets.GET("/:id/qr", h.QR)
	}
}
