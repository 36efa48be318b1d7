// Package payment 提供支付网关回调的 HTTP Handler
package payment

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/handler"
	"github.com/dumeirei/funzone-backend/internal/common/logger"
	"github.com/dumeirei/funzone-backend/internal/common/response"
	ticketService "github.com/dumeirei/funzone-backend/internal/service/ticket"
)

// IPN 应答码
const (
	RspConfirmed        = "00"
	RspOrderNotFound    = "01"
	RspAlreadyConfirmed = "02"
	RspInvalidAmount    = "04"
	RspInvalidChecksum  = "97"
	RspUnknown          = "99"
)

// IPNResponse 网关要求的应答格式
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// Handler 支付回调处理器
type Handler struct {
	ticketService *ticketService.Service
}

// NewHandler 创建支付回调处理器
func NewHandler(ticketSvc *ticketService.Service) *Handler {
	return &Handler{ticketService: ticketSvc}
}

// Callback 前端回跳后提交的支付结果
// @Summary 支付结果回调
// @Tags 支付
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 200 {object} response.Response{data=ticketService.CallbackOutcome}
// @Router /api/v1/payments/vnpay/callback [post]
func (h *Handler) Callback(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	outcome, err := h.ticketService.HandleGatewayCallback(c.Request.Context(), c.Request.Form)
	handler.MustSucceed(c, err, outcome)
}

// IPN 网关服务端通知
// @Summary 支付网关 IPN
// @Tags 支付
// @Produce json
// @Success 200 {object} IPNResponse
// @Router /api/v1/payments/vnpay/ipn [get]
func (h *Handler) IPN(c *gin.Context) {
	c.JSON(http.StatusOK, h.reconcile(c, c.Request.URL.Query()))
}

func (h *Handler) reconcile(c *gin.Context, params url.Values) IPNResponse {
	outcome, err := h.ticketService.HandleGatewayCallback(c.Request.Context(), params)
	if err != nil {
		appErr := errors.GetAppError(err)
		switch appErr.Code {
		case errors.ErrGatewaySignature.Code:
			return IPNResponse{RspCode: RspInvalidChecksum, Message: "Invalid Checksum"}
		case errors.ErrTicketNotFound.Code:
			return IPNResponse{RspCode: RspOrderNotFound, Message: "Order not found"}
		case errors.ErrGatewayAmountMismatch.Code:
			return IPNResponse{RspCode: RspInvalidAmount, Message: "Invalid amount"}
		}
		logger.Error("ipn reconcile failed",
			zap.Error(err),
			logger.RequestID(c.GetString("request_id")),
			zap.Int("code", appErr.Code),
		)
		return IPNResponse{RspCode: RspUnknown, Message: "Unknown error"}
	}

	if outcome.AlreadyConfirmed {
		return IPNResponse{RspCode: RspAlreadyConfirmed, Message: "Order already confirmed"}
	}
	return IPNResponse{RspCode: RspConfirmed, Message: "Confirm Success"}
}

// RegisterCallbackRoutes 注册回调路由（验签，无需认证）
func (h *Handler) RegisterCallbackRoutes(r *gin.RouterGroup) {
	vnpay := r.Group("/payments/vnpay")
	{
		vnpay.POST("/callback", h.Callback)
		vnpay.GET("/ipn", h.IPN)
	}
}
