// Package admin 提供后台管理的 HTTP Handler
package admin

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/handler"
	"github.com/dumeirei/funzone-backend/internal/common/response"
	promotionService "github.com/dumeirei/funzone-backend/internal/service/promotion"
)

// PromotionHandler 促销管理处理器
type PromotionHandler struct {
	promotionService *promotionService.AdminService
}

// NewPromotionHandler 创建促销管理处理器
func NewPromotionHandler(promotionSvc *promotionService.AdminService) *PromotionHandler {
	return &PromotionHandler{promotionService: promotionSvc}
}

// SavePromotionRequest 创建或更新促销请求
type SavePromotionRequest struct {
	Name       string          `json:"name" binding:"required,max=255"`
	Rate       float64         `json:"rate" binding:"min=0,max=100"`
	Conditions json.RawMessage `json:"conditions" swaggertype:"object"`
	StartAt    string          `json:"start_at" binding:"required"`
	EndAt      string          `json:"end_at" binding:"required"`
	Active     *bool           `json:"active"`
}

// ToggleRequest 启停请求
type ToggleRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (r *SavePromotionRequest) toServiceRequest() (*promotionService.SaveRequest, error) {
	start, err := handler.ParseDateTime(r.StartAt)
	if err != nil {
		return nil, err
	}
	end, err := handler.ParseDateTime(r.EndAt)
	if err != nil {
		return nil, err
	}
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &promotionService.SaveRequest{
		Name:       r.Name,
		Rate:       r.Rate,
		Conditions: r.Conditions,
		StartAt:    start,
		EndAt:      end,
		Active:     active,
	}, nil
}

// List 促销列表
// @Summary 促销列表
// @Tags 管理-促销
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "名称关键字"
// @Param active_only query bool false "只看启用中"
// @Success 200 {object} response.Response{data=response.PageData{list=[]promotionService.PromotionInfo}}
// @Router /api/v1/admin/promotions [get]
func (h *PromotionHandler) List(c *gin.Context) {
	p := handler.BindPagination(c)
	result, err := h.promotionService.List(c.Request.Context(), p, c.Query("keyword"), c.Query("active_only") == "true")
	handler.RespondPage(c, err, result, p)
}

// Get 促销详情
// @Summary 促销详情
// @Tags 管理-促销
// @Produce json
// @Security Bearer
// @Param id path int true "促销ID"
// @Success 200 {object} response.Response{data=promotionService.PromotionInfo}
// @Router /api/v1/admin/promotions/{id} [get]
func (h *PromotionHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "促销")
	if !ok {
		return
	}

	result, err := h.promotionService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, result)
}

// Create 创建促销
// @Summary 创建促销
// @Tags 管理-促销
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body SavePromotionRequest true "请求参数"
// @Success 201 {object} response.Response{data=promotionService.PromotionInfo}
// @Router /api/v1/admin/promotions [post]
func (h *PromotionHandler) Create(c *gin.Context) {
	var req SavePromotionRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	saveReq, err := req.toServiceRequest()
	if handler.HandleError(c, err) {
		return
	}

	result, err := h.promotionService.Create(c.Request.Context(), saveReq)
	if handler.HandleError(c, err) {
		return
	}
	response.Created(c, result)
}

// Update 更新促销
// @Summary 更新促销
// @Tags 管理-促销
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "促销ID"
// @Param request body SavePromotionRequest true "请求参数"
// @Success 200 {object} response.Response{data=promotionService.PromotionInfo}
// @Router /api/v1/admin/promotions/{id} [put]
func (h *PromotionHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "促销")
	if !ok {
		return
	}

	var req SavePromotionRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	saveReq, err := req.toServiceRequest()
	if handler.HandleError(c, err) {
		return
	}

	result, err := h.promotionService.Update(c.Request.Context(), id, saveReq)
	handler.MustSucceed(c, err, result)
}

// Delete 删除促销
// @Summary 删除促销
// @Tags 管理-促销
// @Produce json
// @Security Bearer
// @Param id path int true "促销ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/promotions/{id} [delete]
func (h *PromotionHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "促销")
	if !ok {
		return
	}

	handler.MustSucceed(c, h.promotionService.Delete(c.Request.Context(), id), nil)
}

// Toggle 启用或停用促销
// @Summary 启停促销
// @Tags 管理-促销
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "促销ID"
// @Param request body ToggleRequest true "请求参数"
// @Success 200 {object} response.Response{data=promotionService.PromotionInfo}
// @Router /api/v1/admin/promotions/{id}/toggle [post]
func (h *PromotionHandler) Toggle(c *gin.Context) {
	id, ok := handler.ParseID(c, "促销")
	if !ok {
		return
	}

	var req ToggleRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	result, err := h.promotionService.Toggle(c.Request.Context(), id, *req.Active)
	handler.MustSucceed(c, err, result)
}

// RegisterRoutes 注册路由
func (h *PromotionHandler) RegisterRoutes(r *gin.RouterGroup) {
	promotions := r.Group("/promotions")
	{
		promotions.GET("", h.List)
		promotions.POST("", h.Create)
		promotions.GET("/:id", h.Get)
		promotions.PUT("/:id", h.Update)
		promotions.DELETE("/:id", h.Delete)
		promotions.POST("/:id/toggle", h.Toggle)
	}
}
