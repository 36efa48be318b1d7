package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/handler"
	"github.com/dumeirei/funzone-backend/internal/repository"
)

// SystemHandler 系统管理处理器
type SystemHandler struct {
	logRepo *repository.OperationLogRepository
}

// NewSystemHandler 创建系统管理处理器
func NewSystemHandler(logRepo *repository.OperationLogRepository) *SystemHandler {
	return &SystemHandler{logRepo: logRepo}
}

// ListOperationLogs 操作日志列表
// @Summary 操作日志列表
// @Tags 管理-系统
// @Produce json
// @Security Bearer
// @Param operator_id query int false "操作人ID"
// @Param module query string false "模块"
// @Param action query string false "操作"
// @Param role query string false "角色"
// @Param target_type query string false "对象类型"
// @Param target_id query int false "对象ID"
// @Param start_time query string false "开始时间"
// @Param end_time query string false "结束时间"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.OperationLog}}
// @Router /api/v1/admin/logs/operation [get]
func (h *SystemHandler) ListOperationLogs(c *gin.Context) {
	filter := repository.OperationLogFilter{
		Role:       c.Query("role"),
		Module:     c.Query("module"),
		Action:     c.Query("action"),
		TargetType: c.Query("target_type"),
	}
	operatorID, ok := handler.ParseQueryID(c, "operator_id", "操作人")
	if !ok {
		return
	}
	if operatorID != nil {
		filter.OperatorID = *operatorID
	}
	targetID, ok := handler.ParseQueryID(c, "target_id", "对象")
	if !ok {
		return
	}
	if targetID != nil {
		filter.TargetID = *targetID
	}
	if filter.Since, ok = handler.ParseQueryTime(c, "start_time"); !ok {
		return
	}
	if filter.Until, ok = handler.ParseQueryTime(c, "end_time"); !ok {
		return
	}

	p := handler.BindPagination(c)
	logs, total, err := h.logRepo.List(c.Request.Context(), p.Offset(), p.Limit(), filter)
	if err != nil {
		err = errors.ErrDatabaseError.WithError(err)
	}
	handler.MustSucceedPage(c, err, logs, total, p)
}

// RegisterAdminRoutes 注册仅管理员可用的路由
func (h *SystemHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/logs/operation", h.ListOperationLogs)
}
