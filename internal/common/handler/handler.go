// Package handler 提供 API Handler 的通用辅助函数
// 带 bool 返回值的函数在失败时已写出响应，调用方直接 return 即可
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/logger"
	commonMiddleware "github.com/dumeirei/funzone-backend/internal/common/middleware"
	"github.com/dumeirei/funzone-backend/internal/common/response"
	"github.com/dumeirei/funzone-backend/internal/common/utils"
	"github.com/dumeirei/funzone-backend/internal/middleware"
)

// HandleError 将错误写成统一响应，err 为 nil 时返回 false
// AppError 按自身的 HTTP 状态返回；其他错误一律 500，不暴露内部细节
//
//	result, err := svc.Approve(ctx, id)
//	if handler.HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if !errors.IsAppError(err) {
		logFailure(c, "unexpected error", err)
		response.InternalError(c, "服务器内部错误")
		return true
	}
	appErr := errors.GetAppError(err)
	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logFailure(c, "request failed", err)
	}
	response.Error(c, status, appErr.Code, appErr.Message)
	return true
}

func logFailure(c *gin.Context, msg string, err error) {
	fields := []zap.Field{
		zap.Error(err),
		logger.RequestID(middleware.GetRequestID(c)),
		zap.String("route", c.FullPath()),
	}
	if userID := middleware.GetUserID(c); userID > 0 {
		fields = append(fields, logger.UserID(userID))
	}
	if traceID := commonMiddleware.GetTraceID(c); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	logger.Error(msg, fields...)
}

// MustSucceed 出错时写错误响应，否则写成功响应，调用后直接 return
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustSucceedPage 分页版本的 MustSucceed
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, page utils.Pagination) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, list, total, page)
}

// RespondPage 服务层返回 utils.Page 时使用
func RespondPage[T any](c *gin.Context, err error, result *utils.Page[T], page utils.Pagination) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, result.List, result.Total, page)
}

// RequireUserID 获取当前用户 ID，未登录时返回 401
func RequireUserID(c *gin.Context) (int64, bool) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "请先登录")
		return 0, false
	}
	return userID, true
}

// ParseID 解析路径参数 "id"，resourceName 用于错误消息（如 "票"、"促销"）
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return 0, false
	}
	return id, true
}

// RequireUserAndParseID 登录检查加路径 ID 解析，顾客操作自己的票时使用
func RequireUserAndParseID(c *gin.Context, resourceName string) (userID, resourceID int64, ok bool) {
	if userID, ok = RequireUserID(c); !ok {
		return 0, 0, false
	}
	if resourceID, ok = ParseID(c, resourceName); !ok {
		return 0, 0, false
	}
	return userID, resourceID, true
}

// ParseQueryID 解析可选的查询参数 ID，缺省时返回 (nil, true)
//
//	eventID, ok := handler.ParseQueryID(c, "event_id", "活动")
func ParseQueryID(c *gin.Context, key, resourceName string) (*int64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return nil, false
	}
	return &id, true
}

// ParseQueryInt 解析可选的整数查询参数，缺省时返回 def
func ParseQueryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(c, "参数 "+key+" 必须是整数")
		return 0, false
	}
	return n, true
}

// ParseQueryTime 解析可选的时间查询参数，缺省时返回 (nil, true)
func ParseQueryTime(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := ParseDateTime(raw)
	if HandleError(c, err) {
		return nil, false
	}
	return &t, true
}

// 时间格式
const (
	DateFormat     = "2006-01-02"
	DateTimeFormat = "2006-01-02 15:04:05"
)

// 按顺序尝试的格式，无时区的按本地时区解析
var dateTimeFormats = []string{
	time.RFC3339,
	DateTimeFormat,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	DateFormat,
}

// IsDateOnly 是否只含日期部分，挑战结束日期据此补到当天 23:59:59
func IsDateOnly(s string) bool {
	_, err := time.Parse(DateFormat, s)
	return err == nil
}

// ParseDateTime 解析日期时间字符串，失败时返回 ErrInvalidParams
func ParseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeFormats {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.ErrInvalidParams.WithMessage("时间格式错误")
}

// BindPagination 绑定分页参数，默认 page=1、page_size=10，上限 100
func BindPagination(c *gin.Context) utils.Pagination {
	var p utils.Pagination
	p.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	p.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	p.Normalize()
	return p
}
