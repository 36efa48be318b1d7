// Package response 提供统一的 API 响应格式
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/utils"
)

// 与 middleware.ContextKeyRequestID 保持一致
const requestIDKey = "request_id"

// CodeOK 成功业务码
const CodeOK = 0

// Response API 统一响应结构
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// PageData 分页数据结构
type PageData struct {
	List       interface{} `json:"list"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

func write(c *gin.Context, status, code int, message string, data interface{}) {
	c.JSON(status, Response{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: c.GetString(requestIDKey),
	})
}

func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, CodeOK, "success", data)
}

func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, CodeOK, "created", data)
}

// SuccessPage 分页响应，总页数由 page_size 向上取整
func SuccessPage(c *gin.Context, list interface{}, total int64, p utils.Pagination) {
	write(c, http.StatusOK, CodeOK, "success", PageData{
		List:       list,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages(total),
	})
}

// Error 业务错误，status 为 HTTP 状态码，code 为业务码
func Error(c *gin.Context, status, code int, message string) {
	write(c, status, code, message, nil)
}

// 以下快捷函数的业务码与 HTTP 状态码相同，message 为空时使用默认文案

func BadRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, message, "bad request")
}

func Unauthorized(c *gin.Context, message string) {
	fail(c, http.StatusUnauthorized, message, "unauthorized")
}

func Forbidden(c *gin.Context, message string) {
	fail(c, http.StatusForbidden, message, "forbidden")
}

func NotFound(c *gin.Context, message string) {
	fail(c, http.StatusNotFound, message, "not found")
}

func TooManyRequests(c *gin.Context, message string) {
	fail(c, http.StatusTooManyRequests, message, "too many requests")
}

func InternalError(c *gin.Context, message string) {
	fail(c, http.StatusInternalServerError, message, "internal server error")
}

func fail(c *gin.Context, status int, message, fallback string) {
	if message == "" {
		message = fallback
	}
	write(c, status, status, message, nil)
}
