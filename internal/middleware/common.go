package middleware

import (
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/response"
)

const (
	ContextKeyRequestID = "request_id"
	HeaderRequestID     = "X-Request-ID"

	maxRequestIDLen = 64
)

// RequestID 沿用上游的请求 ID，缺失或过长时重新生成
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}

// GetRequestID 获取请求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// Recovery 捕获 panic，记录堆栈并返回统一的内部错误
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				fields := []zap.Field{
					zap.String("request_id", GetRequestID(c)),
					zap.String("method", c.Request.Method),
					zap.String("route", c.FullPath()),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				}
				if userID := GetUserID(c); userID > 0 {
					fields = append(fields, zap.Int64("user_id", userID))
				}
				logger.Error("Panic recovered", fields...)

				if !c.Writer.Written() {
					response.Error(c, http.StatusInternalServerError, errors.ErrInternalError.Code, errors.ErrInternalError.Message)
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}

// SecureHeaders 安全响应头，Swagger 页面需要内联脚本，不下发 CSP
func SecureHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if !strings.HasPrefix(c.Request.URL.Path, "/swagger/") {
			h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:")
		}
		c.Next()
	}
}

// RealIP 根据代理头还原客户端 IP，支付网关需要真实地址
// 仅接受合法 IP，写回时保留端口格式以便 gin 的 ClientIP 解析
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		candidate := strings.TrimSpace(c.GetHeader("X-Real-IP"))
		if candidate == "" {
			if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				candidate = strings.TrimSpace(first)
			}
		}
		if ip := net.ParseIP(candidate); ip != nil {
			c.Request.RemoteAddr = net.JoinHostPort(ip.String(), "0")
		}
		c.Next()
	}
}

// RequestSizeLimiter 限制请求体大小
func RequestSizeLimiter(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			response.Error(c, http.StatusRequestEntityTooLarge, errors.ErrInvalidParams.Code,
				fmt.Sprintf("请求体过大，最大允许 %d 字节", maxSize))
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
