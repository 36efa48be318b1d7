package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const redacted = "***"

// AccessLogConfig 访问日志配置
type AccessLogConfig struct {
	Logger    *zap.Logger
	SkipPaths []string
	// 记录 JSON 请求体，敏感字段会被替换
	LogRequestBody bool
	MaxBodySize    int
	// 需要脱敏的请求体字段与查询参数，大小写不敏感
	RedactKeys []string
}

// DefaultAccessLogConfig 默认访问日志配置
func DefaultAccessLogConfig(logger *zap.Logger) *AccessLogConfig {
	return &AccessLogConfig{
		Logger:      logger,
		SkipPaths:   []string{"/health", "/ping", "/ready", "/metrics"},
		MaxBodySize: 1024,
		RedactKeys: []string{
			"password", "confirm_password", "token", "access_token",
			"vnp_SecureHash", "vnp_SecureHashType",
		},
	}
}

// Logging 请求日志中间件
func Logging(config *AccessLogConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}
	secret := make(map[string]struct{}, len(config.RedactKeys))
	for _, k := range config.RedactKeys {
		secret[strings.ToLower(k)] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		var body string
		if config.LogRequestBody && c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			body = redactBody(raw, secret, config.MaxBodySize)
		}

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", path),
			zap.String("query", redactQuery(c.Request.URL.RawQuery, secret)),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if userID := GetUserID(c); userID > 0 {
			fields = append(fields, zap.Int64("user_id", userID), zap.String("role", GetRole(c)))
		}
		if body != "" {
			fields = append(fields, zap.String("request_body", body))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			config.Logger.Error("HTTP Request", fields...)
		case status >= 400:
			config.Logger.Warn("HTTP Request", fields...)
		default:
			config.Logger.Info("HTTP Request", fields...)
		}
	}
}

// AccessLog 默认配置的访问日志
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return Logging(DefaultAccessLogConfig(logger))
}

// redactBody 只记录 JSON 对象，非 JSON 内容仅记录长度
func redactBody(raw []byte, secret map[string]struct{}, max int) string {
	if len(raw) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "(non-json body)"
	}
	for k := range payload {
		if _, ok := secret[strings.ToLower(k)]; ok {
			payload[k] = redacted
		}
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	if max > 0 && len(out) > max {
		return string(out[:max]) + "...(truncated)"
	}
	return string(out)
}

func redactQuery(rawQuery string, secret map[string]struct{}) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ""
	}
	for k := range values {
		if _, ok := secret[strings.ToLower(k)]; ok {
			values.Set(k, redacted)
		}
	}
	return values.Encode()
}
