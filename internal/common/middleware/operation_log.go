// Package middleware 提供 HTTP 中间件
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/funzone-backend/internal/common/logger"
	"github.com/dumeirei/funzone-backend/internal/models"
)

// OperationLogStore 操作日志存储
type OperationLogStore interface {
	Create(ctx context.Context, log *models.OperationLog) error
}

// OperationLogger 操作日志中间件
type OperationLogger struct {
	store OperationLogStore
	async bool
}

// NewOperationLogger 创建操作日志中间件，默认异步写入
func NewOperationLogger(store OperationLogStore) *OperationLogger {
	return &OperationLogger{store: store, async: true}
}

// Sync 改为同步写入，测试中使用
func (l *OperationLogger) Sync() *OperationLogger {
	l.async = false
	return l
}

// OperationConfig 操作配置
type OperationConfig struct {
	Module     string
	Action     string
	TargetType string
}

// moduleActionMap 路由到模块操作的映射，键为去掉 /api/v1 前缀后的方法与路由
var moduleActionMap = map[string]OperationConfig{
	"POST /admin/promotions":                {Module: "promotion", Action: "create", TargetType: "promotion"},
	"PUT /admin/promotions/:id":             {Module: "promotion", Action: "update", TargetType: "promotion"},
	"DELETE /admin/promotions/:id":          {Module: "promotion", Action: "delete", TargetType: "promotion"},
	"POST /admin/promotions/:id/toggle":     {Module: "promotion", Action: "toggle", TargetType: "promotion"},
	"POST /admin/tickets/:id/approve":       {Module: "ticket", Action: "approve", TargetType: "ticket"},
	"POST /admin/tickets/:id/reject":        {Module: "ticket", Action: "reject", TargetType: "ticket"},
	"POST /admin/challenges":                {Module: "challenge", Action: "create", TargetType: "challenge"},
	"PUT /admin/challenges/:id":             {Module: "challenge", Action: "update", TargetType: "challenge"},
	"DELETE /admin/challenges/:id":          {Module: "challenge", Action: "delete", TargetType: "challenge"},
	"POST /admin/gamify/users/:id/evaluate": {Module: "gamify", Action: "evaluate", TargetType: "user"},
	"PUT /admin/users/:id/tier":             {Module: "user", Action: "set_tier", TargetType: "user"},
}

var sensitiveFields = []string{
	"password", "token", "secret", "hash", "api_key",
}

// Log 操作日志中间件处理函数，只记录写操作
func (l *OperationLogger) Log() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isWriteMethod(c.Request.Method) {
			c.Next()
			return
		}

		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		c.Next()

		entry, ok := l.buildEntry(c, requestBody)
		if !ok {
			return
		}
		// gin.Context 会被复用，异步写入前必须先完成取值
		if l.async {
			go l.save(entry)
		} else {
			l.save(entry)
		}
	}
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func (l *OperationLogger) buildEntry(c *gin.Context, requestBody []byte) (*models.OperationLog, bool) {
	if l.store == nil {
		return nil, false
	}

	operatorID, ok := c.Get("user_id")
	if !ok {
		return nil, false
	}
	id, ok := operatorID.(int64)
	if !ok || id == 0 {
		return nil, false
	}

	cfg := lookupOperation(c.Request.Method, c.FullPath())
	entry := &models.OperationLog{
		OperatorID: id,
		Role:       c.GetString("role"),
		Module:     cfg.Module,
		Action:     cfg.Action,
		Route:      c.Request.Method + " " + c.FullPath(),
		StatusCode: c.Writer.Status(),
		RequestID:  c.GetString("request_id"),
		IP:         c.ClientIP(),
	}
	if ua := c.Request.UserAgent(); ua != "" {
		entry.UserAgent = &ua
	}
	if cfg.TargetType != "" {
		targetType := cfg.TargetType
		entry.TargetType = &targetType
		if raw := c.Param("id"); raw != "" {
			if targetID, err := strconv.ParseInt(raw, 10, 64); err == nil {
				entry.TargetID = &targetID
			}
		}
	}
	if len(requestBody) > 0 {
		var data interface{}
		if err := json.Unmarshal(requestBody, &data); err == nil {
			if m, ok := filterSensitiveData(data).(map[string]interface{}); ok {
				entry.Payload = m
			}
		}
	}
	return entry, true
}

func (l *OperationLogger) save(entry *models.OperationLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.Create(ctx, entry); err != nil {
		logger.Warn("failed to write operation log",
			zap.Error(err),
			logger.Module(entry.Module),
			logger.Action(entry.Action),
		)
	}
}

func lookupOperation(method, fullPath string) OperationConfig {
	path := strings.TrimPrefix(fullPath, "/api/v1")
	if cfg, ok := moduleActionMap[method+" "+path]; ok {
		return cfg
	}

	module := "unknown"
	for _, m := range []string{"promotion", "ticket", "challenge", "gamify", "user"} {
		if strings.Contains(path, "/"+m) {
			module = m
			break
		}
	}

	action := "unknown"
	switch method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	}
	return OperationConfig{Module: module, Action: action}
}

// filterSensitiveData 过滤敏感字段
func filterSensitiveData(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitiveKey(key) {
				result[key] = "***"
			} else {
				result[key] = filterSensitiveData(value)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = filterSensitiveData(item)
		}
		return result
	default:
		return data
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sf := range sensitiveFields {
		if strings.Contains(lower, sf) {
			return true
		}
	}
	return false
}
