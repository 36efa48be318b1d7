package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/funzone-backend/internal/common/jwt"
)

// APIResponse 统一响应结构的解码形式
type APIResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewJWTManager 测试用令牌管理器
func NewJWTManager() *jwt.Manager {
	return jwt.NewManager("test-secret", "funzone-test", time.Hour)
}

// NewEngine 测试模式的 gin 引擎
func NewEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// Bearer 签发令牌并返回 Authorization 头的值
func Bearer(t *testing.T, m *jwt.Manager, userID int64, role string) string {
	t.Helper()
	token, err := m.Issue(userID, "u", role)
	require.NoError(t, err)
	return "Bearer " + token.AccessToken
}

// DoRequest 发起请求，body 非 nil 时按 JSON 编码
func DoRequest(t *testing.T, h http.Handler, method, path string, body interface{}, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// DecodeResponse 解析统一响应，out 非 nil 时解析 data
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder, out interface{}) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if out != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
	return resp
}
