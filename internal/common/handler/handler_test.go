package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/response"
	"github.com/dumeirei/funzone-backend/internal/common/utils"
	"github.com/dumeirei/funzone-backend/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// 辅助函数：创建测试上下文
func createTestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

// 辅助函数：解析响应
func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"不适用的促销", errors.ErrPromotionNotApplicable, http.StatusUnprocessableEntity, errors.ErrPromotionNotApplicable.Code},
		{"状态错误", errors.ErrTicketStateInvalid.WithMessage("票据已支付"), http.StatusConflict, errors.ErrTicketStateInvalid.Code},
		{"非本人", errors.ErrTicketNotOwned, http.StatusForbidden, errors.ErrTicketNotOwned.Code},
		{"网关不可用", errors.ErrGatewayUnavailable, http.StatusBadGateway, errors.ErrGatewayUnavailable.Code},
		{"包装的业务错误", fmt.Errorf("book: %w", errors.ErrInvalidQuantity), http.StatusBadRequest, errors.ErrInvalidQuantity.Code},
		{"未知错误", fmt.Errorf("boom"), http.StatusInternalServerError, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := createTestContext("/")
			assert.True(t, HandleError(c, tt.err))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, parseResponse(t, w).Code)
		})
	}

	c, w := createTestContext("/")
	assert.False(t, HandleError(c, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestHandleError_HidesInternalMessage(t *testing.T) {
	c, w := createTestContext("/")
	HandleError(c, fmt.Errorf("pq: connection refused"))
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestMustSucceed(t *testing.T) {
	c, w := createTestContext("/")
	MustSucceed(c, nil, gin.H{"id": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, parseResponse(t, w).Code)

	c, w = createTestContext("/")
	MustSucceedPage(c, nil, []int{1, 2}, 12, utils.Pagination{Page: 2, PageSize: 2})
	resp := parseResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(12), data["total"])
	assert.Equal(t, float64(6), data["total_pages"])
}

func TestRequireUserID(t *testing.T) {
	c, w := createTestContext("/")
	_, ok := RequireUserID(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, _ = createTestContext("/")
	c.Set(middleware.ContextKeyUserID, int64(5))
	id, ok := RequireUserID(c)
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)
}

func TestParseID(t *testing.T) {
	c, _ := createTestContext("/")
	c.Params = gin.Params{{Key: "id", Value: "17"}}
	id, ok := ParseID(c, "票")
	assert.True(t, ok)
	assert.Equal(t, int64(17), id)

	c, w := createTestContext("/")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	_, ok = ParseID(c, "票")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, parseResponse(t, w).Message, "票")
}

func TestParseQueryID(t *testing.T) {
	c, _ := createTestContext("/?event_id=3")
	id, ok := ParseQueryID(c, "event_id", "活动")
	require.True(t, ok)
	require.NotNil(t, id)
	assert.Equal(t, int64(3), *id)

	c, _ = createTestContext("/")
	id, ok = ParseQueryID(c, "event_id", "活动")
	assert.True(t, ok)
	assert.Nil(t, id)

	c, w := createTestContext("/?event_id=x")
	_, ok = ParseQueryID(c, "event_id", "活动")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseQueryInt(t *testing.T) {
	c, _ := createTestContext("/")
	n, ok := ParseQueryInt(c, "limit", 10)
	assert.True(t, ok)
	assert.Equal(t, 10, n)

	c, _ = createTestContext("/?limit=3")
	n, ok = ParseQueryInt(c, "limit", 10)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	c, w := createTestContext("/?limit=x")
	_, ok = ParseQueryInt(c, "limit", 10)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseQueryTime(t *testing.T) {
	c, _ := createTestContext("/")
	got, ok := ParseQueryTime(c, "start_time")
	assert.True(t, ok)
	assert.Nil(t, got)

	c, _ = createTestContext("/?start_time=2024-05-06")
	got, ok = ParseQueryTime(c, "start_time")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.Local), *got)

	c, w := createTestContext("/?start_time=yesterday")
	_, ok = ParseQueryTime(c, "start_time")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseDateTime(t *testing.T) {
	got, err := ParseDateTime("2024-05-06 07:08:09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local), got)

	got, err = ParseDateTime("2024-05-06T07:08:09+07:00")
	require.NoError(t, err)
	assert.Equal(t, 7*3600, func() int { _, off := got.Zone(); return off }())

	got, err = ParseDateTime("2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Hour())
	assert.True(t, IsDateOnly("2024-05-06"))
	assert.False(t, IsDateOnly("2024-05-06 10:00"))

	_, err = ParseDateTime("06/05/2024")
	assert.Error(t, err)
}

func TestBindPagination(t *testing.T) {
	c, _ := createTestContext("/?page=3&page_size=500")
	p := BindPagination(c)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.PageSize)

	c, _ = createTestContext("/")
	p = BindPagination(c)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.PageSize)
}

func TestBindJSON(t *testing.T) {
	type req struct {
		Amount int64 `json:"amount" binding:"required"`
	}

	c, w := createTestContext("/")
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	c.Request.Header.Set("Content-Type", "application/json")
	var r req
	assert.False(t, BindJSON(c, &r))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "参数错误", parseResponse(t, w).Message)

	c, _ = createTestContext("/")
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":50000}`))
	c.Request.Header.Set("Content-Type", "application/json")
	require.True(t, BindJSON(c, &r))
	assert.Equal(t, int64(50000), r.Amount)
}

func TestBindQuery_ValidationError(t *testing.T) {
	type query struct {
		Amount int64 `form:"amount" binding:"required"`
	}

	c, w := createTestContext("/?other=1")
	var q query
	assert.False(t, BindQuery(c, &q))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, parseResponse(t, w).Message, "参数错误: ")
}
