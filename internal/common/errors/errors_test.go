package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	cause := stderrors.New("connection reset by peer")
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{"预定义错误", ErrEventNotOpen, "[5005] 活动不存在或未开放"},
		{"附带原因", ErrDatabaseError.WithError(cause), "[1004] 数据库错误: connection reset by peer"},
		{"Wrap", Wrap(6000, "支付网关连接失败", cause), "[6000] 支付网关连接失败: connection reset by peer"},
		{"New", New(7003, "本周奖励已发放"), "[7003] 本周奖励已发放"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}

	wrapped := Wrap(6000, "支付网关连接失败", cause)
	require.ErrorIs(t, wrapped, cause)
	assert.ErrorIs(t, wrapped, ErrGatewayUnavailable)
}

func TestAppError_WithMessageKeepsIdentity(t *testing.T) {
	derived := ErrTicketStateInvalid.WithMessagef("当前状态 %s，需要 %s", "BOOKED", "PENDING")

	assert.Equal(t, "当前状态 BOOKED，需要 PENDING", derived.Message)
	assert.Equal(t, "票状态不允许该操作", ErrTicketStateInvalid.Message, "原始错误不应被修改")
	assert.True(t, stderrors.Is(derived, ErrTicketStateInvalid))
	assert.False(t, stderrors.Is(derived, ErrTicketNotFound))
}

func TestAppError_WithError(t *testing.T) {
	cause := stderrors.New("dial tcp: i/o timeout")
	err := ErrGatewayUnavailable.WithError(cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, ErrGatewayUnavailable))
}

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"参数错误", ErrInvalidParams, http.StatusBadRequest},
		{"未登录", ErrUnauthorized, http.StatusUnauthorized},
		{"权限不足", ErrPermissionDenied, http.StatusForbidden},
		{"促销不适用", ErrPromotionNotApplicable, http.StatusUnprocessableEntity},
		{"状态冲突", ErrTicketStateInvalid, http.StatusConflict},
		{"票不存在", ErrTicketNotFound, http.StatusNotFound},
		{"网关不可用", ErrGatewayUnavailable, http.StatusBadGateway},
		{"签名错误", ErrGatewaySignature, http.StatusBadRequest},
		{"数量非法", ErrInvalidQuantity, http.StatusBadRequest},
		{"未知码段", New(99999, "x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestGetAppError(t *testing.T) {
	t.Run("包装链中的应用错误", func(t *testing.T) {
		wrapped := fmt.Errorf("approve: %w", ErrTicketNotFound)
		assert.True(t, IsAppError(wrapped))
		assert.Equal(t, ErrTicketNotFound.Code, GetAppError(wrapped).Code)
	})

	t.Run("普通错误", func(t *testing.T) {
		plain := stderrors.New("boom")
		assert.False(t, IsAppError(plain))
		got := GetAppError(plain)
		assert.Equal(t, ErrUnknown.Code, got.Code)
		assert.Equal(t, plain, got.Err)
	})
}
