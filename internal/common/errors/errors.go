// Package errors 定义业务错误码和错误处理
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 errors.Is 能识别 WithMessage/WithError 派生出的错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithMessagef 格式化修改错误消息
func (e *AppError) WithMessagef(format string, args ...interface{}) *AppError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// HTTPStatus 返回错误码对应的 HTTP 状态码
func (e *AppError) HTTPStatus() int {
	if status, ok := statusOverrides[e.Code]; ok {
		return status
	}
	switch {
	case e.Code >= 2000 && e.Code < 3000:
		return http.StatusUnauthorized
	case e.Code >= 6000 && e.Code < 7000:
		return http.StatusBadGateway
	case e.Code >= 1000 && e.Code < 10000:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, "未知错误")
	ErrInvalidParams   = New(1001, "参数错误")
	ErrNotFound        = New(1002, "资源不存在")
	ErrAlreadyExists   = New(1003, "资源已存在")
	ErrDatabaseError   = New(1004, "数据库错误")
	ErrCacheError      = New(1005, "缓存错误")
	ErrInternalError   = New(1006, "内部错误")
	ErrExternalService = New(1007, "外部服务错误")
	ErrRateLimitExceed = New(1008, "请求过于频繁")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, "未登录")
	ErrTokenExpired     = New(2001, "登录已过期")
	ErrTokenInvalid     = New(2002, "无效的令牌")
	ErrPermissionDenied = New(2004, "权限不足")
	ErrAccountDisabled  = New(2005, "账号已禁用")
	ErrPasswordError    = New(2007, "用户名或密码错误")
)

// 用户错误码 (3000-3999)
var (
	ErrUserNotFound = New(3000, "用户不存在")
	ErrUserExists   = New(3001, "用户名已存在")
	ErrInvalidTier  = New(3002, "无效的会员等级")
)

// 促销错误码 (4000-4999)
var (
	ErrPromotionNotFound      = New(4000, "促销活动不存在")
	ErrPromotionInvalidRate   = New(4001, "折扣率必须在 0-100 之间")
	ErrPromotionInvalidWindow = New(4002, "结束时间不能早于开始时间")
	ErrPromotionNotApplicable = New(4003, "该促销不适用于当前订单")
	ErrPromotionInvalidRule   = New(4004, "促销条件格式错误")
)

// 票务错误码 (5000-5999)
var (
	ErrTicketNotFound     = New(5000, "票不存在")
	ErrTicketStateInvalid = New(5001, "票状态不允许该操作")
	ErrTicketNotOwned     = New(5002, "无权操作该票")
	ErrInvalidQuantity    = New(5003, "数量必须在 1 到 100 之间")
	ErrInvalidTarget      = New(5004, "必须且只能选择一个活动或游戏")
	ErrEventNotOpen       = New(5005, "活动不存在或未开放")
	ErrGameNotOpen        = New(5006, "游戏不存在或未开放")
)

// 支付网关错误码 (6000-6999)
var (
	ErrGatewayUnavailable    = New(6000, "支付网关连接失败")
	ErrGatewaySignature      = New(6001, "支付回调签名校验失败")
	ErrGatewayAmountMismatch = New(6002, "支付金额不一致")
	ErrGatewayRejected       = New(6003, "支付网关拒绝交易")
)

// 积分与挑战错误码 (7000-7999)
var (
	ErrChallengeNotFound    = New(7000, "挑战不存在")
	ErrChallengeInvalidGoal = New(7001, "目标值必须大于等于 1")
	ErrChallengeInvalidPts  = New(7002, "奖励积分不能为负数")
)

var statusOverrides = map[int]int{
	ErrNotFound.Code:               http.StatusNotFound,
	ErrDatabaseError.Code:          http.StatusInternalServerError,
	ErrCacheError.Code:             http.StatusInternalServerError,
	ErrInternalError.Code:          http.StatusInternalServerError,
	ErrExternalService.Code:        http.StatusBadGateway,
	ErrRateLimitExceed.Code:        http.StatusTooManyRequests,
	ErrPermissionDenied.Code:       http.StatusForbidden,
	ErrAccountDisabled.Code:        http.StatusForbidden,
	ErrUserNotFound.Code:           http.StatusNotFound,
	ErrUserExists.Code:             http.StatusConflict,
	ErrPromotionNotFound.Code:      http.StatusNotFound,
	ErrPromotionNotApplicable.Code: http.StatusUnprocessableEntity,
	ErrTicketNotFound.Code:         http.StatusNotFound,
	ErrTicketStateInvalid.Code:     http.StatusConflict,
	ErrTicketNotOwned.Code:         http.StatusForbidden,
	ErrEventNotOpen.Code:           http.StatusNotFound,
	ErrGameNotOpen.Code:            http.StatusNotFound,
	ErrGatewaySignature.Code:       http.StatusBadRequest,
	ErrGatewayAmountMismatch.Code:  http.StatusBadRequest,
	ErrChallengeNotFound.Code:      http.StatusNotFound,
}

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}
