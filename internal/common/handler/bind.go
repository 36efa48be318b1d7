package handler

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/dumeirei/funzone-backend/internal/common/response"
)

// BindJSON 绑定并校验 JSON 请求体，失败时写 400
func BindJSON(c *gin.Context, dst interface{}) bool {
	return bindResult(c, c.ShouldBindJSON(dst))
}

// BindQuery 绑定并校验查询参数，失败时写 400
func BindQuery(c *gin.Context, dst interface{}) bool {
	return bindResult(c, c.ShouldBindQuery(dst))
}

func bindResult(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	response.BadRequest(c, BindingMessage(err))
	return false
}

// BindingMessage 校验失败时列出出错字段，例如 "参数错误: amount, tier"
// 字段名取 json/form 标签，需先调用 handler.RegisterValidators
func BindingMessage(err error) string {
	var ve validator.ValidationErrors
	if !stderrors.As(err, &ve) || len(ve) == 0 {
		return "参数错误"
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fe.Field())
	}
	return "参数错误: " + strings.Join(fields, ", ")
}
