package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/funzone-backend/internal/common/jwt"
	"github.com/dumeirei/funzone-backend/internal/common/logger"
	"github.com/dumeirei/funzone-backend/internal/common/response"
)

// RequireRoles 仅放行列出的角色，须挂在 Auth 之后
// 被拒绝的访问记一条警告，便于排查员工账号配置
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	want := strings.Join(roles, "|")

	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}
		if _, ok := allowed[role]; ok {
			c.Next()
			return
		}

		logger.Warn("access denied",
			logger.UserID(GetUserID(c)),
			zap.String("role", role),
			zap.String("required", want),
			zap.String("route", c.FullPath()),
		)
		response.Forbidden(c, "权限不足")
		c.Abort()
	}
}

// RequireStaff 员工或管理员
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(jwt.RoleStaff, jwt.RoleAdmin)
}

// RequireAdmin 仅管理员，用于调整会员等级与查看操作日志
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(jwt.RoleAdmin)
}
