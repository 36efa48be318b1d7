// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/jwt"
	"github.com/dumeirei/funzone-backend/internal/common/response"
)

// 上下文键
const (
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "role"
	ContextKeyClaims = "claims"
)

// TokenCookie 登录后写入浏览器的令牌 Cookie
const TokenCookie = "token"

// TokenVerifier 令牌校验，*jwt.Manager 满足该接口
type TokenVerifier interface {
	Verify(raw string) (*jwt.Claims, error)
}

// Auth 要求携带有效令牌，通过后把载荷写入上下文
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		claims, err := verifier.Verify(raw)
		if err != nil {
			msg := "无效的令牌"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "登录已过期，请重新登录"
			}
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// StaffAuth STAFF 与 ADMIN 均可通过
func StaffAuth(verifier TokenVerifier) []gin.HandlerFunc {
	return []gin.HandlerFunc{Auth(verifier), RequireStaff()}
}

// bearerToken 优先取 Authorization 头，其次取 Cookie
func bearerToken(c *gin.Context) string {
	if scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	token, _ := c.Cookie(TokenCookie)
	return token
}

// GetUserID 未认证时返回 0
func GetUserID(c *gin.Context) int64 {
	id, _ := c.Value(ContextKeyUserID).(int64)
	return id
}

func GetRole(c *gin.Context) string {
	return c.GetString(ContextKeyRole)
}

// GetClaims 未认证时返回 nil
func GetClaims(c *gin.Context) *jwt.Claims {
	claims, _ := c.Value(ContextKeyClaims).(*jwt.Claims)
	return claims
}
