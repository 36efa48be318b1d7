// Package auth 注册、登录与当前用户接口
package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/handler"
	"github.com/dumeirei/funzone-backend/internal/common/response"
	"github.com/dumeirei/funzone-backend/internal/middleware"
	authService "github.com/dumeirei/funzone-backend/internal/service/auth"
)

type Handler struct {
	svc *authService.AuthService
	now func() time.Time
}

func NewHandler(svc *authService.AuthService) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// Register
// @Summary 顾客注册
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body authService.RegisterRequest true "请求参数"
// @Success 201 {object} response.Response{data=authService.UserInfo}
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req authService.RegisterRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	user, err := h.svc.Register(c.Request.Context(), &req)
	if handler.HandleError(c, err) {
		return
	}
	response.Created(c, user)
}

// Login 签发令牌，同时写入 HttpOnly Cookie 供浏览器使用
// @Summary 用户名密码登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body authService.LoginRequest true "请求参数"
// @Success 200 {object} response.Response{data=authService.LoginResponse}
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req authService.LoginRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.Login(c.Request.Context(), &req)
	if handler.HandleError(c, err) {
		return
	}
	maxAge := int(time.Unix(result.Token.ExpiresAt, 0).Sub(h.now()).Seconds())
	h.setTokenCookie(c, result.Token.AccessToken, maxAge)
	response.Success(c, result)
}

// Logout 清除令牌 Cookie，令牌本身在过期前仍然有效
// @Summary 退出登录
// @Tags 认证
// @Success 200 {object} response.Response
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	h.setTokenCookie(c, "", -1)
	response.Success(c, nil)
}

func (h *Handler) setTokenCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, value, maxAge, "/", "", c.Request.TLS != nil, true)
}

// Me
// @Summary 获取当前用户信息
// @Tags 认证
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=authService.UserInfo}
// @Router /api/v1/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	user, err := h.svc.Me(c.Request.Context(), userID)
	handler.MustSucceed(c, err, user)
}

// RegisterRoutes 公开路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
}

// RegisterProtectedRoutes 需要登录的路由
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/auth/me", h.Me)
}
