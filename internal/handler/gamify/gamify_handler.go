// Package gamify 提供积分、挑战与排行榜的 HTTP Handler
package gamify

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/funzone-backend/internal/common/handler"
	rewardService "github.com/dumeirei/funzone-backend/internal/service/reward"
)

// Handler 积分处理器
type Handler struct {
	rewardService    *rewardService.Service
	leaderboardLimit int
}

// NewHandler 创建积分处理器，leaderboardLimit 为排行榜默认条数
func NewHandler(rewardSvc *rewardService.Service, leaderboardLimit int) *Handler {
	return &Handler{rewardService: rewardSvc, leaderboardLimit: leaderboardLimit}
}

// ScoreResponse 积分余额
type ScoreResponse struct {
	UserID int64 `json:"user_id"`
	Score  int64 `json:"score"`
}

// Score 我的积分
// @Summary 我的积分
// @Tags 积分
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=ScoreResponse}
// @Router /api/v1/gamify/score [get]
func (h *Handler) Score(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	score, err := h.rewardService.MyScore(c.Request.Context(), userID)
	handler.MustSucceed(c, err, &ScoreResponse{UserID: userID, Score: score})
}

// Ledger 我的积分流水
// @Summary 积分流水
// @Tags 积分
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.PointLedgerEntry}}
// @Router /api/v1/gamify/ledger [get]
func (h *Handler) Ledger(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	p := handler.BindPagination(c)
	result, err := h.rewardService.MyLedger(c.Request.Context(), userID, p)
	handler.RespondPage(c, err, result, p)
}

// Challenges 本周挑战与进度
// @Summary 我的挑战进度
// @Tags 积分
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=[]rewardService.MyChallenge}
// @Router /api/v1/gamify/challenges [get]
func (h *Handler) Challenges(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	result, err := h.rewardService.MyChallenges(c.Request.Context(), userID)
	handler.MustSucceed(c, err, result)
}

// Leaderboard 排行榜
// @Summary 积分排行榜
// @Tags 积分
// @Produce json
// @Param limit query int false "条数"
// @Success 200 {object} response.Response{data=[]rewardService.LeaderboardEntry}
// @Router /api/v1/leaderboard [get]
func (h *Handler) Leaderboard(c *gin.Context) {
	limit, ok := handler.ParseQueryInt(c, "limit", h.leaderboardLimit)
	if !ok {
		return
	}

	result, err := h.rewardService.Leaderboard(c.Request.Context(), limit)
	handler.MustSucceed(c, err, result)
}

// RegisterPublicRoutes 注册公开路由
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/leaderboard", h.Leaderboard)
}

// RegisterRoutes 注册需要登录的路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	gamify := r.Group("/gamify")
	{
		gamify.GET("/score", h.Score)
		gamify.GET("/ledger", h.Ledger)
		gamify.GET("/challenges", h.Challenges)
	}
}
