package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/common/cache"
	"github.com/dumeirei/funzone-backend/internal/common/config"
	"github.com/dumeirei/funzone-backend/internal/common/crypto"
	"github.com/dumeirei/funzone-backend/internal/common/jwt"
	"github.com/dumeirei/funzone-backend/internal/common/metrics"
	commonMiddleware "github.com/dumeirei/funzone-backend/internal/common/middleware"
	"github.com/dumeirei/funzone-backend/internal/common/qrcode"
	"github.com/dumeirei/funzone-backend/internal/handler"
	adminHandler "github.com/dumeirei/funzone-backend/internal/handler/admin"
	authHandler "github.com/dumeirei/funzone-backend/internal/handler/auth"
	gamifyHandler "github.com/dumeirei/funzone-backend/internal/handler/gamify"
	paymentHandler "github.com/dumeirei/funzone-backend/internal/handler/payment"
	promotionHandler "github.com/dumeirei/funzone-backend/internal/handler/promotion"
	recommendHandler "github.com/dumeirei/funzone-backend/internal/handler/recommend"
	ticketHandler "github.com/dumeirei/funzone-backend/internal/handler/ticket"
	"github.com/dumeirei/funzone-backend/internal/middleware"
	"github.com/dumeirei/funzone-backend/internal/repository"
	authService "github.com/dumeirei/funzone-backend/internal/service/auth"
	promotionService "github.com/dumeirei/funzone-backend/internal/service/promotion"
	recommendService "github.com/dumeirei/funzone-backend/internal/service/recommend"
	rewardService "github.com/dumeirei/funzone-backend/internal/service/reward"
	ticketService "github.com/dumeirei/funzone-backend/internal/service/ticket"
	"github.com/dumeirei/funzone-backend/pkg/vnpay"
)

// services 组装好的服务与仓储，路由与定时任务共用
type services struct {
	jwtManager  *jwt.Manager
	auth        *authService.AuthService
	promoAdmin  *promotionService.AdminService
	resolver    *promotionService.Resolver
	rewards     *rewardService.Service
	tickets     *ticketService.Service
	recommend   *recommendService.Service
	paymentRepo *repository.PaymentRepository
	opLogRepo   *repository.OperationLogRepository
}

// newServices 初始化仓储与服务，creditPublisher 为 nil 时不下发游戏机加币
func newServices(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	m *metrics.Metrics,
	creditPublisher ticketService.CreditPublisher,
) *services {
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	store := cache.NewStore(redisClient)

	// 仓储
	userRepo := repository.NewUserRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	// 服务
	resolver := promotionService.NewResolver(promotionRepo,
		promotionService.WithCache(store, cfg.Business.Promotion.CacheTTL),
		promotionService.WithMetrics(m),
	)
	rewards := rewardService.NewService(db, userRepo,
		repository.NewLedgerRepository(db),
		repository.NewChallengeRepository(db),
		rewardService.WithSpendPerPoint(cfg.Business.Points.SpendPerPoint),
		rewardService.WithLeaderboardCache(store, cfg.Business.Gamify.LeaderboardCacheTTL),
		rewardService.WithMetrics(m),
	)

	gateway := vnpay.NewClient(&vnpay.Config{
		TmnCode:    cfg.Payment.TmnCode,
		HashSecret: cfg.Payment.HashSecret,
		PayURL:     cfg.Payment.PayURL,
		APIURL:     cfg.Payment.APIURL,
		ReturnURL:  cfg.Payment.ReturnURL,
		Timeout:    cfg.Payment.Timeout,
		ExpireMins: cfg.Payment.ExpireMins,
	})
	ticketOpts := []ticketService.Option{
		ticketService.WithGateway(gateway),
		ticketService.WithMemoPrefix(cfg.Business.Ticket.TransferMemoPrefix),
		ticketService.WithMetrics(m),
		ticketService.WithQRGenerator(qrcode.NewGenerator(qrcode.WithSize(cfg.Business.Ticket.QRSize))),
	}
	if creditPublisher != nil {
		ticketOpts = append(ticketOpts, ticketService.WithNotifier(ticketService.NewGameCreditNotifier(creditPublisher, m)))
	}
	tickets := ticketService.NewService(db,
		repository.NewTicketRepository(db),
		catalogRepo,
		userRepo,
		paymentRepo,
		resolver,
		rewards,
		ticketOpts...,
	)
	recommend := recommendService.NewService(catalogRepo, repository.NewRecommendRepository(db),
		recommendService.WithCache(store, cfg.Business.Gamify.RecommendCacheTTL),
		recommendService.WithMetrics(m),
	)

	return &services{
		jwtManager:  jwtManager,
		auth:        authService.NewAuthService(userRepo, jwtManager, crypto.NewPasswordHasher(cfg.Crypto.BcryptCost)),
		promoAdmin:  promotionService.NewAdminService(promotionRepo, resolver),
		resolver:    resolver,
		rewards:     rewards,
		tickets:     tickets,
		recommend:   recommend,
		paymentRepo: paymentRepo,
		opLogRepo:   repository.NewOperationLogRepository(db),
	}
}

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	m *metrics.Metrics,
	svc *services,
) {
	handler.RegisterValidators()

	// 初始化处理器
	authH := authHandler.NewHandler(svc.auth)
	promotionH := promotionHandler.NewHandler(svc.promoAdmin, svc.resolver)
	ticketH := ticketHandler.NewHandler(svc.tickets)
	paymentH := paymentHandler.NewHandler(svc.tickets)
	gamifyH := gamifyHandler.NewHandler(svc.rewards, cfg.Business.Gamify.LeaderboardLimit)
	recommendH := recommendHandler.NewHandler(svc.recommend)

	adminPromotionH := adminHandler.NewPromotionHandler(svc.promoAdmin)
	adminTicketH := adminHandler.NewTicketHandler(svc.tickets)
	adminChallengeH := adminHandler.NewChallengeHandler(svc.rewards)
	adminUserH := adminHandler.NewUserHandler(svc.auth, svc.rewards)
	adminSystemH := adminHandler.NewSystemHandler(svc.opLogRepo)

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.RequestSizeLimiter(1 << 20))
	r.Use(middleware.CORSFromConfig(&cfg.CORS))
	r.Use(middleware.AccessLog(logger))
	if cfg.Tracing.Enabled {
		r.Use(commonMiddleware.Tracing(&commonMiddleware.TracingConfig{
			ServiceName: cfg.Tracing.ServiceName,
			SkipPaths:   []string{"/health", "/ping", "/ready", cfg.Metrics.Path},
		}))
	}
	if cfg.Metrics.Enabled {
		r.Use(m.Middleware(cfg.Metrics.Path, "/health", "/ping", "/ready"))
		r.GET(cfg.Metrics.Path, metrics.Handler())
	}
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(&middleware.RateLimitConfig{
			RedisClient: redisClient,
			Limit:       cfg.RateLimit.Limit,
			Window:      cfg.RateLimit.Window,
		}))
	}

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(map[string]probe{
		"database": databaseProbe(db),
		"redis":    redisProbe(redisClient),
	}))

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		// 公开接口（无需认证）
		public := v1.Group("")
		{
			authH.RegisterRoutes(public)
			promotionH.RegisterRoutes(public)
			ticketH.RegisterPublicRoutes(public)
			gamifyH.RegisterPublicRoutes(public)
			recommendH.RegisterPublicRoutes(public)
		}

		// 支付回调（需要验签，不需要认证）
		paymentH.RegisterCallbackRoutes(v1)

		// 用户端接口（需要用户认证）
		user := v1.Group("")
		user.Use(middleware.Auth(svc.jwtManager))
		{
			authH.RegisterProtectedRoutes(user)
			ticketH.RegisterRoutes(user)
			gamifyH.RegisterRoutes(user)
			recommendH.RegisterRoutes(user)
		}

		// 管理接口（员工与管理员），写操作记录操作日志
		staff := v1.Group("/admin")
		staff.Use(middleware.StaffAuth(svc.jwtManager)...)
		staff.Use(middleware.UserRateLimit(redisClient, 120, time.Minute))
		staff.Use(commonMiddleware.NewOperationLogger(svc.opLogRepo).Log())
		{
			adminPromotionH.RegisterRoutes(staff)
			adminTicketH.RegisterRoutes(staff)
			adminChallengeH.RegisterRoutes(staff)
			adminUserH.RegisterRoutes(staff)

			adminOnly := staff.Group("")
			adminOnly.Use(middleware.RequireAdmin())
			adminUserH.RegisterAdminRoutes(adminOnly)
			adminSystemH.RegisterAdminRoutes(adminOnly)
		}
	}
}
