// Package main 是应用程序入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/funzone-backend/internal/common/cache"
	"github.com/dumeirei/funzone-backend/internal/common/config"
	"github.com/dumeirei/funzone-backend/internal/common/database"
	"github.com/dumeirei/funzone-backend/internal/common/logger"
	"github.com/dumeirei/funzone-backend/internal/common/metrics"
	"github.com/dumeirei/funzone-backend/internal/common/tracing"
	"github.com/dumeirei/funzone-backend/internal/scheduler"
	ticketService "github.com/dumeirei/funzone-backend/internal/service/ticket"
	"github.com/dumeirei/funzone-backend/pkg/mqtt"
)

const version = "1.0.0"

func main() {
	// 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.GetLogger()

	log.Info("Starting FunZone Backend",
		zap.String("version", version),
		zap.String("env", cfg.Server.Mode),
	)

	// 初始化追踪
	tracer, err := tracing.Init(&cfg.Tracing, version, cfg.Server.Mode)
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}

	// 初始化数据库连接
	db, err := database.Init(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// 初始化 Redis 连接
	redisClient, err := cache.Init(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Redis connected successfully")

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.Init("funzone")
	}

	// 游戏机 MQTT，连接失败时不下发加币
	var creditPublisher ticketService.CreditPublisher
	if cfg.MQTT.Enabled {
		mqttClient := mqtt.NewClient(cfg.MQTT.Broker,
			mqtt.WithClientIDPrefix(cfg.MQTT.ClientIDPrefix),
			mqtt.WithCredentials(cfg.MQTT.Username, cfg.MQTT.Password),
			mqtt.WithKeepAlive(cfg.MQTT.KeepAlive),
			mqtt.WithConnectTimeout(cfg.MQTT.ConnectTimeout),
			mqtt.WithQoS(cfg.MQTT.QoS),
			mqtt.WithLogger(log),
		)
		connectCtx, cancel := context.WithTimeout(context.Background(), cfg.MQTT.ConnectTimeout)
		err := mqttClient.Connect(connectCtx)
		cancel()
		if err != nil {
			log.Warn("MQTT unavailable, game credit disabled", zap.Error(err))
		} else {
			defer mqttClient.Close()
			creditPublisher = mqtt.NewGameCreditPublisher(mqttClient, cfg.MQTT.TopicPrefix, 0)
		}
	}

	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "production", "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	svc := newServices(cfg, db, redisClient, m, creditPublisher)

	// 创建 Gin 引擎并设置路由
	engine := gin.New()
	setupRouter(engine, cfg, log, db, redisClient, m, svc)

	// 定时任务
	sched := scheduler.NewScheduler(log, scheduler.WithMetrics(m))
	scheduler.SetupTasks(sched, scheduler.NewTaskHandler(
		svc.tickets,
		svc.paymentRepo,
		svc.opLogRepo,
		scheduler.TaskConfig{
			BookingTTL:         cfg.Business.Ticket.BookingTTL,
			CheckInterval:      cfg.Business.Ticket.SweepInterval,
			LogRetention:       cfg.Business.OperationLogRetention(),
			LogPurgeInterval:   6 * time.Hour,
			PaymentSweepPeriod: cfg.Business.Ticket.SweepInterval,
		},
		log,
	))
	sched.Start()

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Info("HTTP server starting",
			zap.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	sched.Stop()

	if err := tracer.Shutdown(ctx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}

	if err := database.Close(db); err != nil {
		log.Warn("Database close failed", zap.Error(err))
	}

	log.Info("Server exited")
}
