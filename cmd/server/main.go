package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"classpad/config"
	"classpad/internal/api/handler"
	"classpad/internal/api/middleware"
	"classpad/internal/api/router"
	"classpad/internal/dto"
	"classpad/internal/jobs"
	"classpad/internal/model"
	"classpad/internal/repository"
	"classpad/internal/service"
	"classpad/pkg/database"
	"classpad/pkg/jwt"
	applogger "classpad/pkg/logger"
	"classpad/pkg/metrics"
	"classpad/pkg/oauth"
	"classpad/pkg/redis"
	"classpad/pkg/storage"
)

func main() {
	// 0. 本地开发时从 .env 注入环境变量，文件不存在不报错
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("CLASSPAD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("storage", cfg.Storage.Driver),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		blacklist service.TokenBlacklist
		limiter   middleware.RateLimiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流将不可用", zap.Error(err))
		rdb = nil
	} else {
		blacklist = rdb
		limiter = rdb
	}

	// 5. 文件存储
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := storage.New(ctx, &cfg.Storage, logger)
	if err != nil {
		logger.Fatal("初始化文件存储失败", zap.Error(err))
	}

	// 6. 指标、校验器、JWT、第三方登录
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	if err := dto.RegisterValidators(); err != nil {
		logger.Fatal("注册参数校验器失败", zap.Error(err))
	}

	jwtMgr := jwt.NewManager(&cfg.Auth)

	verifiers := map[string]oauth.Verifier{}
	if cfg.Auth.GoogleClientID != "" {
		google, err := oauth.NewGoogleVerifier(ctx, cfg.Auth.GoogleClientID)
		if err != nil {
			logger.Fatal("初始化 Google 登录失败", zap.Error(err))
		}
		verifiers[model.ProviderGoogle] = google
	}

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, blacklist, verifiers, store, m, logger)
	h := handler.NewHandler(svc)

	svc.Dispatcher.Start(ctx)

	sweeper := jobs.NewSessionExpirySweeper(repo.Attendance, cfg.Attendance.SweepInterval, m, logger)
	sweeper.Start(ctx)

	// 8. 初始化路由
	engine := router.Setup(cfg, router.Deps{
		Handler:  h,
		Resolver: svc.Auth,
		Limiter:  limiter,
		Metrics:  m,
		Gatherer: registry,
		Logger:   logger,
	})

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 先停定时任务，再排空通知队列
	sweeper.Stop()
	svc.Dispatcher.Stop()
	stop()

	if closeDB, _ := db.DB(); closeDB != nil {
		_ = closeDB.Close()
	}

	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("服务器已关闭")
}
