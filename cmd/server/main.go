package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/config"
	"github.com/quillpost/internal/dao"
	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/handler"
	"github.com/quillpost/internal/logger"
	"github.com/quillpost/internal/router"
	"github.com/quillpost/internal/scheduler"
	"github.com/quillpost/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer appLog.Sync()

	ctx := context.Background()

	loc, err := cfg.Location()
	if err != nil {
		appLog.Error(ctx, "invalid timezone", logger.Err(err))
		os.Exit(1)
	}

	// 初始化数据库
	gdb, err := db.Init(db.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.DatabasePath,
		DSN:    cfg.DatabaseDSN,
	})
	if err != nil {
		appLog.Error(ctx, "failed to initialize database", logger.Err(err))
		os.Exit(1)
	}
	defer db.Close(gdb)

	if err := db.EnsureSuperRoot(gdb, cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		appLog.Error(ctx, "failed to ensure super root", logger.Err(err))
		os.Exit(1)
	}

	articles := dao.NewArticleDAO(gdb)
	users := dao.NewUserDAO(gdb)
	events := dao.NewAccessLogDAO(gdb)

	statistics := service.NewStatisticsService(events, users, dao.NewStatisticsDAO(gdb), appLog).
		WithLocation(loc)
	task := scheduler.NewStatisticsTask(statistics, appLog,
		scheduler.WithSpec(cfg.StatisticsCron),
		scheduler.WithRefreshDays(cfg.RefreshDays),
		scheduler.WithLocation(loc))
	if err := task.Start(); err != nil {
		appLog.Error(ctx, "failed to start statistics scheduler", logger.Err(err))
		os.Exit(1)
	}

	api := handler.NewAPI(handler.Services{
		DB:         gdb,
		Engagement: service.NewEngagementService(gdb, appLog),
		Access:     service.NewAccessService(events, articles, appLog),
		Statistics: statistics,
		Dashboard:  service.NewDashboardService(articles, users),
		Task:       task,
		Auth:       service.NewAuthService(users),
		Logger:     appLog,
	})

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	// 设置并运行 Gin 服务器
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.SetupRouter(api, cfg.SessionSecret, appLog),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info(ctx, "http server listening", logger.F("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error(ctx, "http server failed", logger.Err(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(ctx, "http server shutdown failed", logger.Err(err))
	}
	task.Stop(shutdownCtx)
}
