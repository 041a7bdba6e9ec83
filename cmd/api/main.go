package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"task-manager-api/internal/core/cache"
	"task-manager-api/internal/core/config"
	"task-manager-api/internal/core/database"
	"task-manager-api/internal/core/logger"
	"task-manager-api/internal/core/ratelimit"
	"task-manager-api/internal/core/server"
	"task-manager-api/internal/repo"
	"task-manager-api/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}

	log, cleanup := newLogger(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	gin.DefaultErrorWriter = logger.ToWriter(log, zapcore.ErrorLevel)
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 数据库（失败直接退出）
	ctx := context.Background()
	store, err := repo.Open(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("database open failed", zap.String("driver", cfg.DB.Driver), zap.String("dsn", database.MaskDSN(cfg.DB.DSN)), zap.Error(err))
	}
	defer func() { _ = store.Close(context.Background()) }()
	log.Info("database connected", zap.String("driver", cfg.DB.Driver), zap.String("dsn", database.MaskDSN(cfg.DB.DSN)))

	// 限流计数
	limiter, rdb := mustLimiter(ctx, cfg, log)
	if rdb != nil {
		defer rdb.Close()
	}

	r := router.NewAPIEngine(router.Deps{
		Log:     log,
		Store:   store,
		Limiter: limiter,
		HTTP:    cfg.App.HTTP,
		JWT:     cfg.JWT,
		Limit:   cfg.RateLimit,
	})

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("task api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("ratelimit_store", cfg.RateLimit.Store),
	)

	// 异步启动
	go func() {
		if err := server.StartHTTP(srv, log); err != nil {
			log.Fatal("task api start FAILED", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	if err := server.Shutdown(srv, 10*time.Second); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
	log.Info("task api stopped gracefully")
}

func newLogger(c config.Log) (*zap.Logger, func()) {
	if c.File == "" {
		return logger.New(c.Level, c.JSON)
	}
	return logger.NewWithRotate(c.Level, c.JSON, c.File, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays, c.Compress)
}

func mustLimiter(ctx context.Context, cfg *config.Config, l *zap.Logger) (ratelimit.Store, *redis.Client) {
	if cfg.RateLimit.Store != "redis" {
		return ratelimit.NewMemoryStore(), nil
	}
	rdb, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		l.Fatal("redis connect failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	return ratelimit.NewRedisStore(rdb, cfg.App.Name+":ratelimit:"), rdb
}
