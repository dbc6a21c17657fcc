package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barter_market/internal/pkg/config"
	"barter_market/internal/pkg/middleware"
	"barter_market/internal/pkg/push"
	"barter_market/internal/pkg/realtime"
	"barter_market/internal/pkg/registry"
	"barter_market/internal/pkg/uploader"
	"barter_market/pkg/database"
	"barter_market/pkg/logger"

	// 各业务模块通过 init() 自注册
	_ "barter_market/internal/domain/common"
	_ "barter_market/internal/domain/notification"
	_ "barter_market/internal/domain/order"
	_ "barter_market/internal/domain/payment"
	_ "barter_market/internal/domain/product"
	_ "barter_market/internal/domain/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger.Init(config.GlobalConfig.App.Debug)
	defer logger.Sync()

	db := database.InitDatabase()
	rdb := database.InitRedis()

	// 可选的云服务，未配置时保持 nil
	if config.GlobalConfig.Push.AppKey != 0 {
		svc, err := push.NewAliyunPushService()
		if err != nil {
			logger.Log.Warn("init push service failed", zap.Error(err))
		} else {
			push.GlobalPushService = svc
		}
	}
	if config.GlobalConfig.OSS.BucketName != "" {
		up, err := uploader.NewAliyunOSSUploader()
		if err != nil {
			logger.Log.Warn("init oss uploader failed", zap.Error(err))
		} else {
			uploader.GlobalUploader = up
		}
	}

	gin.SetMode(config.GlobalConfig.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.RateLimitMiddleware())
	r.Use(cors.Default())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	moduleCtx := &registry.ModuleContext{
		DB:     db,
		Redis:  rdb,
		Router: r,
		Hub:    realtime.NewRedisHub(rdb),
	}
	if err := registry.InitModules(moduleCtx); err != nil {
		logger.Log.Fatal("init modules failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    ":" + config.GlobalConfig.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("forced shutdown", zap.Error(err))
	}
}
