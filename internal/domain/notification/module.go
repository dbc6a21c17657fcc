package notification

import (
	"barter_market/internal/domain/notification/handler"
	"barter_market/internal/domain/notification/repository"
	"barter_market/internal/domain/notification/service"
	"barter_market/internal/pkg/email"
	"barter_market/internal/pkg/middleware"
	"barter_market/internal/pkg/registry"
	"barter_market/internal/pkg/worker"

	"github.com/gin-gonic/gin"
)

// NotificationModule 通知模块
type NotificationModule struct{}

func init() {
	registry.Register(&NotificationModule{})
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) Priority() int {
	// 其他模块在 Init 时捕获全局分发器，必须最先就绪
	return 1
}

func (m *NotificationModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewNotificationRepository(ctx.DB)

	// 初始化全局分发器 (5个 Worker，缓冲队列 1000)
	pool := worker.NewNotificationPool(repo, email.NewSender(), 5, 1000)
	pool.Start()
	worker.GlobalDispatcher = pool

	notificationService := service.NewNotificationService(repo)
	notificationHandler := handler.NewNotificationHandler(notificationService)

	setupRoutes(ctx.Router, notificationHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.NotificationHandler) {
	g := r.Group("/notifications")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("/", h.GetNotifications)
		g.GET("/unread-count", h.UnreadCount)
		g.PUT("/:id/read", h.MarkRead)
		g.PUT("/read-all", h.MarkAllRead)
	}
}
