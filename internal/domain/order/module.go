package order

import (
	"barter_market/internal/domain/order/handler"
	"barter_market/internal/domain/order/repository"
	"barter_market/internal/domain/order/service"
	"barter_market/internal/pkg/middleware"
	"barter_market/internal/pkg/registry"
	"barter_market/internal/pkg/worker"

	"github.com/gin-gonic/gin"
)

// OrderModule 订单模块
type OrderModule struct{}

func init() {
	registry.Register(&OrderModule{})
}

func (m *OrderModule) Name() string {
	return "order"
}

func (m *OrderModule) Priority() int {
	// 晚于 notification，通知分发器在那里装配
	return 20
}

func (m *OrderModule) Init(ctx *registry.ModuleContext) error {
	orderRepo := repository.NewOrderRepository(ctx.DB)
	orderService := service.NewOrderService(orderRepo, worker.GlobalDispatcher, ctx.Hub)
	orderHandler := handler.NewOrderHandler(orderService, ctx.Hub)

	setupRoutes(ctx.Router, orderHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.OrderHandler) {
	orders := r.Group("/orders")
	orders.Use(middleware.AuthMiddleware())
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.GetOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PUT("/:id/status", h.UpdateStatus)
		orders.GET("/:id/events", h.StreamEvents) // SSE
	}
}
