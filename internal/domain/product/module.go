package product

import (
	"barter_market/internal/domain/product/handler"
	"barter_market/internal/domain/product/repository"
	"barter_market/internal/domain/product/service"
	"barter_market/internal/pkg/middleware"
	"barter_market/internal/pkg/registry"
	"barter_market/internal/pkg/worker"
	"barter_market/pkg/cache"

	"github.com/gin-gonic/gin"
)

// ProductModule 商品模块
type ProductModule struct{}

func init() {
	registry.Register(&ProductModule{})
}

func (m *ProductModule) Name() string {
	return "product"
}

func (m *ProductModule) Priority() int {
	return 10
}

func (m *ProductModule) Init(ctx *registry.ModuleContext) error {
	productRepo := repository.NewProductRepository(ctx.DB)
	cacheService := cache.NewRedisCache(ctx.Redis)
	productService := service.NewProductService(productRepo, cacheService, worker.GlobalDispatcher)
	productHandler := handler.NewProductHandler(productService)

	setupRoutes(ctx.Router, productHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.ProductHandler) {
	// 商品浏览无需登录
	public := r.Group("/products")
	{
		public.GET("", h.GetProducts)
		public.GET("/:id", h.GetProduct)
		public.GET("/:id/reviews", h.GetReviews)
	}

	protected := r.Group("/products")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("", h.CreateProduct)
		protected.PUT("/:id", h.UpdateProduct)
		protected.PUT("/:id/offline", h.Offline)
		protected.PUT("/:id/online", h.Online)
		protected.POST("/:id/reviews", h.AddReview)
	}
}
