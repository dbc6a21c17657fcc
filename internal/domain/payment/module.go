package payment

import (
	orderRepository "barter_market/internal/domain/order/repository"
	"barter_market/internal/domain/payment/handler"
	"barter_market/internal/domain/payment/repository"
	"barter_market/internal/domain/payment/service"
	"barter_market/internal/domain/payment/strategy"
	"barter_market/internal/pkg/config"
	"barter_market/internal/pkg/middleware"
	"barter_market/internal/pkg/registry"
	"barter_market/internal/pkg/worker"
	"barter_market/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentModule 支付模块
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	// 依赖订单模块的数据层
	return 30
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	pRepo := repository.NewPaymentRepository(ctx.DB)
	oRepo := orderRepository.NewOrderRepository(ctx.DB)

	pService := service.NewPaymentService(pRepo, oRepo, worker.GlobalDispatcher)

	// 线上渠道按配置注册，线下渠道（cod/bank_transfer/barter）无需网关
	if config.GlobalConfig.Alipay.AppID != "" {
		alipayStrategy, err := strategy.NewAlipayStrategy()
		if err != nil {
			logger.Log.Error("init alipay strategy failed", zap.Error(err))
		} else {
			pService.RegisterStrategy("alipay", alipayStrategy)
		}
	}

	if config.GlobalConfig.Wechat.MchID != "" {
		wechatStrategy, err := strategy.NewWechatStrategy()
		if err != nil {
			logger.Log.Error("init wechat strategy failed", zap.Error(err))
		} else {
			pService.RegisterStrategy("wechat", wechatStrategy)
		}
	}

	pHandler := handler.NewPaymentHandler(pService)

	setupRoutes(ctx.Router, pHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.PaymentHandler) {
	g := r.Group("/payments")

	// 网关回调无需登录，验签在策略内完成
	g.POST("/notify/alipay", h.AlipayNotify)
	g.POST("/notify/wechat", h.WechatNotify)

	auth := g.Group("")
	auth.Use(middleware.AuthMiddleware())
	{
		auth.POST("", h.CreatePayment)
		auth.GET("/order/:orderId", h.GetPayments)
		auth.PUT("/:paymentNo/confirm", h.ConfirmOffline)
	}
}
