package user

import (
	"barter_market/internal/domain/user/handler"
	"barter_market/internal/domain/user/repository"
	"barter_market/internal/domain/user/service"
	"barter_market/internal/pkg/middleware"
	"barter_market/internal/pkg/otp"
	"barter_market/internal/pkg/registry"
	"barter_market/internal/pkg/worker"
	"barter_market/pkg/kvstore"

	"github.com/gin-gonic/gin"
)

// UserModule 用户模块
type UserModule struct{}

func init() {
	registry.Register(&UserModule{})
}

func (m *UserModule) Name() string {
	return "user"
}

func (m *UserModule) Priority() int {
	// 晚于 notification，早于业务模块
	return 5
}

func (m *UserModule) Init(ctx *registry.ModuleContext) error {
	userRepo := repository.NewUserRepository(ctx.DB)
	otpService := otp.NewOTPService(kvstore.NewRedisStore(ctx.Redis, "otp"))
	userService := service.NewUserService(userRepo, otpService, worker.GlobalDispatcher)
	userHandler := handler.NewUserHandler(userService)

	setupRoutes(ctx.Router, userHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.UserHandler) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/otp", h.SendOTP)
		authGroup.POST("/login", h.LoginOrRegister)
	}

	userGroup := r.Group("/users")
	userGroup.Use(middleware.AuthMiddleware())
	{
		userGroup.GET("", h.GetUsers)
		userGroup.GET("/me", h.GetProfile)
		userGroup.PUT("/me", h.UpdateProfile)
		userGroup.DELETE("/me", h.DeleteAccount)
		userGroup.POST("/me/store", h.BecomeSeller)
		userGroup.GET("/:id", h.GetUser)
		userGroup.POST("/:id/follow", h.Follow)
		userGroup.DELETE("/:id/follow", h.Unfollow)
		userGroup.GET("/:id/followers", h.GetFollowers)
	}
}
