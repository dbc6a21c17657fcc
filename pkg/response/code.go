package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 用户模块错误 100xx
	ErrUserExists   = 10001
	ErrUserNotFound = 10002
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 商品模块错误 200xx
	ErrProductNotFound = 20001
	ErrProductOffline  = 20002
	ErrReviewInvalid   = 20003

	// 订单模块错误 300xx
	ErrOrderNotFound     = 30001
	ErrOrderValidation   = 30002
	ErrOrderTransition   = 30003
	ErrOrderCreateFailed = 30004
	ErrOrderReloadFailed = 30005

	// 支付模块错误 400xx
	ErrPaymentChannel  = 40001
	ErrPaymentNotFound = 40002
	ErrPaymentState    = 40003

	// 通知模块错误 600xx
	ErrNotificationNotFound = 60001

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
