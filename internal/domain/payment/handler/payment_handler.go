package handler

import (
	"errors"
	"net/http"

	"barter_market/internal/domain/payment/service"
	"barter_market/internal/pkg/middleware"
	"barter_market/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PaymentHandler struct {
	service service.PaymentService
}

func NewPaymentHandler(s service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: s}
}

// CreatePaymentInput 发起支付
type CreatePaymentInput struct {
	OrderID string `json:"orderId" binding:"required"`
	Channel string `json:"channel" binding:"required"`
}

// CreatePayment 为订单发起支付
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var input CreatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	payment, payParam, err := h.service.CreatePayment(c.Request.Context(), middleware.CurrentUserID(c), input.OrderID, input.Channel)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedChannel):
			response.Error(c, http.StatusBadRequest, response.ErrPaymentChannel, err.Error())
		case errors.Is(err, service.ErrNotBuyer):
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, err.Error())
		case errors.Is(err, service.ErrAlreadyPaid):
			response.Fail(c, response.ErrPaymentState, err.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "order not found")
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, gin.H{
		"paymentNo": payment.PaymentNo,
		"payParam":  payParam,
	})
}

// GetPayments 订单的支付记录
func (h *PaymentHandler) GetPayments(c *gin.Context) {
	payments, err := h.service.GetPayments(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		response.ServerError(c, "failed to fetch payments")
		return
	}
	response.Success(c, payments)
}

// ConfirmOffline 卖家确认线下收款
func (h *PaymentHandler) ConfirmOffline(c *gin.Context) {
	err := h.service.ConfirmOffline(c.Request.Context(), middleware.CurrentUserID(c), c.Param("paymentNo"))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.Error(c, http.StatusNotFound, response.ErrPaymentNotFound, "payment not found")
		case errors.Is(err, service.ErrNotOfflineChannel):
			response.Fail(c, response.ErrPaymentState, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}
	response.Success(c, true)
}

// AlipayNotify 支付宝回调，POST Form 格式
func (h *PaymentHandler) AlipayNotify(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusOK, "fail")
		return
	}
	if err := h.service.HandleNotify(c.Request.Context(), "alipay", c.Request.Form); err != nil {
		// 返回 fail 后支付宝会重试
		c.String(http.StatusOK, "fail")
		return
	}
	c.String(http.StatusOK, "success")
}

// WechatNotify 微信支付回调，验签需要完整的 *http.Request
func (h *PaymentHandler) WechatNotify(c *gin.Context) {
	if err := h.service.HandleNotify(c.Request.Context(), "wechat", c.Request); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "FAIL", "message": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}
