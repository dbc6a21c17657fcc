package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"barter_market/internal/domain/order/model"
	"barter_market/internal/domain/order/service"
	"barter_market/internal/pkg/middleware"
	"barter_market/internal/pkg/realtime"
	"barter_market/pkg/logger"
	"barter_market/pkg/response"
	"barter_market/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderHandler 订单处理器
type OrderHandler struct {
	service service.OrderService
	hub     realtime.Hub
}

func NewOrderHandler(svc service.OrderService, hub realtime.Hub) *OrderHandler {
	return &OrderHandler{service: svc, hub: hub}
}

// CreateOrderRequest 下单请求体，buyerId 取自登录态
type CreateOrderRequest struct {
	SellerID        string                         `json:"sellerId" binding:"required"`
	Items           []service.CreateOrderItemInput `json:"items" binding:"required"`
	ShippingFee     decimal.Decimal                `json:"shippingFee"`
	TaxAmount       decimal.Decimal                `json:"taxAmount"`
	ShippingAddress model.ShippingAddress          `json:"shippingAddress" binding:"required"`
	ShippingContact model.ShippingContact          `json:"shippingContact" binding:"required"`
	PaymentMethod   string                         `json:"paymentMethod" binding:"required"`
	Notes           string                         `json:"notes"`
}

// UpdateStatusRequest 状态流转请求体
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// CreateOrder 创建订单
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	input := service.CreateOrderInput{
		BuyerID:         middleware.CurrentUserID(c),
		SellerID:        req.SellerID,
		Items:           req.Items,
		ShippingFee:     req.ShippingFee,
		TaxAmount:       req.TaxAmount,
		ShippingAddress: req.ShippingAddress,
		ShippingContact: req.ShippingContact,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}

	order, err := h.service.CreateOrder(c.Request.Context(), input)
	if err != nil {
		if model.IsValidationError(err) {
			response.Error(c, http.StatusBadRequest, response.ErrOrderValidation, err.Error())
			return
		}
		logger.Log.Error("create order failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.ErrOrderCreateFailed, "failed to create order")
		return
	}

	response.Success(c, order)
}

// GetOrders 订单列表，按角色过滤
func (h *OrderHandler) GetOrders(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	_, limit := p.Normalize()

	query := service.OrderQuery{
		UserID:        middleware.CurrentUserID(c),
		Role:          c.DefaultQuery("role", "buyer"),
		Status:        c.Query("status"),
		PaymentStatus: c.Query("paymentStatus"),
		PaymentMethod: c.Query("paymentMethod"),
		DateFrom:      c.Query("dateFrom"),
		DateTo:        c.Query("dateTo"),
		Page:          p.Page,
		Limit:         limit,
	}

	orders, total, err := h.service.GetOrders(c.Request.Context(), query)
	if err != nil {
		if model.IsValidationError(err) {
			response.Error(c, http.StatusBadRequest, response.ErrOrderValidation, err.Error())
			return
		}
		response.ServerError(c, "failed to fetch orders")
		return
	}

	response.Success(c, utils.PageResult{
		List:  orders,
		Total: total,
		Page:  query.Page,
		Limit: limit,
	})
}

// GetOrder 订单详情，仅买卖双方可见
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "order not found")
			return
		}
		response.ServerError(c, "failed to fetch order")
		return
	}

	userID := middleware.CurrentUserID(c)
	if order.BuyerID != userID && order.SellerID != userID {
		response.Error(c, http.StatusForbidden, response.ErrNoPermission, "not your order")
		return
	}

	response.Success(c, order)
}

// UpdateStatus 状态流转，合法性由数据库校验，错误原样返回
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	status, err := model.ToOrderStatus(req.Status)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrOrderValidation, err.Error())
		return
	}

	order, err := h.service.UpdateOrderStatus(c.Request.Context(), c.Param("id"), status, middleware.CurrentUserID(c), req.Notes)
	if err != nil {
		response.Fail(c, response.ErrOrderTransition, err.Error())
		return
	}

	response.Success(c, order)
}

// StreamEvents SSE 推送订单变更
// 状态变化推 status 事件，历史新增推 refresh 事件提示客户端整单重取
func (h *OrderHandler) StreamEvents(c *gin.Context) {
	orderID := c.Param("id")

	order, err := h.service.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "order not found")
		return
	}
	userID := middleware.CurrentUserID(c)
	if order.BuyerID != userID && order.SellerID != userID {
		response.Error(c, http.StatusForbidden, response.ErrNoPermission, "not your order")
		return
	}

	sub, err := h.hub.Subscribe(c.Request.Context(), orderID)
	if err != nil {
		response.ServerError(c, "subscribe failed")
		return
	}
	defer sub.Close()

	out := streamOrderEvents(c.Request.Context(), sub, orderID, string(order.Status))

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-out:
			if !ok {
				return false
			}
			c.SSEvent(ev.name, ev.data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type sseEvent struct {
	name string
	data interface{}
}

// streamOrderEvents 把订阅到的订单变更转成 SSE 事件流
// 回调里的发送必须同时监听 ctx：客户端断开后没有人再读 out，
// 阻塞发送会让监听协程泄漏，订阅关闭后也到不了 close(out)
func streamOrderEvents(ctx context.Context, sub *realtime.Subscription, orderID, currentStatus string) <-chan sseEvent {
	out := make(chan sseEvent, 16)

	emit := func(ev sseEvent) {
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}

	listener := realtime.NewOrderListener(orderID, currentStatus,
		func(status, message string) {
			emit(sseEvent{name: "status", data: gin.H{"status": status, "message": message}})
		},
		func(orderID string) {
			emit(sseEvent{name: "refresh", data: gin.H{"orderId": orderID}})
		},
	)

	go func() {
		listener.Run(sub)
		close(out)
	}()

	return out
}
