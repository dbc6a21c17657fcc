package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	notificationModel "barter_market/internal/domain/notification/model"
	"barter_market/internal/domain/order/model"
	"barter_market/internal/domain/order/repository"
	"barter_market/internal/pkg/realtime"
	"barter_market/internal/pkg/worker"
	"barter_market/pkg/logger"
	"barter_market/pkg/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateOrderItemInput 下单时的单个商品行
type CreateOrderItemInput struct {
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
}

// CreateOrderInput 下单参数
type CreateOrderInput struct {
	BuyerID         string                 `json:"buyerId"`
	SellerID        string                 `json:"sellerId"`
	Items           []CreateOrderItemInput `json:"items"`
	ShippingFee     decimal.Decimal        `json:"shippingFee"`
	TaxAmount       decimal.Decimal        `json:"taxAmount"`
	ShippingAddress model.ShippingAddress  `json:"shippingAddress"`
	ShippingContact model.ShippingContact  `json:"shippingContact"`
	PaymentMethod   string                 `json:"paymentMethod"`
	Notes           string                 `json:"notes"`
}

// OrderQuery 订单列表查询
type OrderQuery struct {
	UserID        string
	Role          string // buyer | seller
	Status        string
	PaymentStatus string
	PaymentMethod string
	DateFrom      string // RFC3339，空串忽略
	DateTo        string
	Page          int
	Limit         int
}

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, target model.OrderStatus, actorID, notes string) (*model.Order, error)
	GetOrders(ctx context.Context, query OrderQuery) ([]model.Order, int64, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
}

type orderService struct {
	repo       repository.OrderRepository
	dispatcher worker.Dispatcher
	hub        realtime.Hub
}

// NewOrderService 创建订单服务
// dispatcher 和 hub 都是尽力而为的旁路通道，不影响主流程结果
func NewOrderService(repo repository.OrderRepository, dispatcher worker.Dispatcher, hub realtime.Hub) OrderService {
	return &orderService{
		repo:       repo,
		dispatcher: dispatcher,
		hub:        hub,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*model.Order, error) {
	// 1. 参数校验，任何远程调用之前完成
	if err := validateCreateOrder(input); err != nil {
		metrics.GetGlobalCollector().RecordOrderCreateFailure("validation")
		return nil, err
	}

	// 2. 金额计算: subtotal = Σ 单价×数量, total = subtotal + 运费 + 税
	subtotal := decimal.Zero
	items := make([]model.OrderItem, 0, len(input.Items))
	for _, in := range input.Items {
		lineTotal := in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, model.OrderItem{
			ProductID:    in.ProductID,
			ProductName:  in.ProductName,
			ProductImage: in.ProductImage,
			UnitPrice:    in.UnitPrice,
			Quantity:     in.Quantity,
			LineTotal:    lineTotal,
		})
	}
	total := subtotal.Add(input.ShippingFee).Add(input.TaxAmount)

	// 3. 订单号来自数据库 generate_order_number()
	orderNo, err := s.repo.GenerateOrderNumber(ctx)
	if err != nil {
		metrics.GetGlobalCollector().RecordOrderCreateFailure("order_number")
		return nil, err
	}

	order := &model.Order{
		OrderNo:         orderNo,
		BuyerID:         input.BuyerID,
		SellerID:        input.SellerID,
		Subtotal:        subtotal,
		ShippingFee:     input.ShippingFee,
		TaxAmount:       input.TaxAmount,
		TotalAmount:     total,
		Status:          model.StatusReview,
		PaymentStatus:   model.PaymentPending,
		PaymentMethod:   input.PaymentMethod,
		ShippingAddress: input.ShippingAddress,
		ShippingContact: input.ShippingContact,
		Notes:           input.Notes,
	}

	// 4. 先写订单头，再写订单行
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		metrics.GetGlobalCollector().RecordOrderCreateFailure("header_insert")
		return nil, err
	}

	for i := range items {
		items[i].OrderID = order.ID
	}
	if err := s.repo.CreateItems(ctx, items); err != nil {
		// 补偿删除订单头，避免留下空订单
		// 非事务操作：两步之间进程崩溃仍可能留下孤儿订单头
		if delErr := s.repo.DeleteOrder(ctx, order.ID); delErr != nil {
			logger.Log.Error("compensating delete failed, orphaned order header left behind",
				zap.String("order_id", order.ID),
				zap.Error(delErr),
			)
		}
		metrics.GetGlobalCollector().RecordOrderCreateFailure("items_insert")
		return nil, err
	}
	order.Items = items

	metrics.GetGlobalCollector().RecordOrderCreated()

	// 5. 通知卖家有新订单，失败不影响下单结果
	s.notify(worker.NotificationTask{
		RecipientID: order.SellerID,
		Type:        notificationModel.TypeNewOrderReceived,
		Title:       "您有新订单",
		Message:     fmt.Sprintf("订单 %s 已创建，共 %d 件商品，金额 %s", order.OrderNo, len(order.Items), order.TotalAmount.StringFixed(2)),
		Payload: map[string]string{
			"orderId": order.ID,
			"orderNo": order.OrderNo,
		},
	})

	return order, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID string, target model.OrderStatus, actorID, notes string) (*model.Order, error) {
	// 流转合法性由数据库 update_order_status 校验，错误原样返回
	if err := s.repo.ApplyStatusTransition(ctx, orderID, target, actorID, notes); err != nil {
		metrics.GetGlobalCollector().RecordStatusTransition(string(target), "rejected")
		return nil, err
	}
	metrics.GetGlobalCollector().RecordStatusTransition(string(target), "applied")

	// 流转已生效但重取失败：不回滚，只能返回笼统错误
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("status updated but failed to reload order %s: %w", orderID, err)
	}

	// 通知未发起操作的一方
	recipient := order.SellerID
	if actorID == order.SellerID {
		recipient = order.BuyerID
	}
	s.notify(worker.NotificationTask{
		RecipientID: recipient,
		Type:        notificationModel.TypeOrderStatusUpdate,
		Title:       "订单状态更新",
		Message:     realtime.StatusMessage(string(target)),
		Payload: map[string]string{
			"orderId": order.ID,
			"orderNo": order.OrderNo,
			"status":  string(target),
		},
	})

	s.publishStatusChange(ctx, order, actorID, notes)

	return order, nil
}

func (s *orderService) GetOrders(ctx context.Context, query OrderQuery) ([]model.Order, int64, error) {
	filter, err := buildFilter(query)
	if err != nil {
		return nil, 0, err
	}

	page, limit := query.Page, query.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	return s.repo.GetList(ctx, filter, (page-1)*limit, limit)
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// notify 入队通知，dispatcher 未初始化时静默跳过
func (s *orderService) notify(task worker.NotificationTask) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(task)
}

// publishStatusChange 推送实时变更事件给订阅了该订单的客户端
func (s *orderService) publishStatusChange(ctx context.Context, order *model.Order, actorID, notes string) {
	if s.hub == nil {
		return
	}

	rowPayload, _ := json.Marshal(map[string]interface{}{
		"id":             order.ID,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	})
	if err := s.hub.Publish(ctx, order.ID, realtime.Event{
		Event:   realtime.EventUpdate,
		Table:   realtime.TableOrders,
		OrderID: order.ID,
		New:     rowPayload,
	}); err != nil {
		logger.Log.Warn("failed to publish order update event", zap.String("order_id", order.ID), zap.Error(err))
	}

	historyPayload, _ := json.Marshal(map[string]interface{}{
		"order_id":   order.ID,
		"status":     order.Status,
		"changed_by": actorID,
		"notes":      notes,
	})
	if err := s.hub.Publish(ctx, order.ID, realtime.Event{
		Event:   realtime.EventInsert,
		Table:   realtime.TableStatusHistory,
		OrderID: order.ID,
		New:     historyPayload,
	}); err != nil {
		logger.Log.Warn("failed to publish history event", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func validateCreateOrder(input CreateOrderInput) error {
	if input.BuyerID == "" {
		return &model.ValidationError{Field: "buyerId"}
	}
	if input.SellerID == "" {
		return &model.ValidationError{Field: "sellerId"}
	}
	if len(input.Items) == 0 {
		return &model.ValidationError{Field: "items"}
	}
	for _, item := range input.Items {
		if item.ProductID == "" {
			return &model.ValidationError{Field: "items.productId"}
		}
		if item.Quantity <= 0 {
			return &model.ValidationError{Field: "items.quantity"}
		}
	}
	if input.ShippingAddress.Line1 == "" {
		return &model.ValidationError{Field: "shippingAddress.line1"}
	}
	if input.ShippingAddress.City == "" {
		return &model.ValidationError{Field: "shippingAddress.city"}
	}
	if input.ShippingContact.Name == "" {
		return &model.ValidationError{Field: "shippingContact.name"}
	}
	if input.ShippingContact.Phone == "" {
		return &model.ValidationError{Field: "shippingContact.phone"}
	}
	if input.PaymentMethod == "" {
		return &model.ValidationError{Field: "paymentMethod"}
	}
	if !model.IsValidPaymentMethod(input.PaymentMethod) {
		return &model.ValidationError{Field: "paymentMethod"}
	}
	return nil
}

// parseDate 接受 RFC3339 或 2006-01-02
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func buildFilter(query OrderQuery) (repository.OrderFilter, error) {
	var filter repository.OrderFilter

	if query.UserID == "" {
		return filter, &model.ValidationError{Field: "userId"}
	}
	switch query.Role {
	case "buyer":
		filter.BuyerID = query.UserID
	case "seller":
		filter.SellerID = query.UserID
	default:
		return filter, &model.ValidationError{Field: "role"}
	}

	if query.Status != "" {
		status, err := model.ToOrderStatus(query.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	if query.PaymentStatus != "" {
		filter.PaymentStatus = model.PaymentStatus(query.PaymentStatus)
	}
	if query.PaymentMethod != "" {
		filter.PaymentMethod = query.PaymentMethod
	}

	if query.DateFrom != "" {
		t, err := parseDate(query.DateFrom)
		if err != nil {
			return filter, &model.ValidationError{Field: "dateFrom"}
		}
		filter.CreatedAfter = &t
	}
	if query.DateTo != "" {
		t, err := parseDate(query.DateTo)
		if err != nil {
			return filter, &model.ValidationError{Field: "dateTo"}
		}
		filter.CreatedBefore = &t
	}

	return filter, nil
}
