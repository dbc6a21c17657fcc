package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	notificationModel "barter_market/internal/domain/notification/model"
	orderModel "barter_market/internal/domain/order/model"
	orderRepository "barter_market/internal/domain/order/repository"
	"barter_market/internal/domain/payment/model"
	"barter_market/internal/domain/payment/repository"
	"barter_market/internal/domain/payment/strategy"
	"barter_market/internal/pkg/worker"
	"barter_market/pkg/logger"
	baseModel "barter_market/pkg/model"

	"go.uber.org/zap"
)

var (
	ErrUnsupportedChannel = errors.New("unsupported payment channel")
	ErrNotBuyer           = errors.New("only the buyer can pay for this order")
	ErrAlreadyPaid        = errors.New("order is already paid")
	ErrNotOfflineChannel  = errors.New("only offline payments can be confirmed manually")
)

// PaymentService 支付服务接口
type PaymentService interface {
	// CreatePayment 为订单发起支付，线上渠道返回网关支付参数
	CreatePayment(ctx context.Context, buyerID, orderID, channel string) (*model.Payment, string, error)

	// HandleNotify 处理网关回调
	HandleNotify(ctx context.Context, channel string, params interface{}) error

	// ConfirmOffline 卖家确认线下收款（货到付款/转账/以物易物）
	ConfirmOffline(ctx context.Context, sellerID, paymentNo string) error

	GetPayments(ctx context.Context, orderID string) ([]model.Payment, error)

	RegisterStrategy(channel string, strategy strategy.PaymentStrategy)
}

type paymentService struct {
	repo       repository.PaymentRepository
	orderRepo  orderRepository.OrderRepository
	dispatcher worker.Dispatcher
	strategies map[string]strategy.PaymentStrategy
}

func NewPaymentService(repo repository.PaymentRepository, orderRepo orderRepository.OrderRepository, dispatcher worker.Dispatcher) PaymentService {
	return &paymentService{
		repo:       repo,
		orderRepo:  orderRepo,
		dispatcher: dispatcher,
		strategies: make(map[string]strategy.PaymentStrategy),
	}
}

func (s *paymentService) RegisterStrategy(channel string, strategy strategy.PaymentStrategy) {
	s.strategies[channel] = strategy
}

func newPaymentNo() string {
	return "PAY" + time.Now().Format("20060102150405") + baseModel.ShortID()
}

func (s *paymentService) CreatePayment(ctx context.Context, buyerID, orderID, channel string) (*model.Payment, string, error) {
	if !model.IsValidChannel(channel) {
		return nil, "", ErrUnsupportedChannel
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	if order.BuyerID != buyerID {
		return nil, "", ErrNotBuyer
	}
	if order.PaymentStatus == orderModel.PaymentPaid {
		return nil, "", ErrAlreadyPaid
	}

	payment := &model.Payment{
		PaymentNo: newPaymentNo(),
		OrderID:   order.ID,
		OrderNo:   order.OrderNo,
		BuyerID:   buyerID,
		Amount:    order.TotalAmount,
		Channel:   channel,
		Status:    model.PaymentStatusPending,
		Subject:   fmt.Sprintf("订单 %s", order.OrderNo),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, "", err
	}

	// 线下渠道没有网关，支付单挂起等待卖家确认
	if model.IsOfflineChannel(channel) {
		return payment, "", nil
	}

	gateway, ok := s.strategies[channel]
	if !ok {
		return nil, "", ErrUnsupportedChannel
	}

	payParam, err := gateway.Pay(payment.PaymentNo, payment.Amount, payment.Subject)
	if err != nil {
		if updateErr := s.repo.UpdateStatus(ctx, payment.PaymentNo, model.PaymentStatusFailed, nil, nil); updateErr != nil {
			logger.Log.Error("mark payment failed error",
				zap.String("payment_no", payment.PaymentNo),
				zap.Error(updateErr),
			)
		}
		return nil, "", err
	}

	return payment, payParam, nil
}

func (s *paymentService) HandleNotify(ctx context.Context, channel string, params interface{}) error {
	gateway, ok := s.strategies[channel]
	if !ok {
		return ErrUnsupportedChannel
	}

	paymentNo, amount, success, err := gateway.Notify(params)
	if err != nil {
		return err
	}

	payment, err := s.repo.GetByPaymentNo(ctx, paymentNo)
	if err != nil {
		return err
	}

	// 金额不一致视为异常回调，拒绝处理
	if success && !amount.Equal(payment.Amount) {
		logger.Log.Error("notify amount mismatch",
			zap.String("payment_no", paymentNo),
			zap.String("expected", payment.Amount.String()),
			zap.String("got", amount.String()),
		)
		return errors.New("notify amount mismatch")
	}

	if !success {
		return s.repo.UpdateStatus(ctx, paymentNo, model.PaymentStatusFailed, nil, nil)
	}

	// 重复回调幂等处理
	if payment.Status == model.PaymentStatusPaid {
		return nil
	}

	return s.markPaid(ctx, payment, params)
}

func (s *paymentService) ConfirmOffline(ctx context.Context, sellerID, paymentNo string) error {
	payment, err := s.repo.GetByPaymentNo(ctx, paymentNo)
	if err != nil {
		return err
	}
	if !model.IsOfflineChannel(payment.Channel) {
		return ErrNotOfflineChannel
	}

	order, err := s.orderRepo.GetByID(ctx, payment.OrderID)
	if err != nil {
		return err
	}
	if order.SellerID != sellerID {
		return errors.New("only the seller can confirm this payment")
	}

	if payment.Status == model.PaymentStatusPaid {
		return nil
	}
	return s.markPaid(ctx, payment, nil)
}

func (s *paymentService) GetPayments(ctx context.Context, orderID string) ([]model.Payment, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

func (s *paymentService) markPaid(ctx context.Context, payment *model.Payment, rawParams interface{}) error {
	now := time.Now()
	var extra json.RawMessage
	if rawParams != nil {
		extra, _ = json.Marshal(rawParams)
	}

	if err := s.repo.UpdateStatus(ctx, payment.PaymentNo, model.PaymentStatusPaid, &now, extra); err != nil {
		return err
	}

	// 同步订单支付状态
	if err := s.orderRepo.UpdatePaymentStatus(ctx, payment.OrderID, orderModel.PaymentPaid); err != nil {
		logger.Log.Error("sync order payment status failed",
			zap.String("order_id", payment.OrderID),
			zap.Error(err),
		)
		return err
	}

	s.notifyPaid(ctx, payment)
	return nil
}

// notifyPaid 买卖双方都会收到支付成功通知，通知失败不影响支付结果
func (s *paymentService) notifyPaid(ctx context.Context, payment *model.Payment) {
	if s.dispatcher == nil {
		return
	}

	payload := map[string]string{
		"orderId":   payment.OrderID,
		"orderNo":   payment.OrderNo,
		"paymentNo": payment.PaymentNo,
	}

	s.dispatcher.Dispatch(worker.NotificationTask{
		RecipientID: payment.BuyerID,
		Type:        notificationModel.TypePaymentUpdate,
		Title:       "支付成功",
		Message:     fmt.Sprintf("订单 %s 已支付，金额 %s", payment.OrderNo, payment.Amount.StringFixed(2)),
		Payload:     payload,
	})

	order, err := s.orderRepo.GetByID(ctx, payment.OrderID)
	if err != nil {
		logger.Log.Warn("load order for seller notify failed",
			zap.String("order_id", payment.OrderID),
			zap.Error(err),
		)
		return
	}
	s.dispatcher.Dispatch(worker.NotificationTask{
		RecipientID: order.SellerID,
		Type:        notificationModel.TypePaymentUpdate,
		Title:       "买家已付款",
		Message:     fmt.Sprintf("订单 %s 买家已付款，请尽快发货", payment.OrderNo),
		Payload:     payload,
	})
}
