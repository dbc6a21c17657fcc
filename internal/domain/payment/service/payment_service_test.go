package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	notificationModel "barter_market/internal/domain/notification/model"
	orderModel "barter_market/internal/domain/order/model"
	orderRepository "barter_market/internal/domain/order/repository"
	"barter_market/internal/domain/payment/model"
	"barter_market/internal/pkg/worker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockPaymentRepository is a mock of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByPaymentNo(ctx context.Context, paymentNo string) (*model.Payment, error) {
	args := m.Called(ctx, paymentNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID string) ([]model.Payment, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, paymentNo, status string, paidAt *time.Time, extra json.RawMessage) error {
	args := m.Called(ctx, paymentNo, status, paidAt, extra)
	return args.Error(0)
}

// MockOrderRepository is a mock of the order domain repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, order *orderModel.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateItems(ctx context.Context, items []orderModel.OrderItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockOrderRepository) DeleteOrder(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, orderID string) (*orderModel.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderModel.Order), args.Error(1)
}

func (m *MockOrderRepository) GetList(ctx context.Context, filter orderRepository.OrderFilter, offset, limit int) ([]orderModel.Order, int64, error) {
	args := m.Called(ctx, filter, offset, limit)
	return args.Get(0).([]orderModel.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) ApplyStatusTransition(ctx context.Context, orderID string, status orderModel.OrderStatus, changedBy, notes string) error {
	args := m.Called(ctx, orderID, status, changedBy, notes)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdatePaymentStatus(ctx context.Context, orderID string, status orderModel.PaymentStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

// fakeStrategy 测试网关
type fakeStrategy struct {
	payParam  string
	payErr    error
	paymentNo string
	amount    decimal.Decimal
	success   bool
	notifyErr error
}

func (f *fakeStrategy) Pay(string, decimal.Decimal, string) (string, error) {
	return f.payParam, f.payErr
}

func (f *fakeStrategy) Notify(interface{}) (string, decimal.Decimal, bool, error) {
	return f.paymentNo, f.amount, f.success, f.notifyErr
}

type recordingDispatcher struct {
	tasks []worker.NotificationTask
}

func (d *recordingDispatcher) Dispatch(task worker.NotificationTask) {
	d.tasks = append(d.tasks, task)
}

func testOrder() *orderModel.Order {
	o := &orderModel.Order{
		OrderNo:       "ORD100",
		BuyerID:       "buyer-1",
		SellerID:      "seller-1",
		TotalAmount:   decimal.NewFromInt(218),
		PaymentStatus: orderModel.PaymentPending,
	}
	o.ID = "order-1"
	return o
}

func testPayment(channel, status string) *model.Payment {
	p := &model.Payment{
		PaymentNo: "PAY100",
		OrderID:   "order-1",
		OrderNo:   "ORD100",
		BuyerID:   "buyer-1",
		Amount:    decimal.NewFromInt(218),
		Channel:   channel,
		Status:    status,
	}
	p.ID = "payment-1"
	return p
}

func TestCreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Offline channel needs no gateway", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		mockOrders := new(MockOrderRepository)
		svc := NewPaymentService(mockRepo, mockOrders, nil)

		mockOrders.On("GetByID", ctx, "order-1").Return(testOrder(), nil)
		mockRepo.On("Create", ctx, mock.AnythingOfType("*model.Payment")).Return(nil)

		payment, payParam, err := svc.CreatePayment(ctx, "buyer-1", "order-1", model.ChannelCOD)

		assert.NoError(t, err)
		assert.Empty(t, payParam)
		assert.Equal(t, model.PaymentStatusPending, payment.Status)
		assert.True(t, payment.Amount.Equal(decimal.NewFromInt(218)), "amount comes from the order")
	})

	t.Run("Online channel returns gateway param", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		mockOrders := new(MockOrderRepository)
		svc := NewPaymentService(mockRepo, mockOrders, nil)
		svc.RegisterStrategy(model.ChannelAlipay, &fakeStrategy{payParam: "signed-params"})

		mockOrders.On("GetByID", ctx, "order-1").Return(testOrder(), nil)
		mockRepo.On("Create", ctx, mock.AnythingOfType("*model.Payment")).Return(nil)

		_, payParam, err := svc.CreatePayment(ctx, "buyer-1", "order-1", model.ChannelAlipay)

		assert.NoError(t, err)
		assert.Equal(t, "signed-params", payParam)
	})

	t.Run("Gateway failure marks payment failed", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		mockOrders := new(MockOrderRepository)
		svc := NewPaymentService(mockRepo, mockOrders, nil)
		svc.RegisterStrategy(model.ChannelAlipay, &fakeStrategy{payErr: errors.New("gateway down")})

		mockOrders.On("GetByID", ctx, "order-1").Return(testOrder(), nil)
		mockRepo.On("Create", ctx, mock.AnythingOfType("*model.Payment")).Return(nil)
		mockRepo.On("UpdateStatus", ctx, mock.AnythingOfType("string"), model.PaymentStatusFailed, (*time.Time)(nil), json.RawMessage(nil)).Return(nil)

		_, _, err := svc.CreatePayment(ctx, "buyer-1", "order-1", model.ChannelAlipay)

		assert.ErrorContains(t, err, "gateway down")
		mockRepo.AssertExpectations(t)
	})

	t.Run("Non-buyer rejected", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		mockOrders := new(MockOrderRepository)
		svc := NewPaymentService(mockRepo, mockOrders, nil)

		mockOrders.On("GetByID", ctx, "order-1").Return(testOrder(), nil)

		_, _, err := svc.CreatePayment(ctx, "someone-else", "order-1", model.ChannelCOD)

		assert.ErrorIs(t, err, ErrNotBuyer)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Already paid order rejected", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		mockOrders := new(MockOrderRepository)
		svc := NewPaymentService(mockRepo, mockOrders, nil)

		order := testOrder()
		order.PaymentStatus = orderModel.PaymentPaid
		mockOrders.On("GetByID", ctx, "order-1").Return(order, nil)

		_, _, err := svc.CreatePayment(ctx, "buyer-1", "order-1", model.ChannelCOD)

		assert.ErrorIs(t, err, ErrAlreadyPaid)
	})

	t.Run("Unknown channel rejected", func(t *testing.T) {
		svc := NewPaymentService(new(MockPaymentRepository), new(MockOrderRepository), nil)

		_, _, err := svc.CreatePayment(ctx, "buyer-1", "order-1", "bitcoin")

		assert.ErrorIs(t, err, ErrUnsupportedChannel)
	})
}

func TestHandleNotify(t *testing.T) {
	ctx := context.Background()

	t.Run("Success syncs order and notifies both parties", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		mockOrders := new(MockOrderRepository)
		dispatcher := &recordingDispatcher{}
		svc := NewPaymentService(mockRepo, mockOrders, dispatcher)
		svc.RegisterStrategy(model.ChannelAlipay, &fakeStrategy{
			paymentNo: "PAY100",
			amount:    decimal.NewFromInt(218),
			success:   true,
		})

		mockRepo.On("GetByPaymentNo", ctx, "PAY100").Return(testPayment(model.ChannelAlipay, model.PaymentStatusPending), nil)
		mockRepo.On("UpdateStatus", ctx, "PAY100", model.PaymentStatusPaid, mock.AnythingOfType("*time.Time"), mock.Anything).Return(nil)
		mockOrders.On("UpdatePaymentStatus", ctx, "order-1", orderModel.PaymentPaid).Return(nil)
		mockOrders.On("GetByID", ctx, "order-1").Return(testOrder(), nil)

		err := svc.HandleNotify(ctx, model.ChannelAlipay, map[string]string{"raw": "notify"})

		assert.NoError(t, err)
		assert.Len(t, dispatcher.tasks, 2)
		assert.Equal(t, "buyer-1", dispatcher.tasks[0].RecipientID)
		assert.Equal(t, "seller-1", dispatcher.tasks[1].RecipientID)
		for _, task := range dispatcher.tasks {
			assert.Equal(t, notificationModel.TypePaymentUpdate, task.Type)
		}
	})

	t.Run("Amount mismatch rejected", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		mockOrders := new(MockOrderRepository)
		svc := NewPaymentService(mockRepo, mockOrders, nil)
		svc.RegisterStrategy(model.ChannelAlipay, &fakeStrategy{
			paymentNo: "PAY100",
			amount:    decimal.NewFromInt(1),
			success:   true,
		})

		mockRepo.On("GetByPaymentNo", ctx, "PAY100").Return(testPayment(model.ChannelAlipay, model.PaymentStatusPending), nil)

		err := svc.HandleNotify(ctx, model.ChannelAlipay, nil)

		assert.ErrorContains(t, err, "amount mismatch")
		mockOrders.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failed notify marks payment failed without order sync", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		mockOrders := new(MockOrderRepository)
		dispatcher := &recordingDispatcher{}
		svc := NewPaymentService(mockRepo, mockOrders, dispatcher)
		svc.RegisterStrategy(model.ChannelAlipay, &fakeStrategy{paymentNo: "PAY100", success: false})

		mockRepo.On("GetByPaymentNo", ctx, "PAY100").Return(testPayment(model.ChannelAlipay, model.PaymentStatusPending), nil)
		mockRepo.On("UpdateStatus", ctx, "PAY100", model.PaymentStatusFailed, (*time.Time)(nil), json.RawMessage(nil)).Return(nil)

		err := svc.HandleNotify(ctx, model.ChannelAlipay, nil)

		assert.NoError(t, err)
		mockOrders.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, dispatcher.tasks)
	})

	t.Run("Duplicate notify is idempotent", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		mockOrders := new(MockOrderRepository)
		dispatcher := &recordingDispatcher{}
		svc := NewPaymentService(mockRepo, mockOrders, dispatcher)
		svc.RegisterStrategy(model.ChannelAlipay, &fakeStrategy{
			paymentNo: "PAY100",
			amount:    decimal.NewFromInt(218),
			success:   true,
		})

		mockRepo.On("GetByPaymentNo", ctx, "PAY100").Return(testPayment(model.ChannelAlipay, model.PaymentStatusPaid), nil)

		err := svc.HandleNotify(ctx, model.ChannelAlipay, nil)

		assert.NoError(t, err)
		mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, dispatcher.tasks)
	})
}

func TestConfirmOffline(t *testing.T) {
	ctx := context.Background()

	t.Run("Seller confirms COD payment", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		mockOrders := new(MockOrderRepository)
		dispatcher := &recordingDispatcher{}
		svc := NewPaymentService(mockRepo, mockOrders, dispatcher)

		mockRepo.On("GetByPaymentNo", ctx, "PAY100").Return(testPayment(model.ChannelCOD, model.PaymentStatusPending), nil)
		mockOrders.On("GetByID", ctx, "order-1").Return(testOrder(), nil)
		mockRepo.On("UpdateStatus", ctx, "PAY100", model.PaymentStatusPaid, mock.AnythingOfType("*time.Time"), json.RawMessage(nil)).Return(nil)
		mockOrders.On("UpdatePaymentStatus", ctx, "order-1", orderModel.PaymentPaid).Return(nil)

		err := svc.ConfirmOffline(ctx, "seller-1", "PAY100")

		assert.NoError(t, err)
		assert.Len(t, dispatcher.tasks, 2)
	})

	t.Run("Online channel cannot be confirmed manually", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		svc := NewPaymentService(mockRepo, new(MockOrderRepository), nil)

		mockRepo.On("GetByPaymentNo", ctx, "PAY100").Return(testPayment(model.ChannelAlipay, model.PaymentStatusPending), nil)

		err := svc.ConfirmOffline(ctx, "seller-1", "PAY100")

		assert.ErrorIs(t, err, ErrNotOfflineChannel)
	})

	t.Run("Non-seller cannot confirm", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		mockOrders := new(MockOrderRepository)
		svc := NewPaymentService(mockRepo, mockOrders, nil)

		mockRepo.On("GetByPaymentNo", ctx, "PAY100").Return(testPayment(model.ChannelCOD, model.PaymentStatusPending), nil)
		mockOrders.On("GetByID", ctx, "order-1").Return(testOrder(), nil)

		err := svc.ConfirmOffline(ctx, "buyer-1", "PAY100")

		assert.ErrorContains(t, err, "only the seller")
	})
}
