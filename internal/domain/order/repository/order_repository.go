package repository

import (
	"context"
	"time"

	"barter_market/internal/domain/order/model"
	"barter_market/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderFilter 订单查询条件，字段之间 AND
type OrderFilter struct {
	BuyerID       string
	SellerID      string
	Status        model.OrderStatus
	PaymentStatus model.PaymentStatus
	PaymentMethod string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

type OrderRepository interface {
	// GenerateOrderNumber 调用数据库 generate_order_number()
	GenerateOrderNumber(ctx context.Context) (string, error)

	CreateOrder(ctx context.Context, order *model.Order) error
	CreateItems(ctx context.Context, items []model.OrderItem) error

	// DeleteOrder 订单行写入失败后的补偿删除
	DeleteOrder(ctx context.Context, orderID string) error

	GetByID(ctx context.Context, orderID string) (*model.Order, error)
	GetList(ctx context.Context, filter OrderFilter, offset, limit int) ([]model.Order, int64, error)

	// ApplyStatusTransition 调用数据库 update_order_status()
	// 非法流转的校验在函数内部完成，错误原样返回
	ApplyStatusTransition(ctx context.Context, orderID string, status model.OrderStatus, changedBy, notes string) error

	UpdatePaymentStatus(ctx context.Context, orderID string, status model.PaymentStatus) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	var orderNo string
	err := r.db.WithContext(ctx).Raw("SELECT generate_order_number()").Scan(&orderNo).Error
	if err != nil || orderNo == "" {
		// 数据库函数不可用时退回本地生成，保证下单链路不中断
		logger.Log.Warn("generate_order_number() unavailable, falling back to local generator", zap.Error(err))
		return model.NewOrderNumber(), nil
	}
	return orderNo, nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	// 只写订单头，订单行在 CreateItems 单独写入
	return r.db.WithContext(ctx).Omit("Items", "StatusHistory").Create(order).Error
}

func (r *orderRepository) CreateItems(ctx context.Context, items []model.OrderItem) error {
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *orderRepository) DeleteOrder(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("id = ?", orderID).
		Delete(&model.Order{}).Error
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Buyer").
		Preload("Seller").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetList(ctx context.Context, filter OrderFilter, offset, limit int) ([]model.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Order{})

	if filter.BuyerID != "" {
		query = query.Where("buyer_id = ?", filter.BuyerID)
	}
	if filter.SellerID != "" {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []model.Order
	err := query.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Buyer").
		Preload("Seller").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	return orders, total, err
}

func (r *orderRepository) ApplyStatusTransition(ctx context.Context, orderID string, status model.OrderStatus, changedBy, notes string) error {
	return r.db.WithContext(ctx).
		Exec("SELECT update_order_status(?::uuid, ?, ?::uuid, ?)", orderID, string(status), changedBy, notes).Error
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, orderID string, status model.PaymentStatus) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
