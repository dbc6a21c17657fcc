package repository

import (
	"context"
	"encoding/json"
	"time"

	"barter_market/internal/domain/payment/model"

	"gorm.io/gorm"
)

// PaymentRepository 支付单数据访问接口
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByPaymentNo(ctx context.Context, paymentNo string) (*model.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) ([]model.Payment, error)
	UpdateStatus(ctx context.Context, paymentNo, status string, paidAt *time.Time, extra json.RawMessage) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) GetByPaymentNo(ctx context.Context, paymentNo string) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).First(&payment, "payment_no = ?", paymentNo).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID string) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, paymentNo, status string, paidAt *time.Time, extra json.RawMessage) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if paidAt != nil {
		updates["paid_at"] = paidAt
	}
	if extra != nil {
		updates["extra_params"] = extra
	}

	result := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("payment_no = ?", paymentNo).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
