package model

import (
	"errors"
	"fmt"
	"time"

	baseModel "barter_market/pkg/model"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态
// 合法流转: review → processing → deliver → received/completed
// cancelled 可从任意非终态进入，流转校验由数据库 update_order_status 函数负责
type OrderStatus string

const (
	StatusReview     OrderStatus = "review"
	StatusProcessing OrderStatus = "processing"
	StatusDeliver    OrderStatus = "deliver"
	StatusReceived   OrderStatus = "received"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

var validStatuses = map[OrderStatus]struct{}{
	StatusReview:     {},
	StatusProcessing: {},
	StatusDeliver:    {},
	StatusReceived:   {},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// ToOrderStatus 解析状态字符串
func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validStatuses[status]; ok {
		return status, nil
	}
	return "", fmt.Errorf("invalid order status: %q", s)
}

// IsTerminal 终态订单不再流转
func (s OrderStatus) IsTerminal() bool {
	return s == StatusReceived || s == StatusCompleted || s == StatusCancelled
}

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// 支付方式
const (
	MethodCOD          = "cod"
	MethodAlipay       = "alipay"
	MethodWechat       = "wechat"
	MethodBankTransfer = "bank_transfer"
	MethodBarter       = "barter" // 以物易物
)

var validPaymentMethods = map[string]struct{}{
	MethodCOD:          {},
	MethodAlipay:       {},
	MethodWechat:       {},
	MethodBankTransfer: {},
	MethodBarter:       {},
}

// IsValidPaymentMethod 校验支付方式
func IsValidPaymentMethod(m string) bool {
	_, ok := validPaymentMethods[m]
	return ok
}

// ShippingAddress 收货地址
type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country,omitempty"`
}

// ShippingContact 收货联系人
type ShippingContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Profile 订单里展示的买卖双方概要，只读映射 users 表
type Profile struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	StoreName string `json:"storeName,omitempty"`
}

func (Profile) TableName() string {
	return "users"
}

// Order 订单
// total_amount = subtotal + shipping_fee + tax_amount，创建时计算，此后不再重算
type Order struct {
	baseModel.BaseModel
	OrderNo string `gorm:"unique;not null" json:"orderNo"`

	// seller_id 为空会导致通知路由失效，数据库层做了 NOT NULL 约束
	BuyerID  string `gorm:"type:uuid;not null;index" json:"buyerId"`
	SellerID string `gorm:"type:uuid;not null;index" json:"sellerId"`

	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2)" json:"subtotal"`
	ShippingFee decimal.Decimal `gorm:"type:decimal(12,2)" json:"shippingFee"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(12,2)" json:"taxAmount"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"totalAmount"`

	Status        OrderStatus   `gorm:"default:'review'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"default:'pending'" json:"paymentStatus"`
	PaymentMethod string        `json:"paymentMethod"`

	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:ship_" json:"shippingAddress"`
	ShippingContact ShippingContact `gorm:"embedded;embeddedPrefix:contact_" json:"shippingContact"`

	Notes           string     `json:"notes,omitempty"`
	StatusUpdatedAt *time.Time `json:"statusUpdatedAt,omitempty"`

	Items         []OrderItem          `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID" json:"statusHistory,omitempty"`

	Buyer  *Profile `gorm:"foreignKey:BuyerID;references:ID" json:"buyer,omitempty"`
	Seller *Profile `gorm:"foreignKey:SellerID;references:ID" json:"seller,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem 订单行，商品信息为下单时刻的快照
type OrderItem struct {
	baseModel.BaseModel
	OrderID      string          `gorm:"type:uuid;index;not null" json:"orderId"`
	ProductID    string          `gorm:"type:uuid;not null" json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage,omitempty"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2)" json:"unitPrice"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(12,2)" json:"lineTotal"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// OrderStatusHistory 状态历史，只追加不修改
type OrderStatusHistory struct {
	ID        string      `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	OrderID   string      `gorm:"type:uuid;index;not null" json:"orderId"`
	Status    OrderStatus `gorm:"not null" json:"status"`
	ChangedBy string      `gorm:"type:uuid" json:"changedBy"`
	Notes     string      `json:"notes,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

// ValidationError 参数校验失败，在发起任何远程调用之前返回
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s is required", e.Field)
}

// IsValidationError 判断是否参数校验错误
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NewOrderNumber 本地订单号生成，数据库 generate_order_number() 不可用时的后备
// 时间戳保证可读性，uuid 片段保证唯一性
func NewOrderNumber() string {
	return fmt.Sprintf("ORD%s%s", time.Now().Format("20060102150405"), baseModel.ShortID())
}
