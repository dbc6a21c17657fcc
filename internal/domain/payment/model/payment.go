package model

import (
	"encoding/json"
	"time"

	baseModel "barter_market/pkg/model"

	"github.com/shopspring/decimal"
)

// 支付单状态
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// 支付渠道，cod/bank_transfer/barter 为线下渠道，由卖家确认收款
const (
	ChannelAlipay       = "alipay"
	ChannelWechat       = "wechat"
	ChannelCOD          = "cod"
	ChannelBankTransfer = "bank_transfer"
	ChannelBarter       = "barter"
)

var validChannels = map[string]bool{
	ChannelAlipay:       true,
	ChannelWechat:       true,
	ChannelCOD:          true,
	ChannelBankTransfer: true,
	ChannelBarter:       true,
}

// IsValidChannel 是否支持的支付渠道
func IsValidChannel(channel string) bool {
	return validChannels[channel]
}

// IsOfflineChannel 线下渠道无支付网关回调
func IsOfflineChannel(channel string) bool {
	return channel == ChannelCOD || channel == ChannelBankTransfer || channel == ChannelBarter
}

// Payment 支付单，一笔订单可能有多次支付尝试
type Payment struct {
	baseModel.BaseModel
	PaymentNo string `gorm:"unique;not null" json:"paymentNo"`
	OrderID   string `gorm:"type:uuid;not null;index" json:"orderId"`
	OrderNo   string `gorm:"not null" json:"orderNo"`
	BuyerID   string `gorm:"type:uuid;not null" json:"buyerId"`

	Amount  decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Channel string          `gorm:"not null" json:"channel"`
	Status  string          `gorm:"default:'pending';index" json:"status"`
	Subject string          `json:"subject"`

	// 网关回调原始报文
	ExtraParams json.RawMessage `gorm:"type:jsonb" json:"extraParams,omitempty"`
	PaidAt      *time.Time      `json:"paidAt,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}
