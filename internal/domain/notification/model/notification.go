package model

import (
	"encoding/json"
	"time"

	baseModel "barter_market/pkg/model"
)

// 通知类型
const (
	TypeNewOrderReceived  = "new_order_received"
	TypeOrderStatusUpdate = "order_status_update"
	TypePaymentUpdate     = "payment_update"
	TypeNewFollower       = "new_follower"
	TypeNewReview         = "new_review"
)

// Notification 站内通知
// 创建后只有 read_at 可变
type Notification struct {
	baseModel.BaseModel
	RecipientID string          `gorm:"type:uuid;index;not null" json:"recipientId"`
	Type        string          `gorm:"not null" json:"type"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	Payload     json.RawMessage `gorm:"type:jsonb" json:"payload,omitempty"`
	ReadAt      *time.Time      `json:"readAt,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
