package model

import (
	"time"

	baseModel "barter_market/pkg/model"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// 商品状态
const (
	ProductStatusOnline  = 1
	ProductStatusOffline = 2
	ProductStatusSoldOut = 3
)

// Product 商品
// AllowBarter 为 true 时支持以物易物，BarterNote 描述期望交换的物品
type Product struct {
	baseModel.BaseModel
	SellerID    string          `gorm:"type:uuid;not null;index" json:"sellerId"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	Stock       int             `gorm:"default:0" json:"stock"`
	Images      pq.StringArray  `gorm:"type:text[]" json:"images"`
	Category    string          `gorm:"index" json:"category"`

	AllowBarter bool   `gorm:"default:false" json:"allowBarter"`
	BarterNote  string `json:"barterNote,omitempty"`

	Status int `gorm:"default:1;index" json:"status"`

	// 汇总字段，评价写入时更新
	ReviewCount   int             `gorm:"default:0" json:"reviewCount"`
	AverageRating decimal.Decimal `gorm:"type:decimal(3,2);default:0" json:"averageRating"`
}

func (Product) TableName() string {
	return "products"
}

// IsAvailable 是否可下单
func (p *Product) IsAvailable() bool {
	return p.Status == ProductStatusOnline && p.Stock > 0
}

// Review 商品评价
type Review struct {
	ID         string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProductID  string    `gorm:"type:uuid;not null;index" json:"productId"`
	ReviewerID string    `gorm:"type:uuid;not null" json:"reviewerId"`
	OrderID    string    `gorm:"type:uuid" json:"orderId,omitempty"`
	Rating     int       `gorm:"not null" json:"rating"` // 1-5
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Review) TableName() string {
	return "reviews"
}
