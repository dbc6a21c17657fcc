package repository

import (
	"context"

	"barter_market/internal/domain/product/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductFilter 商品查询条件
type ProductFilter struct {
	SellerID    string
	Category    string
	Keyword     string
	AllowBarter *bool
	Status      int
}

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id string) (*model.Product, error)
	GetList(ctx context.Context, filter ProductFilter, offset, limit int) ([]model.Product, int64, error)
	Update(ctx context.Context, product *model.Product) error
	UpdateStatus(ctx context.Context, id string, status int) error
	DecrementStock(ctx context.Context, id string, quantity int) error

	CreateReview(ctx context.Context, review *model.Review) error
	GetReviews(ctx context.Context, productID string, offset, limit int) ([]model.Review, int64, error)
	RefreshRating(ctx context.Context, productID string) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetList(ctx context.Context, filter ProductFilter, offset, limit int) ([]model.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Product{})

	if filter.SellerID != "" {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Keyword != "" {
		query = query.Where("title ILIKE ?", "%"+filter.Keyword+"%")
	}
	if filter.AllowBarter != nil {
		query = query.Where("allow_barter = ?", *filter.AllowBarter)
	}
	if filter.Status != 0 {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []model.Product
	err := query.
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&products).Error
	return products, total, err
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *productRepository) UpdateStatus(ctx context.Context, id string, status int) error {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock 原子扣减库存，不足时不更新
func (r *productRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepository) CreateReview(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *productRepository) GetReviews(ctx context.Context, productID string, offset, limit int) ([]model.Review, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Review{}).
		Where("product_id = ?", productID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []model.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reviews).Error
	return reviews, total, err
}

// RefreshRating 重算评价汇总字段
func (r *productRepository) RefreshRating(ctx context.Context, productID string) error {
	var agg struct {
		Count int64
		Avg   decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).Model(&model.Review{}).
		Select("COUNT(*) AS count, AVG(rating) AS avg").
		Where("product_id = ?", productID).
		Scan(&agg).Error
	if err != nil {
		return err
	}

	avg := decimal.Zero
	if agg.Avg.Valid {
		avg = agg.Avg.Decimal.Round(2)
	}
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"review_count":   agg.Count,
			"average_rating": avg,
		}).Error
}
