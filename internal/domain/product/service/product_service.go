package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	notificationModel "barter_market/internal/domain/notification/model"
	"barter_market/internal/domain/product/model"
	"barter_market/internal/domain/product/repository"
	"barter_market/internal/pkg/worker"
	"barter_market/pkg/cache"
	"barter_market/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const productCacheTTL = 5 * time.Minute

var (
	ErrNotOwner      = errors.New("not the product owner")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// CreateProductInput 商品上架参数
type CreateProductInput struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"images"`
	Category    string          `json:"category"`
	AllowBarter bool            `json:"allowBarter"`
	BarterNote  string          `json:"barterNote"`
}

// ProductQuery 商品列表查询
type ProductQuery struct {
	SellerID    string
	Category    string
	Keyword     string
	AllowBarter *bool
	Page        int
	Limit       int
}

// AddReviewInput 评价参数
type AddReviewInput struct {
	OrderID string `json:"orderId"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// ProductService 商品服务接口
type ProductService interface {
	CreateProduct(ctx context.Context, sellerID string, input CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetProducts(ctx context.Context, query ProductQuery) ([]model.Product, int64, error)
	UpdateProduct(ctx context.Context, sellerID, id string, input CreateProductInput) (*model.Product, error)
	SetStatus(ctx context.Context, sellerID, id string, status int) error

	AddReview(ctx context.Context, reviewerID, productID string, input AddReviewInput) (*model.Review, error)
	GetReviews(ctx context.Context, productID string, page, limit int) ([]model.Review, int64, error)
}

type productService struct {
	repo       repository.ProductRepository
	cache      cache.CacheService
	dispatcher worker.Dispatcher
}

// NewProductService 创建商品服务，cache 可为 nil（直接穿透到数据库）
func NewProductService(repo repository.ProductRepository, cacheService cache.CacheService, dispatcher worker.Dispatcher) ProductService {
	return &productService{repo: repo, cache: cacheService, dispatcher: dispatcher}
}

func productCacheKey(id string) string {
	return "product:" + id
}

func (s *productService) CreateProduct(ctx context.Context, sellerID string, input CreateProductInput) (*model.Product, error) {
	product := &model.Product{
		SellerID:    sellerID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Images:      input.Images,
		Category:    input.Category,
		AllowBarter: input.AllowBarter,
		BarterNote:  input.BarterNote,
		Status:      model.ProductStatusOnline,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct 读缓存，未命中回源并写缓存
func (s *productService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if s.cache != nil {
		var cached model.Product
		err := s.cache.Get(ctx, productCacheKey(id), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Log.Warn("product cache read failed", zap.String("id", id), zap.Error(err))
		}
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, productCacheKey(id), product, productCacheTTL); err != nil {
			logger.Log.Warn("product cache write failed", zap.String("id", id), zap.Error(err))
		}
	}
	return product, nil
}

func (s *productService) GetProducts(ctx context.Context, query ProductQuery) ([]model.Product, int64, error) {
	page, limit := query.Page, query.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	filter := repository.ProductFilter{
		SellerID:    query.SellerID,
		Category:    query.Category,
		Keyword:     query.Keyword,
		AllowBarter: query.AllowBarter,
	}
	// 公开列表只展示在售商品，卖家看自己的店铺不过滤
	if query.SellerID == "" {
		filter.Status = model.ProductStatusOnline
	}

	return s.repo.GetList(ctx, filter, (page-1)*limit, limit)
}

func (s *productService) UpdateProduct(ctx context.Context, sellerID, id string, input CreateProductInput) (*model.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, ErrNotOwner
	}

	product.Title = input.Title
	product.Description = input.Description
	product.Price = input.Price
	product.Stock = input.Stock
	product.Images = input.Images
	product.Category = input.Category
	product.AllowBarter = input.AllowBarter
	product.BarterNote = input.BarterNote

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return product, nil
}

func (s *productService) SetStatus(ctx context.Context, sellerID, id string, status int) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if product.SellerID != sellerID {
		return ErrNotOwner
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// AddReview 写入评价并刷新汇总，卖家会收到通知
func (s *productService) AddReview(ctx context.Context, reviewerID, productID string, input AddReviewInput) (*model.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrInvalidRating
	}

	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	review := &model.Review{
		ProductID:  productID,
		ReviewerID: reviewerID,
		OrderID:    input.OrderID,
		Rating:     input.Rating,
		Comment:    input.Comment,
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	if err := s.repo.RefreshRating(ctx, productID); err != nil {
		logger.Log.Warn("refresh rating failed", zap.String("product_id", productID), zap.Error(err))
	}
	s.invalidate(ctx, productID)

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(worker.NotificationTask{
			RecipientID: product.SellerID,
			Type:        notificationModel.TypeNewReview,
			Title:       "收到新评价",
			Message:     fmt.Sprintf("商品「%s」收到 %d 星评价", product.Title, input.Rating),
			Payload: map[string]string{
				"productId": productID,
				"reviewId":  review.ID,
			},
		})
	}
	return review, nil
}

func (s *productService) GetReviews(ctx context.Context, productID string, page, limit int) ([]model.Review, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	return s.repo.GetReviews(ctx, productID, (page-1)*limit, limit)
}

func (s *productService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, productCacheKey(id)); err != nil {
		logger.Log.Warn("product cache invalidate failed", zap.String("id", id), zap.Error(err))
	}
}
