package handler

import (
	"errors"
	"net/http"
	"strconv"

	"barter_market/internal/domain/product/model"
	"barter_market/internal/domain/product/service"
	"barter_market/internal/pkg/middleware"
	"barter_market/pkg/response"
	"barter_market/pkg/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ProductHandler 商品处理器
type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(svc service.ProductService) *ProductHandler {
	return &ProductHandler{service: svc}
}

// CreateProduct 上架商品
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var input service.CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), middleware.CurrentUserID(c), input)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, product)
}

// GetProduct 商品详情
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.service.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrProductNotFound, "product not found")
			return
		}
		response.ServerError(c, "failed to fetch product")
		return
	}
	response.Success(c, product)
}

// GetProducts 商品列表
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	query := service.ProductQuery{
		SellerID: c.Query("sellerId"),
		Category: c.Query("category"),
		Keyword:  c.Query("keyword"),
		Page:     p.Page,
		Limit:    p.Limit,
	}
	if raw := c.Query("allowBarter"); raw != "" {
		allow, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid allowBarter")
			return
		}
		query.AllowBarter = &allow
	}

	products, total, err := h.service.GetProducts(c.Request.Context(), query)
	if err != nil {
		response.ServerError(c, "failed to fetch products")
		return
	}

	response.Success(c, utils.PageResult{List: products, Total: total, Page: query.Page, Limit: query.Limit})
}

// UpdateProduct 修改商品
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var input service.CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, product)
}

// Offline 下架商品
func (h *ProductHandler) Offline(c *gin.Context) {
	err := h.service.SetStatus(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), model.ProductStatusOffline)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, true)
}

// Online 重新上架
func (h *ProductHandler) Online(c *gin.Context) {
	err := h.service.SetStatus(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), model.ProductStatusOnline)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, true)
}

// AddReview 发表评价
func (h *ProductHandler) AddReview(c *gin.Context) {
	var input service.AddReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	review, err := h.service.AddReview(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRating) {
			response.Error(c, http.StatusBadRequest, response.ErrReviewInvalid, err.Error())
			return
		}
		h.writeError(c, err)
		return
	}
	response.Success(c, review)
}

// GetReviews 评价列表
func (h *ProductHandler) GetReviews(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	p.Normalize()

	reviews, total, err := h.service.GetReviews(c.Request.Context(), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		response.ServerError(c, "failed to fetch reviews")
		return
	}
	response.Success(c, utils.PageResult{List: reviews, Total: total, Page: p.Page, Limit: p.Limit})
}

func (h *ProductHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.Error(c, http.StatusNotFound, response.ErrProductNotFound, "product not found")
	case errors.Is(err, service.ErrNotOwner):
		response.Error(c, http.StatusForbidden, response.ErrNoPermission, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}
