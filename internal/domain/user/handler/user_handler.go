package handler

import (
	"net/http"

	"barter_market/internal/domain/user/service"
	"barter_market/internal/pkg/middleware"
	"barter_market/pkg/response"
	"barter_market/pkg/utils"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// SendOTPInput 验证码请求
type SendOTPInput struct {
	Mobile string `json:"mobile" binding:"required,len=11"`
}

// LoginInput 登录请求
type LoginInput struct {
	Mobile string `json:"mobile" binding:"required,len=11"`
	Code   string `json:"code" binding:"required"`
}

// SendOTP 发送验证码
func (h *UserHandler) SendOTP(c *gin.Context) {
	var input SendOTPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.service.SendOTP(c.Request.Context(), input.Mobile); err != nil {
		response.Fail(c, response.ErrTooManyRequests, err.Error())
		return
	}

	response.Success(c, true)
}

// LoginOrRegister 验证码登录，新手机号自动注册
func (h *UserHandler) LoginOrRegister(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	token, user, err := h.service.LoginOrRegister(c.Request.Context(), input.Mobile, input.Code)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, err.Error())
		return
	}

	response.Success(c, gin.H{"token": token, "user": user})
}

// GetUsers 用户列表
func (h *UserHandler) GetUsers(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	users, total, err := h.service.GetUsers(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		response.ServerError(c, "failed to fetch users")
		return
	}

	response.Success(c, utils.PageResult{List: users, Total: total, Page: p.Page, Limit: p.Limit})
}

// GetUser 用户详情
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.ErrUserNotFound, "user not found")
		return
	}
	response.Success(c, user)
}

// GetProfile 当前登录用户资料
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.ErrUserNotFound, "user not found")
		return
	}
	response.Success(c, user)
}

// UpdateProfile 更新当前登录用户资料
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var input service.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), input)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, user)
}

// BecomeSeller 开通店铺
func (h *UserHandler) BecomeSeller(c *gin.Context) {
	var input service.BecomeSellerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	user, err := h.service.BecomeSeller(c.Request.Context(), middleware.CurrentUserID(c), input)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, user)
}

// DeleteAccount 注销当前账号
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	if err := h.service.DeleteUser(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, true)
}

// Follow 关注用户
func (h *UserHandler) Follow(c *gin.Context) {
	if err := h.service.Follow(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		response.Fail(c, response.ErrUserNotFound, err.Error())
		return
	}
	response.Success(c, true)
}

// Unfollow 取消关注
func (h *UserHandler) Unfollow(c *gin.Context) {
	if err := h.service.Unfollow(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, true)
}

// GetFollowers 粉丝列表
func (h *UserHandler) GetFollowers(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	users, total, err := h.service.GetFollowers(c.Request.Context(), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		response.ServerError(c, "failed to fetch followers")
		return
	}

	response.Success(c, utils.PageResult{List: users, Total: total, Page: p.Page, Limit: p.Limit})
}
