package handler

import (
	"net/http"

	"barter_market/internal/domain/notification/service"
	"barter_market/internal/pkg/middleware"
	"barter_market/pkg/response"
	"barter_market/pkg/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	service service.NotificationService
}

func NewNotificationHandler(service service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// GetNotifications 当前用户的通知列表
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	p.Normalize()
	unreadOnly := c.Query("unread") == "true"

	list, total, err := h.service.GetNotifications(c.Request.Context(), userID, unreadOnly, p.Page, p.Limit)
	if err != nil {
		response.ServerError(c, "Failed to fetch notifications")
		return
	}

	response.Success(c, utils.PageResult{List: list, Total: total, Page: p.Page, Limit: p.Limit})
}

// MarkRead 标记单条已读
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	id := c.Param("id")

	if err := h.service.MarkRead(c.Request.Context(), id, userID); err != nil {
		response.Fail(c, response.ErrNotificationNotFound, "Notification not found")
		return
	}
	response.Success(c, true)
}

// MarkAllRead 全部标记已读
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	if err := h.service.MarkAllRead(c.Request.Context(), userID); err != nil {
		response.ServerError(c, "Failed to mark notifications read")
		return
	}
	response.Success(c, true)
}

// UnreadCount 未读数
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.ServerError(c, "Failed to count notifications")
		return
	}
	response.Success(c, gin.H{"count": count})
}
