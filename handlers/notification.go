package handlers

import (
	"net/http"

	"ripple/models"
	"ripple/notify"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *notify.Service
}

func NewNotificationHandler(notifications *notify.Service) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	notifications, err := h.notifications.ListFor(ctx, userID, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	c.JSON(http.StatusOK, notifications)
}
