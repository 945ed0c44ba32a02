package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sowmiyat3004/Renter-sub001/internal/services"
)

// RestNotificationHandler serves the in-app notification inbox.
type RestNotificationHandler struct {
	notificationService services.INotificationService
}

// NewRestNotificationHandler creates a new RestNotificationHandler.
func NewRestNotificationHandler(notificationService services.INotificationService) *RestNotificationHandler {
	return &RestNotificationHandler{notificationService: notificationService}
}

// ListNotifications handles GET /v1/notifications
func (h *RestNotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	notifications, err := h.notificationService.FindNotificationsByUser(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	unread, err := h.notificationService.CountUnread(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": notifications, "unread": unread})
}

// MarkRead handles POST /v1/notifications/:id/read
func (h *RestNotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID format"})
		return
	}

	if err := h.notificationService.MarkNotificationRead(c.Request.Context(), notificationID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
