package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sowmiyat3004/Renter-sub001/internal/api/middleware"
	"github.com/sowmiyat3004/Renter-sub001/internal/models"
	"github.com/sowmiyat3004/Renter-sub001/internal/services"
)

// RestAdminHandler handles the moderation and runtime-settings endpoints.
type RestAdminHandler struct {
	moderationService services.IModerationService
	settingsService   services.ISettingsService
}

// NewRestAdminHandler creates a new RestAdminHandler. settingsService may be
// nil; the settings endpoint then reports the feature as unavailable.
func NewRestAdminHandler(moderationService services.IModerationService, settingsService services.ISettingsService) *RestAdminHandler {
	return &RestAdminHandler{moderationService: moderationService, settingsService: settingsService}
}

type moderateRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// ModerateListing handles POST /v1/admin/listing/:id/moderate
func (h *RestAdminHandler) ModerateListing(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	var req moderateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	isAdmin := c.GetBool(middleware.ContextKeyIsAdmin)
	action := models.AdminActionType(req.Action)

	if err := h.moderationService.Moderate(c.Request.Context(), listingID, adminID, isAdmin, action, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReviewQueue handles GET /v1/admin/listing/queue
func (h *RestAdminHandler) ReviewQueue(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	queue, err := h.moderationService.PendingQueue(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": queue})
}

type updateSettingRequest struct {
	Key   string      `json:"key" binding:"required"`
	Value interface{} `json:"value" binding:"required"`
}

// UpdateSetting handles PUT /v1/admin/settings. Writes propagate to other
// instances through the settings Pub/Sub channel.
func (h *RestAdminHandler) UpdateSetting(c *gin.Context) {
	if h.settingsService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Runtime settings are not configured"})
		return
	}

	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := h.settingsService.Set(c.Request.Context(), req.Key, req.Value); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListingActions handles GET /v1/admin/listing/:id/actions
func (h *RestAdminHandler) ListingActions(c *gin.Context) {
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	actions, err := h.moderationService.ActionHistory(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": actions})
}
