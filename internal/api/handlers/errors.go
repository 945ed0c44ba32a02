package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sowmiyat3004/Renter-sub001/internal/apperr"
)

// respondError translates a service error into an HTTP response. Internal
// details stay out of the body; gin's error list carries them to the logger.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch apperr.KindOf(err) {
	case apperr.KindInvalidArgument:
		c.JSON(http.StatusBadRequest, gin.H{"error": apperr.MessageOf(err)})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": apperr.MessageOf(err)})
	case apperr.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": apperr.MessageOf(err)})
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": apperr.MessageOf(err)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
