package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sowmiyat3004/Renter-sub001/internal/api/middleware"
	"github.com/sowmiyat3004/Renter-sub001/internal/apperr"
	"github.com/sowmiyat3004/Renter-sub001/internal/config"
	"github.com/sowmiyat3004/Renter-sub001/internal/geo"
	"github.com/sowmiyat3004/Renter-sub001/internal/geocode"
	"github.com/sowmiyat3004/Renter-sub001/internal/models"
	"github.com/sowmiyat3004/Renter-sub001/internal/services"
	"github.com/sowmiyat3004/Renter-sub001/internal/storage"
	"github.com/sowmiyat3004/Renter-sub001/internal/tasks"
)

// imageUploadGrace is how long the worker waits before fetching a photo
// uploaded through a presigned URL.
const imageUploadGrace = 30 * time.Second

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	listingService services.IListingService
	searchService  services.ISearchService
	geocoder       geocode.IGeocoder
	objectStorage  storage.IObjectStorage
	taskClient     *asynq.Client
	cfg            *config.Config
}

// NewRestListingHandler creates a new RestListingHandler. geocoder,
// objectStorage and taskClient may be nil; the endpoints needing them then
// report the feature as unavailable.
func NewRestListingHandler(
	listingService services.IListingService,
	searchService services.ISearchService,
	geocoder geocode.IGeocoder,
	objectStorage storage.IObjectStorage,
	taskClient *asynq.Client,
	cfg *config.Config,
) *RestListingHandler {
	return &RestListingHandler{
		listingService: listingService,
		searchService:  searchService,
		geocoder:       geocoder,
		objectStorage:  objectStorage,
		taskClient:     taskClient,
		cfg:            cfg,
	}
}

// SearchNearby handles GET /v1/listing/search/nearby
func (h *RestListingHandler) SearchNearby(c *gin.Context) {
	latStr := c.Query("lat")
	lngStr := c.Query("lng")
	if latStr == "" || lngStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})
		return
	}

	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be numbers"})
		return
	}
	center := geo.Point{Lat: lat, Lng: lng}

	var radiusKm *float64
	if radiusStr := c.Query("radius_km"); radiusStr != "" {
		radius, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "radius_km must be a number"})
			return
		}
		radiusKm = &radius
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	results, err := h.searchService.SearchNearby(c.Request.Context(), center, radiusKm, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	meta := gin.H{"center": center, "count": len(results)}
	switch {
	case radiusKm != nil:
		meta["radius_km"] = *radiusKm
	case h.cfg != nil:
		meta["radius_km"] = h.cfg.SearchDefaultRadiusKm
	}
	c.JSON(http.StatusOK, gin.H{"listings": results, "meta": meta})
}

// GetListingByID handles GET /v1/listing/:id (public, approved only)
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	listing, err := h.listingService.FindPublicListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}

	links, err := h.listingService.ListAmenities(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	listing.Amenities = links

	c.JSON(http.StatusOK, listing)
}

// Amenities handles GET /v1/amenities (public catalog)
func (h *RestListingHandler) Amenities(c *gin.Context) {
	amenities, err := h.listingService.AmenityCatalog(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": amenities})
}

// BrowseListings handles GET /v1/listing/browse
func (h *RestListingHandler) BrowseListings(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	listings, err := h.listingService.BrowseApproved(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

type createListingRequest struct {
	Title      string       `json:"title" binding:"required"`
	Body       string       `json:"body"`
	Address    string       `json:"address"`
	Lat        *float64     `json:"lat"`
	Lng        *float64     `json:"lng"`
	Bedrooms   int          `json:"bedrooms"`
	Bathrooms  int          `json:"bathrooms"`
	Rent       *models.Rent `json:"rent"`
	AmenityIDs []string     `json:"amenity_ids"`
}

// CreateListing handles POST /v1/listing. Coordinates may be given directly
// or resolved from the address through the geocoder.
func (h *RestListingHandler) CreateListing(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	var location geo.Point
	switch {
	case req.Lat != nil && req.Lng != nil:
		location = geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	case req.Address != "" && h.geocoder != nil:
		resolved, err := h.geocoder.Forward(c.Request.Context(), req.Address)
		if err != nil {
			respondError(c, apperr.InvalidArgument("could not resolve address to coordinates"))
			return
		}
		location = resolved
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either lat/lng or address is required"})
		return
	}

	amenityIDs := make([]primitive.ObjectID, 0, len(req.AmenityIDs))
	for _, hex := range req.AmenityIDs {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amenity ID: " + hex})
			return
		}
		amenityIDs = append(amenityIDs, id)
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), ownerID, services.CreateListingInput{
		Title:      req.Title,
		Body:       req.Body,
		Address:    req.Address,
		Location:   location,
		Bedrooms:   req.Bedrooms,
		Bathrooms:  req.Bathrooms,
		Rent:       req.Rent,
		AmenityIDs: amenityIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

type updateListingRequest struct {
	Title     *string      `json:"title"`
	Body      *string      `json:"body"`
	Address   *string      `json:"address"`
	Lat       *float64     `json:"lat"`
	Lng       *float64     `json:"lng"`
	Bedrooms  *int         `json:"bedrooms"`
	Bathrooms *int         `json:"bathrooms"`
	Rent      *models.Rent `json:"rent"`
}

// UpdateListing handles PUT /v1/listing/:id
func (h *RestListingHandler) UpdateListing(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	var req updateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if (req.Lat == nil) != (req.Lng == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be updated together"})
		return
	}

	input := services.UpdateListingInput{
		Title:     req.Title,
		Body:      req.Body,
		Address:   req.Address,
		Bedrooms:  req.Bedrooms,
		Bathrooms: req.Bathrooms,
		Rent:      req.Rent,
	}
	if req.Lat != nil && req.Lng != nil {
		input.Location = &geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	}

	listing, err := h.listingService.UpdateListing(c.Request.Context(), listingID, ownerID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// ArchiveListing handles POST /v1/listing/:id/archive
func (h *RestListingHandler) ArchiveListing(c *gin.Context) {
	h.ownerStatusChange(c, h.listingService.ArchiveListing)
}

// UnarchiveListing handles POST /v1/listing/:id/unarchive
func (h *RestListingHandler) UnarchiveListing(c *gin.Context) {
	h.ownerStatusChange(c, h.listingService.UnarchiveListing)
}

func (h *RestListingHandler) ownerStatusChange(c *gin.Context, op func(ctx context.Context, listingID, ownerID primitive.ObjectID) error) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}
	if err := op(c.Request.Context(), listingID, ownerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DeleteListing handles DELETE /v1/listing/:id
func (h *RestListingHandler) DeleteListing(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}
	if err := h.listingService.DeleteListingByOwner(c.Request.Context(), listingID, ownerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type imageUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// RequestImageUpload handles POST /v1/listing/:id/images. Returns a
// presigned PUT URL and schedules normalization of the uploaded object.
func (h *RestListingHandler) RequestImageUpload(c *gin.Context) {
	if h.objectStorage == nil || h.taskClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image upload is not configured"})
		return
	}

	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	var req imageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	// Ownership check before handing out an upload slot
	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	if listing.OwnerID != ownerID {
		respondError(c, apperr.Forbidden("listing does not belong to the current user"))
		return
	}

	url, key, err := h.objectStorage.GeneratePresignedPutURL(c.Request.Context(),
		ownerID.Hex(), listingID.Hex(), req.Filename, req.ContentType)
	if err != nil {
		respondError(c, apperr.Internal(err, "failed to create upload slot"))
		return
	}

	if err := tasks.EnqueueImageProcess(c.Request.Context(), h.taskClient, key, listingID, imageUploadGrace); err != nil {
		respondError(c, apperr.Internal(err, "failed to schedule image processing"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"upload_url": url, "key": key})
}

// MyListings handles GET /v1/me/listings
func (h *RestListingHandler) MyListings(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	listings, err := h.listingService.FindListingsByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// currentUserID extracts the authenticated user's ID from the Gin context,
// aborting with 401 when absent or malformed.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	hex := c.GetString(middleware.ContextKeyUserID)
	if hex == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user identity"})
		return primitive.NilObjectID, false
	}
	return userID, true
}
