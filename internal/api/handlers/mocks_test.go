package handlers_test

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sowmiyat3004/Renter-sub001/internal/api/middleware"
	"github.com/sowmiyat3004/Renter-sub001/internal/geo"
	"github.com/sowmiyat3004/Renter-sub001/internal/models"
	"github.com/sowmiyat3004/Renter-sub001/internal/services"
)

// --- Mocks ---

// MockListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, ownerID primitive.ObjectID, input services.CreateListingInput) (*models.Listing, error) {
	args := m.Called(ctx, ownerID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) FindPublicListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) BrowseApproved(ctx context.Context, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Listing, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) UpdateListing(ctx context.Context, listingID, ownerID primitive.ObjectID, input services.UpdateListingInput) (*models.Listing, error) {
	args := m.Called(ctx, listingID, ownerID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) ArchiveListing(ctx context.Context, listingID, ownerID primitive.ObjectID) error {
	args := m.Called(ctx, listingID, ownerID)
	return args.Error(0)
}

func (m *MockListingService) UnarchiveListing(ctx context.Context, listingID, ownerID primitive.ObjectID) error {
	args := m.Called(ctx, listingID, ownerID)
	return args.Error(0)
}

func (m *MockListingService) DeleteListingByOwner(ctx context.Context, listingID, ownerID primitive.ObjectID) error {
	args := m.Called(ctx, listingID, ownerID)
	return args.Error(0)
}

func (m *MockListingService) DeleteListingCascade(ctx context.Context, listingID primitive.ObjectID) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

func (m *MockListingService) AddImageToListing(ctx context.Context, listingID primitive.ObjectID, imageKey string) error {
	args := m.Called(ctx, listingID, imageKey)
	return args.Error(0)
}

func (m *MockListingService) ListAmenities(ctx context.Context, listingID primitive.ObjectID) ([]models.ListingAmenity, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ListingAmenity), args.Error(1)
}

func (m *MockListingService) AmenityCatalog(ctx context.Context) ([]models.Amenity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Amenity), args.Error(1)
}

// MockSearchService
type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) SearchNearby(ctx context.Context, center geo.Point, radiusKm *float64, limit int) ([]services.ListingDistance, error) {
	args := m.Called(ctx, center, radiusKm, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.ListingDistance), args.Error(1)
}

// MockModerationService
type MockModerationService struct {
	mock.Mock
}

func (m *MockModerationService) Moderate(ctx context.Context, listingID, adminID primitive.ObjectID, isAdmin bool, action models.AdminActionType, reason string) error {
	args := m.Called(ctx, listingID, adminID, isAdmin, action, reason)
	return args.Error(0)
}

func (m *MockModerationService) PendingQueue(ctx context.Context, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockModerationService) ActionHistory(ctx context.Context, listingID primitive.ObjectID) ([]models.AdminAction, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AdminAction), args.Error(1)
}

// MockNotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) CreateNotification(ctx context.Context, event services.NotificationEvent) (*models.Notification, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationService) FindNotificationsByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkNotificationRead(ctx context.Context, notificationID, userID primitive.ObjectID) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *MockNotificationService) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) RegisterUser(ctx context.Context, name, email, password string) (*models.User, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) AuthenticateUser(ctx context.Context, email, password string) (string, *models.User, error) {
	args := m.Called(ctx, email, password)
	var user *models.User
	if args.Get(1) != nil {
		user = args.Get(1).(*models.User)
	}
	return args.String(0), user, args.Error(2)
}

func (m *MockUserService) FindUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateNotificationPreferences(ctx context.Context, userID primitive.ObjectID, prefs models.NotificationPreferences) error {
	args := m.Called(ctx, userID, prefs)
	return args.Error(0)
}

// MockSettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Load(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSettingsService) SubscribeToChanges(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSettingsService) Set(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockSettingsService) GetInt(ctx context.Context, key string, defaultValue int) int {
	args := m.Called(ctx, key, defaultValue)
	return args.Int(0)
}

func (m *MockSettingsService) GetFloat64(ctx context.Context, key string, defaultValue float64) float64 {
	args := m.Called(ctx, key, defaultValue)
	return args.Get(0).(float64)
}

func (m *MockSettingsService) RateLimitFor(ctx context.Context, endpoint string) (refillRate, burst int) {
	args := m.Called(ctx, endpoint)
	return args.Int(0), args.Int(1)
}

// MockGeocoder
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Forward(ctx context.Context, address string) (geo.Point, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(geo.Point), args.Error(1)
}

// --- Helpers ---

// asUser simulates AuthMiddleware having run for the given identity.
func asUser(userID primitive.ObjectID, isAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID.Hex())
		c.Set(middleware.ContextKeyIsAdmin, isAdmin)
		c.Next()
	}
}
