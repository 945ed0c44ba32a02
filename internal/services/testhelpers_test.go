package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sowmiyat3004/Renter-sub001/internal/config"
	"github.com/sowmiyat3004/Renter-sub001/internal/models"
	"github.com/sowmiyat3004/Renter-sub001/internal/utils"
)

// fakeDispatcher records dispatched events instead of enqueueing them.
type fakeDispatcher struct {
	mu       sync.Mutex
	events   []NotificationEvent
	cleanups [][]string
	failWith error
}

func (f *fakeDispatcher) DispatchNotification(ctx context.Context, event NotificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeDispatcher) DispatchImageCleanup(ctx context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.cleanups = append(f.cleanups, keys)
	return nil
}

func (f *fakeDispatcher) Events() []NotificationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]NotificationEvent, len(f.events))
	copy(out, f.events)
	return out
}

func setupTestDBServices(t *testing.T, dbName string) *mongo.Database {
	return utils.SetupTestDB(t, dbName,
		"listings", "users", "admin_actions", "notifications", "amenities", "listing_amenities", "settings")
}

func testConfig() *config.Config {
	return &config.Config{
		SearchDefaultRadiusKm: 10,
		SearchDefaultLimit:    20,
		SearchMaxLimit:        100,
		JwtSecret:             "test-secret",
		JwtTTL:                time.Hour,
		PasswordRegexp:        "^.{8,}$",
		RateLimitBucketSize:   8,
		RateLimitRefillRate:   4,
	}
}

// insertListing seeds a listing directly, bypassing the service, so tests
// can start from any status.
func insertListing(t *testing.T, database *mongo.Database, ownerID primitive.ObjectID, title string, lat, lng float64, status models.ListingStatus) *models.Listing {
	now := time.Now().UTC()
	listing := &models.Listing{
		ID:        primitive.NewObjectID(),
		OwnerID:   ownerID,
		Title:     title,
		Body:      "body",
		Lat:       lat,
		Lng:       lng,
		Images:    []string{},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := database.Collection("listings").InsertOne(context.Background(), listing)
	require.NoError(t, err)
	return listing
}
