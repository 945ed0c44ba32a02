package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sowmiyat3004/Renter-sub001/internal/apperr"
	"github.com/sowmiyat3004/Renter-sub001/internal/geo"
	"github.com/sowmiyat3004/Renter-sub001/internal/models"
)

func TestListingService_CRUD(t *testing.T) {
	db := setupTestDBServices(t, "testdb_listing_service_crud")
	dispatcher := &fakeDispatcher{}
	svc := NewListingService(db, testConfig(), dispatcher)
	ctx := context.Background()

	ownerID := primitive.NewObjectID()

	listing, err := svc.CreateListing(ctx, ownerID, CreateListingInput{
		Title:    "2BHK near Indiranagar metro",
		Body:     "Spacious, well lit",
		Address:  "Indiranagar, Bangalore",
		Location: geo.Point{Lat: 12.9716, Lng: 77.5946},
		Bedrooms: 2,
		Rent:     &models.Rent{Value: 35000, CurrencyCode: "INR"},
	})
	assert.NoError(t, err)
	assert.NotNil(t, listing)
	assert.Equal(t, models.StatusPending, listing.Status)

	// Creation notifies the owner of the submission
	events := dispatcher.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, models.NotifyListingSubmitted, events[0].Type)
	assert.Equal(t, ownerID, events[0].UserID)

	found, err := svc.FindListingByID(ctx, listing.ID)
	assert.NoError(t, err)
	assert.Equal(t, listing.ID, found.ID)

	_, err = svc.FindListingByID(ctx, primitive.NewObjectID())
	assert.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	newTitle := "2BHK near metro, renovated"
	updated, err := svc.UpdateListing(ctx, listing.ID, ownerID, UpdateListingInput{Title: &newTitle})
	assert.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)
	assert.Equal(t, models.StatusPending, updated.Status)

	err = svc.DeleteListingByOwner(ctx, listing.ID, ownerID)
	assert.NoError(t, err)

	_, err = svc.FindListingByID(ctx, listing.ID)
	assert.Error(t, err)
}

func TestListingService_CreateValidation(t *testing.T) {
	db := setupTestDBServices(t, "testdb_listing_service_validation")
	svc := NewListingService(db, testConfig(), nil)
	ctx := context.Background()

	_, err := svc.CreateListing(ctx, primitive.NewObjectID(), CreateListingInput{
		Title:    "Flat on the edge of the map",
		Location: geo.Point{Lat: 91, Lng: 0},
	})
	assert.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))

	_, err = svc.CreateListing(ctx, primitive.NewObjectID(), CreateListingInput{
		Location: geo.Point{Lat: 12.9, Lng: 77.6},
	})
	assert.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

func TestListingService_EditApprovedResetsToPending(t *testing.T) {
	db := setupTestDBServices(t, "testdb_listing_service_edit_approved")
	svc := NewListingService(db, testConfig(), nil)
	ctx := context.Background()

	ownerID := primitive.NewObjectID()
	listing := insertListing(t, db, ownerID, "Approved flat", 12.97, 77.59, models.StatusApproved)

	newBody := "Updated description"
	updated, err := svc.UpdateListing(ctx, listing.ID, ownerID, UpdateListingInput{Body: &newBody})
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status, "edit of a live listing must re-enter review")

	// Editing while already pending does not touch status
	again, err := svc.UpdateListing(ctx, listing.ID, ownerID, UpdateListingInput{Body: &newBody})
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)
}

func TestListingService_OwnershipEnforced(t *testing.T) {
	db := setupTestDBServices(t, "testdb_listing_service_ownership")
	svc := NewListingService(db, testConfig(), nil)
	ctx := context.Background()

	ownerID := primitive.NewObjectID()
	strangerID := primitive.NewObjectID()
	listing := insertListing(t, db, ownerID, "Owned flat", 12.97, 77.59, models.StatusPending)

	title := "hijacked"
	_, err := svc.UpdateListing(ctx, listing.ID, strangerID, UpdateListingInput{Title: &title})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	err = svc.ArchiveListing(ctx, listing.ID, strangerID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	err = svc.DeleteListingByOwner(ctx, listing.ID, strangerID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// Listing untouched
	found, err := svc.FindListingByID(ctx, listing.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Owned flat", found.Title)
}

func TestListingService_ArchiveUnarchive(t *testing.T) {
	db := setupTestDBServices(t, "testdb_listing_service_archive")
	svc := NewListingService(db, testConfig(), nil)
	ctx := context.Background()

	ownerID := primitive.NewObjectID()
	listing := insertListing(t, db, ownerID, "Seasonal flat", 12.97, 77.59, models.StatusApproved)

	err := svc.ArchiveListing(ctx, listing.ID, ownerID)
	assert.NoError(t, err)
	found, _ := svc.FindListingByID(ctx, listing.ID)
	assert.Equal(t, models.StatusArchived, found.Status)

	// Archived listings are invisible to the public
	_, err = svc.FindPublicListingByID(ctx, listing.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	err = svc.UnarchiveListing(ctx, listing.ID, ownerID)
	assert.NoError(t, err)
	found, _ = svc.FindListingByID(ctx, listing.ID)
	assert.Equal(t, models.StatusPending, found.Status, "unarchive goes back through review")

	err = svc.UnarchiveListing(ctx, listing.ID, ownerID)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

func TestListingService_DeleteCascade(t *testing.T) {
	db := setupTestDBServices(t, "testdb_listing_service_cascade")
	dispatcher := &fakeDispatcher{}
	svc := NewListingService(db, testConfig(), dispatcher)
	ctx := context.Background()

	ownerID := primitive.NewObjectID()
	listing := insertListing(t, db, ownerID, "Doomed flat", 12.97, 77.59, models.StatusApproved)

	err := svc.AddImageToListing(ctx, listing.ID, "listings/a/b/key1.jpg")
	assert.NoError(t, err)

	// Seed a related audit record
	_, err = db.Collection("admin_actions").InsertOne(ctx, models.AdminAction{
		ID:         primitive.NewObjectID(),
		ListingID:  listing.ID,
		AdminID:    primitive.NewObjectID(),
		ActionType: models.ActionApprove,
	})
	assert.NoError(t, err)

	err = svc.DeleteListingCascade(ctx, listing.ID)
	assert.NoError(t, err)

	_, err = svc.FindListingByID(ctx, listing.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	count, err := db.Collection("admin_actions").CountDocuments(ctx, map[string]interface{}{"listing_id": listing.ID})
	assert.NoError(t, err)
	assert.Zero(t, count)

	// Image cleanup queued for the stored keys
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	assert.Len(t, dispatcher.cleanups, 1)
	assert.Equal(t, []string{"listings/a/b/key1.jpg"}, dispatcher.cleanups[0])
}

func TestListingService_FindListingsByOwner(t *testing.T) {
	db := setupTestDBServices(t, "testdb_listing_service_by_owner")
	svc := NewListingService(db, testConfig(), nil)
	ctx := context.Background()

	ownerID := primitive.NewObjectID()
	insertListing(t, db, ownerID, "One", 12.97, 77.59, models.StatusPending)
	insertListing(t, db, ownerID, "Two", 12.97, 77.59, models.StatusRejected)
	insertListing(t, db, primitive.NewObjectID(), "Other", 12.97, 77.59, models.StatusApproved)

	mine, err := svc.FindListingsByOwner(ctx, ownerID)
	assert.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestListingService_AmenityLinksAndCatalog(t *testing.T) {
	db := setupTestDBServices(t, "testdb_listing_service_amenities")
	svc := NewListingService(db, testConfig(), nil)
	ctx := context.Background()

	parking := models.Amenity{ID: primitive.NewObjectID(), Slug: "parking", Name: "Parking"}
	furnished := models.Amenity{ID: primitive.NewObjectID(), Slug: "furnished", Name: "Furnished"}
	_, err := db.Collection("amenities").InsertMany(ctx, []interface{}{parking, furnished})
	assert.NoError(t, err)

	catalog, err := svc.AmenityCatalog(ctx)
	assert.NoError(t, err)
	assert.Len(t, catalog, 2)
	assert.Equal(t, "furnished", catalog[0].Slug, "catalog is ordered by slug")
	assert.Equal(t, "parking", catalog[1].Slug)

	ownerID := primitive.NewObjectID()
	listing, err := svc.CreateListing(ctx, ownerID, CreateListingInput{
		Title:      "Furnished flat with parking",
		Location:   geo.Point{Lat: 12.9716, Lng: 77.5946},
		AmenityIDs: []primitive.ObjectID{parking.ID, furnished.ID},
	})
	assert.NoError(t, err)

	links, err := svc.ListAmenities(ctx, listing.ID)
	assert.NoError(t, err)
	assert.Len(t, links, 2)
	linked := map[primitive.ObjectID]bool{}
	for _, link := range links {
		assert.Equal(t, listing.ID, link.ListingID)
		linked[link.AmenityID] = true
	}
	assert.True(t, linked[parking.ID])
	assert.True(t, linked[furnished.ID])

	// Links die with the listing.
	assert.NoError(t, svc.DeleteListingByOwner(ctx, listing.ID, ownerID))
	links, err = svc.ListAmenities(ctx, listing.ID)
	assert.NoError(t, err)
	assert.Empty(t, links)
}
