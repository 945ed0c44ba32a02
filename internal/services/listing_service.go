package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sowmiyat3004/Renter-sub001/internal/apperr"
	"github.com/sowmiyat3004/Renter-sub001/internal/config"
	"github.com/sowmiyat3004/Renter-sub001/internal/db"
	"github.com/sowmiyat3004/Renter-sub001/internal/geo"
	"github.com/sowmiyat3004/Renter-sub001/internal/models"
)

// CreateListingInput carries the owner-supplied fields for a new listing.
type CreateListingInput struct {
	Title      string
	Body       string
	Address    string
	Location   geo.Point
	Bedrooms   int
	Bathrooms  int
	Rent       *models.Rent
	AmenityIDs []primitive.ObjectID
}

// UpdateListingInput carries the mutable fields of an owner edit. Nil
// pointers mean "leave unchanged".
type UpdateListingInput struct {
	Title     *string
	Body      *string
	Address   *string
	Location  *geo.Point
	Bedrooms  *int
	Bathrooms *int
	Rent      *models.Rent
}

// IListingService defines the interface for listing-related operations.
type IListingService interface {
	CreateListing(ctx context.Context, ownerID primitive.ObjectID, input CreateListingInput) (*models.Listing, error)
	FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error)
	FindPublicListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error)
	BrowseApproved(ctx context.Context, limit int) ([]models.Listing, error)
	FindListingsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Listing, error)
	UpdateListing(ctx context.Context, listingID, ownerID primitive.ObjectID, input UpdateListingInput) (*models.Listing, error)
	ArchiveListing(ctx context.Context, listingID, ownerID primitive.ObjectID) error
	UnarchiveListing(ctx context.Context, listingID, ownerID primitive.ObjectID) error
	DeleteListingByOwner(ctx context.Context, listingID, ownerID primitive.ObjectID) error
	DeleteListingCascade(ctx context.Context, listingID primitive.ObjectID) error
	AddImageToListing(ctx context.Context, listingID primitive.ObjectID, imageKey string) error
	ListAmenities(ctx context.Context, listingID primitive.ObjectID) ([]models.ListingAmenity, error)
	AmenityCatalog(ctx context.Context) ([]models.Amenity, error)
}

// listingService implements IListingService.
type listingService struct {
	db         *mongo.Database
	cfg        *config.Config
	dispatcher ITaskDispatcher
}

// NewListingService creates a new ListingService. dispatcher may be nil in
// tests that don't exercise side effects.
func NewListingService(database *mongo.Database, cfg *config.Config, dispatcher ITaskDispatcher) IListingService {
	return &listingService{db: database, cfg: cfg, dispatcher: dispatcher}
}

// CreateListing inserts a new listing in PENDING and queues a submission
// notification for the owner. Coordinate validation happens before any
// store write.
func (s *listingService) CreateListing(ctx context.Context, ownerID primitive.ObjectID, input CreateListingInput) (*models.Listing, error) {
	if input.Title == "" {
		return nil, apperr.InvalidArgument("title is required")
	}
	if !input.Location.Valid() {
		return nil, apperr.InvalidArgument("listing coordinates out of range: lat=%v lng=%v", input.Location.Lat, input.Location.Lng)
	}

	collection := s.db.Collection(db.CollListings)
	now := time.Now().UTC()

	listing := &models.Listing{
		ID:        primitive.NewObjectID(),
		OwnerID:   ownerID,
		Title:     input.Title,
		Body:      input.Body,
		Address:   input.Address,
		Lat:       input.Location.Lat,
		Lng:       input.Location.Lng,
		Bedrooms:  input.Bedrooms,
		Bathrooms: input.Bathrooms,
		Rent:      input.Rent,
		Images:    []string{},
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := db.Try(func() error {
		_, insertErr := collection.InsertOne(ctx, listing)
		return insertErr
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to insert listing for owner %s", ownerID.Hex())
	}

	if len(input.AmenityIDs) > 0 {
		links := make([]interface{}, 0, len(input.AmenityIDs))
		for _, amenityID := range input.AmenityIDs {
			links = append(links, models.ListingAmenity{
				ID:        primitive.NewObjectID(),
				ListingID: listing.ID,
				AmenityID: amenityID,
			})
		}
		if _, err := s.db.Collection(db.CollListingAmenity).InsertMany(ctx, links); err != nil {
			log.Printf("Failed to insert amenity links for listing %s: %v", listing.ID.Hex(), err)
		}
	}

	s.notify(ctx, NotificationEvent{
		UserID:    ownerID,
		Type:      models.NotifyListingSubmitted,
		Title:     "Listing submitted for review",
		Message:   fmt.Sprintf("Your listing %q has been submitted and is awaiting review.", listing.Title),
		ListingID: &listing.ID,
	})

	return listing, nil
}

// FindListingByID returns a listing regardless of status. Ownership and
// visibility checks belong to the caller.
func (s *listingService) FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Collection(db.CollListings).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("listing %s not found", listingID.Hex())
		}
		return nil, apperr.Internal(err, "error finding listing %s", listingID.Hex())
	}
	return &listing, nil
}

// FindPublicListingByID returns a listing only if it is APPROVED; anything
// else reads as not found to the public.
func (s *listingService) FindPublicListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	filter := bson.M{"_id": listingID, "status": models.StatusApproved}
	err := s.db.Collection(db.CollListings).FindOne(ctx, filter).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("listing %s not found", listingID.Hex())
		}
		return nil, apperr.Internal(err, "error finding listing %s", listingID.Hex())
	}
	return &listing, nil
}

// BrowseApproved returns the most recently published approved listings.
func (s *listingService) BrowseApproved(ctx context.Context, limit int) ([]models.Listing, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.db.Collection(db.CollListings).Find(ctx, bson.M{"status": models.StatusApproved}, opts)
	if err != nil {
		return nil, apperr.Internal(err, "failed to browse listings")
	}
	defer cursor.Close(ctx)

	var results []models.Listing
	if err = cursor.All(ctx, &results); err != nil {
		return nil, apperr.Internal(err, "failed to decode browse results")
	}
	return results, nil
}

// FindListingsByOwner returns every listing owned by the user, all statuses.
func (s *listingService) FindListingsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := s.db.Collection(db.CollListings).Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch listings for owner %s", ownerID.Hex())
	}
	defer cursor.Close(ctx)

	var results []models.Listing
	if err = cursor.All(ctx, &results); err != nil {
		return nil, apperr.Internal(err, "failed to decode owner listings")
	}
	return results, nil
}

// UpdateListing applies an owner edit. Editing an APPROVED listing resets it
// to PENDING so it re-enters the review queue; this is the owner-triggered
// transition of the moderation lifecycle.
func (s *listingService) UpdateListing(ctx context.Context, listingID, ownerID primitive.ObjectID, input UpdateListingInput) (*models.Listing, error) {
	if input.Location != nil && !input.Location.Valid() {
		return nil, apperr.InvalidArgument("listing coordinates out of range: lat=%v lng=%v", input.Location.Lat, input.Location.Lng)
	}

	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != ownerID {
		return nil, apperr.Forbidden("listing %s does not belong to user %s", listingID.Hex(), ownerID.Hex())
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if input.Title != nil {
		set["title"] = *input.Title
	}
	if input.Body != nil {
		set["body"] = *input.Body
	}
	if input.Address != nil {
		set["address"] = *input.Address
	}
	if input.Location != nil {
		set["lat"] = input.Location.Lat
		set["lng"] = input.Location.Lng
	}
	if input.Bedrooms != nil {
		set["bedrooms"] = *input.Bedrooms
	}
	if input.Bathrooms != nil {
		set["bathrooms"] = *input.Bathrooms
	}
	if input.Rent != nil {
		set["rent"] = input.Rent
	}
	if listing.Status == models.StatusApproved {
		set["status"] = models.StatusPending
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Listing
	err = s.db.Collection(db.CollListings).FindOneAndUpdate(ctx,
		bson.M{"_id": listingID, "owner_id": ownerID},
		bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("listing %s not found", listingID.Hex())
		}
		return nil, apperr.Internal(err, "failed to update listing %s", listingID.Hex())
	}

	return &updated, nil
}

// ArchiveListing hides a listing from review and public view at the owner's
// request. Reversible via UnarchiveListing.
func (s *listingService) ArchiveListing(ctx context.Context, listingID, ownerID primitive.ObjectID) error {
	return s.setOwnerStatus(ctx, listingID, ownerID, models.StatusArchived)
}

// UnarchiveListing puts an archived listing back into the review queue.
func (s *listingService) UnarchiveListing(ctx context.Context, listingID, ownerID primitive.ObjectID) error {
	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != ownerID {
		return apperr.Forbidden("listing %s does not belong to user %s", listingID.Hex(), ownerID.Hex())
	}
	if listing.Status != models.StatusArchived {
		return apperr.InvalidArgument("listing %s is not archived", listingID.Hex())
	}
	return s.setOwnerStatus(ctx, listingID, ownerID, models.StatusPending)
}

func (s *listingService) setOwnerStatus(ctx context.Context, listingID, ownerID primitive.ObjectID, status models.ListingStatus) error {
	result, err := s.db.Collection(db.CollListings).UpdateOne(ctx,
		bson.M{"_id": listingID, "owner_id": ownerID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}})
	if err != nil {
		return apperr.Internal(err, "db error updating listing %s", listingID.Hex())
	}
	if result.MatchedCount == 0 {
		// Distinguish not-found from not-owned for the caller.
		var listing models.Listing
		checkErr := s.db.Collection(db.CollListings).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return apperr.NotFound("listing %s not found", listingID.Hex())
		}
		return apperr.Forbidden("listing %s does not belong to user %s", listingID.Hex(), ownerID.Hex())
	}
	return nil
}

// DeleteListingByOwner removes the owner's listing with full cascade.
func (s *listingService) DeleteListingByOwner(ctx context.Context, listingID, ownerID primitive.ObjectID) error {
	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != ownerID {
		return apperr.Forbidden("listing %s does not belong to user %s", listingID.Hex(), ownerID.Hex())
	}
	return s.DeleteListingCascade(ctx, listingID)
}

// DeleteListingCascade removes the listing and every record it owns: amenity
// links and admin-action history. Photo objects are cleaned up by a
// background task after the store delete. No notification is emitted.
func (s *listingService) DeleteListingCascade(ctx context.Context, listingID primitive.ObjectID) error {
	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return err
	}

	if _, err := s.db.Collection(db.CollListings).DeleteOne(ctx, bson.M{"_id": listingID}); err != nil {
		return apperr.Internal(err, "failed to delete listing %s", listingID.Hex())
	}
	if _, err := s.db.Collection(db.CollListingAmenity).DeleteMany(ctx, bson.M{"listing_id": listingID}); err != nil {
		return apperr.Internal(err, "failed to delete amenity links for listing %s", listingID.Hex())
	}
	if _, err := s.db.Collection(db.CollAdminActions).DeleteMany(ctx, bson.M{"listing_id": listingID}); err != nil {
		return apperr.Internal(err, "failed to delete admin actions for listing %s", listingID.Hex())
	}

	if len(listing.Images) > 0 && s.dispatcher != nil {
		if err := s.dispatcher.DispatchImageCleanup(ctx, listing.Images); err != nil {
			log.Printf("Failed to enqueue image cleanup for listing %s: %v", listingID.Hex(), err)
		}
	}

	return nil
}

// AddImageToListing attaches a processed photo key. Called by the image
// worker once normalization has finished.
func (s *listingService) AddImageToListing(ctx context.Context, listingID primitive.ObjectID, imageKey string) error {
	result, err := s.db.Collection(db.CollListings).UpdateOne(ctx,
		bson.M{"_id": listingID},
		bson.M{
			"$addToSet": bson.M{"images": imageKey},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return apperr.Internal(err, "db error adding image %s to listing %s", imageKey, listingID.Hex())
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("listing %s not found when adding image", listingID.Hex())
	}
	return nil
}

// ListAmenities returns the amenity links of a listing.
func (s *listingService) ListAmenities(ctx context.Context, listingID primitive.ObjectID) ([]models.ListingAmenity, error) {
	cursor, err := s.db.Collection(db.CollListingAmenity).Find(ctx, bson.M{"listing_id": listingID})
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch amenities for listing %s", listingID.Hex())
	}
	defer cursor.Close(ctx)

	var links []models.ListingAmenity
	if err = cursor.All(ctx, &links); err != nil {
		return nil, apperr.Internal(err, "failed to decode amenity links")
	}
	return links, nil
}

// AmenityCatalog returns every amenity a listing can offer, ordered by slug.
func (s *listingService) AmenityCatalog(ctx context.Context) ([]models.Amenity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "slug", Value: 1}})
	cursor, err := s.db.Collection(db.CollAmenities).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch amenity catalog")
	}
	defer cursor.Close(ctx)

	var amenities []models.Amenity
	if err = cursor.All(ctx, &amenities); err != nil {
		return nil, apperr.Internal(err, "failed to decode amenity catalog")
	}
	return amenities, nil
}

// notify enqueues a notification event, logging but never propagating a
// dispatch failure.
func (s *listingService) notify(ctx context.Context, event NotificationEvent) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.DispatchNotification(ctx, event); err != nil {
		log.Printf("Failed to enqueue %s notification for user %s: %v", event.Type, event.UserID.Hex(), err)
	}
}
