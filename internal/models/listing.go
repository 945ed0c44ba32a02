package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListingStatus is the moderation lifecycle state of a listing.
type ListingStatus string

const (
	StatusDraft    ListingStatus = "DRAFT"
	StatusPending  ListingStatus = "PENDING"
	StatusApproved ListingStatus = "APPROVED"
	StatusRejected ListingStatus = "REJECTED"
	StatusArchived ListingStatus = "ARCHIVED"
)

// Valid reports whether s is one of the known lifecycle states.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusArchived:
		return true
	}
	return false
}

// Rent defines the monthly asking rent for a property.
type Rent struct {
	Value        float64 `bson:"value" json:"value"`
	CurrencyCode string  `bson:"currency_code" json:"currency_code"`
}

// Listing represents a rental property record. Only APPROVED listings are
// visible to public browsing and proximity search. Status changes go through
// the moderation service; an owner edit to an APPROVED listing puts it back
// into PENDING for re-review.
type Listing struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Title       string             `bson:"title" json:"title"`
	Body        string             `bson:"body" json:"body"`
	Address     string             `bson:"address" json:"address"`
	Lat         float64            `bson:"lat" json:"lat"`
	Lng         float64            `bson:"lng" json:"lng"`
	Bedrooms    int                `bson:"bedrooms" json:"bedrooms"`
	Bathrooms   int                `bson:"bathrooms" json:"bathrooms"`
	Rent        *Rent              `bson:"rent,omitempty" json:"rent,omitempty"`
	Images      []string           `bson:"images" json:"images"` // S3 keys
	Status      ListingStatus      `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
	PublishedAt *time.Time         `bson:"published_at,omitempty" json:"published_at,omitempty"` // set on first approval

	// Amenities is populated from the listing_amenities links on the
	// detail response; never stored on the listing document itself.
	Amenities []ListingAmenity `bson:"-" json:"amenities,omitempty"`
}
