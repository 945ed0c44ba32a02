package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Amenity is a catalog entry (e.g. "parking", "furnished").
type Amenity struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Slug string             `bson:"slug" json:"slug"`
	Name string             `bson:"name" json:"name"`
}

// ListingAmenity links a listing to an amenity. Link records are owned by the
// listing and deleted with it.
type ListingAmenity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ListingID primitive.ObjectID `bson:"listing_id" json:"listing_id"`
	AmenityID primitive.ObjectID `bson:"amenity_id" json:"amenity_id"`
}
