package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType tags the event that produced an inbox entry.
type NotificationType string

const (
	NotifyListingSubmitted NotificationType = "listing_submitted"
	NotifyListingApproved  NotificationType = "listing_approved"
	NotifyListingRejected  NotificationType = "listing_rejected"
)

// Notification is a per-user inbox entry. Entries are created by the
// notification worker as a side effect of moderation transitions and listing
// creation; the only mutation afterwards is the owning user marking one read.
type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Type      NotificationType    `bson:"type" json:"type"`
	Title     string              `bson:"title" json:"title"`
	Message   string              `bson:"message" json:"message"`
	ListingID *primitive.ObjectID `bson:"listing_id,omitempty" json:"listing_id,omitempty"`
	Read      bool                `bson:"read" json:"read"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
