package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationPreferences allows users to opt out of email echoes of their
// inbox notifications. The inbox entry itself is always written.
type NotificationPreferences struct {
	ListingApproved bool `bson:"listing_approved" json:"listing_approved"`
	ListingRejected bool `bson:"listing_rejected" json:"listing_rejected"`
}

// User represents an account in the system.
type User struct {
	ID                      primitive.ObjectID       `bson:"_id,omitempty" json:"id,omitempty"`
	Name                    string                   `bson:"name" json:"name"`
	Email                   string                   `bson:"email" json:"email"`
	PasswordHash            string                   `bson:"password" json:"-"`
	IsAdmin                 bool                     `bson:"is_admin" json:"is_admin"`
	Suspended               bool                     `bson:"suspended" json:"suspended"`
	NotificationPreferences *NotificationPreferences `bson:"notification_preferences,omitempty" json:"notification_preferences,omitempty"`
	CreatedAt               time.Time                `bson:"created_at" json:"created_at"`
	UpdatedAt               time.Time                `bson:"updated_at" json:"updated_at"`
}
