package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminActionType identifies a moderation action taken by an administrator.
type AdminActionType string

const (
	ActionApprove AdminActionType = "APPROVE"
	ActionReject  AdminActionType = "REJECT"
	ActionSuspend AdminActionType = "SUSPEND"
	ActionDelete  AdminActionType = "DELETE"
)

// Valid reports whether a is a recognized action token.
func (a AdminActionType) Valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionSuspend, ActionDelete:
		return true
	}
	return false
}

// AdminAction is an immutable audit record of a moderation action. Records
// are append-only: inserted together with the status transition and never
// updated afterwards. They are owned by the listing and removed only when
// the listing itself is deleted.
type AdminAction struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ListingID  primitive.ObjectID `bson:"listing_id" json:"listing_id"`
	AdminID    primitive.ObjectID `bson:"admin_id" json:"admin_id"`
	ActionType AdminActionType    `bson:"action_type" json:"action_type"`
	Reason     string             `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
