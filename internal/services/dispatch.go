package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sowmiyat3004/Renter-sub001/internal/models"
)

// NotificationEvent is the outbound event emitted after a listing transition
// commits. The background worker turns it into an inbox Notification and an
// optional email. Delivery is at-least-once and unordered.
type NotificationEvent struct {
	UserID    primitive.ObjectID      `json:"user_id"`
	Type      models.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	ListingID *primitive.ObjectID     `json:"listing_id,omitempty"`
}

// ITaskDispatcher hands events off to the background task queue. Services
// call it only after their own store writes have committed; a dispatch
// failure is logged by the caller and never propagated, so the transition
// remains the system of record.
type ITaskDispatcher interface {
	DispatchNotification(ctx context.Context, event NotificationEvent) error
	DispatchImageCleanup(ctx context.Context, keys []string) error
}
