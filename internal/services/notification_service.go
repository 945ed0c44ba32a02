package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sowmiyat3004/Renter-sub001/internal/apperr"
	"github.com/sowmiyat3004/Renter-sub001/internal/db"
	"github.com/sowmiyat3004/Renter-sub001/internal/models"
)

// INotificationService manages in-app notifications.
type INotificationService interface {
	CreateNotification(ctx context.Context, event NotificationEvent) (*models.Notification, error)
	FindNotificationsByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID primitive.ObjectID) error
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// notificationService implements INotificationService.
type notificationService struct {
	db *mongo.Database
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(database *mongo.Database) INotificationService {
	return &notificationService{db: database}
}

// CreateNotification persists an unread notification from an event.
func (s *notificationService) CreateNotification(ctx context.Context, event NotificationEvent) (*models.Notification, error) {
	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    event.UserID,
		Type:      event.Type,
		Title:     event.Title,
		Message:   event.Message,
		ListingID: event.ListingID,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Collection(db.CollNotifications).InsertOne(ctx, notification)
	if err != nil {
		return nil, apperr.Internal(err, "failed to create notification for user %s", event.UserID.Hex())
	}
	return &notification, nil
}

// FindNotificationsByUser returns the user's notifications, newest first.
func (s *notificationService) FindNotificationsByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.db.Collection(db.CollNotifications).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch notifications for user %s", userID.Hex())
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, apperr.Internal(err, "failed to decode notifications")
	}
	return notifications, nil
}

// MarkNotificationRead flags a notification as read. Only the recipient may
// do so.
func (s *notificationService) MarkNotificationRead(ctx context.Context, notificationID, userID primitive.ObjectID) error {
	var notification models.Notification
	err := s.db.Collection(db.CollNotifications).FindOne(ctx, bson.M{"_id": notificationID}).Decode(&notification)
	if err == mongo.ErrNoDocuments {
		return apperr.NotFound("notification %s not found", notificationID.Hex())
	}
	if err != nil {
		return apperr.Internal(err, "failed to fetch notification %s", notificationID.Hex())
	}
	if notification.UserID != userID {
		return apperr.Forbidden("notification %s does not belong to user %s", notificationID.Hex(), userID.Hex())
	}

	_, err = s.db.Collection(db.CollNotifications).UpdateOne(ctx,
		bson.M{"_id": notificationID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return apperr.Internal(err, "failed to mark notification %s read", notificationID.Hex())
	}
	return nil
}

// CountUnread returns how many notifications the user has not read yet.
func (s *notificationService) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	count, err := s.db.Collection(db.CollNotifications).CountDocuments(ctx,
		bson.M{"user_id": userID, "read": false})
	if err != nil {
		return 0, apperr.Internal(err, "failed to count unread notifications for user %s", userID.Hex())
	}
	return count, nil
}
