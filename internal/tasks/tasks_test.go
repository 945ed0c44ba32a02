package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sowmiyat3004/Renter-sub001/internal/config"
	"github.com/sowmiyat3004/Renter-sub001/internal/models"
	"github.com/sowmiyat3004/Renter-sub001/internal/services"
	"github.com/sowmiyat3004/Renter-sub001/internal/tasks"
)

// --- Mocks ---

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	args := m.Called(ctx, to, subject, rawMessage)
	return args.Error(0)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) CreateNotification(ctx context.Context, event services.NotificationEvent) (*models.Notification, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationService) FindNotificationsByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkNotificationRead(ctx context.Context, notificationID, userID primitive.ObjectID) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *MockNotificationService) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) RegisterUser(ctx context.Context, name, email, password string) (*models.User, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) AuthenticateUser(ctx context.Context, email, password string) (string, *models.User, error) {
	args := m.Called(ctx, email, password)
	var user *models.User
	if args.Get(1) != nil {
		user = args.Get(1).(*models.User)
	}
	return args.String(0), user, args.Error(2)
}

func (m *MockUserService) FindUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateNotificationPreferences(ctx context.Context, userID primitive.ObjectID, prefs models.NotificationPreferences) error {
	args := m.Called(ctx, userID, prefs)
	return args.Error(0)
}

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) GeneratePresignedPutURL(ctx context.Context, ownerID, listingID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, ownerID, listingID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// --- Tests ---

func TestHandleNotificationDeliveryTask_WithEmailEcho(t *testing.T) {
	mockEmailSender := new(MockEmailSender)
	mockNotifSvc := new(MockNotificationService)
	mockUserSvc := new(MockUserService)
	cfg := &config.Config{SmtpFromAddress: "noreply@renter.example.com"}

	p := tasks.NewTaskProcessor(cfg, mockEmailSender, nil, nil, mockNotifSvc, mockUserSvc, nil)

	userID := primitive.NewObjectID()
	listingID := primitive.NewObjectID()
	event := services.NotificationEvent{
		UserID:    userID,
		Type:      models.NotifyListingApproved,
		Title:     "Listing approved",
		Message:   "Your listing is now live.",
		ListingID: &listingID,
	}
	payloadBytes, _ := json.Marshal(event)
	task := asynq.NewTask(tasks.TypeNotificationDeliver, payloadBytes)

	mockNotifSvc.On("CreateNotification", mock.Anything, event).
		Return(&models.Notification{ID: primitive.NewObjectID()}, nil)

	user := &models.User{
		ID:    userID,
		Email: "owner@example.com",
		NotificationPreferences: &models.NotificationPreferences{
			ListingApproved: true,
			ListingRejected: true,
		},
	}
	mockUserSvc.On("FindUserByID", mock.Anything, userID).Return(user, nil)

	mockEmailSender.On("Send",
		mock.Anything,
		[]string{"owner@example.com"},
		"Listing approved",
		mock.MatchedBy(func(rawMsg []byte) bool {
			msgStr := string(rawMsg)
			assert.Contains(t, msgStr, "To: owner@example.com")
			assert.Contains(t, msgStr, fmt.Sprintf("From: %s", cfg.SmtpFromAddress))
			assert.Contains(t, msgStr, "Your listing is now live.")
			return true
		}),
	).Return(nil)

	err := p.HandleNotificationDeliveryTask(context.Background(), task)

	assert.NoError(t, err)
	mockNotifSvc.AssertExpectations(t)
	mockUserSvc.AssertExpectations(t)
	mockEmailSender.AssertExpectations(t)
}

func TestHandleNotificationDeliveryTask_RespectsOptOut(t *testing.T) {
	mockEmailSender := new(MockEmailSender)
	mockNotifSvc := new(MockNotificationService)
	mockUserSvc := new(MockUserService)
	cfg := &config.Config{}

	p := tasks.NewTaskProcessor(cfg, mockEmailSender, nil, nil, mockNotifSvc, mockUserSvc, nil)

	userID := primitive.NewObjectID()
	event := services.NotificationEvent{
		UserID:  userID,
		Type:    models.NotifyListingRejected,
		Title:   "Listing rejected",
		Message: "Your listing was rejected.",
	}
	payloadBytes, _ := json.Marshal(event)
	task := asynq.NewTask(tasks.TypeNotificationDeliver, payloadBytes)

	mockNotifSvc.On("CreateNotification", mock.Anything, event).
		Return(&models.Notification{ID: primitive.NewObjectID()}, nil)

	user := &models.User{
		ID:    userID,
		Email: "owner@example.com",
		NotificationPreferences: &models.NotificationPreferences{
			ListingApproved: true,
			ListingRejected: false,
		},
	}
	mockUserSvc.On("FindUserByID", mock.Anything, userID).Return(user, nil)

	err := p.HandleNotificationDeliveryTask(context.Background(), task)

	assert.NoError(t, err)
	mockNotifSvc.AssertExpectations(t)
	mockEmailSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleNotificationDeliveryTask_BadPayload(t *testing.T) {
	p := tasks.NewTaskProcessor(&config.Config{}, nil, nil, nil, nil, nil, nil)

	task := asynq.NewTask(tasks.TypeNotificationDeliver, []byte("not json"))
	err := p.HandleNotificationDeliveryTask(context.Background(), task)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "malformed payloads must not retry")
}

func TestHandleImageCleanupTask(t *testing.T) {
	mockStorage := new(MockObjectStorage)
	p := tasks.NewTaskProcessor(&config.Config{}, nil, mockStorage, nil, nil, nil, nil)

	payloadBytes, _ := json.Marshal(tasks.ImageCleanupPayload{Keys: []string{"k1", "k2"}})
	task := asynq.NewTask(tasks.TypeImageCleanup, payloadBytes)

	mockStorage.On("DeleteObject", mock.Anything, "k1").Return(nil)
	mockStorage.On("DeleteObject", mock.Anything, "k2").Return(nil)

	err := p.HandleImageCleanupTask(context.Background(), task)
	assert.NoError(t, err)
	mockStorage.AssertExpectations(t)
}

func TestHandleImageCleanupTask_PartialFailureRetries(t *testing.T) {
	mockStorage := new(MockObjectStorage)
	p := tasks.NewTaskProcessor(&config.Config{}, nil, mockStorage, nil, nil, nil, nil)

	payloadBytes, _ := json.Marshal(tasks.ImageCleanupPayload{Keys: []string{"k1", "k2"}})
	task := asynq.NewTask(tasks.TypeImageCleanup, payloadBytes)

	mockStorage.On("DeleteObject", mock.Anything, "k1").Return(nil)
	mockStorage.On("DeleteObject", mock.Anything, "k2").Return(errors.New("transient s3 error"))

	err := p.HandleImageCleanupTask(context.Background(), task)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	mockStorage.AssertExpectations(t)
}
