package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sowmiyat3004/Renter-sub001/internal/apperr"
	"github.com/sowmiyat3004/Renter-sub001/internal/auth"
	"github.com/sowmiyat3004/Renter-sub001/internal/config"
	"github.com/sowmiyat3004/Renter-sub001/internal/db"
	"github.com/sowmiyat3004/Renter-sub001/internal/models"
)

// IUserService manages accounts and authentication.
type IUserService interface {
	RegisterUser(ctx context.Context, name, email, password string) (*models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (string, *models.User, error)
	FindUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateNotificationPreferences(ctx context.Context, userID primitive.ObjectID, prefs models.NotificationPreferences) error
}

// userService implements IUserService.
type userService struct {
	db         *mongo.Database
	cfg        *config.Config
	passwordRe *regexp.Regexp
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, cfg *config.Config) IUserService {
	return &userService{
		db:         database,
		cfg:        cfg,
		passwordRe: regexp.MustCompile(cfg.PasswordRegexp),
	}
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// RegisterUser creates an account with a bcrypt-hashed password. Email
// uniqueness is enforced by the unique index; a duplicate surfaces as an
// invalid-argument error rather than an internal one.
func (s *userService) RegisterUser(ctx context.Context, name, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if name == "" {
		return nil, apperr.InvalidArgument("name is required")
	}
	if !emailRe.MatchString(email) {
		return nil, apperr.InvalidArgument("invalid email address")
	}
	if !s.passwordRe.MatchString(password) {
		return nil, apperr.InvalidArgument("password does not meet requirements")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal(err, "failed to hash password")
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		NotificationPreferences: &models.NotificationPreferences{
			ListingApproved: true,
			ListingRejected: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.Collection(db.CollUsers).InsertOne(ctx, user)
	if err != nil {
		if db.IsDuplicateKeyError(err) {
			return nil, apperr.InvalidArgument("email already registered")
		}
		return nil, apperr.Internal(err, "failed to create user")
	}
	return &user, nil
}

// AuthenticateUser verifies credentials and issues a JWT. The same error is
// returned for a missing account and a wrong password.
func (s *userService) AuthenticateUser(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return "", nil, apperr.InvalidArgument("invalid email or password")
		}
		return "", nil, err
	}
	if user.Suspended {
		return "", nil, apperr.Forbidden("account is suspended")
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, apperr.InvalidArgument("invalid email or password")
	}

	token, err := auth.GenerateJWT(user.ID, user.IsAdmin, s.cfg.JwtSecret, s.cfg.JwtTTL)
	if err != nil {
		return "", nil, apperr.Internal(err, "failed to generate token")
	}
	return token, user, nil
}

// FindUserByID fetches a user by ID.
func (s *userService) FindUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(db.CollUsers).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound("user %s not found", userID.Hex())
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch user %s", userID.Hex())
	}
	return &user, nil
}

// FindUserByEmail fetches a user by email (lowercased).
func (s *userService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.Collection(db.CollUsers).FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound("no user with email %s", email)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch user by email")
	}
	return &user, nil
}

// UpdateNotificationPreferences replaces the user's notification settings.
func (s *userService) UpdateNotificationPreferences(ctx context.Context, userID primitive.ObjectID, prefs models.NotificationPreferences) error {
	result, err := s.db.Collection(db.CollUsers).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"notification_preferences": prefs, "updated_at": time.Now().UTC()}})
	if err != nil {
		return apperr.Internal(err, "failed to update preferences for user %s", userID.Hex())
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("user %s not found", userID.Hex())
	}
	return nil
}
