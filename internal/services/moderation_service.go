package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sowmiyat3004/Renter-sub001/internal/apperr"
	"github.com/sowmiyat3004/Renter-sub001/internal/db"
	"github.com/sowmiyat3004/Renter-sub001/internal/models"
)

// transitions maps each admin action to the statuses it may be applied from
// and the status it produces. SUSPEND deliberately collapses into REJECTED:
// the product has no distinct suspended state yet, so the rejection path is
// reused while the audit record keeps the original SUSPEND action type.
var transitions = map[models.AdminActionType]struct {
	from []models.ListingStatus
	to   models.ListingStatus
}{
	models.ActionApprove: {from: []models.ListingStatus{models.StatusPending, models.StatusRejected}, to: models.StatusApproved},
	models.ActionReject:  {from: []models.ListingStatus{models.StatusPending, models.StatusApproved}, to: models.StatusRejected},
	models.ActionSuspend: {from: []models.ListingStatus{models.StatusApproved, models.StatusPending}, to: models.StatusRejected},
}

// IModerationService governs the listing review lifecycle.
type IModerationService interface {
	Moderate(ctx context.Context, listingID, adminID primitive.ObjectID, isAdmin bool, action models.AdminActionType, reason string) error
	PendingQueue(ctx context.Context, limit int) ([]models.Listing, error)
	ActionHistory(ctx context.Context, listingID primitive.ObjectID) ([]models.AdminAction, error)
}

// moderationService implements IModerationService.
type moderationService struct {
	db             *mongo.Database
	listingService IListingService
	dispatcher     ITaskDispatcher
}

// NewModerationService creates a new ModerationService. The listing service
// supplies the cascade delete; dispatcher may be nil in tests.
func NewModerationService(database *mongo.Database, listingService IListingService, dispatcher ITaskDispatcher) IModerationService {
	return &moderationService{db: database, listingService: listingService, dispatcher: dispatcher}
}

// Moderate applies an administrator action to a listing. The status update
// and the audit-record insert commit together; the owner notification is
// enqueued only after the commit and its failure never surfaces to the
// caller. Validation order matches the propagation policy: arguments first,
// then privilege, then existence, all before any store mutation.
func (s *moderationService) Moderate(ctx context.Context, listingID, adminID primitive.ObjectID, isAdmin bool, action models.AdminActionType, reason string) error {
	if !action.Valid() {
		return apperr.InvalidArgument("unrecognized moderation action %q", action)
	}
	if !isAdmin {
		return apperr.Forbidden("moderation requires administrator privileges")
	}

	listing, err := s.listingService.FindListingByID(ctx, listingID)
	if err != nil {
		return err
	}

	if action == models.ActionDelete {
		// Removal with cascade; no notification, audit log goes with the
		// listing.
		return s.listingService.DeleteListingCascade(ctx, listingID)
	}

	t := transitions[action]
	if !statusIn(listing.Status, t.from) {
		return apperr.InvalidArgument("action %s is not valid for listing %s in status %s", action, listingID.Hex(), listing.Status)
	}

	if err := s.applyTransition(ctx, listing, adminID, action, t.to, reason); err != nil {
		return err
	}

	s.notifyOwner(ctx, listing, action, reason)
	return nil
}

// applyTransition writes the status change and the audit record atomically.
// On deployments without transaction support (standalone mongod) it falls
// back to sequential writes, status first, so a crash can at worst lose the
// audit row of an uncommitted transition, never record an action that did
// not happen.
func (s *moderationService) applyTransition(ctx context.Context, listing *models.Listing, adminID primitive.ObjectID, action models.AdminActionType, to models.ListingStatus, reason string) error {
	now := time.Now().UTC()

	set := bson.M{"status": to, "updated_at": now}
	if to == models.StatusApproved && listing.PublishedAt == nil {
		set["published_at"] = now
	}

	audit := models.AdminAction{
		ID:         primitive.NewObjectID(),
		ListingID:  listing.ID,
		AdminID:    adminID,
		ActionType: action,
		Reason:     reason,
		CreatedAt:  now,
	}

	writes := func(sc context.Context) error {
		// Guard on the source status so a concurrent transition loses
		// cleanly instead of double-applying.
		result, err := s.db.Collection(db.CollListings).UpdateOne(sc,
			bson.M{"_id": listing.ID, "status": listing.Status},
			bson.M{"$set": set})
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return apperr.NotFound("listing %s no longer in status %s", listing.ID.Hex(), listing.Status)
		}
		_, err = s.db.Collection(db.CollAdminActions).InsertOne(sc, audit)
		return err
	}

	session, err := s.db.Client().StartSession()
	if err != nil {
		return apperr.Internal(err, "failed to start moderation session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, writes(sc)
	})
	if err != nil && isTransactionUnsupported(err) {
		log.Printf("Transactions unavailable, applying moderation writes sequentially for listing %s", listing.ID.Hex())
		err = writes(ctx)
	}
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return ae
		}
		return apperr.Internal(err, "moderation transition failed for listing %s", listing.ID.Hex())
	}
	return nil
}

// notifyOwner enqueues the owner notification for a committed transition.
// Best-effort: failures are logged and swallowed.
func (s *moderationService) notifyOwner(ctx context.Context, listing *models.Listing, action models.AdminActionType, reason string) {
	if s.dispatcher == nil {
		return
	}

	event := NotificationEvent{
		UserID:    listing.OwnerID,
		ListingID: &listing.ID,
	}
	switch action {
	case models.ActionApprove:
		event.Type = models.NotifyListingApproved
		event.Title = "Listing approved"
		event.Message = fmt.Sprintf("Your listing %q has been approved and is now visible to renters.", listing.Title)
	case models.ActionReject, models.ActionSuspend:
		event.Type = models.NotifyListingRejected
		event.Title = "Listing rejected"
		event.Message = fmt.Sprintf("Your listing %q has been rejected.", listing.Title)
		if reason != "" {
			event.Message = fmt.Sprintf("%s Reason: %s", event.Message, reason)
		}
	default:
		return
	}

	if err := s.dispatcher.DispatchNotification(ctx, event); err != nil {
		log.Printf("Failed to enqueue %s notification for listing %s owner %s: %v",
			action, listing.ID.Hex(), listing.OwnerID.Hex(), err)
	}
}

// PendingQueue returns listings awaiting review, oldest first so reviewers
// work through the backlog in submission order.
func (s *moderationService) PendingQueue(ctx context.Context, limit int) ([]models.Listing, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.db.Collection(db.CollListings).Find(ctx, bson.M{"status": models.StatusPending}, opts)
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch review queue")
	}
	defer cursor.Close(ctx)

	var results []models.Listing
	if err = cursor.All(ctx, &results); err != nil {
		return nil, apperr.Internal(err, "failed to decode review queue")
	}
	return results, nil
}

// ActionHistory returns the audit trail of a listing, newest first.
func (s *moderationService) ActionHistory(ctx context.Context, listingID primitive.ObjectID) ([]models.AdminAction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(db.CollAdminActions).Find(ctx, bson.M{"listing_id": listingID}, opts)
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch action history for listing %s", listingID.Hex())
	}
	defer cursor.Close(ctx)

	var actions []models.AdminAction
	if err = cursor.All(ctx, &actions); err != nil {
		return nil, apperr.Internal(err, "failed to decode action history")
	}
	return actions, nil
}

func statusIn(status models.ListingStatus, set []models.ListingStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// isTransactionUnsupported detects the standalone-deployment error so the
// transition can fall back to sequential writes.
func isTransactionUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 20 {
		return true
	}
	return strings.Contains(err.Error(), "Transaction numbers are only allowed")
}
