package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sowmiyat3004/Renter-sub001/internal/config"
	"github.com/sowmiyat3004/Renter-sub001/internal/email"
	"github.com/sowmiyat3004/Renter-sub001/internal/models"
	"github.com/sowmiyat3004/Renter-sub001/internal/services"
	"github.com/sowmiyat3004/Renter-sub001/internal/storage"
)

// Task types handled by the background workers.
const (
	TypeNotificationDeliver = "notify:deliver"
	TypeImageProcess        = "image:process"
	TypeImageCleanup        = "image:cleanup"
)

// NewClient creates an asynq client bound to the shared Redis instance.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	})
}

// dispatcher enqueues task payloads for the workers. It is the production
// implementation of services.ITaskDispatcher.
type dispatcher struct {
	client *asynq.Client
}

// NewDispatcher wraps an asynq client as a task dispatcher.
func NewDispatcher(client *asynq.Client) services.ITaskDispatcher {
	return &dispatcher{client: client}
}

func (d *dispatcher) DispatchNotification(ctx context.Context, event services.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}
	task := asynq.NewTask(TypeNotificationDeliver, payload)
	_, err = d.client.EnqueueContext(ctx, task, asynq.Queue("default"), asynq.MaxRetry(5))
	return err
}

// ImageCleanupPayload names the stored objects to remove after a listing is
// deleted.
type ImageCleanupPayload struct {
	Keys []string `json:"keys"`
}

func (d *dispatcher) DispatchImageCleanup(ctx context.Context, keys []string) error {
	payload, err := json.Marshal(ImageCleanupPayload{Keys: keys})
	if err != nil {
		return fmt.Errorf("failed to marshal cleanup payload: %w", err)
	}
	task := asynq.NewTask(TypeImageCleanup, payload)
	_, err = d.client.EnqueueContext(ctx, task, asynq.Queue("low"), asynq.MaxRetry(10))
	return err
}

// EnqueueImageProcess queues normalization of a photo being uploaded through
// a presigned URL. The delay gives the client time to finish the upload
// before the worker fetches the object.
func EnqueueImageProcess(ctx context.Context, client *asynq.Client, s3Key string, listingID primitive.ObjectID, delay time.Duration) error {
	payload, err := json.Marshal(ImageTaskPayload{S3Key: s3Key, ListingID: listingID.Hex()})
	if err != nil {
		return fmt.Errorf("failed to marshal image task payload: %w", err)
	}
	task := asynq.NewTask(TypeImageProcess, payload)
	opts := []asynq.Option{asynq.Queue("images"), asynq.MaxRetry(3)}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	_, err = client.EnqueueContext(ctx, task, opts...)
	return err
}

// TaskProcessor holds the dependencies the task handlers need.
type TaskProcessor struct {
	cfg                 *config.Config
	emailSender         email.Sender
	objectStorage       storage.IObjectStorage
	listingService      services.IListingService
	notificationService services.INotificationService
	userService         services.IUserService
	s3Client            *s3.Client
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	objectStorage storage.IObjectStorage,
	listingService services.IListingService,
	notificationService services.INotificationService,
	userService services.IUserService,
	s3Client *s3.Client,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:                 cfg,
		emailSender:         emailSender,
		objectStorage:       objectStorage,
		listingService:      listingService,
		notificationService: notificationService,
		userService:         userService,
		s3Client:            s3Client,
	}
}

// SetupServer configures an asynq server and mux for the requested worker
// modes. The caller runs the server; nil is returned when no worker mode is
// active.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker bool, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
				"images":   5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	if isBgWorker {
		mux.HandleFunc(TypeNotificationDeliver, processor.HandleNotificationDeliveryTask)
		mux.HandleFunc(TypeImageCleanup, processor.HandleImageCleanupTask)
		log.Println("Registered notification and cleanup task handlers.")
	}

	if isImageWorker {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Println("Registered image processing task handlers.")
	}

	if !isBgWorker && !isImageWorker {
		log.Println("Running in API mode, no task server started.")
		return nil, nil
	}

	return srv, mux
}

// HandleNotificationDeliveryTask writes the inbox notification and, when the
// recipient has opted in, echoes it by email. The inbox write is the source
// of truth; an email failure is logged, not retried, so users never receive
// duplicate mails for one event.
func (p *TaskProcessor) HandleNotificationDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var event services.NotificationEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("failed to unmarshal notification payload: %v: %w", err, asynq.SkipRetry)
	}

	if _, err := p.notificationService.CreateNotification(ctx, event); err != nil {
		log.Printf("Error creating notification for user %s: %v", event.UserID.Hex(), err)
		return err
	}

	if p.shouldEmail(ctx, event) {
		if err := p.sendNotificationEmail(ctx, event); err != nil {
			log.Printf("Email echo failed for user %s notification %s: %v", event.UserID.Hex(), event.Type, err)
		}
	}

	return nil
}

func (p *TaskProcessor) shouldEmail(ctx context.Context, event services.NotificationEvent) bool {
	user, err := p.userService.FindUserByID(ctx, event.UserID)
	if err != nil {
		log.Printf("Error fetching user %s for email preferences: %v", event.UserID.Hex(), err)
		return false
	}
	if user.NotificationPreferences == nil {
		return true
	}
	switch event.Type {
	case models.NotifyListingApproved:
		return user.NotificationPreferences.ListingApproved
	case models.NotifyListingRejected:
		return user.NotificationPreferences.ListingRejected
	default:
		// Submission receipts stay in-app only
		return false
	}
}

func (p *TaskProcessor) sendNotificationEmail(ctx context.Context, event services.NotificationEvent) error {
	user, err := p.userService.FindUserByID(ctx, event.UserID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", user.Email))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", p.cfg.SmtpFromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", event.Title))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(event.Message)
	sb.WriteString("\r\n")

	return p.emailSender.Send(ctx, []string{user.Email}, event.Title, []byte(sb.String()))
}

// ImageTaskPayload identifies an uploaded photo awaiting normalization.
type ImageTaskPayload struct {
	S3Key     string `json:"s3_key"`
	ListingID string `json:"listing_id"`
}

// HandleImageProcessTask downloads an uploaded photo, resizes it to fit the
// configured bounds, re-uploads it and attaches the key to the listing.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}

	listingID, err := primitive.ObjectIDFromHex(payload.ListingID)
	if err != nil {
		log.Printf("Invalid ListingID in image task payload: %s", payload.ListingID)
		return fmt.Errorf("invalid listing ID in payload: %w", asynq.SkipRetry)
	}

	log.Printf("Processing image task: S3Key=%s, ListingID=%s", payload.S3Key, payload.ListingID)

	getObjectOutput, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(payload.S3Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Printf("S3 object %s not found, likely upload failed or key incorrect.", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image from S3: %w", err)
	}
	defer getObjectOutput.Body.Close()

	imgData, err := io.ReadAll(getObjectOutput.Body)
	if err != nil {
		return fmt.Errorf("failed to read image data: %w", err)
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size (%d > %d bytes). Removing.", payload.S3Key, len(imgData), maxSizeBytes)
		if err := p.objectStorage.DeleteObject(ctx, payload.S3Key); err != nil {
			log.Printf("Failed to delete oversized object %s: %v", payload.S3Key, err)
		}
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Error decoding image for key %s: %v", payload.S3Key, err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}
	log.Printf("Decoded image %s, format: %s, size: %dx%d", payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())

	maxDim := uint(p.cfg.ImageMaxDimension)
	needsResize := uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim

	processedData := imgData
	contentType := aws.ToString(getObjectOutput.ContentType)

	if needsResize {
		resizedImg := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized image: %w", err)
		}
		processedData = buf.Bytes()
		contentType = "image/jpeg"
		log.Printf("Resized image %s to %dx%d", payload.S3Key, resizedImg.Bounds().Dx(), resizedImg.Bounds().Dy())

		_, err = p.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.cfg.AwsS3Bucket),
			Key:         aws.String(payload.S3Key),
			Body:        bytes.NewReader(processedData),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return fmt.Errorf("failed to upload processed image: %w", err)
		}
	}

	if err := p.listingService.AddImageToListing(ctx, listingID, payload.S3Key); err != nil {
		return fmt.Errorf("failed to update listing with processed image: %w", err)
	}

	log.Printf("Image task processed successfully: Key=%s, ListingID=%s", payload.S3Key, payload.ListingID)
	return nil
}

// HandleImageCleanupTask removes orphaned photo objects after a listing is
// deleted. Individual delete failures are retried by re-erroring the task;
// already-gone objects are fine.
func (p *TaskProcessor) HandleImageCleanupTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal cleanup payload: %v: %w", err, asynq.SkipRetry)
	}

	var failed []string
	for _, key := range payload.Keys {
		if err := p.objectStorage.DeleteObject(ctx, key); err != nil {
			log.Printf("Failed to delete object %s: %v", key, err)
			failed = append(failed, key)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to delete %d of %d objects", len(failed), len(payload.Keys))
	}

	log.Printf("Cleaned up %d photo objects", len(payload.Keys))
	return nil
}
