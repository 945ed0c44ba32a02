package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sowmiyat3004/Renter-sub001/internal/api/handlers"
	"github.com/sowmiyat3004/Renter-sub001/internal/api/middleware"
	"github.com/sowmiyat3004/Renter-sub001/internal/cache"
	"github.com/sowmiyat3004/Renter-sub001/internal/config"
	"github.com/sowmiyat3004/Renter-sub001/internal/geocode"
	"github.com/sowmiyat3004/Renter-sub001/internal/services"
	"github.com/sowmiyat3004/Renter-sub001/internal/storage"
	"github.com/sowmiyat3004/Renter-sub001/internal/tasks"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient *asynq.Client, settingsSvc services.ISettingsService) *gin.Engine {
	var dispatcher services.ITaskDispatcher
	if taskClient != nil {
		dispatcher = tasks.NewDispatcher(taskClient)
	}

	listingService := services.NewListingService(db, cfg, dispatcher)
	searchService := services.NewSearchService(db, cfg, settingsSvc)
	moderationService := services.NewModerationService(db, listingService, dispatcher)
	notificationService := services.NewNotificationService(db)
	userService := services.NewUserService(db, cfg)
	geocoder := geocode.NewHTTPGeocoder(cfg)

	var objectStorage storage.IObjectStorage
	if cfg.AwsS3Bucket != "" {
		var err error
		objectStorage, err = storage.NewS3Storage(cfg)
		if err != nil {
			log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
		}
	} else {
		log.Println("S3 not configured, image upload endpoints disabled")
	}

	// Rate limiter state is shared through Redis when available, otherwise
	// kept per-instance in memory.
	var limiterStore cache.LimiterStore
	if rdb != nil {
		limiterStore = cache.NewRedisLimiterStore(rdb)
	} else {
		limiterStore = cache.NewMemoryLimiterStore()
	}
	rateLimiter := middleware.NewRateLimiterMiddleware(limiterStore, cfg, settingsSvc)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	restListingHandler := handlers.NewRestListingHandler(listingService, searchService, geocoder, objectStorage, taskClient, cfg)
	restAdminHandler := handlers.NewRestAdminHandler(moderationService, settingsSvc)
	restNotificationHandler := handlers.NewRestNotificationHandler(notificationService)
	restUserHandler := handlers.NewRestUserHandler(userService)

	v1 := r.Group("/v1")
	{
		// Public routes
		v1.GET("/listing/search/nearby", restListingHandler.SearchNearby)
		v1.GET("/listing/browse", restListingHandler.BrowseListings)
		v1.GET("/listing/:id", restListingHandler.GetListingByID)
		v1.GET("/amenities", restListingHandler.Amenities)
		v1.POST("/user/register", restUserHandler.Register)
		v1.POST("/user/login", restUserHandler.Login)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.POST("/listing", restListingHandler.CreateListing)
			authRequired.PUT("/listing/:id", restListingHandler.UpdateListing)
			authRequired.DELETE("/listing/:id", restListingHandler.DeleteListing)
			authRequired.POST("/listing/:id/archive", restListingHandler.ArchiveListing)
			authRequired.POST("/listing/:id/unarchive", restListingHandler.UnarchiveListing)
			authRequired.POST("/listing/:id/images", restListingHandler.RequestImageUpload)

			authRequired.GET("/me", restUserHandler.Me)
			authRequired.GET("/me/listings", restListingHandler.MyListings)
			authRequired.PUT("/me/preferences", restUserHandler.UpdatePreferences)

			authRequired.GET("/notifications", restNotificationHandler.ListNotifications)
			authRequired.POST("/notifications/:id/read", restNotificationHandler.MarkRead)
		}

		// Admin routes
		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.POST("/listing/:id/moderate", restAdminHandler.ModerateListing)
			adminRequired.GET("/listing/queue", restAdminHandler.ReviewQueue)
			adminRequired.PUT("/settings", restAdminHandler.UpdateSetting)
			adminRequired.GET("/listing/:id/actions", restAdminHandler.ListingActions)
		}
	}

	return r
}
