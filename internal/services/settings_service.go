package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sowmiyat3004/Renter-sub001/internal/apperr"
	"github.com/sowmiyat3004/Renter-sub001/internal/config"
	"github.com/sowmiyat3004/Renter-sub001/internal/db"
)

const settingsUpdateChannel = "settings_updates"

// ISettingsService exposes runtime-tunable settings backed by the settings
// collection, with in-memory caching and cross-instance invalidation over
// Redis Pub/Sub. Keys absent from the store fall back to the .env defaults.
type ISettingsService interface {
	Load(ctx context.Context) error
	SubscribeToChanges(ctx context.Context) error
	Set(ctx context.Context, key string, value interface{}) error
	GetInt(ctx context.Context, key string, defaultValue int) int
	GetFloat64(ctx context.Context, key string, defaultValue float64) float64
	RateLimitFor(ctx context.Context, endpoint string) (refillRate, burst int)
}

// settingsService implements ISettingsService.
type settingsService struct {
	db    *mongo.Database
	cfg   *config.Config
	rdb   *redis.Client
	cache map[string]interface{}
	mutex sync.RWMutex
}

// NewSettingsService creates a new SettingsService, loads the current
// settings and starts the Pub/Sub reload listener. Redis is optional; without
// it each instance only sees its own writes until restart.
func NewSettingsService(database *mongo.Database, cfg *config.Config, rdb *redis.Client) ISettingsService {
	s := &settingsService{
		db:    database,
		cfg:   cfg,
		rdb:   rdb,
		cache: make(map[string]interface{}),
	}
	if err := s.Load(context.Background()); err != nil {
		log.Printf("WARNING: Failed to load settings from DB: %v. Using .env defaults", err)
	}
	go func() {
		if err := s.SubscribeToChanges(context.Background()); err != nil {
			log.Printf("Settings Pub/Sub listener stopped: %v", err)
		}
	}()
	return s
}

type settingsEntry struct {
	Key   string      `bson:"key"`
	Value interface{} `bson:"value"`
}

// Load replaces the cache with the current contents of the settings
// collection.
func (s *settingsService) Load(ctx context.Context) error {
	cursor, err := s.db.Collection(db.CollSettings).Find(ctx, bson.M{})
	if err != nil {
		return apperr.Internal(err, "failed to query settings collection")
	}
	defer cursor.Close(ctx)

	newCache := make(map[string]interface{})
	for cursor.Next(ctx) {
		var entry settingsEntry
		if err := cursor.Decode(&entry); err != nil {
			log.Printf("Warning: failed to decode settings entry: %v", err)
			continue
		}
		newCache[entry.Key] = entry.Value
	}
	if err := cursor.Err(); err != nil {
		return apperr.Internal(err, "error iterating settings cursor")
	}

	s.mutex.Lock()
	s.cache = newCache
	s.mutex.Unlock()
	log.Printf("Loaded %d settings entries from DB", len(newCache))
	return nil
}

// SubscribeToChanges reloads the cache whenever another instance publishes a
// settings update. Blocks until the channel closes.
func (s *settingsService) SubscribeToChanges(ctx context.Context) error {
	if s.rdb == nil {
		log.Println("Redis client not configured, settings changes require restart to propagate")
		return nil
	}

	pubsub := s.rdb.Subscribe(ctx, settingsUpdateChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to confirm settings subscription: %w", err)
	}

	for msg := range pubsub.Channel() {
		log.Printf("Settings update notification: %s", msg.Payload)
		if err := s.Load(context.Background()); err != nil {
			log.Printf("ERROR reloading settings after notification: %v", err)
		}
	}
	return nil
}

// Set upserts a settings key and notifies other instances.
func (s *settingsService) Set(ctx context.Context, key string, value interface{}) error {
	opts := options.Update().SetUpsert(true)
	_, err := s.db.Collection(db.CollSettings).UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"key": key, "value": value}},
		opts)
	if err != nil {
		return apperr.Internal(err, "failed to upsert settings key %q", key)
	}

	s.mutex.Lock()
	s.cache[key] = value
	s.mutex.Unlock()

	if s.rdb != nil {
		if err := s.rdb.Publish(ctx, settingsUpdateChannel, key).Err(); err != nil {
			log.Printf("Warning: failed to publish settings update for %q: %v", key, err)
		}
	}
	return nil
}

func (s *settingsService) get(key string) (interface{}, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	val, ok := s.cache[key]
	return val, ok
}

// GetInt returns the setting as an int, tolerating the numeric types the
// BSON decoder may produce.
func (s *settingsService) GetInt(ctx context.Context, key string, defaultValue int) int {
	val, ok := s.get(key)
	if !ok {
		return defaultValue
	}
	switch v := val.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		log.Printf("Warning: settings key %q is not an integer type (%T), using default", key, val)
		return defaultValue
	}
}

func (s *settingsService) GetFloat64(ctx context.Context, key string, defaultValue float64) float64 {
	val, ok := s.get(key)
	if !ok {
		return defaultValue
	}
	switch v := val.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		log.Printf("Warning: settings key %q is not a numeric type (%T), using default", key, val)
		return defaultValue
	}
}

// RateLimitFor resolves the token-bucket parameters for an endpoint,
// honouring per-endpoint overrides (ratelimit.<endpoint>.rate / .burst)
// before the global defaults.
func (s *settingsService) RateLimitFor(ctx context.Context, endpoint string) (refillRate, burst int) {
	refillRate = s.GetInt(ctx, "ratelimit."+endpoint+".rate",
		s.GetInt(ctx, "ratelimit.rate", s.cfg.RateLimitRefillRate))
	burst = s.GetInt(ctx, "ratelimit."+endpoint+".burst",
		s.GetInt(ctx, "ratelimit.burst", s.cfg.RateLimitBucketSize))
	return refillRate, burst
}
