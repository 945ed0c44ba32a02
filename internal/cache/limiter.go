package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// LimiterStore is the injected rate-limit state abstraction. Handlers never
// touch limiter state directly; the middleware asks the store whether a
// client key may proceed given the current per-second refill rate and burst.
// The Redis implementation shares state across instances; the memory
// implementation is single-instance and used in tests and development.
type LimiterStore interface {
	Allow(ctx context.Context, key string, refillRate, burst int) (bool, error)
}

// --- Redis-backed store ---

// redisLimiterStore approximates a token bucket with a fixed one-second
// window counter per client key. INCR + EXPIRE keeps the state shared and
// self-cleaning across API instances.
type redisLimiterStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisLimiterStore creates a LimiterStore backed by Redis.
func NewRedisLimiterStore(rdb *redis.Client) LimiterStore {
	return &redisLimiterStore{rdb: rdb, prefix: "ratelimit"}
}

func (s *redisLimiterStore) Allow(ctx context.Context, key string, refillRate, burst int) (bool, error) {
	window := time.Now().Unix()
	redisKey := fmt.Sprintf("%s:%s:%d", s.prefix, key, window)

	count, err := s.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit INCR failed for %s: %w", key, err)
	}
	if count == 1 {
		// First hit in this window owns the expiry.
		if err := s.rdb.Expire(ctx, redisKey, 2*time.Second).Err(); err != nil {
			log.Printf("Failed to set expiry on rate limit key %s: %v", redisKey, err)
		}
	}

	allowed := refillRate + burst
	return count <= int64(allowed), nil
}

// --- In-memory store ---

// clientLimiter holds the token bucket for a single client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// memoryLimiterStore keeps per-client token buckets in process. State is lost
// on restart and not shared between instances.
type memoryLimiterStore struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewMemoryLimiterStore creates an in-process LimiterStore. A background
// goroutine evicts clients not seen for a while.
func NewMemoryLimiterStore() LimiterStore {
	s := &memoryLimiterStore{clients: make(map[string]*clientLimiter)}
	go s.cleanup()
	return s
}

func (s *memoryLimiterStore) Allow(ctx context.Context, key string, refillRate, burst int) (bool, error) {
	s.mu.Lock()
	cl, exists := s.clients[key]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(refillRate), burst)}
		s.clients[key] = cl
	}
	cl.lastSeen = time.Now()
	s.mu.Unlock()

	return cl.limiter.Allow(), nil
}

func (s *memoryLimiterStore) cleanup() {
	for {
		time.Sleep(10 * time.Minute)
		s.mu.Lock()
		removed := 0
		for key, cl := range s.clients {
			if time.Since(cl.lastSeen) > 30*time.Minute {
				delete(s.clients, key)
				removed++
			}
		}
		s.mu.Unlock()
		if removed > 0 {
			log.Printf("Rate limiter cleanup removed %d old client entries.", removed)
		}
	}
}
