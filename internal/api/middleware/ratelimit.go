package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sowmiyat3004/Renter-sub001/internal/cache"
	"github.com/sowmiyat3004/Renter-sub001/internal/config"
	"github.com/sowmiyat3004/Renter-sub001/internal/services"
)

// RateLimiterMiddleware throttles clients per endpoint. The limiter state
// lives behind cache.LimiterStore so the store can be shared across
// instances (Redis) or kept in-process (memory) without touching this code.
type RateLimiterMiddleware struct {
	store    cache.LimiterStore
	cfg      *config.Config
	settings services.ISettingsService
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware. settings may
// be nil, in which case the .env defaults apply to every endpoint.
func NewRateLimiterMiddleware(store cache.LimiterStore, cfg *config.Config, settings services.ISettingsService) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{store: store, cfg: cfg, settings: settings}
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		clientKey := c.ClientIP() + "|" + endpoint

		refillRate := rm.cfg.RateLimitRefillRate
		burst := rm.cfg.RateLimitBucketSize
		if rm.settings != nil {
			refillRate, burst = rm.settings.RateLimitFor(c.Request.Context(), endpoint)
		}

		allowed, err := rm.store.Allow(c.Request.Context(), clientKey, refillRate, burst)
		if err != nil {
			// Store outage must not take the API down with it
			log.Printf("Rate limiter store error for client %s: %v. Allowing request.", clientKey, err)
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		c.Next()
	}
}
