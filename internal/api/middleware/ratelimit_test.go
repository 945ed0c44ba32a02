package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/sowmiyat3004/Renter-sub001/internal/api/middleware"
	"github.com/sowmiyat3004/Renter-sub001/internal/cache"
	"github.com/sowmiyat3004/Renter-sub001/internal/config"
)

// denyAfterStore allows the first n requests per key, then denies.
type denyAfterStore struct {
	n     int
	seen  map[string]int
	err   error
	calls []string
}

func (s *denyAfterStore) Allow(ctx context.Context, key string, refillRate, burst int) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.seen == nil {
		s.seen = make(map[string]int)
	}
	s.seen[key]++
	s.calls = append(s.calls, key)
	return s.seen[key] <= s.n, nil
}

func setupLimitedRouter(store cache.LimiterStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{RateLimitRefillRate: 4, RateLimitBucketSize: 8}
	rm := middleware.NewRateLimiterMiddleware(store, cfg, nil)
	router := gin.New()
	router.GET("/v1/ping", rm.Limit(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return router
}

func TestRateLimiter_AllowsThenRejects(t *testing.T) {
	store := &denyAfterStore{n: 2}
	router := setupLimitedRouter(store)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/v1/ping", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/ping", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiter_KeyIncludesEndpoint(t *testing.T) {
	store := &denyAfterStore{n: 100}
	router := setupLimitedRouter(store)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/ping", nil)
	router.ServeHTTP(w, req)

	assert.Len(t, store.calls, 1)
	assert.Contains(t, store.calls[0], "/v1/ping")
}

func TestRateLimiter_StoreErrorFailsOpen(t *testing.T) {
	store := &denyAfterStore{err: errors.New("redis down")}
	router := setupLimitedRouter(store)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/ping", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
