package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/temcen/shoprec/internal/services"
)

type countingLimiter struct {
	limit   int
	clients map[string]int
}

func (l *countingLimiter) Allow(_ context.Context, client string) (bool, *services.RateLimitInfo) {
	l.clients[client]++
	remaining := l.limit - l.clients[client]
	if remaining < 0 {
		return false, &services.RateLimitInfo{Limit: l.limit}
	}
	return true, &services.RateLimitInfo{Limit: l.limit, Remaining: remaining}
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{limit: 2, clients: map[string]int{}}
	userID := uuid.New()

	router := gin.New()
	router.GET("/public", RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/private", Auth(stubValidator{userID: userID}, testLogger()), RateLimit(limiter),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	var codes []int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, 1, limiter.clients["user:"+userID.String()])
}
