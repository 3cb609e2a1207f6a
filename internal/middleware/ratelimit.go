package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/temcen/shoprec/internal/services"
)

type RateLimiter interface {
	Allow(ctx context.Context, client string) (bool, *services.RateLimitInfo)
}

// RateLimit limits authenticated callers by user and everyone else by IP.
func RateLimit(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := "ip:" + c.ClientIP()
		if userID, ok := UserID(c); ok {
			client = "user:" + userID.String()
		}

		allowed, info := limiter.Allow(c.Request.Context(), client)

		c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime, 10))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Rate limit exceeded",
				},
			})
			return
		}
		c.Next()
	}
}
