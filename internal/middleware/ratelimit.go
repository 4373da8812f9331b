package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit applies a token-bucket limit across all requests. Requests that
// find the bucket empty are rejected immediately with 429 rather than
// queued; callers retry with backoff.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":          "rate limit exceeded",
				"correlation_id": c.GetString("correlation_id"),
				"timestamp":      time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
		c.Next()
	}
}
