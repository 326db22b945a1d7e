package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"marketglimpse_backend/services/ratelimit"
)

// KeyFunc derives a rate limit identifier from the request.
type KeyFunc func(c *gin.Context) string

// DefaultKey identifies the caller by authenticated user id when available,
// falling back to client IP.
func DefaultKey(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok && id != "" {
			return "user:" + id
		}
	}
	return "ip:" + c.ClientIP()
}

// RouteKey scopes the default identifier to a route so each wrapped route
// gets its own budget.
func RouteKey(route string) KeyFunc {
	return func(c *gin.Context) string {
		return DefaultKey(c) + ":" + route
	}
}

// RateLimit wraps a route with the limiter. Responses carry
// X-RateLimit-Limit and X-RateLimit-Remaining whether or not the call is
// allowed; rejected calls get a 429 and never reach the handler.
func RateLimit(limiter *ratelimit.Limiter, limit int, keyFn KeyFunc) gin.HandlerFunc {
	if keyFn == nil {
		keyFn = DefaultKey
	}
	if limit <= 0 {
		limit = ratelimit.DefaultLimit
	}

	return func(c *gin.Context) {
		result := limiter.Check(keyFn(c), limit)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too Many Requests",
				"message": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
