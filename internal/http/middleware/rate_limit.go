package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nexus226/backend/internal/pkg/apperror"
	"github.com/nexus226/backend/internal/ratelimit"
)

// RateLimitMiddleware ограничивает количество запросов с одного IP.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := limiter.Take(c.Request.Context(), "ip:"+c.ClientIP())
		if err != nil {
			_ = c.Error(apperror.Internal(err))
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(status.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(status.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(status.ResetAt.Unix(), 10))

		if status.Reached {
			_ = c.Error(apperror.RateLimited("слишком много запросов, попробуйте позже", status.ResetAt))
			c.Abort()
			return
		}

		c.Next()
	}
}
