package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// rateLimit limits requests per client IP, method and route. A nil limiter
// lets everything through; a Redis failure is logged and does not block.
func (s *APIServer) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.Limiter == nil {
			c.Next()
			return
		}

		key := c.ClientIP() + ":" + c.Request.Method + ":" + c.FullPath()
		status, err := s.Limiter.Allow(c.Request.Context(), key)
		if err != nil {
			s.Logger.Warning("Rate limiter unavailable: %v", err)
			c.Next()
			return
		}

		resetIn := int(time.Until(status.ResetAt).Seconds())
		if resetIn < 0 {
			resetIn = 0
		}

		if !status.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":          "Too many requests",
				"limit":          status.Limit,
				"remaining":      status.Remaining,
				"resetAt":        status.ResetAt,
				"resetInSeconds": resetIn,
			})
			return
		}
		c.Next()
	}
}
