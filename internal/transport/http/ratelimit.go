package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// LoginRateLimit limits requests per client IP. perSecond <= 0 disables it.
func LoginRateLimit(perSecond float64, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	limiters := xsync.NewMapOf[string, *rate.Limiter]()

	return func(c *gin.Context) {
		limiter, _ := limiters.LoadOrCompute(c.ClientIP(), func() *rate.Limiter {
			return rate.NewLimiter(rate.Limit(perSecond), burst)
		})
		if !limiter.Allow() {
			abortWithError(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		c.Next()
	}
}
