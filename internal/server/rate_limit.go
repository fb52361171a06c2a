package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/storefront/internal/observability/logger"
	"go.uber.org/zap"
)

// CheckoutRateLimit throttles checkout session creation per client IP. A
// limiter backend failure lets the request through; checkout availability
// outranks throttling.
func (s *Server) CheckoutRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.checkoutLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := s.checkoutLimiter.Allow(ctx, c.ClientIP())
		if err != nil {
			logger.WithContext(ctx, s.log).Warn("checkout rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			logger.WithContext(ctx, s.log).Warn("checkout rate limit exceeded",
				zap.String("endpoint", c.FullPath()),
			)
			c.Header("Retry-After", strconv.Itoa(result.RetryAfterSeconds()))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
