package middlewares

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"glowchat/internal/infrastructure/metrics"
	"glowchat/internal/infrastructure/ratelimit"
	"glowchat/internal/interfaces/httpserver/responses"
	"glowchat/internal/utils/platformerrors"
)

// RateLimitMiddleware throttles requests per caller using the injected
// limiter. Authenticated requests are keyed by principal, anonymous ones by
// client IP.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if principal, ok := PrincipalFromContext(c); ok && principal.ID != "" {
			key = principal.ID
		}

		allowed, retryAfter := limiter.Allow(key)
		if !allowed {
			endpoint := c.FullPath()
			if endpoint == "" {
				endpoint = c.Request.URL.Path
			}
			metrics.RecordRateLimited(endpoint)

			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Writer.Header().Set("Retry-After", strconv.Itoa(seconds))
			responses.HandleErrorWithStatus(c, http.StatusTooManyRequests,
				platformerrors.NewError(c.Request.Context(), platformerrors.LayerRoute, platformerrors.ErrorTypeRateLimited, "rate limit exceeded", nil, "9f4c2d81-7e5a-4b63-a9c2-1d8f5e3b7a46"),
				"rate limit exceeded")
			return
		}

		c.Next()
	}
}
