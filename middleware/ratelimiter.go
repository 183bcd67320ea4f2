package middleware

import (
	"net/http"
	"time"

	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// RateLimitMiddleware allows maxRequests per minute and client IP.
func RateLimitMiddleware(maxRequests float64, logger log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	perSecond := maxRequests / 60.0
	lmt := tollbooth.NewLimiter(perSecond, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Minute})
	lmt.SetIPLookups([]string{"RemoteAddr", "X-Forwarded-For", "X-Real-IP"})

	return func(c *gin.Context) {
		httpError := tollbooth.LimitByRequest(lmt, c.Writer, c.Request)
		if httpError != nil {
			level.Warn(logger).Log("msg", "rate limit exceeded", "ip", c.ClientIP(), "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Message{
				Status:  "error",
				Message: "The API is at capacity, try again later.",
			})
			return
		}
		c.Next()
	}
}

// Message has the same shape as the handlers' error responses.
type Message struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
