package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// DomainWhitelistMiddleware rejects requests whose Host is not listed. An
// empty list allows every host.
func DomainWhitelistMiddleware(allowedDomains []string, logger log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return func(c *gin.Context) {
		if len(allowedDomains) == 0 {
			c.Next()
			return
		}

		host := c.Request.Host
		allowed := false
		for _, domain := range allowedDomains {
			if strings.EqualFold(domain, host) || strings.EqualFold(domain, stripPort(host)) {
				allowed = true
				break
			}
		}

		if !allowed {
			level.Info(logger).Log("msg", "host not allowed", "host", host)
			c.AbortWithStatusJSON(http.StatusForbidden, Message{
				Status:  "error",
				Message: "Permission denied",
			})
			return
		}

		c.Next()
	}
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
