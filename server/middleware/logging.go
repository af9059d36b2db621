package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowrun/logger"
)

const slowRequest = 500 * time.Millisecond

// quietPaths are polled by orchestrators and would drown the request log.
var quietPaths = map[string]bool{
	"/health":  true,
	"/livez":   true,
	"/readyz":  true,
	"/metrics": true,
}

// RequestLogger logs one line per request once the handler chain returns.
// 5xx responses log at error level and 4xx at warn.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if quietPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		fields := logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"client", c.ClientIP(),
			logger.FieldStatus, status,
			logger.FieldDuration, elapsed.Milliseconds(),
		)
		if id := GetRequestID(c); id != "" {
			fields[logger.FieldRequestID] = id
		}
		if elapsed > slowRequest {
			fields["slow"] = true
		}
		if len(c.Errors) > 0 {
			fields[logger.FieldError] = c.Errors.String()
		}

		switch {
		case status >= 500:
			log.Error("request completed", fields)
		case status >= 400:
			log.Warn("request completed", fields)
		default:
			log.Info("request completed", fields)
		}
	}
}
