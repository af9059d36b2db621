package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowrun/errors"
	"github.com/kbukum/flowrun/util"
)

const defaultMaxBodySize = 10 << 20

// BodyLimit caps request bodies at maxSize ("512KB", "10MB"). Requests that
// declare a larger Content-Length are rejected up front with 413; bodies
// without one fail when the handler reads past the cap.
func BodyLimit(maxSize string) gin.HandlerFunc {
	limit := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			appErr := errors.PayloadTooLarge(limit)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
