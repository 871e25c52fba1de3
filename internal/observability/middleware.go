package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AreaKey is the gin context key handlers set to the classification they
// answered with, so the request line carries it.
const AreaKey = "voxctl.area"

// AdminRequests logs and counts every admin request for node. Octal lookups
// log the queried code and child; polling stays at debug.
func AdminRequests(node string, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		RecordHTTPRequest(node, c.Request.Method, path, status, elapsed)

		event := logger.Debug()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		event = event.Str("node", node).Str("path", path).Int("status", status)
		if code := c.Query("code"); code != "" {
			event = event.Str("code", code)
		}
		if child := c.Query("child"); child != "" {
			event = event.Str("child", child)
		}
		if area := c.GetString(AreaKey); area != "" {
			event = event.Str("area", area)
		}
		event.Dur("duration", elapsed).Msg("admin_request")
	}
}
