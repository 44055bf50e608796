package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hmarroquin/labtrack-api/internal/tenant"
	"github.com/hmarroquin/labtrack-api/pkg/logger"
)

// Logger emits one structured line per request.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"branch_id", tenant.FromContext(c.Request.Context()),
			"request_id", c.GetString("request_id"),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
