package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/pkg/infra/tracing"
)

// Logger logs one structured line per request. Paths with any of
// skipPrefixes are not logged (health probes).
func Logger(skipPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range skipPrefixes {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"remote_addr", c.ClientIP(),
			"latency_ms", latency.Milliseconds(),
		}
		if rid := GetRequestID(c.Request.Context()); rid != "" {
			fields = append(fields, "request_id", rid)
		}
		if tid := tracing.TraceIDFromContext(c.Request.Context()); tid != "" {
			fields = append(fields, "trace_id", tid)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Errorw("HTTP Request", fields...)
		case c.Writer.Status() >= 400:
			logger.Warnw("HTTP Request", fields...)
		default:
			logger.Infow("HTTP Request", fields...)
		}
	}
}
