package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/response"
)

// Recovery turns a panic in one request into an ErrPanic reply for that
// request only. The full stack goes to the log, never to the client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic recovered",
					"panic", r,
					"stack_trace", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"request_id", GetRequestID(c.Request.Context()),
				)
				if c.Writer.Written() {
					c.Abort()
					return
				}
				response.Fail(c, errors.ErrPanic)
				c.Abort()
			}
		}()
		c.Next()
	}
}
