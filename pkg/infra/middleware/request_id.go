// Package middleware holds the gin middleware shared by every route:
// request ids, server spans, panic recovery and access logging.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/voicedesk/pkg/utils/id"
	"github.com/kart-io/voicedesk/pkg/utils/response"
)

type requestIDKey struct{}

// RequestID reuses an inbound X-Request-ID or generates one, echoes it on
// the response and stores it in the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(response.HeaderRequestID)
		if rid == "" {
			rid = id.New()
		}
		c.Writer.Header().Set(response.HeaderRequestID, rid)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}

// WithRequestID stores a request id in ctx.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// GetRequestID returns the request id from ctx, or "".
func GetRequestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}
