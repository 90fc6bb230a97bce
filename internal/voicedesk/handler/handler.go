// Package handler provides the voicedesk HTTP handlers.
package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/voicedesk/internal/pkg/tenantctx"
	"github.com/kart-io/voicedesk/internal/voicedesk/biz"
	"github.com/kart-io/voicedesk/internal/voicedesk/relay"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/json"
	"github.com/kart-io/voicedesk/pkg/utils/validator"
)

// DefaultHeartbeat is the SSE keepalive interval.
const DefaultHeartbeat = 25 * time.Second

// HealthFunc reports backend health.
type HealthFunc func(ctx context.Context) error

// Deps are the services the handlers call into.
type Deps struct {
	Ingester   *biz.Ingester
	Knowledge  *biz.KnowledgeService
	Tenants    *biz.TenantService
	Dispatcher *biz.Dispatcher
	Shows      *biz.ShowService
	Relay      relay.Relay
	Tickets    store.TicketStore
	Health     HealthFunc
	// Heartbeat is the SSE keepalive interval, DefaultHeartbeat when zero.
	Heartbeat time.Duration
}

// Handler serves the /api routes.
type Handler struct {
	Deps
}

// New creates a Handler.
func New(d Deps) *Handler {
	if d.Heartbeat <= 0 {
		d.Heartbeat = DefaultHeartbeat
	}
	return &Handler{Deps: d}
}

// bindJSON decodes the request body with the shared codec and runs struct
// validation.
func bindJSON(c *gin.Context, v interface{}) error {
	raw, err := c.GetRawData()
	if err != nil {
		return errs.ErrInvalidBody.WithCause(err)
	}
	if len(raw) == 0 {
		return errs.ErrInvalidBody.WithMessage("request body is empty")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errs.ErrInvalidBody.WithCause(err)
	}
	return validator.Struct(v)
}

// tenantFrom picks the first non-empty explicit id, then the request tenant.
func tenantFrom(c *gin.Context, explicit ...string) string {
	for _, id := range explicit {
		if id != "" {
			return id
		}
	}
	return tenantctx.FromOr(c.Request.Context(), "")
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			return v
		}
	}
	return ""
}
