package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/pkg/tenantctx"
	"github.com/kart-io/voicedesk/internal/voicedesk/biz"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/response"
)

// HeaderTenantID selects the tenant explicitly.
const HeaderTenantID = "X-Tenant-ID"

// TenantContext resolves the request tenant from X-Tenant-ID, then the
// tenantId query parameter, then the active pointer, and stores it on the
// request context.
func TenantContext(tenants *biz.TenantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := c.GetHeader(HeaderTenantID)
		if tenant == "" {
			tenant = c.Query("tenantId")
		}
		if tenant != "" {
			if err := store.CheckTenant(tenant); err != nil {
				response.AbortWithError(c, errs.ErrInvalidTenant.WithCause(err))
				return
			}
		} else {
			active, err := tenants.ActiveID(c.Request.Context())
			if err != nil {
				// 激活指针不可读时退回默认租户，不阻断请求
				logger.Warnw("active tenant unavailable, using default", "error", err)
				active = model.DefaultTenantID
			}
			tenant = active
		}

		c.Request = c.Request.WithContext(tenantctx.WithTenant(c.Request.Context(), tenant))
		c.Next()
	}
}
