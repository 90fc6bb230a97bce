package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/voicedesk/biz"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/json"
	"github.com/kart-io/voicedesk/pkg/utils/response"
)

// GetTenantConfig handles GET /api/tenant-config.
func (h *Handler) GetTenantConfig(c *gin.Context) {
	ctx := c.Request.Context()
	id := tenantFrom(c, c.Query("id"), c.Query("companyId"))

	company, err := h.Tenants.Get(ctx, id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	active, err := h.Tenants.ActiveID(ctx)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company, "activeCompanyId": active})
}

type saveTenantFlags struct {
	Vertical   string `json:"vertical"`
	MakeActive *bool  `json:"makeActive"`
}

// SaveTenantConfig handles POST /api/tenant-config. makeActive defaults
// to true.
func (h *Handler) SaveTenantConfig(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil || len(raw) == 0 {
		response.Fail(c, errs.ErrInvalidBody)
		return
	}

	var flags saveTenantFlags
	if err := json.Unmarshal(raw, &flags); err != nil {
		response.Fail(c, errs.ErrInvalidBody.WithCause(err))
		return
	}
	if _, err := model.ParseVertical(flags.Vertical); err != nil {
		response.Fail(c, errs.ErrInvalidVertical.WithMessage(err.Error()))
		return
	}
	var cfg model.TenantConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		response.Fail(c, errs.ErrInvalidDomainData.WithMessage(err.Error()))
		return
	}
	if cfg.FunctionsEnabled == nil {
		cfg.FunctionsEnabled = []string{}
	}

	makeActive := flags.MakeActive == nil || *flags.MakeActive
	active, err := h.Tenants.Save(c.Request.Context(), &cfg, makeActive)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "company": &cfg, "activeCompanyId": active})
}

type resetRequest struct {
	Mode      string `json:"mode"`
	CompanyID string `json:"companyId"`
}

// Reset handles POST /api/reset.
func (h *Handler) Reset(c *gin.Context) {
	var req resetRequest
	if err := bindJSON(c, &req); err != nil {
		response.FailWithError(c, err)
		return
	}

	res, err := h.Tenants.Reset(c.Request.Context(), biz.ResetMode(req.Mode), req.CompanyID)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	body := gin.H{"ok": true, "mode": res.Mode, "activeCompanyId": res.ActiveID}
	if res.Mode == biz.ResetHard {
		body["deleted"] = res.Deleted
	}
	c.JSON(http.StatusOK, body)
}
