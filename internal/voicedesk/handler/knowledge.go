package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/voicedesk/internal/model"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/response"
)

// SearchKnowledge handles GET /api/knowledge/search.
func (h *Handler) SearchKnowledge(c *gin.Context) {
	k := 0
	if raw := c.Query("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Fail(c, errs.ErrInvalidParam.WithMessage("k must be an integer"))
			return
		}
		k = n
	}

	tenant := tenantFrom(c, c.Query("companyId"))
	items, err := h.Knowledge.Search(c.Request.Context(), tenant, c.Query("q"), model.SearchType(c.Query("type")), k)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type ingestRequest struct {
	TenantID  string              `json:"tenantId"`
	CompanyID string              `json:"companyId"`
	Inputs    []model.IngestInput `json:"inputs"`
}

// Ingest handles POST /api/ingest.
func (h *Handler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := bindJSON(c, &req); err != nil {
		response.FailWithError(c, err)
		return
	}

	processed, err := h.Ingester.Ingest(c.Request.Context(), tenantFrom(c, req.TenantID, req.CompanyID), req.Inputs)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "processed": processed})
}
