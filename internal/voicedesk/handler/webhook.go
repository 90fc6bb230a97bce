package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/pkg/utils/response"
)

// Webhook handles POST /api/webhook from the voice SDK. Storage failures
// never fail the reply.
func (h *Handler) Webhook(c *gin.Context) {
	var req model.WebhookEnvelope
	if err := bindJSON(c, &req); err != nil {
		response.FailWithError(c, err)
		return
	}

	reply, err := h.Dispatcher.Dispatch(c.Request.Context(), tenantFrom(c), req.Message)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}
