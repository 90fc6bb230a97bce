package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/response"
)

// GetTicket handles GET /api/tickets/:id.
func (h *Handler) GetTicket(c *gin.Context) {
	id := c.Param("id")
	t, err := h.Tickets.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		response.Fail(c, errs.ErrTicketNotFound)
		return
	}
	if err != nil {
		logger.Errorw("get ticket failed", "ticket", id, "error", err)
		response.Fail(c, errs.ErrBackendUnavailable.WithCause(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": t})
}

// ListCallTickets handles GET /api/calls/:id/tickets.
func (h *Handler) ListCallTickets(c *gin.Context) {
	callID := c.Param("id")
	items, err := h.Tickets.ListByCall(c.Request.Context(), callID)
	if err != nil {
		logger.Errorw("list tickets failed", "call", callID, "error", err)
		response.Fail(c, errs.ErrBackendUnavailable.WithCause(err))
		return
	}
	if items == nil {
		items = []*model.Ticket{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
