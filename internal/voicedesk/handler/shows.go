package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/pkg/utils/response"
)

// ListShows handles GET /api/shows. Always 200; backend errors yield an
// empty list.
func (h *Handler) ListShows(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.Shows.List(c.Request.Context(), c.Query("q"))})
}

type saveShowsRequest struct {
	Items []*model.Show `json:"items" validate:"required,min=1,dive"`
}

// SaveShows handles POST /api/shows.
func (h *Handler) SaveShows(c *gin.Context) {
	var req saveShowsRequest
	if err := bindJSON(c, &req); err != nil {
		response.FailWithError(c, err)
		return
	}
	n, err := h.Shows.Save(c.Request.Context(), req.Items)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": n})
}
