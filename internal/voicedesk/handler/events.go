package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/voicedesk/metrics"
	"github.com/kart-io/voicedesk/internal/voicedesk/relay"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/json"
	"github.com/kart-io/voicedesk/pkg/utils/response"
)

func streamIDFrom(c *gin.Context) string {
	return firstQuery(c, "streamId", "callId")
}

// Subscribe handles GET /api/events/subscribe as a server-sent event stream.
// Lines are "data: <event json>" or comments starting with ':'; the
// subscription is released when the client goes away.
func (h *Handler) Subscribe(c *gin.Context) {
	streamID := streamIDFrom(c)
	if streamID == "" {
		response.Fail(c, errs.ErrMissingStreamID)
		return
	}

	ctx := c.Request.Context()
	sub, err := h.Relay.Subscribe(ctx, streamID)
	if err != nil {
		logger.Errorw("subscribe failed", "stream", streamID, "error", err)
		response.Fail(c, relayError(err))
		return
	}
	metrics.SSESubscribers.Inc()
	defer func() {
		metrics.SSESubscribers.Dec()
		_ = sub.Close()
		logger.Debugw("subscriber disconnected", "stream", streamID)
	}()

	// 长连接不受服务端 WriteTimeout 限制
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache, no-transform")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if !writeSSE(c, ": connected to %s\n\n", streamID) {
		return
	}

	ticker := time.NewTicker(h.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := json.MarshalString(ev)
			if err != nil {
				logger.Warnw("skip unencodable event", "stream", streamID, "error", err)
				continue
			}
			if !writeSSE(c, "data: %s\n\n", payload) {
				return
			}
		case now := <-ticker.C:
			if !writeSSE(c, ": keepalive %d\n\n", now.UnixMilli()) {
				return
			}
		}
	}
}

func relayError(err error) *errs.Errno {
	if errors.Is(err, relay.ErrInvalidStreamID) {
		return errs.ErrMissingStreamID.WithCause(err)
	}
	if errors.Is(err, relay.ErrInvalidRangeID) {
		return errs.ErrInvalidParam.WithMessage("start and end must be stream entry ids").WithCause(err)
	}
	return errs.ErrBackendUnavailable.WithCause(err)
}

func writeSSE(c *gin.Context, format string, args ...interface{}) bool {
	if _, err := fmt.Fprintf(c.Writer, format, args...); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}

// RangeEvents handles GET /api/events/range.
func (h *Handler) RangeEvents(c *gin.Context) {
	streamID := streamIDFrom(c)
	if streamID == "" {
		response.Fail(c, errs.ErrMissingStreamID)
		return
	}
	var count int64
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Fail(c, errs.ErrInvalidParam.WithMessage("count must be an integer"))
			return
		}
		count = n
	}

	events, err := h.Relay.Range(c.Request.Context(), streamID, c.Query("start"), c.Query("end"), count)
	if err != nil {
		logger.Errorw("range failed", "stream", streamID, "error", err)
		response.Fail(c, relayError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type publishRequest struct {
	StreamID string          `json:"streamId"`
	CallID   string          `json:"callId"`
	Event    json.RawMessage `json:"event" validate:"required"`
}

// Publish handles POST /api/events/publish. An event without a known type
// is wrapped as a generic event.
func (h *Handler) Publish(c *gin.Context) {
	var req publishRequest
	if err := bindJSON(c, &req); err != nil {
		response.FailWithError(c, err)
		return
	}
	streamID := req.StreamID
	if streamID == "" {
		streamID = req.CallID
	}
	if streamID == "" {
		response.Fail(c, errs.ErrMissingStreamID)
		return
	}

	ev, err := decodeEvent(req.Event)
	if err != nil {
		response.Fail(c, errs.ErrInvalidBody.WithCause(err))
		return
	}
	entryID, err := h.Relay.Publish(c.Request.Context(), streamID, ev)
	if err != nil {
		logger.Errorw("publish failed", "stream", streamID, "error", err)
		response.Fail(c, relayError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": entryID})
}

func decodeEvent(raw json.RawMessage) (*model.Event, error) {
	var probe struct {
		Type model.EventType `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	switch probe.Type {
	case model.EventFunctionCall, model.EventTicket, model.EventIngestProgress, model.EventIngestComplete, model.EventGeneric:
		var ev model.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, err
		}
		return &ev, nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return model.NewGenericEvent(data), nil
}
