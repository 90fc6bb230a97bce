package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/voicedesk/internal/model"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
)

func webhookBody(callID, name string, params map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"message": map[string]interface{}{
			"type":         "function-call",
			"functionCall": map[string]interface{}{"name": name, "parameters": params},
			"call":         map[string]interface{}{"id": callID},
		},
	}
}

func TestWebhookBookingFlow(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodPost, "/api/webhook", webhookBody("call-9", "confirmDetails", map[string]interface{}{
		"show": "Wicked", "date": "2026-12-01", "location": "Gershwin", "numberOfTickets": 3,
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Wicked", body["data"].(map[string]interface{})["show"])

	w, _ = env.do(t, http.MethodPost, "/api/webhook", webhookBody("call-9", "bookTickets", map[string]interface{}{
		"show": "Wicked", "numberOfTickets": 3,
	}))
	require.Equal(t, http.StatusCreated, w.Code)

	w, body = env.do(t, http.MethodGet, "/api/calls/call-9/tickets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := body["items"].([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "Wicked", first["showTitle"])
	assert.Equal(t, float64(3), first["numberOfTickets"])

	w, body = env.do(t, http.MethodGet, "/api/tickets/"+first["id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first["id"], body["ticket"].(map[string]interface{})["id"])

	events, err := env.relay.Range(context.Background(), "call-9", "", "", 0)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, model.EventFunctionCall, events[0].Event.Type)
	assert.Equal(t, model.EventTicket, events[1].Event.Type)
}

func TestWebhookSuggestionReply(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodPost, "/api/webhook", webhookBody("call-1", "suggestShows", map[string]interface{}{"genre": "musical"}))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, body["result"])
	assert.NotContains(t, body, "data")
}

func TestWebhookNonFunctionEvent(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodPost, "/api/webhook", map[string]interface{}{
		"message": map[string]interface{}{"type": "status-update", "call": map[string]interface{}{"sid": "CA1"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, body)
}

func TestWebhookSurvivesRedisOutage(t *testing.T) {
	env := newTestEnv(t)
	env.mr.Close()

	w, body := env.do(t, http.MethodPost, "/api/webhook", webhookBody("call-2", "bookTickets", map[string]interface{}{"show": "Cats"}),
		"X-Tenant-ID", "default")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Cats", body["data"].(map[string]interface{})["show"])
}

func TestWebhookRequiresMessage(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodPost, "/api/webhook", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errs.ErrInvalidBody.Code, errCode(body))
}

func TestTicketNotFound(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodGet, "/api/tickets/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errs.ErrTicketNotFound.Code, errCode(body))

	w, body = env.do(t, http.MethodGet, "/api/calls/nobody/tickets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["items"])
}
