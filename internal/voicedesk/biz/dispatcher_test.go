package biz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/voicedesk/internal/model"
)

func functionCall(callID, name string, params map[string]interface{}) *model.WebhookMessage {
	return &model.WebhookMessage{
		Type:         model.MessageTypeFunctionCall,
		FunctionCall: &model.FunctionCall{Name: name, Parameters: params},
		Call:         &model.CallRef{ID: callID},
	}
}

func TestConfirmThenBookCreatesTwoTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply, err := f.dispatcher.Dispatch(ctx, "default", functionCall("call-1", "confirmDetails", map[string]interface{}{
		"show": "Hamilton", "date": "2026-11-01", "location": "NYC", "numberOfTickets": float64(2),
	}))
	require.NoError(t, err)
	assert.Equal(t, "Hamilton", reply.Data["show"])

	_, err = f.dispatcher.Dispatch(ctx, "default", functionCall("call-1", "bookTickets", map[string]interface{}{
		"show": "Hamilton", "numberOfTickets": "2",
	}))
	require.NoError(t, err)

	tickets, err := f.tickets.ListByCall(ctx, "call-1")
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.NotEqual(t, tickets[0].ID, tickets[1].ID)

	var statuses []model.TicketStatus
	for _, tk := range tickets {
		statuses = append(statuses, tk.Status)
		assert.Equal(t, "Hamilton", tk.Subject)
		assert.Equal(t, 2, tk.Quantity)
		assert.Equal(t, "call-1", tk.CallID)
	}
	assert.ElementsMatch(t, []model.TicketStatus{model.TicketPending, model.TicketBooked}, statuses)

	// 每次调用发布一个 function-call 事件和一个 ticket 事件
	events := f.streamEvents(t, "call-1")
	require.Len(t, events, 4)
	assert.Equal(t, model.EventFunctionCall, events[0].Event.Type)
	assert.Equal(t, model.EventTicket, events[1].Event.Type)
	assert.Equal(t, model.TicketPending, events[1].Event.Ticket.Status)
	assert.Equal(t, model.EventTicket, events[3].Event.Type)
	assert.Equal(t, model.TicketBooked, events[3].Event.Ticket.Status)

	session, err := f.calls.Get(ctx, "call-1")
	require.NoError(t, err)
	assert.Equal(t, model.CallStatusActive, session.Status)
}

func TestSuggestionReplyAndKnowledge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ingester.Ingest(ctx, "default", []model.IngestInput{
		{Title: "Hamilton", Text: "hamilton plays nightly at the richard rodgers theatre"},
		{Title: "Parking", Text: "parking garage on 46th street"},
	})
	require.NoError(t, err)

	reply, err := f.dispatcher.Dispatch(ctx, "default", functionCall("call-2", "suggestShows", map[string]interface{}{"genre": "hamilton"}))
	require.NoError(t, err)
	assert.Equal(t, "You can see the upcoming shows on the screen. Select which ones you want to choose.", reply.Result)
	assert.Nil(t, reply.Data)

	events := f.streamEvents(t, "call-2")
	require.Len(t, events, 1)
	ev := events[0].Event
	assert.Equal(t, "suggestShows", ev.Name)
	require.Len(t, ev.Suggestions, 1)
	assert.Equal(t, "Hamilton", ev.Suggestions[0].Title)

	tickets, err := f.tickets.ListByCall(ctx, "call-2")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestHotelVerticalFunctions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply, err := f.dispatcher.Dispatch(ctx, "default", functionCall("call-h", "suggestHotels", nil))
	require.NoError(t, err)
	assert.Contains(t, reply.Result, "hotels")

	_, err = f.dispatcher.Dispatch(ctx, "default", functionCall("call-h", "bookRoom", map[string]interface{}{
		"hotelName": "Five Season", "checkInDate": "2026-12-24", "rooms": float64(3), "ticketId": "res-1",
	}))
	require.NoError(t, err)

	tk, err := f.tickets.Get(ctx, "res-1")
	require.NoError(t, err)
	assert.Equal(t, "Five Season", tk.Subject)
	assert.Equal(t, "2026-12-24", tk.Date)
	assert.Equal(t, 3, tk.Quantity)
	assert.Equal(t, model.TicketBooked, tk.Status)
}

func TestNonFunctionEventAcknowledged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply, err := f.dispatcher.Dispatch(ctx, "default", &model.WebhookMessage{Type: "status-update", Call: &model.CallRef{SID: "sid-9"}})
	require.NoError(t, err)
	assert.Empty(t, reply.Result)
	assert.Nil(t, reply.Data)

	_, err = f.calls.Get(ctx, "sid-9")
	assert.NoError(t, err)
	assert.Empty(t, f.streamEvents(t, "sid-9"))

	_, err = f.dispatcher.Dispatch(ctx, "default", nil)
	assert.Error(t, err)
}

func TestGeneratedCallID(t *testing.T) {
	f := newFixture(t)
	reply, err := f.dispatcher.Dispatch(context.Background(), "default", &model.WebhookMessage{
		FunctionCall: &model.FunctionCall{Name: "lookupWeather", Parameters: map[string]interface{}{"city": "NYC"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "NYC", reply.Data["city"])

	var streams []string
	for _, k := range f.mr.Keys() {
		if strings.HasPrefix(k, "stream:call:call_") {
			streams = append(streams, k)
		}
	}
	assert.Len(t, streams, 1)
}

func TestDispatchSurvivesStorageOutage(t *testing.T) {
	f := newFixture(t)
	f.mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := f.dispatcher.Dispatch(ctx, "default", functionCall("call-x", "bookTickets", map[string]interface{}{"show": "Wicked"}))
	require.NoError(t, err)
	assert.Equal(t, "Wicked", reply.Data["show"])

	reply, err = f.dispatcher.Dispatch(ctx, "default", functionCall("call-x", "suggestShows", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Result)
}

func TestTicketFromParams(t *testing.T) {
	at := time.Unix(100, 0)
	tk := TicketFromParams("c", map[string]interface{}{"campaignName": "Spring", "startDate": "2026-03-01"}, model.TicketPending, at)
	assert.Equal(t, "Spring", tk.Subject)
	assert.Equal(t, "2026-03-01", tk.Date)
	assert.True(t, strings.HasPrefix(tk.ID, "ticket_"))
	assert.Zero(t, tk.Quantity)
}

func TestClassify(t *testing.T) {
	cases := map[string]FunctionClass{
		"suggestShows":              ClassSuggestion,
		"confirmReservationDetails": ClassConfirmation,
		"launchCampaign":            ClassBooking,
		"somethingElse":             ClassOther,
	}
	for name, want := range cases {
		got, _ := Classify(name)
		assert.Equal(t, want, got, name)
	}
	assert.Equal(t, "suggestShows", FunctionsFor(model.VerticalEvents).Suggest)
	assert.Equal(t, "bookRoom", FunctionsFor(model.VerticalHotel).Book)
}

func TestParamQuery(t *testing.T) {
	q := paramQuery(map[string]interface{}{"b": "wicked", "a": float64(2), "c": []interface{}{"x"}})
	assert.Equal(t, "2 wicked", q)
}
