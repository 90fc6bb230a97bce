package model

import "time"

// EventType enumerates relay payloads.
type EventType string

const (
	EventFunctionCall   EventType = "function-call"
	EventTicket         EventType = "ticket"
	EventIngestProgress EventType = "ingest-progress"
	EventIngestComplete EventType = "ingest-complete"
	EventGeneric        EventType = "generic"
)

// Event is the relay payload. Only the fields of its type are set.
type Event struct {
	T    int64     `json:"t"`
	Type EventType `json:"type"`

	// function-call
	Name        string                 `json:"name,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Suggestions []SearchHit            `json:"suggestions,omitempty"`

	// ticket
	Ticket *Ticket `json:"ticket,omitempty"`

	// ingest-progress / ingest-complete
	CompanyID string `json:"companyId,omitempty"`
	Processed *int   `json:"processed,omitempty"`
	Total     *int   `json:"total,omitempty"`

	// generic
	Data map[string]interface{} `json:"data,omitempty"`
}

// LoggedEvent is an entry read back from a durable log.
type LoggedEvent struct {
	ID    string `json:"id"`
	Event *Event `json:"event"`
}

// NowMillis is the event timestamp format.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// NewFunctionCallEvent normalizes an inbound function call.
func NewFunctionCallEvent(name string, params map[string]interface{}) *Event {
	return &Event{T: NowMillis(), Type: EventFunctionCall, Name: name, Parameters: params}
}

// NewTicketEvent wraps a stored ticket.
func NewTicketEvent(t *Ticket) *Event {
	return &Event{T: NowMillis(), Type: EventTicket, Ticket: t}
}

// NewIngestEvent reports ingestion progress; complete marks the final event.
func NewIngestEvent(tenantID string, processed, total int, complete bool) *Event {
	typ := EventIngestProgress
	if complete {
		typ = EventIngestComplete
	}
	return &Event{T: NowMillis(), Type: typ, CompanyID: tenantID, Processed: &processed, Total: &total}
}

// NewGenericEvent carries an arbitrary payload.
func NewGenericEvent(data map[string]interface{}) *Event {
	return &Event{T: NowMillis(), Type: EventGeneric, Data: data}
}
