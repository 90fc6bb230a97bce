package model

import "time"

// CallStatusActive is the only status a call session records. A call with
// no further events is considered ended.
const CallStatusActive = "active"

// CallSession tracks one voice call.
type CallSession struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"startedAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

// TicketStatus is set once, at creation.
type TicketStatus string

const (
	TicketPending TicketStatus = "pending"
	TicketBooked  TicketStatus = "booked"
)

// Ticket is a booking record produced by a confirmation or booking call.
type Ticket struct {
	ID        string       `json:"id"`
	CallID    string       `json:"callId"`
	Subject   string       `json:"showTitle"`
	Date      string       `json:"date,omitempty"`
	Location  string       `json:"location,omitempty"`
	Quantity  int          `json:"numberOfTickets,omitempty"`
	Status    TicketStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// MessageTypeFunctionCall is the webhook message type that carries a call.
const MessageTypeFunctionCall = "function-call"

// WebhookEnvelope is the body posted by the voice SDK.
type WebhookEnvelope struct {
	Message *WebhookMessage `json:"message"`
}

// WebhookMessage is one inbound event from the voice SDK.
type WebhookMessage struct {
	Type         string        `json:"type"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
	Call         *CallRef      `json:"call,omitempty"`
}

// FunctionCall is a named, parameterized action from the assistant.
type FunctionCall struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// CallRef identifies the call; SDK versions differ in which field they set.
type CallRef struct {
	ID     string `json:"id,omitempty"`
	SID    string `json:"sid,omitempty"`
	CallID string `json:"callId,omitempty"`
}

// Resolve returns the first non-empty identifier.
func (r *CallRef) Resolve() string {
	if r == nil {
		return ""
	}
	for _, s := range []string{r.ID, r.SID, r.CallID} {
		if s != "" {
			return s
		}
	}
	return ""
}

// WebhookReply is the synchronous acknowledgement to the voice SDK.
// An empty reply encodes as {}.
type WebhookReply struct {
	Result string                 `json:"result,omitempty"`
	Data   map[string]interface{} `json:"data,omitempty"`
}
