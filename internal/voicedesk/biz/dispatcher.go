package biz

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/voicedesk/metrics"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	"github.com/kart-io/voicedesk/pkg/infra/tracing"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/id"
)

// DefaultSuggestionCount 是建议类调用附带的知识条数。
const DefaultSuggestionCount = 3

// Dispatcher 将 webhook 事件映射为通话、工单与中继事件。
// 所有持久化都是尽力而为：失败只记录日志，应答照常返回。
type Dispatcher struct {
	tenants   *TenantService
	calls     store.CallStore
	tickets   store.TicketStore
	knowledge store.KnowledgeStore
	relay     Publisher

	now func() time.Time
}

// NewDispatcher 创建分发器。
func NewDispatcher(tenants *TenantService, calls store.CallStore, tickets store.TicketStore, ks store.KnowledgeStore, r Publisher) *Dispatcher {
	return &Dispatcher{
		tenants:   tenants,
		calls:     calls,
		tickets:   tickets,
		knowledge: ks,
		relay:     r,
		now:       time.Now,
	}
}

// Dispatch 处理一条 webhook 消息。只有消息本身缺失时返回错误。
func (d *Dispatcher) Dispatch(ctx context.Context, tenant string, msg *model.WebhookMessage) (*model.WebhookReply, error) {
	if msg == nil {
		return nil, errs.ErrInvalidBody.WithMessage("message is required")
	}
	msgType := msg.Type
	if msgType == "" {
		msgType = model.MessageTypeFunctionCall
	}

	callID := msg.Call.Resolve()
	if callID == "" {
		callID = id.WithPrefix("call")
	}

	ctx, span := tracing.StartSpan(ctx, "webhook.dispatch",
		attribute.String(tracing.AttrCall, callID),
		attribute.String(tracing.AttrTenant, tenant),
	)
	defer span.End()

	persistBestEffort(ctx, "touch-call", func(ctx context.Context) error {
		_, err := d.calls.Touch(ctx, callID, d.now())
		return err
	}, "call", callID)

	if msgType != model.MessageTypeFunctionCall {
		logger.Debugw("webhook event acknowledged", "call", callID, "type", msgType)
		return &model.WebhookReply{}, nil
	}

	var (
		name   string
		params map[string]interface{}
	)
	if msg.FunctionCall != nil {
		name = msg.FunctionCall.Name
		params = msg.FunctionCall.Parameters
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	class, funcs := Classify(name)
	span.SetAttributes(attribute.String(tracing.AttrFunction, name))
	metrics.FunctionCalls.With(class.String()).Inc()
	d.checkEnabled(ctx, tenant, name, class)

	ev := model.NewFunctionCallEvent(name, params)
	if class == ClassSuggestion {
		ev.Suggestions = d.suggest(ctx, tenant, params)
	}
	persistBestEffort(ctx, "publish-function-call", func(ctx context.Context) error {
		_, err := d.relay.Publish(ctx, callID, ev)
		return err
	}, "call", callID, "function", name)

	switch class {
	case ClassConfirmation:
		d.recordTicket(ctx, callID, params, model.TicketPending)
	case ClassBooking:
		d.recordTicket(ctx, callID, params, model.TicketBooked)
	}

	logger.Infow("function call dispatched",
		"call", callID,
		"tenant", tenant,
		"function", name,
		"class", class.String(),
	)

	if class == ClassSuggestion {
		return &model.WebhookReply{Result: funcs.SuggestReply}, nil
	}
	return &model.WebhookReply{Data: params}, nil
}

// checkEnabled 只告警，不拒绝未启用的函数。
func (d *Dispatcher) checkEnabled(ctx context.Context, tenant, name string, class FunctionClass) {
	if tenant == "" || class == ClassOther {
		return
	}
	cfg, err := d.tenants.Get(ctx, tenant)
	if err != nil {
		logger.Debugw("tenant config unavailable for function check", "tenant", tenant, "error", err)
		return
	}
	if !cfg.FunctionEnabled(name) {
		logger.Warnw("function not enabled for tenant", "tenant", tenant, "function", name)
	}
}

// suggest 用参数值做全文检索，失败时返回空。
func (d *Dispatcher) suggest(ctx context.Context, tenant string, params map[string]interface{}) []model.SearchHit {
	if store.CheckTenant(tenant) != nil {
		return nil
	}
	var hits []model.SearchHit
	persistBestEffort(ctx, "suggest-knowledge", func(ctx context.Context) error {
		var err error
		hits, err = d.knowledge.SearchText(ctx, tenant, paramQuery(params), DefaultSuggestionCount)
		return err
	}, "tenant", tenant)
	return hits
}

func (d *Dispatcher) recordTicket(ctx context.Context, callID string, params map[string]interface{}, status model.TicketStatus) {
	t := TicketFromParams(callID, params, status, d.now())
	ok := persistBestEffort(ctx, "create-ticket", func(ctx context.Context) error {
		return d.tickets.Create(ctx, t)
	}, "call", callID, "ticket", t.ID)
	if !ok {
		return
	}
	persistBestEffort(ctx, "publish-ticket", func(ctx context.Context) error {
		_, err := d.relay.Publish(ctx, callID, model.NewTicketEvent(t))
		return err
	}, "call", callID, "ticket", t.ID)
}

// TicketFromParams 从函数参数提取工单字段，兼容各行业的参数名。
func TicketFromParams(callID string, params map[string]interface{}, status model.TicketStatus, at time.Time) *model.Ticket {
	t := &model.Ticket{
		ID:        firstString(params, "ticketId"),
		CallID:    callID,
		Subject:   firstString(params, "show", "hotelName", "hotelId", "campaignName", "campaignId"),
		Date:      firstString(params, "date", "checkInDate", "startDate"),
		Location:  firstString(params, "location"),
		Quantity:  firstInt(params, "numberOfTickets", "rooms"),
		Status:    status,
		CreatedAt: at,
	}
	if t.ID == "" {
		t.ID = id.WithPrefix("ticket")
	}
	return t
}

func firstString(params map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := params[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstInt(params map[string]interface{}, keys ...string) int {
	for _, k := range keys {
		switch v := params[k].(type) {
		case float64:
			return int(v)
		case int:
			return v
		case int64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return 0
}

// paramQuery 将标量参数值按键名排序后拼成检索词。
func paramQuery(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := params[k].(type) {
		case string:
			parts = append(parts, v)
		case float64, bool:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, " ")
}
