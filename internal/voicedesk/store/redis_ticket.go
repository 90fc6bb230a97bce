package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/pkg/utils/json"
)

const ticketKeyPrefix = "ticket:"

// RedisTicketStore 将工单存为 ticket:<id>，并在 call:<id>:tickets 集合中建立索引。
type RedisTicketStore struct {
	rdb goredis.Cmdable
}

var _ TicketStore = (*RedisTicketStore)(nil)

// NewRedisTicketStore 创建工单存储。
func NewRedisTicketStore(rdb goredis.Cmdable) *RedisTicketStore {
	return &RedisTicketStore{rdb: rdb}
}

func ticketKey(id string) string       { return ticketKeyPrefix + id }
func callTicketsKey(call string) string { return callKeyPrefix + call + ":tickets" }

// Create 写入工单文档和所属通话的索引。
func (s *RedisTicketStore) Create(ctx context.Context, t *model.Ticket) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode ticket %s: %w", t.ID, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, ticketKey(t.ID), raw, 0)
		p.SAdd(ctx, callTicketsKey(t.CallID), t.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create ticket %s: %w", t.ID, err)
	}
	return nil
}

func (s *RedisTicketStore) Get(ctx context.Context, id string) (*model.Ticket, error) {
	raw, err := s.rdb.Get(ctx, ticketKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	var t model.Ticket
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode ticket %s: %w", id, err)
	}
	return &t, nil
}

// ListByCall 返回通话下的全部工单，按创建时间排序。
func (s *RedisTicketStore) ListByCall(ctx context.Context, callID string) ([]*model.Ticket, error) {
	ids, err := s.rdb.SMembers(ctx, callTicketsKey(callID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list tickets of %s: %w", callID, err)
	}
	tickets := make([]*model.Ticket, 0, len(ids))
	for _, id := range ids {
		t, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID < tickets[j].ID
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
	return tickets, nil
}
