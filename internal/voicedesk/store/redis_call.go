package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/pkg/utils/json"
)

const callKeyPrefix = "call:"

// RedisCallStore 将通话会话存为 call:<id> 的 JSON 字符串。
type RedisCallStore struct {
	rdb goredis.UniversalClient
}

var _ CallStore = (*RedisCallStore)(nil)

// NewRedisCallStore 创建通话存储。
func NewRedisCallStore(rdb goredis.UniversalClient) *RedisCallStore {
	return &RedisCallStore{rdb: rdb}
}

func callKey(id string) string { return callKeyPrefix + id }

// Touch 在 WATCH 事务中读改写，保留首次创建时的 StartedAt。
func (s *RedisCallStore) Touch(ctx context.Context, callID string, at time.Time) (*model.CallSession, error) {
	key := callKey(callID)
	var session *model.CallSession

	txf := func(tx *goredis.Tx) error {
		session = &model.CallSession{ID: callID, Status: model.CallStatusActive, StartedAt: at}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return err
		default:
			var prev model.CallSession
			if err := json.Unmarshal(raw, &prev); err == nil && !prev.StartedAt.IsZero() {
				session.StartedAt = prev.StartedAt
			}
		}
		session.LastMessageAt = at

		buf, err := json.Marshal(session)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, buf, 0)
			return nil
		})
		return err
	}

	for i := 0; i < 3; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("touch call %s: %w", callID, err)
		}
		return session, nil
	}
	return nil, fmt.Errorf("touch call %s: %w", callID, goredis.TxFailedErr)
}

func (s *RedisCallStore) Get(ctx context.Context, callID string) (*model.CallSession, error) {
	raw, err := s.rdb.Get(ctx, callKey(callID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get call %s: %w", callID, err)
	}
	var session model.CallSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode call %s: %w", callID, err)
	}
	return &session, nil
}
