// Package relay 提供通话事件的持久日志（Redis Stream）与实时广播（Redis Pub/Sub）。
package relay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/voicedesk/metrics"
	"github.com/kart-io/voicedesk/pkg/infra/tracing"
	"github.com/kart-io/voicedesk/pkg/utils/json"
)

const (
	// DefaultStreamPrefix 是持久日志键前缀。
	DefaultStreamPrefix = "stream:call:"
	// DefaultChannelPrefix 是实时频道前缀。
	DefaultChannelPrefix = "ch:call:"
	// DefaultRangeCount 是 Range 未指定 count 时的条数。
	DefaultRangeCount = 50

	eventField   = "event"
	subscriberCh = 64
	maxStreamID  = 256
)

var (
	// ErrInvalidStreamID 表示流 ID 为空或过长。
	ErrInvalidStreamID = errors.New("relay: invalid stream id")
	// ErrInvalidRangeID 表示 Range 的起止条目 ID 格式错误。
	ErrInvalidRangeID = errors.New("relay: invalid range id")
)

// Relay 定义事件中继接口。
type Relay interface {
	// Publish 先追加持久日志再广播，返回日志条目 ID。
	Publish(ctx context.Context, streamID string, ev *model.Event) (string, error)
	// Range 按 ID 区间读取持久日志，流不存在时返回空切片。
	Range(ctx context.Context, streamID, start, end string, count int64) ([]model.LoggedEvent, error)
	// Subscribe 订阅实时频道，确认订阅后返回。
	Subscribe(ctx context.Context, streamID string) (*Subscription, error)
}

// Options 是中继配置。
type Options struct {
	StreamPrefix  string
	ChannelPrefix string
	// MaxLen 大于 0 时按近似长度裁剪持久日志。
	MaxLen int64
}

// RedisRelay 基于 Redis Stream 与 Pub/Sub 实现 Relay。
type RedisRelay struct {
	rdb  goredis.UniversalClient
	opts Options
}

var _ Relay = (*RedisRelay)(nil)

// NewRedisRelay 创建中继。前缀为空时使用默认值。
func NewRedisRelay(rdb goredis.UniversalClient, opts Options) *RedisRelay {
	if opts.StreamPrefix == "" {
		opts.StreamPrefix = DefaultStreamPrefix
	}
	if opts.ChannelPrefix == "" {
		opts.ChannelPrefix = DefaultChannelPrefix
	}
	return &RedisRelay{rdb: rdb, opts: opts}
}

// CheckStreamID 校验流 ID。
func CheckStreamID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > maxStreamID {
		return fmt.Errorf("%w: %q", ErrInvalidStreamID, id)
	}
	return nil
}

// CheckRangeID 校验 XRANGE 边界：- 与 + 或 <ms>[-<seq>]，可带 ( 表示开区间。
// 空串表示使用默认边界。
func CheckRangeID(id string) error {
	if id == "" || id == "-" || id == "+" {
		return nil
	}
	ms, seq, hasSeq := strings.Cut(strings.TrimPrefix(id, "("), "-")
	if _, err := strconv.ParseUint(ms, 10, 64); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRangeID, id)
	}
	if hasSeq {
		if _, err := strconv.ParseUint(seq, 10, 64); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidRangeID, id)
		}
	}
	return nil
}

func (r *RedisRelay) streamKey(id string) string  { return r.opts.StreamPrefix + id }
func (r *RedisRelay) channelKey(id string) string { return r.opts.ChannelPrefix + id }

// Publish 在一个 MULTI/EXEC 中执行 XADD 与 PUBLISH。
func (r *RedisRelay) Publish(ctx context.Context, streamID string, ev *model.Event) (_ string, err error) {
	if err := CheckStreamID(streamID); err != nil {
		return "", err
	}
	ctx, span := tracing.StartSpan(ctx, "relay.publish",
		attribute.String(tracing.AttrStream, streamID),
		attribute.String("voicedesk.event", string(ev.Type)),
	)
	defer func() { tracing.End(span, err) }()

	if ev.T == 0 {
		ev.T = model.NowMillis()
	}
	payload, err := json.MarshalString(ev)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}

	var xadd *goredis.StringCmd
	_, err = r.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		args := &goredis.XAddArgs{
			Stream: r.streamKey(streamID),
			ID:     "*",
			Values: []interface{}{eventField, payload},
		}
		if r.opts.MaxLen > 0 {
			args.MaxLen = r.opts.MaxLen
			args.Approx = true
		}
		xadd = p.XAdd(ctx, args)
		p.Publish(ctx, r.channelKey(streamID), payload)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", streamID, err)
	}
	metrics.EventsPublished.With(string(ev.Type)).Inc()
	return xadd.Val(), nil
}

// Range 读取持久日志，start/end 默认 "-"/"+"，count 默认 50。
func (r *RedisRelay) Range(ctx context.Context, streamID, start, end string, count int64) ([]model.LoggedEvent, error) {
	if err := CheckStreamID(streamID); err != nil {
		return nil, err
	}
	if err := CheckRangeID(start); err != nil {
		return nil, err
	}
	if err := CheckRangeID(end); err != nil {
		return nil, err
	}
	if start == "" {
		start = "-"
	}
	if end == "" {
		end = "+"
	}
	if count <= 0 {
		count = DefaultRangeCount
	}

	msgs, err := r.rdb.XRangeN(ctx, r.streamKey(streamID), start, end, count).Result()
	if errors.Is(err, goredis.Nil) {
		return []model.LoggedEvent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", streamID, err)
	}

	out := make([]model.LoggedEvent, 0, len(msgs))
	for _, m := range msgs {
		raw, _ := m.Values[eventField].(string)
		var ev model.Event
		if err := json.UnmarshalString(raw, &ev); err != nil {
			logger.Warnw("skip undecodable stream entry", "stream", streamID, "id", m.ID, "error", err)
			continue
		}
		out = append(out, model.LoggedEvent{ID: m.ID, Event: &ev})
	}
	return out, nil
}

// Subscribe 订阅 ch:<streamID>，在收到订阅确认后返回句柄。
func (r *RedisRelay) Subscribe(ctx context.Context, streamID string) (*Subscription, error) {
	if err := CheckStreamID(streamID); err != nil {
		return nil, err
	}
	channel := r.channelKey(streamID)
	ps := r.rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	s := &Subscription{
		streamID: streamID,
		ps:       ps,
		events:   make(chan *model.Event, subscriberCh),
		done:     make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

// Subscription 是一次实时订阅的句柄。事件序列是惰性的、无限的且不可重启；
// Close 之后 Events 通道会被关闭。
type Subscription struct {
	streamID string
	ps       *goredis.PubSub
	events   chan *model.Event
	done     chan struct{}
	once     sync.Once
}

// Events 返回事件通道。
func (s *Subscription) Events() <-chan *model.Event { return s.events }

// StreamID 返回订阅的流 ID。
func (s *Subscription) StreamID() string { return s.streamID }

// Close 取消订阅并释放连接，可重复调用。
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

func (s *Subscription) pump() {
	defer close(s.events)
	in := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var ev model.Event
			if err := json.UnmarshalString(msg.Payload, &ev); err != nil {
				logger.Warnw("drop undecodable event", "stream", s.streamID, "error", err)
				continue
			}
			select {
			case s.events <- &ev:
			case <-s.done:
				return
			}
		}
	}
}
