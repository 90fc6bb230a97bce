package biz

import (
	"context"
	"errors"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	"github.com/kart-io/voicedesk/internal/voicedesk/relay"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
)

// Publisher 是业务层对事件中继的写入依赖。
type Publisher interface {
	Publish(ctx context.Context, streamID string, ev *model.Event) (string, error)
}

var _ Publisher = (*relay.RedisRelay)(nil)

// storeError 将存储层错误映射为 errno；未识别的错误视为后端不可用。
func storeError(err error, notFound *errs.Errno) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrInvalidTenant):
		return errs.ErrInvalidTenant.WithCause(err)
	case errors.Is(err, store.ErrNotFound) && notFound != nil:
		return notFound.WithCause(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return errs.ErrBackendUnavailable.WithCause(err)
	}
}
