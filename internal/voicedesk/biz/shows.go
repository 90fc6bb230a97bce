package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/validator"
)

// ShowService 提供公开的演出目录。
type ShowService struct {
	store store.ShowStore
}

// NewShowService 创建演出服务。
func NewShowService(ss store.ShowStore) *ShowService {
	return &ShowService{store: ss}
}

// List 检索演出。后端故障时降级为空列表，保证页面可用。
func (s *ShowService) List(ctx context.Context, query string) []*model.Show {
	shows, err := s.store.Search(ctx, query, store.DefaultShowLimit)
	if err != nil {
		logger.Warnw("show search degraded to empty result", "query", query, "error", err)
		return []*model.Show{}
	}
	return shows
}

// Save 校验并写入演出，返回写入条数。
func (s *ShowService) Save(ctx context.Context, shows []*model.Show) (int, error) {
	if len(shows) == 0 {
		return 0, errs.ErrMissingInputs.WithMessage("items is required")
	}
	for _, sh := range shows {
		if err := validator.Struct(sh); err != nil {
			return 0, err
		}
	}
	if err := s.store.EnsureIndex(ctx); err != nil {
		logger.Warnw("show index unavailable", "error", err)
	}
	if err := s.store.Put(ctx, shows...); err != nil {
		logger.Errorw("save shows failed", "count", len(shows), "error", err)
		return 0, errs.ErrBackendUnavailable.WithCause(err)
	}
	return len(shows), nil
}
