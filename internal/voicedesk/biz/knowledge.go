package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/pkg/embedding"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
)

const maxTopK = 50

// KnowledgeService 提供按租户隔离的知识检索。
type KnowledgeService struct {
	store    store.KnowledgeStore
	embedder embedding.Embedder
}

// NewKnowledgeService 创建检索服务。
func NewKnowledgeService(ks store.KnowledgeStore, e embedding.Embedder) *KnowledgeService {
	return &KnowledgeService{store: ks, embedder: e}
}

// Search 检索知识。typ 为空时使用向量检索；k 默认 5，上限 50。
func (s *KnowledgeService) Search(ctx context.Context, tenant, query string, typ model.SearchType, k int) ([]model.SearchHit, error) {
	if err := store.CheckTenant(tenant); err != nil {
		return nil, errs.ErrInvalidTenant.WithCause(err)
	}
	if k <= 0 {
		k = store.DefaultTopK
	}
	if k > maxTopK {
		k = maxTopK
	}

	var (
		hits []model.SearchHit
		err  error
	)
	switch typ {
	case model.SearchVector, "":
		var vec []float32
		if vec, err = s.embedder.Embed(ctx, query); err != nil {
			logger.Errorw("embed query failed", "tenant", tenant, "error", err)
			return nil, errs.ErrSearchFailed.WithCause(err)
		}
		hits, err = s.store.SearchVector(ctx, tenant, vec, k)
	case model.SearchText:
		hits, err = s.store.SearchText(ctx, tenant, query, k)
	default:
		return nil, errs.ErrInvalidSearchType
	}
	if err != nil {
		logger.Errorw("knowledge search failed", "tenant", tenant, "type", string(typ), "error", err)
		return nil, errs.ErrSearchFailed.WithCause(err)
	}
	if hits == nil {
		hits = []model.SearchHit{}
	}
	return hits, nil
}
