package store

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/voicedesk/internal/model"
)

// MemoryKnowledgeStore 是进程内的知识库实现，用于测试和无 RediSearch 的本地环境。
type MemoryKnowledgeStore struct {
	mu     sync.RWMutex
	chunks map[string][]*model.KnowledgeChunk
}

var _ KnowledgeStore = (*MemoryKnowledgeStore)(nil)

// NewMemoryKnowledgeStore 创建内存知识库。
func NewMemoryKnowledgeStore() *MemoryKnowledgeStore {
	return &MemoryKnowledgeStore{chunks: make(map[string][]*model.KnowledgeChunk)}
}

// EnsureIndex 无需操作。
func (s *MemoryKnowledgeStore) EnsureIndex(context.Context) error { return nil }

func (s *MemoryKnowledgeStore) Put(_ context.Context, tenant string, chunk *model.KnowledgeChunk) error {
	if err := CheckTenant(tenant); err != nil {
		return err
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}
	if chunk.Source == "" {
		chunk.Source = model.DefaultSource
	}
	chunk.ID = KnowledgeKey(tenant, chunk.CreatedAt)
	chunk.TenantID = tenant

	cp := *chunk
	s.mu.Lock()
	s.chunks[tenant] = append(s.chunks[tenant], &cp)
	s.mu.Unlock()
	return nil
}

func (s *MemoryKnowledgeStore) SearchVector(_ context.Context, tenant string, vec []float32, k int) ([]model.SearchHit, error) {
	if err := CheckTenant(tenant); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rankByVector(s.chunks[tenant], vec, normalizeK(k)), nil
}

// SearchText 按查询词命中次数排序；查询为空时按写入顺序返回。
func (s *MemoryKnowledgeStore) SearchText(_ context.Context, tenant, query string, k int) ([]model.SearchHit, error) {
	if err := CheckTenant(tenant); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rankByText(s.chunks[tenant], query, normalizeK(k)), nil
}

func (s *MemoryKnowledgeStore) DeleteAllForTenant(_ context.Context, tenant string) (int, error) {
	if err := CheckTenant(tenant); err != nil {
		return 0, err
	}
	s.mu.Lock()
	n := len(s.chunks[tenant])
	delete(s.chunks, tenant)
	s.mu.Unlock()
	return n, nil
}

// Count 返回租户的知识块数量。
func (s *MemoryKnowledgeStore) Count(tenant string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[tenant])
}
