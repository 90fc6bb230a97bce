package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/pkg/utils/validator"
)

var (
	// ErrNotFound 表示记录不存在。
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidTenant 表示租户 ID 不合法，拒绝执行任何查询或删除。
	ErrInvalidTenant = errors.New("store: invalid tenant id")
)

// CheckTenant 校验租户 ID，所有按租户划分的操作在访问后端前都要调用。
func CheckTenant(tenant string) error {
	if !validator.IsTenantID(tenant) {
		return fmt.Errorf("%w: %q", ErrInvalidTenant, tenant)
	}
	return nil
}

// KnowledgeStore 定义按租户隔离的知识库存储接口。
type KnowledgeStore interface {
	// EnsureIndex 幂等地创建检索索引，并发调用安全。
	EnsureIndex(ctx context.Context) error

	// Put 存储一个知识块，并回填 chunk.ID。
	Put(ctx context.Context, tenant string, chunk *model.KnowledgeChunk) error

	// SearchVector 按余弦距离升序返回最多 k 条记录。
	SearchVector(ctx context.Context, tenant string, vec []float32, k int) ([]model.SearchHit, error)

	// SearchText 全文检索；查询为空时返回该租户任意 k 条记录。
	SearchText(ctx context.Context, tenant, query string, k int) ([]model.SearchHit, error)

	// DeleteAllForTenant 删除租户的全部知识块，返回删除数量。
	DeleteAllForTenant(ctx context.Context, tenant string) (int, error)
}

// TenantStore 定义租户配置存储接口。
type TenantStore interface {
	Get(ctx context.Context, id string) (*model.TenantConfig, error)
	Put(ctx context.Context, cfg *model.TenantConfig) error
	Delete(ctx context.Context, id string) error

	// ActiveID 返回当前激活的租户；未设置时返回空字符串。
	ActiveID(ctx context.Context) (string, error)
	SetActive(ctx context.Context, id string) error
}

// CallStore 定义通话会话存储接口。
type CallStore interface {
	// Touch 首次调用时创建会话，之后只更新 LastMessageAt。
	Touch(ctx context.Context, callID string, at time.Time) (*model.CallSession, error)
	Get(ctx context.Context, callID string) (*model.CallSession, error)
}

// TicketStore 定义工单存储接口。
type TicketStore interface {
	// Create 保存工单并将其挂到所属通话下。
	Create(ctx context.Context, t *model.Ticket) error
	Get(ctx context.Context, id string) (*model.Ticket, error)
	ListByCall(ctx context.Context, callID string) ([]*model.Ticket, error)
}

// ShowStore 定义演出目录存储接口。
type ShowStore interface {
	EnsureIndex(ctx context.Context) error
	Put(ctx context.Context, shows ...*model.Show) error
	Search(ctx context.Context, query string, limit int) ([]*model.Show, error)
}
