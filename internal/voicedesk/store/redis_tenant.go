package store

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/pkg/utils/json"
)

const (
	tenantKeyPrefix = "company:"
	// ActiveTenantKey 保存当前激活租户 ID。
	ActiveTenantKey = "currentCompany"
)

// RedisTenantStore 将租户配置存为 company:<id> 的 JSON 字符串。
type RedisTenantStore struct {
	rdb goredis.Cmdable
}

var _ TenantStore = (*RedisTenantStore)(nil)

// NewRedisTenantStore 创建租户配置存储。
func NewRedisTenantStore(rdb goredis.Cmdable) *RedisTenantStore {
	return &RedisTenantStore{rdb: rdb}
}

func tenantKey(id string) string { return tenantKeyPrefix + id }

func (s *RedisTenantStore) Get(ctx context.Context, id string) (*model.TenantConfig, error) {
	if err := CheckTenant(id); err != nil {
		return nil, err
	}
	raw, err := s.rdb.Get(ctx, tenantKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant %s: %w", id, err)
	}

	var cfg model.TenantConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode tenant %s: %w", id, err)
	}
	return &cfg, nil
}

func (s *RedisTenantStore) Put(ctx context.Context, cfg *model.TenantConfig) error {
	if err := CheckTenant(cfg.ID); err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode tenant %s: %w", cfg.ID, err)
	}
	if err := s.rdb.Set(ctx, tenantKey(cfg.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("set tenant %s: %w", cfg.ID, err)
	}
	return nil
}

// Delete 删除租户配置；不存在时不报错。
func (s *RedisTenantStore) Delete(ctx context.Context, id string) error {
	if err := CheckTenant(id); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, tenantKey(id)).Err(); err != nil {
		return fmt.Errorf("delete tenant %s: %w", id, err)
	}
	return nil
}

func (s *RedisTenantStore) ActiveID(ctx context.Context) (string, error) {
	id, err := s.rdb.Get(ctx, ActiveTenantKey).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active tenant: %w", err)
	}
	return id, nil
}

// SetActive 覆盖激活指针，后写者胜出。
func (s *RedisTenantStore) SetActive(ctx context.Context, id string) error {
	if err := CheckTenant(id); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, ActiveTenantKey, id, 0).Err(); err != nil {
		return fmt.Errorf("set active tenant %s: %w", id, err)
	}
	return nil
}
