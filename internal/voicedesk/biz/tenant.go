package biz

import (
	"context"
	"errors"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
)

// ResetMode 是重置方式。
type ResetMode string

const (
	// ResetSoft 只把激活指针指回默认租户。
	ResetSoft ResetMode = "soft"
	// ResetHard 额外删除租户的知识块和配置。
	ResetHard ResetMode = "hard"
)

// ResetResult 是重置结果。
type ResetResult struct {
	Mode     ResetMode `json:"mode"`
	ActiveID string    `json:"activeCompanyId"`
	Deleted  int       `json:"deleted,omitempty"`
}

// TenantService 管理租户配置与激活指针。
type TenantService struct {
	store     store.TenantStore
	knowledge store.KnowledgeStore
}

// NewTenantService 创建租户服务。
func NewTenantService(ts store.TenantStore, ks store.KnowledgeStore) *TenantService {
	return &TenantService{store: ts, knowledge: ks}
}

// ActiveID 返回激活租户，未设置时为 "default"。
func (s *TenantService) ActiveID(ctx context.Context) (string, error) {
	id, err := s.store.ActiveID(ctx)
	if err != nil {
		logger.Errorw("read active tenant failed", "error", err)
		return "", errs.ErrBackendUnavailable.WithCause(err)
	}
	if id == "" {
		return model.DefaultTenantID, nil
	}
	return id, nil
}

// Get 返回租户配置。id 为空时读取激活租户；"default" 没有文档时返回内置配置。
func (s *TenantService) Get(ctx context.Context, id string) (*model.TenantConfig, error) {
	if id == "" {
		active, err := s.ActiveID(ctx)
		if err != nil {
			return nil, err
		}
		id = active
	}

	cfg, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) && id == model.DefaultTenantID {
		return model.DefaultTenantConfig(), nil
	}
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Errorw("read tenant config failed", "tenant", id, "error", err)
		}
		return nil, storeError(err, errs.ErrTenantNotFound)
	}
	return cfg, nil
}

// Save 校验并保存配置，makeActive 为 true 时同时激活。返回保存后的激活租户。
func (s *TenantService) Save(ctx context.Context, cfg *model.TenantConfig, makeActive bool) (string, error) {
	if err := store.CheckTenant(cfg.ID); err != nil {
		return "", errs.ErrInvalidTenant.WithCause(err)
	}
	if _, err := model.ParseVertical(string(cfg.Vertical)); err != nil {
		return "", errs.ErrInvalidVertical.WithCause(err)
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return "", errs.ErrInvalidDomainData.WithMessage(strings.Join(problems, "; "))
	}

	if err := s.store.Put(ctx, cfg); err != nil {
		logger.Errorw("save tenant config failed", "tenant", cfg.ID, "error", err)
		return "", storeError(err, nil)
	}
	if makeActive {
		// 后写者胜出，并发保存不做比较交换
		if err := s.store.SetActive(ctx, cfg.ID); err != nil {
			logger.Errorw("activate tenant failed", "tenant", cfg.ID, "error", err)
			return "", storeError(err, nil)
		}
		logger.Infow("tenant activated", "tenant", cfg.ID, "vertical", string(cfg.Vertical))
		return cfg.ID, nil
	}
	return s.ActiveID(ctx)
}

// Reset 执行重置。mode 为空时按 soft 处理；hard 必须指定租户。
func (s *TenantService) Reset(ctx context.Context, mode ResetMode, tenant string) (*ResetResult, error) {
	if mode == "" {
		mode = ResetSoft
	}

	res := &ResetResult{Mode: mode, ActiveID: model.DefaultTenantID}
	switch mode {
	case ResetSoft:
	case ResetHard:
		if err := store.CheckTenant(tenant); err != nil {
			return nil, errs.ErrInvalidTenant.WithMessage("companyId is required for hard reset").WithCause(err)
		}
		n, err := s.knowledge.DeleteAllForTenant(ctx, tenant)
		if err != nil {
			logger.Errorw("purge knowledge failed", "tenant", tenant, "error", err)
			return nil, storeError(err, nil)
		}
		res.Deleted = n
		if err := s.store.Delete(ctx, tenant); err != nil {
			logger.Errorw("delete tenant config failed", "tenant", tenant, "error", err)
			return nil, storeError(err, nil)
		}
	default:
		return nil, errs.ErrInvalidResetMode
	}

	if err := s.store.SetActive(ctx, model.DefaultTenantID); err != nil {
		logger.Errorw("reset active tenant failed", "error", err)
		return nil, storeError(err, nil)
	}
	logger.Infow("tenant reset", "mode", string(mode), "tenant", tenant, "deleted", res.Deleted)
	return res, nil
}
