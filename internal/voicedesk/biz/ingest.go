package biz

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/pkg/embedding"
	"github.com/kart-io/voicedesk/internal/pkg/textutil"
	"github.com/kart-io/voicedesk/internal/voicedesk/metrics"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	"github.com/kart-io/voicedesk/pkg/infra/pool"
	"github.com/kart-io/voicedesk/pkg/infra/tracing"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
)

// IngestStreamPrefix 是导入任务的流 ID 前缀，后接租户 ID。
const IngestStreamPrefix = "ingest:"

// IngestStreamID 返回租户导入任务的流 ID。
func IngestStreamID(tenant string) string { return IngestStreamPrefix + tenant }

// IngesterConfig 导入配置。
type IngesterConfig struct {
	// ChunkSize 分块长度（字符数），默认 800。
	ChunkSize int
}

// Ingester 负责知识导入：分块、嵌入、写入并发布进度。
type Ingester struct {
	store    store.KnowledgeStore
	embedder embedding.Embedder
	relay    Publisher
	pool     *pool.Pool
	config   IngesterConfig
}

// NewIngester 创建导入器。块的嵌入与写入在 pool 上并行执行。
func NewIngester(ks store.KnowledgeStore, e embedding.Embedder, r Publisher, p *pool.Pool, cfg IngesterConfig) *Ingester {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = textutil.DefaultChunkSize
	}
	return &Ingester{store: ks, embedder: e, relay: r, pool: p, config: cfg}
}

// Ingest 按输入顺序导入。每完成一个输入发布一次 ingest-progress，全部完成后
// 发布 ingest-complete。任一块失败则整体中止，不发布完成事件；
// 重试会重复写入已存储的块。
func (i *Ingester) Ingest(ctx context.Context, tenant string, inputs []model.IngestInput) (_ int, err error) {
	ctx, span := tracing.StartSpan(ctx, "knowledge.ingest",
		attribute.String(tracing.AttrTenant, tenant),
		attribute.Int("voicedesk.inputs", len(inputs)),
	)
	defer func() { tracing.End(span, err) }()

	if err := store.CheckTenant(tenant); err != nil {
		return 0, errs.ErrInvalidTenant.WithCause(err)
	}
	if len(inputs) == 0 {
		return 0, errs.ErrMissingInputs
	}
	valid := make([]model.IngestInput, 0, len(inputs))
	for _, in := range inputs {
		if in.Usable() {
			in.Source = in.SourceOrDefault()
			valid = append(valid, in)
		}
	}
	if len(valid) == 0 {
		return 0, errs.ErrNoValidInputs
	}

	if err := i.store.EnsureIndex(ctx); err != nil {
		logger.Errorw("ensure knowledge index failed", "tenant", tenant, "error", err)
		return 0, errs.ErrBackendUnavailable.WithCause(err)
	}

	start := time.Now()
	streamID := IngestStreamID(tenant)
	total := len(valid)
	var stored atomic.Int64

	for n, in := range valid {
		chunks := textutil.Chunk(in.Text, i.config.ChunkSize)

		g := i.pool.Group(ctx)
		for _, text := range chunks {
			g.Go(func(ctx context.Context) error {
				vec, err := i.embedder.Embed(ctx, text)
				if err != nil {
					return fmt.Errorf("embed chunk: %w", err)
				}
				c := &model.KnowledgeChunk{
					Title:  in.Title,
					Chunk:  text,
					Source: in.Source,
					Vector: vec,
				}
				if err := i.store.Put(ctx, tenant, c); err != nil {
					return err
				}
				stored.Add(1)
				metrics.ChunksStored.Inc()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			logger.Errorw("ingest aborted", "tenant", tenant, "input", n, "title", in.Title, "error", err)
			return n, errs.ErrIngestFailed.WithCause(err)
		}

		if _, err := i.relay.Publish(ctx, streamID, model.NewIngestEvent(tenant, n+1, total, false)); err != nil {
			logger.Errorw("publish ingest progress failed", "tenant", tenant, "stream", streamID, "error", err)
			return n + 1, errs.ErrIngestFailed.WithCause(err)
		}
	}

	if _, err := i.relay.Publish(ctx, streamID, model.NewIngestEvent(tenant, total, total, true)); err != nil {
		logger.Errorw("publish ingest completion failed", "tenant", tenant, "stream", streamID, "error", err)
		return total, errs.ErrIngestFailed.WithCause(err)
	}

	logger.Infow("ingest completed",
		"tenant", tenant,
		"inputs", total,
		"chunks", stored.Load(),
		"elapsed", time.Since(start).String(),
	)
	return total, nil
}
