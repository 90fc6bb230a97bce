package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/voicedesk/internal/voicedesk/biz"
	"github.com/kart-io/voicedesk/internal/voicedesk/handler"
	"github.com/kart-io/voicedesk/internal/voicedesk/relay"
	"github.com/kart-io/voicedesk/internal/voicedesk/router"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	"github.com/kart-io/voicedesk/internal/voicedesk/watcher"
	"github.com/kart-io/voicedesk/pkg/component/redis"
	"github.com/kart-io/voicedesk/pkg/infra/app"
	"github.com/kart-io/voicedesk/pkg/infra/pool"
	"github.com/kart-io/voicedesk/pkg/infra/server"
	"github.com/kart-io/voicedesk/pkg/infra/tracing"
)

const (
	appName        = "voicedesk"
	appDescription = `VoiceDesk voice assistant backend

This server provides:
  - Per-tenant knowledge ingestion and vector/text search
  - Webhook dispatch for voice-SDK function calls and ticket tracking
  - Durable, replayable call event streams over server-sent events
  - Tenant configuration with an active-tenant pointer`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run runs voicedesk with the given options.
func Run(opts *Options) error {
	printBanner(opts)

	// 1. 初始化日志
	opts.Log.SetServiceFields(appName, app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting voicedesk...")

	ctx := context.Background()

	// 2. 初始化链路追踪
	tracerProvider, err := tracing.NewProvider(ctx, opts.Tracing, app.GetVersion())
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("tracing shutdown failed", "error", err)
		}
	}()

	// 3. 初始化 Redis 客户端
	dialCtx, cancel := context.WithTimeout(ctx, opts.Redis.DialTimeout+time.Second)
	redisClient, err := redis.New(dialCtx, opts.Redis)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redisClient.Close()
	rdb := redisClient.Client()
	logger.Infow("Redis client initialized", "redis", opts.Redis.String())

	// 4. 初始化存储层
	embedder := opts.Knowledge.newEmbedder()
	knowledge, closeKnowledge, err := newKnowledgeStore(ctx, opts, rdb)
	if err != nil {
		return err
	}
	defer closeKnowledge()
	tenantStore := store.NewRedisTenantStore(rdb)
	callStore := store.NewRedisCallStore(rdb)
	ticketStore := store.NewRedisTicketStore(rdb)
	showStore := store.NewRedisShowStore(rdb, opts.Knowledge.ShowIndex)
	eventRelay := relay.NewRedisRelay(rdb, relay.Options{
		StreamPrefix:  opts.Relay.StreamPrefix,
		ChannelPrefix: opts.Relay.ChannelPrefix,
		MaxLen:        opts.Relay.MaxLen,
	})
	logger.Info("Store layer initialized")

	// 5. 初始化导入协程池
	ingestPool, err := pool.NewPool("ingest", &pool.Config{
		Capacity:       opts.Ingest.Workers,
		ExpiryDuration: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize ingest pool: %w", err)
	}
	defer ingestPool.Release()

	// 6. 初始化 Biz 层
	tenants := biz.NewTenantService(tenantStore, knowledge)
	ingester := biz.NewIngester(knowledge, embedder, eventRelay, ingestPool, biz.IngesterConfig{ChunkSize: opts.Ingest.ChunkSize})
	deps := handler.Deps{
		Ingester:   ingester,
		Knowledge:  biz.NewKnowledgeService(knowledge, embedder),
		Tenants:    tenants,
		Dispatcher: biz.NewDispatcher(tenants, callStore, ticketStore, knowledge, eventRelay),
		Shows:      biz.NewShowService(showStore),
		Relay:      eventRelay,
		Tickets:    ticketStore,
		Health:     redisClient.Health,
		Heartbeat:  opts.Relay.Heartbeat,
	}
	logger.Info("Biz layer initialized")

	// 7. 初始化服务器并注册路由
	httpServer := server.NewHTTPServer(opts.HTTP)
	router.Register(httpServer.Engine(), handler.New(deps), tenants)

	serverManager := server.NewManager(opts.HTTP.ShutdownTimeout)
	serverManager.AddServer(httpServer)

	// 8. 投放目录监听（可选）
	if opts.Watch.Dir != "" {
		serverManager.AddServer(watcher.New(opts.Watch.watcherOptions(), ingester))
	}

	// 9. 启动服务器
	logger.Infow("voicedesk is ready", "addr", opts.HTTP.Addr, "knowledge", opts.Knowledge.Backend)
	return serverManager.Run(ctx)
}

// newKnowledgeStore 按配置选择知识库后端，返回的 close 函数在退出时调用。
func newKnowledgeStore(ctx context.Context, opts *Options, rdb goredis.UniversalClient) (store.KnowledgeStore, func(), error) {
	noop := func() {}
	switch opts.Knowledge.Backend {
	case BackendMemory:
		logger.Warn("Using in-memory knowledge store, data is lost on restart")
		return store.NewMemoryKnowledgeStore(), noop, nil
	case BackendBadger:
		ks, err := store.OpenBadgerKnowledgeStore(opts.Knowledge.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open knowledge store: %w", err)
		}
		logger.Infow("Badger knowledge store opened", "path", opts.Knowledge.Path)
		return ks, func() {
			if err := ks.Close(); err != nil {
				logger.Warnw("close knowledge store failed", "error", err)
			}
		}, nil
	}

	ks := store.NewRedisKnowledgeStore(rdb, opts.Knowledge.Index, opts.Knowledge.EmbeddingDim)
	// 索引在首次导入时也会创建，这里失败不阻断启动
	if err := ks.EnsureIndex(ctx); err != nil {
		logger.Warnw("knowledge index not ready", "index", opts.Knowledge.Index, "error", err)
	}
	return ks, noop, nil
}

func printBanner(opts *Options) {
	fmt.Printf("Starting %s on %s...\n", appName, opts.HTTP.Addr)
}
