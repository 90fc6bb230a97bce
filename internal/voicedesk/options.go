// Package app provides the voicedesk application.
package app

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/pkg/embedding"
	"github.com/kart-io/voicedesk/internal/pkg/textutil"
	"github.com/kart-io/voicedesk/internal/voicedesk/handler"
	"github.com/kart-io/voicedesk/internal/voicedesk/relay"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	"github.com/kart-io/voicedesk/internal/voicedesk/watcher"
	redisopts "github.com/kart-io/voicedesk/pkg/component/redis"
	"github.com/kart-io/voicedesk/pkg/infra/tracing"
	httpopts "github.com/kart-io/voicedesk/pkg/options/http"
	ollamaopts "github.com/kart-io/voicedesk/pkg/options/ollama"
	logopts "github.com/kart-io/voicedesk/pkg/options/logger"
)

// Knowledge store backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Embedding providers.
const (
	EmbedderHash   = "hash"
	EmbedderOllama = "ollama"
)

// Options contains all voicedesk options.
type Options struct {
	// HTTP contains HTTP server configuration.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Redis contains the connection shared by stores and the relay.
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`

	// Knowledge contains knowledge store configuration.
	Knowledge *KnowledgeOptions `json:"knowledge" mapstructure:"knowledge"`

	// Relay contains event relay configuration.
	Relay *RelayOptions `json:"relay" mapstructure:"relay"`

	// Ingest contains ingestion configuration.
	Ingest *IngestOptions `json:"ingest" mapstructure:"ingest"`

	// Watch contains the knowledge drop folder configuration.
	Watch *WatchOptions `json:"watch" mapstructure:"watch"`

	// Tracing contains OpenTelemetry configuration.
	Tracing *tracing.Options `json:"tracing" mapstructure:"tracing"`
}

// KnowledgeOptions 知识库配置。
type KnowledgeOptions struct {
	// Backend 存储后端（redis | memory | badger）。
	Backend string `json:"backend" mapstructure:"backend"`

	// Path badger 数据目录，为空时 badger 运行在内存模式。
	Path string `json:"path" mapstructure:"path"`

	// Index RediSearch 索引名。
	Index string `json:"index" mapstructure:"index"`

	// ShowIndex 演出目录索引名。
	ShowIndex string `json:"show-index" mapstructure:"show-index"`

	// EmbeddingDim 向量维度，索引创建后不可修改。
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// Embedder 向量生成方式（hash | ollama）。
	Embedder string `json:"embedder" mapstructure:"embedder"`

	// Ollama 仅在 Embedder 为 ollama 时使用。
	Ollama *ollamaopts.Options `json:"ollama" mapstructure:"ollama"`
}

// RelayOptions 事件中继配置。
type RelayOptions struct {
	StreamPrefix  string        `json:"stream-prefix" mapstructure:"stream-prefix"`
	ChannelPrefix string        `json:"channel-prefix" mapstructure:"channel-prefix"`
	MaxLen        int64         `json:"max-len" mapstructure:"max-len"`
	Heartbeat     time.Duration `json:"heartbeat" mapstructure:"heartbeat"`
}

// IngestOptions 导入配置。
type IngestOptions struct {
	// ChunkSize 分块长度（字符）。
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// Workers 并发写入分块的协程数。
	Workers int `json:"workers" mapstructure:"workers"`
}

// WatchOptions 投放目录配置，Dir 为空时不启用。
type WatchOptions struct {
	Dir    string `json:"dir" mapstructure:"dir"`
	Tenant string `json:"tenant" mapstructure:"tenant"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		HTTP:  httpopts.NewOptions(),
		Log:   logopts.NewOptions(),
		Redis: redisopts.NewOptions(),
		Knowledge: &KnowledgeOptions{
			Backend:      BackendRedis,
			Index:        store.DefaultKnowledgeIndex,
			ShowIndex:    store.DefaultShowIndex,
			EmbeddingDim: embedding.DefaultDimension,
			Embedder:     EmbedderHash,
			Ollama:       ollamaopts.NewOptions(),
		},
		Relay: &RelayOptions{
			StreamPrefix:  relay.DefaultStreamPrefix,
			ChannelPrefix: relay.DefaultChannelPrefix,
			Heartbeat:     handler.DefaultHeartbeat,
		},
		Ingest: &IngestOptions{
			ChunkSize: textutil.DefaultChunkSize,
			Workers:   16,
		},
		Watch:   &WatchOptions{},
		Tracing: tracing.NewOptions(),
	}
}

// AddFlags adds flags for all options.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.HTTP.AddFlags(fs)
	o.Log.AddFlags(fs)
	o.Redis.AddFlags(fs, "redis.")

	fs.StringVar(&o.Knowledge.Backend, "knowledge.backend", o.Knowledge.Backend, "Knowledge store backend (redis|memory|badger)")
	fs.StringVar(&o.Knowledge.Path, "knowledge.path", o.Knowledge.Path, "Data directory of the badger knowledge backend")
	fs.StringVar(&o.Knowledge.Index, "knowledge.index", o.Knowledge.Index, "RediSearch knowledge index name")
	fs.StringVar(&o.Knowledge.ShowIndex, "knowledge.show-index", o.Knowledge.ShowIndex, "RediSearch show catalog index name")
	fs.IntVar(&o.Knowledge.EmbeddingDim, "knowledge.embedding-dim", o.Knowledge.EmbeddingDim, "Embedding vector dimension")
	fs.StringVar(&o.Knowledge.Embedder, "knowledge.embedder", o.Knowledge.Embedder, "Embedding provider (hash|ollama)")
	o.Knowledge.Ollama.AddFlags(fs, "knowledge.ollama.")

	fs.StringVar(&o.Relay.StreamPrefix, "relay.stream-prefix", o.Relay.StreamPrefix, "Redis stream key prefix")
	fs.StringVar(&o.Relay.ChannelPrefix, "relay.channel-prefix", o.Relay.ChannelPrefix, "Redis pub/sub channel prefix")
	fs.Int64Var(&o.Relay.MaxLen, "relay.max-len", o.Relay.MaxLen, "Approximate stream length cap (0 keeps everything)")
	fs.DurationVar(&o.Relay.Heartbeat, "relay.heartbeat", o.Relay.Heartbeat, "SSE keepalive interval")

	fs.IntVar(&o.Ingest.ChunkSize, "ingest.chunk-size", o.Ingest.ChunkSize, "Chunk length in characters")
	fs.IntVar(&o.Ingest.Workers, "ingest.workers", o.Ingest.Workers, "Concurrent chunk writers")

	fs.StringVar(&o.Watch.Dir, "watch.dir", o.Watch.Dir, "Knowledge drop folder (empty disables)")
	fs.StringVar(&o.Watch.Tenant, "watch.tenant", o.Watch.Tenant, "Tenant that dropped files are ingested for")

	o.Tracing.AddFlags(fs)
}

// Complete completes the options.
func (o *Options) Complete() error {
	if err := o.HTTP.Complete(); err != nil {
		return err
	}
	if err := o.Log.Complete(); err != nil {
		return err
	}
	if err := o.Redis.Complete(); err != nil {
		return err
	}
	if err := o.Tracing.Complete(); err != nil {
		return err
	}
	if o.Relay.Heartbeat <= 0 {
		o.Relay.Heartbeat = handler.DefaultHeartbeat
	}
	if o.Watch.Dir != "" && o.Watch.Tenant == "" {
		o.Watch.Tenant = model.DefaultTenantID
	}
	return nil
}

// Validate validates the options and reports every problem at once.
func (o *Options) Validate() error {
	var errs []error
	errs = append(errs, o.HTTP.Validate(), o.Log.Validate(), o.Redis.Validate(), o.Tracing.Validate())

	switch o.Knowledge.Backend {
	case BackendRedis, BackendMemory, BackendBadger:
	default:
		errs = append(errs, fmt.Errorf("knowledge.backend must be redis, memory or badger, got %q", o.Knowledge.Backend))
	}
	if o.Knowledge.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("knowledge.embedding-dim must be positive"))
	}
	switch o.Knowledge.Embedder {
	case EmbedderHash:
	case EmbedderOllama:
		errs = append(errs, o.Knowledge.Ollama.Validate())
	default:
		errs = append(errs, fmt.Errorf("knowledge.embedder must be hash or ollama, got %q", o.Knowledge.Embedder))
	}
	if o.Ingest.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.chunk-size must be positive"))
	}
	if o.Ingest.Workers <= 0 {
		errs = append(errs, fmt.Errorf("ingest.workers must be positive"))
	}
	if o.Relay.MaxLen < 0 {
		errs = append(errs, fmt.Errorf("relay.max-len must not be negative"))
	}
	if o.Watch.Dir != "" {
		if err := store.CheckTenant(o.Watch.Tenant); err != nil {
			errs = append(errs, fmt.Errorf("watch.tenant: %w", err))
		}
	}
	return utilerrors.NewAggregate(errs)
}

// newEmbedder builds the configured embedding provider.
func (o *KnowledgeOptions) newEmbedder() embedding.Embedder {
	if o.Embedder == EmbedderOllama {
		return embedding.NewOllamaEmbedder(embedding.OllamaConfig{
			BaseURL:    o.Ollama.BaseURL,
			Model:      o.Ollama.EmbedModel,
			Dimension:  o.EmbeddingDim,
			Timeout:    o.Ollama.Timeout,
			MaxRetries: o.Ollama.MaxRetries,
		})
	}
	return embedding.NewHashEmbedder(o.EmbeddingDim)
}

// watcherOptions converts to the watcher configuration.
func (o *WatchOptions) watcherOptions() watcher.Options {
	return watcher.Options{Dir: o.Dir, Tenant: o.Tenant}
}
