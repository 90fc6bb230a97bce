package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/voicedesk/pkg/utils/httpclient"
)

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	BaseURL    string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

// OllamaEmbedder calls an Ollama server's /api/embed endpoint. Vectors are
// L2-normalized and must match the configured dimension.
type OllamaEmbedder struct {
	client *httpclient.Client
	url    string
	model  string
	dim    int
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an embedder for cfg.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OllamaEmbedder{
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/api/embed",
		model:  cfg.Model,
		dim:    cfg.Dimension,
	}
}

// Dimension returns the vector width.
func (e *OllamaEmbedder) Dimension() int { return e.dim }

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed 请求 Ollama 生成向量。
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp ollamaEmbedResponse
	if err := e.client.PostJSON(ctx, e.url, ollamaEmbedRequest{Model: e.model, Input: []string{text}}, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != 1 {
		return nil, fmt.Errorf("ollama embed: expected 1 embedding, got %d", len(resp.Embeddings))
	}
	vec := resp.Embeddings[0]
	if len(vec) != e.dim {
		return nil, fmt.Errorf("ollama embed: model %s returned %d dimensions, index expects %d", e.model, len(vec), e.dim)
	}
	return normalize(vec), nil
}
