// Package model holds the voicedesk domain types shared by the stores,
// the relay and the HTTP layer.
package model

import (
	"strings"
	"time"
)

// DefaultSource labels knowledge ingested without an explicit source.
const DefaultSource = "manual"

// KnowledgeChunk is one stored slice of ingested text. Immutable once stored.
type KnowledgeChunk struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"companyId"`
	Title     string    `json:"title"`
	Chunk     string    `json:"chunk"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	Vector    []float32 `json:"-"`
}

// IngestInput is one document submitted for ingestion.
type IngestInput struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// Usable reports whether the input carries text worth ingesting.
func (in IngestInput) Usable() bool {
	return strings.TrimSpace(in.Text) != ""
}

// SourceOrDefault returns the source label, defaulting to "manual".
func (in IngestInput) SourceOrDefault() string {
	if in.Source == "" {
		return DefaultSource
	}
	return in.Source
}

// SearchType selects the knowledge query mode.
type SearchType string

const (
	SearchVector SearchType = "vector"
	SearchText   SearchType = "text"
)

// SearchHit is one knowledge search result. Score is the cosine distance
// (lower is closer) and is only set by vector search.
type SearchHit struct {
	Title string   `json:"title"`
	Chunk string   `json:"chunk"`
	Score *float64 `json:"score,omitempty"`
}
