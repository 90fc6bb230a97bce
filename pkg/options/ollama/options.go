// Package ollamaopts provides options for the Ollama embedding client.
package ollamaopts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Options contains Ollama client configuration.
type Options struct {
	// BaseURL is the Ollama API base URL.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// EmbedModel is the model for generating embeddings. Its output width
	// must equal the knowledge index dimension.
	EmbedModel string `json:"embed-model" mapstructure:"embed-model"`

	// Timeout for a single API request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the maximum number of retries on 5xx or transport errors.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		BaseURL:    "http://localhost:11434",
		EmbedModel: "nomic-embed-text",
		Timeout:    30 * time.Second,
		MaxRetries: 2,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefix string) {
	fs.StringVar(&o.BaseURL, prefix+"base-url", o.BaseURL, "Ollama API base URL")
	fs.StringVar(&o.EmbedModel, prefix+"embed-model", o.EmbedModel, "Ollama model for embeddings")
	fs.DurationVar(&o.Timeout, prefix+"timeout", o.Timeout, "Ollama request timeout")
	fs.IntVar(&o.MaxRetries, prefix+"max-retries", o.MaxRetries, "Max retries for failed Ollama requests")
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.BaseURL == "" {
		return fmt.Errorf("ollama base-url is required")
	}
	if o.EmbedModel == "" {
		return fmt.Errorf("ollama embed-model is required")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("ollama timeout must be positive")
	}
	if o.MaxRetries < 0 {
		return fmt.Errorf("ollama max-retries must not be negative")
	}
	return nil
}
