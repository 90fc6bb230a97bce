// Package tracing configures the OpenTelemetry tracer provider and offers
// small helpers for starting spans around Redis-backed operations.
package tracing

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// SamplerType selects the sampling strategy.
type SamplerType string

const (
	SamplerAlwaysOn    SamplerType = "always_on"
	SamplerAlwaysOff   SamplerType = "always_off"
	SamplerRatio       SamplerType = "ratio"
	SamplerParentBased SamplerType = "parent_based"
)

// ExporterType selects where spans go.
type ExporterType string

const (
	ExporterOTLPGRPC ExporterType = "otlp_grpc"
	ExporterOTLPHTTP ExporterType = "otlp_http"
	ExporterStdout   ExporterType = "stdout"
	ExporterNoop     ExporterType = "noop"
)

// Options defines configuration for OpenTelemetry tracing.
type Options struct {
	// Enabled enables or disables tracing. Disabled tracing installs nothing
	// and every span is a no-op.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	ServiceName string `json:"service-name" mapstructure:"service-name"`
	Environment string `json:"environment" mapstructure:"environment"`

	ExporterType ExporterType `json:"exporter-type" mapstructure:"exporter-type"`
	// Endpoint is host:port for otlp_grpc and otlp_http.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `json:"insecure" mapstructure:"insecure"`

	SamplerType  SamplerType `json:"sampler-type" mapstructure:"sampler-type"`
	SamplerRatio float64     `json:"sampler-ratio" mapstructure:"sampler-ratio"`

	BatchTimeout  time.Duration `json:"batch-timeout" mapstructure:"batch-timeout"`
	ExportTimeout time.Duration `json:"export-timeout" mapstructure:"export-timeout"`
}

// NewOptions creates default tracing options.
func NewOptions() *Options {
	return &Options{
		Enabled:       false,
		ServiceName:   "voicedesk",
		Environment:   "development",
		ExporterType:  ExporterOTLPGRPC,
		Endpoint:      "localhost:4317",
		Insecure:      true,
		SamplerType:   SamplerParentBased,
		SamplerRatio:  1.0,
		BatchTimeout:  5 * time.Second,
		ExportTimeout: 30 * time.Second,
	}
}

// AddFlags adds flags for tracing options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "tracing.enabled", o.Enabled, "Enable OpenTelemetry tracing")
	fs.StringVar(&o.ServiceName, "tracing.service-name", o.ServiceName, "Service name for tracing")
	fs.StringVar(&o.Environment, "tracing.environment", o.Environment, "Deployment environment")
	fs.StringVar((*string)(&o.ExporterType), "tracing.exporter-type", string(o.ExporterType), "Exporter type (otlp_grpc, otlp_http, stdout, noop)")
	fs.StringVar(&o.Endpoint, "tracing.endpoint", o.Endpoint, "OTLP exporter endpoint")
	fs.BoolVar(&o.Insecure, "tracing.insecure", o.Insecure, "Disable TLS for OTLP connection")
	fs.StringVar((*string)(&o.SamplerType), "tracing.sampler-type", string(o.SamplerType), "Sampler type (always_on, always_off, ratio, parent_based)")
	fs.Float64Var(&o.SamplerRatio, "tracing.sampler-ratio", o.SamplerRatio, "Sampling ratio (0.0 to 1.0)")
	fs.DurationVar(&o.BatchTimeout, "tracing.batch-timeout", o.BatchTimeout, "Maximum time to wait before exporting a batch")
	fs.DurationVar(&o.ExportTimeout, "tracing.export-timeout", o.ExportTimeout, "Maximum time allowed for exporting spans")
}

// Complete fills in any missing values with defaults.
func (o *Options) Complete() error {
	if o.ServiceName == "" {
		o.ServiceName = "voicedesk"
	}
	return nil
}

// Validate validates the tracing options.
func (o *Options) Validate() error {
	if !o.Enabled {
		return nil
	}

	switch o.ExporterType {
	case ExporterOTLPGRPC, ExporterOTLPHTTP:
		if o.Endpoint == "" {
			return fmt.Errorf("tracing: endpoint is required for exporter type %s", o.ExporterType)
		}
	case ExporterStdout, ExporterNoop:
	default:
		return fmt.Errorf("tracing: invalid exporter type: %s", o.ExporterType)
	}

	switch o.SamplerType {
	case SamplerAlwaysOn, SamplerAlwaysOff, SamplerRatio, SamplerParentBased:
	default:
		return fmt.Errorf("tracing: invalid sampler type: %s", o.SamplerType)
	}
	if o.SamplerRatio < 0 || o.SamplerRatio > 1 {
		return fmt.Errorf("tracing: sampler ratio must be between 0.0 and 1.0, got %f", o.SamplerRatio)
	}
	if o.BatchTimeout <= 0 || o.ExportTimeout <= 0 {
		return fmt.Errorf("tracing: batch and export timeouts must be positive")
	}
	return nil
}
