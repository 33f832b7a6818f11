package fleurflow

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/viant/afs"
	"github.com/viant/fleurflow/service/scheduler"
	"github.com/viant/fleurflow/telemetry"
	"gopkg.in/yaml.v3"
)

// Store kinds
const (
	StoreMemory = "memory"
	StoreFS     = "fs"
	StoreSQLite = "sqlite"
)

// Config is a serialisable representation of the engine configuration.
// Fields left out of a loaded file keep their DefaultConfig values.
type Config struct {
	// WorkURL is the root under which calculation folders are created
	WorkURL   string                  `json:"workURL" yaml:"workURL" validate:"required"`
	Store     StoreConfig             `json:"store" yaml:"store"`
	Scheduler scheduler.Config        `json:"scheduler" yaml:"scheduler"`
	Logging   telemetry.LoggingConfig `json:"logging" yaml:"logging"`
	Metrics   telemetry.MetricsConfig `json:"metrics" yaml:"metrics"`
	Tracing   TracingConfig           `json:"tracing" yaml:"tracing"`
}

// StoreConfig selects the node store
type StoreConfig struct {
	Kind string `json:"kind" yaml:"kind" validate:"oneof=memory fs sqlite"`
	// URL is a base URL for fs or a database path for sqlite
	URL string `json:"url,omitempty" yaml:"url,omitempty" validate:"required_unless=Kind memory"`
}

// TracingConfig represents OpenTelemetry settings
type TracingConfig struct {
	Enabled        bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	ServiceName    string `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	ServiceVersion string `json:"serviceVersion,omitempty" yaml:"serviceVersion,omitempty"`
	// OutputFile receives spans; stdout when empty
	OutputFile string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

// DefaultConfig returns a Config with in-memory nodes and a local work directory
func DefaultConfig() *Config {
	return &Config{
		WorkURL:   "/tmp/fleurflow",
		Store:     StoreConfig{Kind: StoreMemory},
		Scheduler: scheduler.DefaultConfig(),
		Logging:   telemetry.DefaultLoggingConfig(),
		Metrics:   telemetry.DefaultMetricsConfig(),
		Tracing:   TracingConfig{ServiceName: "fleurflow", ServiceVersion: Version},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig reads a YAML (or JSON) config from URL over DefaultConfig
func LoadConfig(ctx context.Context, fs afs.Service, URL string) (*Config, error) {
	if fs == nil {
		fs = afs.New()
	}
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
