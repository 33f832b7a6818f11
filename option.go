package fleurflow

import (
	"github.com/viant/afs"
	"github.com/viant/fleurflow/model/types"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/dao"
	"github.com/viant/fleurflow/service/runner"
	"github.com/viant/fleurflow/telemetry"
	"github.com/viant/fleurflow/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option represents a fleurflow service option
type Option func(s *Service)

// WithConfig sets the configuration; DefaultConfig is used otherwise
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithFileSystem sets the storage service used for decks, work folders and the fs node store
func WithFileSystem(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithRunner sets the command runner, for example runner/mock in tests
func WithRunner(run runner.Runner) Option {
	return func(s *Service) {
		s.runner = run
	}
}

// WithNodeDAO sets the node store, overriding config.Store
func WithNodeDAO(nodes dao.Service[string, execution.Node]) Option {
	return func(s *Service) {
		s.nodes = nodes
	}
}

// WithLogger sets the logger, overriding config.Logging
func WithLogger(logger *telemetry.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics, overriding config.Metrics
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithExtensionServices registers additional calculation services with the scheduler
func WithExtensionServices(services ...types.Service) Option {
	return func(s *Service) {
		s.extensionServices = append(s.extensionServices, services...)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter, for example OTLP.
// The first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
