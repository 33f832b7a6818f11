package scheduler

import (
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/dao"
	"github.com/viant/fleurflow/service/messaging"
	"github.com/viant/fleurflow/telemetry"
)

// Option represents a scheduler option
type Option func(*Service)

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithWorkers sets the number of worker goroutines
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.WorkerCount = count
	}
}

// WithJobDAO sets the job store implementation
func WithJobDAO(jobs dao.Service[string, execution.Job]) Option {
	return func(s *Service) {
		s.jobs = jobs
	}
}

// WithNodeDAO sets the node store implementation
func WithNodeDAO(nodes dao.Service[string, execution.Node]) Option {
	return func(s *Service) {
		s.nodes = nodes
	}
}

// WithQueue sets the message queue implementation
func WithQueue(queue messaging.Queue[Ticket]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithLogger sets the logger
func WithLogger(logger *telemetry.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}
