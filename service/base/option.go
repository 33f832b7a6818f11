package base

import (
	"time"

	"github.com/viant/fleurflow/telemetry"
)

// Option represents a base workchain service option
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(logger *telemetry.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithKillTimeout sets how long a killed workchain waits for its running calculation to stop
func WithKillTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.killTimeout = timeout
	}
}
