package scf

import (
	"github.com/viant/fleurflow/service/base"
	"github.com/viant/fleurflow/telemetry"
)

// Option represents a SCF service option
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

// WithBase sets the base workchain service running FLEUR calculations
func WithBase(service *base.Service) Option {
	return func(s *Service) {
		s.base = service
	}
}
