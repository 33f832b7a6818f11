package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides prometheus metrics of workchains and calculations; a disabled instance is a no-op
type Metrics struct {
	config MetricsConfig

	workchainsStarted  *prometheus.CounterVec
	workchainsFinished *prometheus.CounterVec
	calculations       *prometheus.CounterVec
	calcDuration       *prometheus.HistogramVec
	scfIterations      *prometheus.HistogramVec
	restarts           *prometheus.CounterVec
	jobsQueued         prometheus.Gauge
	jobsRunning        prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates metrics collector
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()
	m := &Metrics{
		config:   cfg,
		registry: registry,
		workchainsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workchains_started_total",
			Help:      "Total number of workchains started",
		}, []string{"workchain"}),
		workchainsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workchains_finished_total",
			Help:      "Total number of finished workchains by exit status",
		}, []string{"workchain", "exit_status"}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Total number of calculations by terminal state",
		}, []string{"service", "state"}),
		calcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_duration_seconds",
			Help:      "Calculation wall time",
			Buckets:   buckets,
		}, []string{"service"}),
		scfIterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scf_iterations",
			Help:      "Total FLEUR iterations of a SCF workchain",
			Buckets:   []float64{5, 10, 20, 40, 80, 160},
		}, []string{"mode", "converged"}),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Total number of calculation restarts by handler",
		}, []string{"handler"}),
		jobsQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_queued",
			Help:      "Number of jobs waiting for a worker",
		}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_running",
			Help:      "Number of jobs being executed",
		}),
	}
	registry.MustRegister(m.workchainsStarted, m.workchainsFinished, m.calculations, m.calcDuration,
		m.scfIterations, m.restarts, m.jobsQueued, m.jobsRunning)
	return m
}

func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// RecordWorkchainStarted counts a started workchain
func (m *Metrics) RecordWorkchainStarted(workchain string) {
	if !m.enabled() {
		return
	}
	m.workchainsStarted.WithLabelValues(workchain).Inc()
}

// RecordWorkchainFinished counts a finished workchain
func (m *Metrics) RecordWorkchainFinished(workchain string, exitStatus int) {
	if !m.enabled() {
		return
	}
	m.workchainsFinished.WithLabelValues(workchain, strconv.Itoa(exitStatus)).Inc()
}

// RecordCalculation records calculation outcome and duration
func (m *Metrics) RecordCalculation(service, state string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.calculations.WithLabelValues(service, state).Inc()
	m.calcDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordSCF records total iterations of a SCF workchain
func (m *Metrics) RecordSCF(mode string, converged bool, iterations int) {
	if !m.enabled() {
		return
	}
	m.scfIterations.WithLabelValues(mode, strconv.FormatBool(converged)).Observe(float64(iterations))
}

// RecordRestart counts a restart proposed by a handler
func (m *Metrics) RecordRestart(handler string) {
	if !m.enabled() {
		return
	}
	m.restarts.WithLabelValues(handler).Inc()
}

// AddQueued adjusts queued jobs gauge
func (m *Metrics) AddQueued(delta float64) {
	if !m.enabled() {
		return
	}
	m.jobsQueued.Add(delta)
}

// AddRunning adjusts running jobs gauge
func (m *Metrics) AddRunning(delta float64) {
	if !m.enabled() {
		return
	}
	m.jobsRunning.Add(delta)
}

// Registry returns metrics registry, nil when disabled
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns metrics http handler
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes metrics on the configured address until the server fails
func (m *Metrics) Serve() error {
	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	server := &http.Server{Addr: m.config.ListenAddress, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return server.ListenAndServe()
}
