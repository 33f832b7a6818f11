// Package telemetry provides structured logging and prometheus metrics.
package telemetry

// LoggingConfig represents logger settings
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error)
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is console or json
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Output is stdout, stderr or a file path
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	EnableCaller bool `json:"enableCaller,omitempty" yaml:"enableCaller,omitempty"`
}

// MetricsConfig represents prometheus settings
type MetricsConfig struct {
	Enabled       bool      `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	ListenAddress string    `json:"listenAddress,omitempty" yaml:"listenAddress,omitempty"`
	Path          string    `json:"path,omitempty" yaml:"path,omitempty"`
	Namespace     string    `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Buckets       []float64 `json:"buckets,omitempty" yaml:"buckets,omitempty"`
}

// DefaultLoggingConfig returns console info logging on stderr
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Level: "info", Format: "console", Output: "stderr"}
}

// DefaultMetricsConfig returns disabled metrics
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		ListenAddress: ":9090",
		Path:          "/metrics",
		Namespace:     "fleurflow",
		// calculations run from minutes to days
		Buckets: []float64{10, 60, 300, 900, 3600, 4 * 3600, 12 * 3600, 24 * 3600},
	}
}
