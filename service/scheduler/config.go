package scheduler

import (
	"math"
	"strings"
	"time"
)

// Retry represents retry policy for transient job failures
type Retry struct {
	// Type is one of fixed, exponential or none
	Type       string        `json:"type,omitempty" yaml:"type,omitempty"`
	MaxRetries int           `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	Delay      time.Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
	Multiplier float64       `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	MaxDelay   time.Duration `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
}

// Config represents scheduler configuration
type Config struct {
	// WorkerCount is the number of workers running jobs
	WorkerCount int   `json:"worker_count" yaml:"worker_count" validate:"gte=1"`
	Retry       Retry `json:"retry" yaml:"retry"`
	QueueBuffer int   `json:"queue_buffer,omitempty" yaml:"queue_buffer,omitempty"`
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		WorkerCount: 4,
		Retry: Retry{
			Type:       "exponential",
			MaxRetries: 2,
			Delay:      3 * time.Second,
			Multiplier: 2,
			MaxDelay:   time.Minute,
		},
		QueueBuffer: 100,
	}
}

// shouldRetry returns (retry?, delay) for a job that failed after attempts
func (r *Retry) shouldRetry(attempts int) (bool, time.Duration) {
	kind := strings.ToLower(r.Type)
	if kind == "none" || attempts > r.MaxRetries {
		return false, 0
	}
	switch kind {
	case "exponential":
		multiplier := r.Multiplier
		if multiplier <= 1 {
			multiplier = 2
		}
		delay := time.Duration(float64(r.Delay) * math.Pow(multiplier, float64(attempts-1)))
		if r.MaxDelay > 0 && delay > r.MaxDelay {
			delay = r.MaxDelay
		}
		return true, delay
	default:
		return true, r.Delay
	}
}
