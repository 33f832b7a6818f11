// Package tracing wraps OpenTelemetry so that workchains, the scheduler and calculations
// can record spans without importing the upstream packages directly.
package tracing
