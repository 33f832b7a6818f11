// Package extension provides the run-time registry of calculation services
// the scheduler dispatches jobs to, together with proxies applied on
// registration (for example tracing).
package extension
