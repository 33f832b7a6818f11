// Package progress keeps aggregated calculation counters of a workchain run.
// The tracker travels in the context so that nested workchains report into
// the tracker of the root workchain.
package progress
