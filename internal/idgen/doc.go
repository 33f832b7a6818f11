// Package idgen generates node and job identifiers; tests stub NewFunc for determinism.
package idgen
