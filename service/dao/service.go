// Package dao defines storage of provenance nodes and scheduler jobs.
package dao

import (
	"context"
)

// Service stores entities of type T under keys of type K
type Service[K comparable, T any] interface {
	// Save inserts or replaces the entity
	Save(ctx context.Context, t *T) error

	// Load returns a copy of the entity, ErrNotFound when missing
	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	// List returns entities matching all parameters
	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
