package dao

import "errors"

var (
	// ErrNotFound is returned when no node or job is stored under the id
	ErrNotFound = errors.New("dao: not found")

	// ErrInvalidID is returned for an empty id
	ErrInvalidID = errors.New("dao: invalid id")

	// ErrNilEntity is returned when saving a nil node or job
	ErrNilEntity = errors.New("dao: nil entity")
)
