package types

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks errors that are not worth retrying
var ErrInvalidInput = errors.New("invalid input")

func NewMethodNotFoundError(name string) error {
	return fmt.Errorf("method %v not found", name)
}

func NewInvalidInputError(in interface{}) error {
	return fmt.Errorf("%w %T", ErrInvalidInput, in)
}

func NewInvalidOutputError(in interface{}) error {
	return fmt.Errorf("invalid output %T", in)
}

// InvalidInputf returns formatted error wrapping ErrInvalidInput
func InvalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
