package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Construction errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidModel  = errors.New("invalid model")

	// Per-call errors
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error constructors with context
func NewConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, reason)
}

func NewModelError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidModel, reason)
}

func NewArgumentError(name string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidArgument, name, reason)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func IsModelError(err error) bool {
	return errors.Is(err, ErrInvalidModel)
}

func IsArgumentError(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsConstructionError reports whether err was raised while building a model
// rather than while sampling from one.
func IsConstructionError(err error) bool {
	return IsConfigError(err) || IsModelError(err)
}
