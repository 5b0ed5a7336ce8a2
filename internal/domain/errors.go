package domain

import (
	"errors"
	"fmt"
	"time"
)

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError builds a ConfigError from a formatted message.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// OutOfOrderError reports a record whose timestamp goes backwards within its stream.
type OutOfOrderError struct {
	Stream EventKind
	Index  int
	Prev   time.Time
	Got    time.Time
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("%s stream out of order at index %d: %s before %s",
		e.Stream, e.Index, e.Got.Format(time.RFC3339Nano), e.Prev.Format(time.RFC3339Nano))
}

func (e *OutOfOrderError) Unwrap() error {
	return ErrOutOfOrder
}

var (
	// ErrOutOfOrder is wrapped by every OutOfOrderError.
	ErrOutOfOrder = errors.New("out of order data")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrEmptyReplay is returned when the window holds neither quotes nor trades.
	ErrEmptyReplay = errors.New("no quotes or trades in replay window")
)

// IsConfigError checks if err carries a ConfigError
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
