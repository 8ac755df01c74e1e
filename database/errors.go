package database

import (
	"github.com/pkg/errors"
)

var (
	ErrConnectFailed          = errors.New("connect failed")
	ErrPoolExhausted          = errors.New("pool exhausted")
	ErrTimeout                = errors.New("timeout")
	ErrInvalidConfig          = errors.New("invalid config")
	ErrOwnershipMismatch      = errors.New("ownership mismatch")
	ErrStaleConnectionEvicted = errors.New("stale connection evicted")
	ErrNotConnected           = errors.New("not connected")
	ErrSeekUnsupported        = errors.New("seek unsupported by sequential result")
	ErrUnknownDriver          = errors.New("unknown driver type")
	ErrNotSupported           = errors.New("not supported by driver")
	ErrPoolNotFound           = errors.New("pool not found")
	ErrNotInitialized         = errors.New("pool not initialized")
	ErrClosed                 = errors.New("closed")

	ErrResultSealed     = errors.New("result is sealed")
	ErrResultNotIndexed = errors.New("result is not indexed")
	ErrFieldOutOfRange  = errors.New("field index out of range")
	ErrRowOutOfRange    = errors.New("row index out of range")
	ErrUnknownField     = errors.New("unknown field")
)

// markedError ties a sentinel to the error that caused it, so both match errors.Is.
type markedError struct {
	kind  error
	cause error
}

// Mark returns an error that is kind for errors.Is and unwraps to cause.
func Mark(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return &markedError{kind: kind, cause: cause}
}

func (e *markedError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *markedError) Is(target error) bool {
	return target == e.kind
}

func (e *markedError) Unwrap() error {
	return e.cause
}
