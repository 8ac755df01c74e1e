package pool

import (
	"github.com/soldatov-s/go-dbpool/database"
)

// Pool level errors are the database sentinels, so callers can match either.
var (
	ErrPoolExhausted     = database.ErrPoolExhausted
	ErrTimeout           = database.ErrTimeout
	ErrOwnershipMismatch = database.ErrOwnershipMismatch
	ErrInvalidConfig     = database.ErrInvalidConfig
	ErrPoolNotFound      = database.ErrPoolNotFound
	ErrNotInitialized    = database.ErrNotInitialized
	ErrClosed            = database.ErrClosed
)
