package config

import (
	"github.com/pkg/errors"
)

var (
	ErrProviderNotRegistered     = errors.New("provider not registered")
	ErrProviderAlreadyRegistered = errors.New("provider already registered")
	ErrEmptyProviderName         = errors.New("empty provider name")
)
