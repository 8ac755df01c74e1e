package base

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/soldatov-s/go-dbpool/x/stringsx"
)

// Enity is a named part of the application with its own scoped logger.
// Pools, registries and the HTTP server embed it.
type Enity struct {
	name         string
	providerName string
	background   atomic.Bool
}

type EnityDeps struct {
	Name         string
	ProviderName string
}

func NewEnity(deps *EnityDeps) *Enity {
	return &Enity{
		name:         deps.Name,
		providerName: deps.ProviderName,
	}
}

func (e *Enity) GetName() string {
	return e.name
}

func (e *Enity) GetProviderName() string {
	return e.providerName
}

// GetFullName is provider_name, it prefixes metrics and names checks.
func (e *Enity) GetFullName() string {
	return stringsx.JoinStrings("_", e.providerName, e.name)
}

func (e *Enity) GetLogger(ctx context.Context) *zerolog.Logger {
	logger := zerolog.Ctx(ctx).With().Str("provider", e.providerName).Str("enity", e.name).Logger()
	return &logger
}

// BackgroundRunning reports whether the enity's background goroutine is up.
func (e *Enity) BackgroundRunning() bool {
	return e.background.Load()
}

func (e *Enity) SetBackgroundRunning(v bool) {
	e.background.Store(v)
}
