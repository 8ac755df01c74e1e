package base

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

type CheckFunc func(ctx context.Context) error

// CheckOptions is a named health check. CheckFunc returns nil when healthy.
type CheckOptions struct {
	Name      string
	CheckFunc CheckFunc
}

type MapCheckOptions struct {
	mu      sync.RWMutex
	options map[string]*CheckOptions
}

func NewMapCheckOptions() *MapCheckOptions {
	return &MapCheckOptions{
		options: make(map[string]*CheckOptions),
	}
}

func (mcf *MapCheckOptions) Append(src *MapCheckOptions) error {
	src.mu.RLock()
	defer src.mu.RUnlock()
	mcf.mu.Lock()
	defer mcf.mu.Unlock()

	for k, m := range src.options {
		if _, ok := mcf.options[k]; ok {
			return errors.Wrapf(ErrConflictName, "name: %s", k)
		}

		mcf.options[k] = m
	}

	return nil
}

func (mcf *MapCheckOptions) Add(options *CheckOptions) error {
	if options == nil {
		return ErrOptionsIsNil
	}

	if options.Name == "" {
		return ErrEmptyOptionsName
	}

	if options.CheckFunc == nil {
		return ErrFuncIsNil
	}

	mcf.mu.Lock()
	defer mcf.mu.Unlock()

	if _, ok := mcf.options[options.Name]; ok {
		return errors.Wrapf(ErrConflictName, "name: %s", options.Name)
	}

	mcf.options[options.Name] = options

	return nil
}

// Remove drops the check, it is used when a pool is deleted from a registry.
func (mcf *MapCheckOptions) Remove(name string) {
	mcf.mu.Lock()
	defer mcf.mu.Unlock()
	delete(mcf.options, name)
}

func (mcf *MapCheckOptions) Len() int {
	mcf.mu.RLock()
	defer mcf.mu.RUnlock()
	return len(mcf.options)
}

// Run executes every check in name order and returns the name and error of
// the first failed one.
func (mcf *MapCheckOptions) Run(ctx context.Context) (string, error) {
	mcf.mu.RLock()
	checks := make([]*CheckOptions, 0, len(mcf.options))
	for _, v := range mcf.options {
		checks = append(checks, v)
	}
	mcf.mu.RUnlock()

	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	for _, c := range checks {
		if err := c.CheckFunc(ctx); err != nil {
			return c.Name, err
		}
	}

	return "", nil
}
