package pool

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultGrow      = 1
	defaultTimeout   = 300 * time.Second
	defaultKeepAlive = 60 * time.Second
)

// Options is the sizing and health policy of a pool.
type Options struct {
	// Min is the number of connections the pool keeps open.
	Min int `envconfig:"optional" yaml:"min"`
	// Max limits free plus used connections, 0 means unbounded.
	Max int `envconfig:"optional" yaml:"max"`
	// MinSpare is the number of idle connections the pool grows to.
	MinSpare int `envconfig:"optional" yaml:"minSpare"`
	// MaxSpare is the number of idle connections above which the pool shrinks, 0 disables.
	MaxSpare int `envconfig:"optional" yaml:"maxSpare"`
	// Grow is how many connections one growth step opens at least.
	Grow int `envconfig:"optional" yaml:"grow"`
	// Timeout evicts free connections idle for longer, 0 disables.
	Timeout time.Duration `envconfig:"optional" yaml:"timeout"`
	// KeepAlive pings a free connection not pinged for longer, 0 disables.
	KeepAlive time.Duration `envconfig:"optional" yaml:"keepAlive"`
}

func DefaultOptions() Options {
	return Options{
		Grow:      defaultGrow,
		Timeout:   defaultTimeout,
		KeepAlive: defaultKeepAlive,
	}
}

// SetDefault returns a copy with out of range values fixed.
func (o *Options) SetDefault() *Options {
	cfgCopy := *o

	if cfgCopy.Grow <= 0 {
		cfgCopy.Grow = defaultGrow
	}
	for _, v := range []*int{&cfgCopy.Min, &cfgCopy.Max, &cfgCopy.MinSpare, &cfgCopy.MaxSpare} {
		if *v < 0 {
			*v = 0
		}
	}
	if cfgCopy.Timeout < 0 {
		cfgCopy.Timeout = 0
	}
	if cfgCopy.KeepAlive < 0 {
		cfgCopy.KeepAlive = 0
	}

	return &cfgCopy
}

func (o *Options) Validate() error {
	if o.Max > 0 && o.Min > o.Max {
		return errors.Wrapf(ErrInvalidConfig, "min %d above max %d", o.Min, o.Max)
	}
	if o.Max > 0 && o.MinSpare > o.Max {
		return errors.Wrapf(ErrInvalidConfig, "min spare %d above max %d", o.MinSpare, o.Max)
	}
	if o.MaxSpare > 0 && o.MinSpare > o.MaxSpare {
		return errors.Wrapf(ErrInvalidConfig, "min spare %d above max spare %d", o.MinSpare, o.MaxSpare)
	}
	return nil
}

type optionsJSON struct {
	Min       int    `json:"min"`
	Max       int    `json:"max"`
	MinSpare  int    `json:"minSpare"`
	MaxSpare  int    `json:"maxSpare"`
	Grow      int    `json:"grow"`
	Timeout   string `json:"timeout"`
	KeepAlive string `json:"keepAlive"`
}

// MarshalJSON renders durations as Go duration strings.
func (o Options) MarshalJSON() ([]byte, error) {
	return json.Marshal(optionsJSON{
		Min:       o.Min,
		Max:       o.Max,
		MinSpare:  o.MinSpare,
		MaxSpare:  o.MaxSpare,
		Grow:      o.Grow,
		Timeout:   o.Timeout.String(),
		KeepAlive: o.KeepAlive.String(),
	})
}

// Option overrides one field of Options.
type Option func(o *Options)

func WithMin(n int) Option {
	return func(o *Options) { o.Min = n }
}

func WithMax(n int) Option {
	return func(o *Options) { o.Max = n }
}

func WithMinSpare(n int) Option {
	return func(o *Options) { o.MinSpare = n }
}

func WithMaxSpare(n int) Option {
	return func(o *Options) { o.MaxSpare = n }
}

func WithGrow(n int) Option {
	return func(o *Options) { o.Grow = n }
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

func WithKeepAlive(d time.Duration) Option {
	return func(o *Options) { o.KeepAlive = d }
}

// WithOptions replaces every field.
func WithOptions(src Options) Option {
	return func(o *Options) { *o = src }
}

func applyOptions(base Options, opts []Option) (Options, error) {
	for _, opt := range opts {
		opt(&base)
	}
	o := *base.SetDefault()
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}
