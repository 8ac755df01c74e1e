package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/database"
	"github.com/soldatov-s/go-dbpool/httpsrv"
	"github.com/soldatov-s/go-dbpool/log"
	"github.com/soldatov-s/go-dbpool/pool"
)

// Config is the configuration of the dbpoold service.
type Config struct {
	Logger   log.Config     `yaml:"logger"`
	HTTP     httpsrv.Config `yaml:"http"`
	Registry RegistryConfig `yaml:"registry"`
	// Pools are only read from the file.
	Pools []PoolConfig `envconfig:"-" yaml:"pools"`
}

type RegistryConfig struct {
	// Defaults every pool starts from.
	Defaults pool.Options `yaml:"defaults"`
	// MaintenanceInterval is the period of pool checks, 10s when empty.
	MaintenanceInterval time.Duration `envconfig:"optional" yaml:"maintenanceInterval"`
}

// PoolConfig describes one pool. Empty options are taken from the
// registry defaults.
type PoolConfig struct {
	ID        int             `yaml:"id"`
	Name      string          `yaml:"name"`
	Params    database.Params `yaml:"params"`
	Min       *int            `yaml:"min"`
	Max       *int            `yaml:"max"`
	MinSpare  *int            `yaml:"minSpare"`
	MaxSpare  *int            `yaml:"maxSpare"`
	Grow      *int            `yaml:"grow"`
	Timeout   *time.Duration  `yaml:"timeout"`
	KeepAlive *time.Duration  `yaml:"keepAlive"`
}

func (c *PoolConfig) Options() []pool.Option {
	var opts []pool.Option

	ints := []struct {
		v   *int
		opt func(int) pool.Option
	}{
		{c.Min, pool.WithMin},
		{c.Max, pool.WithMax},
		{c.MinSpare, pool.WithMinSpare},
		{c.MaxSpare, pool.WithMaxSpare},
		{c.Grow, pool.WithGrow},
	}
	for _, v := range ints {
		if v.v != nil {
			opts = append(opts, v.opt(*v.v))
		}
	}

	if c.Timeout != nil {
		opts = append(opts, pool.WithTimeout(*c.Timeout))
	}
	if c.KeepAlive != nil {
		opts = append(opts, pool.WithKeepAlive(*c.KeepAlive))
	}

	return opts
}

func DefaultConfig() *Config {
	return &Config{
		Logger:   *log.DefaultConfig(),
		Registry: RegistryConfig{Defaults: pool.DefaultOptions()},
	}
}

// SetDefault returns a copy of config with empty fields filled.
func (c *Config) SetDefault() *Config {
	cfgCopy := *c
	cfgCopy.Logger = *c.Logger.SetDefault()
	cfgCopy.HTTP = *c.HTTP.SetDefault()
	cfgCopy.Registry.Defaults = *c.Registry.Defaults.SetDefault()
	cfgCopy.Pools = append([]PoolConfig(nil), c.Pools...)

	return &cfgCopy
}

func (c *Config) Validate() error {
	if err := c.Registry.Defaults.Validate(); err != nil {
		return errors.Wrap(err, "registry defaults")
	}

	ids := make(map[int]struct{}, len(c.Pools))
	names := make(map[string]struct{}, len(c.Pools))
	for i := range c.Pools {
		p := &c.Pools[i]
		if p.Name == "" {
			return errors.Wrapf(database.ErrInvalidConfig, "pool %d: empty name", p.ID)
		}
		if _, ok := ids[p.ID]; ok {
			return errors.Wrapf(database.ErrInvalidConfig, "duplicate pool id %d", p.ID)
		}
		if _, ok := names[p.Name]; ok {
			return errors.Wrapf(database.ErrInvalidConfig, "duplicate pool name %q", p.Name)
		}
		if p.Params.Type() == "" {
			return errors.Wrapf(database.ErrInvalidConfig, "pool %q: missing %s", p.Name, database.KeyType)
		}
		ids[p.ID] = struct{}{}
		names[p.Name] = struct{}{}
	}

	return nil
}

// RegistryOptions converts the registry section.
func (c *Config) RegistryOptions() []pool.RegistryOption {
	return []pool.RegistryOption{
		pool.WithDefaults(pool.WithOptions(c.Registry.Defaults)),
		pool.WithMaintenanceInterval(c.Registry.MaintenanceInterval),
	}
}

// Load reads the file at path, then the environment with prefix. Later
// providers override earlier ones.
func Load(path, prefix string) (*Config, error) {
	cfg := DefaultConfig()

	collector := NewCollector(cfg)
	if err := collector.RegisterProvider(YAMLProviderName, NewYAMLProvider(path)); err != nil {
		return nil, errors.Wrap(err, "register yaml provider")
	}
	if err := collector.RegisterProvider(EnvProviderName, NewEnvProvider(prefix)); err != nil {
		return nil, errors.Wrap(err, "register env provider")
	}

	if err := collector.Parse(); err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	cfg = cfg.SetDefault()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate")
	}

	return cfg, nil
}
