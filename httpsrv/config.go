package httpsrv

import (
	"time"

	"github.com/labstack/echo/v4"
)

const (
	defaultBodyReadTimeout   = 10 * time.Second
	defaultBodyWriteTimeout  = 10 * time.Second
	defaultHeaderReadTimeout = 5 * time.Second
	defaultAddress           = "localhost:9100"
)

type Config struct {
	// Address is an address on which HTTP server will listen.
	Address string `envconfig:"optional" yaml:"address"`
	// DisableHTTP2 disabled HTTP2 features (only HTTP 1.0/1.1 will work).
	DisableHTTP2 bool `envconfig:"optional" yaml:"disable_http2"`
	// Debug enables internal echo debugging features.
	Debug bool `envconfig:"optional" yaml:"debug"`
	// HideBanner disables showing Echo banner on server's start.
	HideBanner bool `envconfig:"optional" yaml:"hide_banner"`
	// HidePort disables showing address and port on which Echo will listen
	// for connections.
	HidePort bool `envconfig:"optional" yaml:"hide_port"`
	// Path to certificate for HTTPS
	CertFile string `envconfig:"optional" yaml:"cert_file"`
	// Path to key for HTTPS
	KeyFile string `envconfig:"optional" yaml:"key_file"`

	BodyReadTimeout   time.Duration `envconfig:"optional" yaml:"body_read_timeout"`
	BodyWriteTimeout  time.Duration `envconfig:"optional" yaml:"body_write_timeout"`
	HeaderReadTimeout time.Duration `envconfig:"optional" yaml:"header_read_timeout"`
}

// SetDefault returns a copy of config with empty fields filled.
func (c *Config) SetDefault() *Config {
	cfgCopy := *c

	if cfgCopy.BodyReadTimeout == 0 {
		cfgCopy.BodyReadTimeout = defaultBodyReadTimeout
	}

	if cfgCopy.BodyWriteTimeout == 0 {
		cfgCopy.BodyWriteTimeout = defaultBodyWriteTimeout
	}

	if cfgCopy.HeaderReadTimeout == 0 {
		cfgCopy.HeaderReadTimeout = defaultHeaderReadTimeout
	}

	if cfgCopy.Address == "" {
		cfgCopy.Address = defaultAddress
	}

	return &cfgCopy
}

func (c *Config) NewEcho() *echo.Echo {
	srv := echo.New()
	srv.Debug = c.Debug
	srv.DisableHTTP2 = c.DisableHTTP2
	srv.HideBanner = c.HideBanner
	srv.HidePort = c.HidePort

	srv.Server.ReadHeaderTimeout = c.HeaderReadTimeout
	srv.Server.ReadTimeout = c.BodyReadTimeout
	srv.Server.WriteTimeout = c.BodyWriteTimeout

	srv.Server.Addr = c.Address

	return srv
}
