package conf

import (
	"fmt"

	"github.com/squareup/lazyrows/errors"
	"github.com/squareup/lazyrows/partition"
)

const (
	DefaultBlockSize          = 64
	DefaultMaxBlockSize       = partition.DefaultMaxBlockSize
	DefaultDriver             = "sqlite"
	DefaultMetricsListenAddr  = "localhost:2112"
	DefaultMaxResidentWindows = 0
)

var supportedDrivers = map[string]struct{}{
	"sqlite": {},
	"pgx":    {},
	"memory": {},
	"pebble": {},
}

type Config struct {
	BlockSize          int    `help:"Size of the first window, each following window doubles until max-block-size" default:"64"`
	MaxBlockSize       int    `help:"Cap on the size of a single window" default:"1024"`
	MaxResidentWindows int    `help:"Maximum number of windows kept materialized at once, 0 for no bound" default:"0"`
	Driver             string `help:"Data source driver" enum:"sqlite,pgx,memory,pebble" default:"sqlite"`
	DSN                string `help:"Data source name passed to the driver, a directory for pebble"`
	MetricsEnabled     bool   `help:"Expose prometheus metrics over HTTP"`
	MetricsListenAddr  string `help:"Listen address for the metrics HTTP server" default:"localhost:2112"`
}

func (c *Config) Validate() error {
	if c.BlockSize < 1 {
		return errors.NewInvalidConfigurationError("BlockSize must be >= 1")
	}
	if c.MaxBlockSize < c.BlockSize {
		return errors.NewInvalidConfigurationError("MaxBlockSize must be >= BlockSize")
	}
	if c.MaxResidentWindows < 0 {
		return errors.NewInvalidConfigurationError("MaxResidentWindows must be >= 0")
	}
	if _, ok := supportedDrivers[c.Driver]; !ok {
		return errors.NewInvalidConfigurationError(fmt.Sprintf("unsupported Driver %q", c.Driver))
	}
	if c.Driver != "memory" && c.DSN == "" {
		return errors.NewInvalidConfigurationError(fmt.Sprintf("DSN must be specified for Driver %s", c.Driver))
	}
	if c.MetricsEnabled && c.MetricsListenAddr == "" {
		return errors.NewInvalidConfigurationError("MetricsListenAddr must be specified")
	}
	return nil
}

func NewDefaultConfig() *Config {
	return &Config{
		BlockSize:          DefaultBlockSize,
		MaxBlockSize:       DefaultMaxBlockSize,
		MaxResidentWindows: DefaultMaxResidentWindows,
		Driver:             DefaultDriver,
		MetricsListenAddr:  DefaultMetricsListenAddr,
	}
}

func NewTestConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Driver = "memory"
	cfg.BlockSize = 10
	return cfg
}
