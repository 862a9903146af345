package log

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/squareup/lazyrows/errors"
)

// Config contains the configuration for the global logger.
type Config struct {
	Format string `help:"Format to write log lines in" enum:"text,json" default:"text"`
	Level  string `help:"Lowest log level that will be emitted" enum:"trace,debug,info,warn,error" default:"info"`
	File   string `help:"File to direct logs to. If left blank, or '-', logs will go to stderr" default:"-"`
}

// Configure the global logger. The returned closer releases the log file, if one was opened.
func (cfg *Config) Configure() (io.Closer, error) {
	var closer io.Closer = nopCloser{}
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.Create(cfg.File)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		log.SetOutput(f)
		closer = f
	}
	if cfg.Level != "" {
		level, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, errors.NewInvalidConfigurationError(err.Error())
		}
		log.SetLevel(level)
	}
	switch cfg.Format {
	case "", "text":
		// default, do nothing
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, errors.NewInvalidConfigurationError("log format must be either text or json")
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
