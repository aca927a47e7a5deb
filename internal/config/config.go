// Package config loads gomps settings from flags, GOMPS_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/bartolsthoorn/gomps/internal/logging"
	"github.com/bartolsthoorn/gomps/lp"
	"github.com/bartolsthoorn/gomps/mps"
)

// EnvPrefix is prepended to every environment variable, so "log.level"
// is read from GOMPS_LOG_LEVEL.
const EnvPrefix = "GOMPS"

// Keys understood by Load.
const (
	KeyDialect     = "dialect"
	KeyStrict      = "strict"
	KeyFormat      = "format"
	KeyLogLevel    = "log.level"
	KeyLogFormat   = "log.format"
	KeyCatalogPath = "catalog.path"
)

// ValidFormats lists the output formats of the read and catalog commands.
var ValidFormats = []string{"text", "json", "yaml"}

// Config holds the resolved settings.
type Config struct {
	Dialect string `mapstructure:"dialect"`
	Strict  bool   `mapstructure:"strict"`
	Format  string `mapstructure:"format"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Catalog struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"catalog"`
}

// New returns a viper instance carrying the defaults and environment
// binding. Callers bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDialect, "fixed")
	v.SetDefault(KeyStrict, false)
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, logging.FormatConsole)
	v.SetDefault(KeyCatalogPath, "gomps.db")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (when not empty) into v and returns the validated
// settings.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", file)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every setting for a known value.
func (c *Config) Validate() error {
	if _, err := mps.ParseDialect(c.Dialect); err != nil {
		return errors.Wrap(err, "config")
	}
	if !isValidFormat(c.Format) {
		return errors.Errorf("config: invalid format %q: must be one of %v", c.Format, ValidFormats)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(err, "config: invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return errors.Errorf("config: invalid log format %q", c.Log.Format)
	}
	if c.Catalog.Path == "" {
		return errors.New("config: catalog path is empty")
	}
	return nil
}

// MPSDialect returns the configured dialect. Validate has already checked it.
func (c *Config) MPSDialect() mps.Dialect {
	d, _ := mps.ParseDialect(c.Dialect)
	return d
}

// DuplicatePolicy maps the strict flag to a duplicate policy.
func (c *Config) DuplicatePolicy() lp.DuplicatePolicy {
	if c.Strict {
		return lp.DuplicateReject
	}
	return lp.DuplicateSum
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
