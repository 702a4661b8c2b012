// Package config loads tool settings from an optional YAML file and
// ECUTUNE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tosih/ecu-tuner/pkg/decoder"
	"github.com/tosih/ecu-tuner/pkg/locator"
	"github.com/tosih/ecu-tuner/pkg/models"
)

// EnvPrefix namespaces environment overrides, e.g. ECUTUNE_LOCATOR_THRESHOLD.
const EnvPrefix = "ECUTUNE"

// Config is the full settings tree
type Config struct {
	Debug       bool            `mapstructure:"debug"`
	Definitions string          `mapstructure:"definitions"`
	Workers     int             `mapstructure:"workers"`
	Locator     locator.Options `mapstructure:"locator"`
	Decoder     decoder.Options `mapstructure:"decoder"`
	Server      Server          `mapstructure:"server"`

	// File is the config file actually read, empty when none was found
	File string `mapstructure:"-"`
}

// Server configures the JSON API
type Server struct {
	Port        int   `mapstructure:"port"`
	MaxUpload   int64 `mapstructure:"max_upload"`
	OpenBrowser bool  `mapstructure:"open_browser"`
}

func setDefaults(v *viper.Viper) {
	loc := locator.DefaultOptions()
	v.SetDefault("locator.threshold", loc.Threshold)
	v.SetDefault("locator.stride", loc.Stride)
	v.SetDefault("locator.shapes", loc.Shapes)
	v.SetDefault("locator.cell_widths", loc.CellWidths)
	v.SetDefault("locator.byte_order", string(loc.Order))
	v.SetDefault("locator.max_windows", loc.MaxWindows)
	v.SetDefault("locator.max_candidates", loc.MaxCandidates)

	dec := decoder.DefaultOptions()
	v.SetDefault("decoder.tolerance", dec.Tolerance)
	v.SetDefault("decoder.byte_order", string(dec.Order))

	v.SetDefault("debug", false)
	v.SetDefault("definitions", "")
	v.SetDefault("workers", 0)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload", 10<<20)
	v.SetDefault("server.open_browser", false)
}

// Load reads path when given. Otherwise ecutune.yaml in the working
// directory is used if present, and defaults if not.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ecutune")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with and normalises
// byte order spellings.
func (c *Config) Validate() error {
	if c.Locator.Threshold < 0 || c.Locator.Threshold > 1 {
		return fmt.Errorf("config: locator.threshold %v outside [0, 1]", c.Locator.Threshold)
	}
	if c.Locator.Stride < 0 {
		return fmt.Errorf("config: locator.stride %d is negative", c.Locator.Stride)
	}
	for _, w := range c.Locator.CellWidths {
		if w != 1 && w != 2 && w != 4 {
			return fmt.Errorf("config: locator.cell_widths: unsupported width %d", w)
		}
	}
	for _, o := range []*models.ByteOrder{&c.Locator.Order, &c.Decoder.Order} {
		order, err := models.ParseByteOrder(string(*o))
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		*o = order
	}
	if c.Decoder.Tolerance < 0 || c.Decoder.Tolerance > 1 {
		return fmt.Errorf("config: decoder.tolerance %v outside [0, 1]", c.Decoder.Tolerance)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers %d is negative", c.Workers)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d", c.Server.Port)
	}
	return nil
}
