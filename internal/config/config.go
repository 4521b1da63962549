// Package config holds the eesch command line settings, read from a config
// file, EESCH_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/bom"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/format"
	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/valuevis"
)

// EnvPrefix prefixes environment overrides, e.g. EESCH_BOM_GROUP_BY.
const EnvPrefix = "EESCH"

// Config controls how eesch reads files and builds its reports.
type Config struct {
	Lenient bool   `mapstructure:"lenient"` // Drop malformed records instead of failing
	Charset string `mapstructure:"charset"` // Charset of input files (default: utf-8)

	BOM    BOMConfig    `mapstructure:"bom"`
	Values ValuesConfig `mapstructure:"values"`
}

// BOMConfig controls BOM grouping and columns.
type BOMConfig struct {
	GroupBy  []string `mapstructure:"group_by"`  // User fields that split BOM lines
	Columns  []string `mapstructure:"columns"`   // User fields written as columns
	AllUnits bool     `mapstructure:"all_units"` // Count every unit of multi-unit parts
	Group    string   `mapstructure:"group"`     // Field whose value splits the BOM into sections
	Exclude  string   `mapstructure:"exclude"`   // Marker field of parts left out of the BOM
	Adjust   string   `mapstructure:"adjust"`    // Marker field of parts selected during adjustment
}

// ValuesConfig controls value hide/unhide.
type ValuesConfig struct {
	Mark string `mapstructure:"mark"` // Name of the marker field
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Lenient: false,
		Charset: "utf-8",
		BOM: BOMConfig{
			GroupBy:  nil,
			Columns:  nil,
			AllUnits: false,
			Group:    bom.DefaultGroupField,
			Exclude:  bom.DefaultExcludeField,
			Adjust:   bom.DefaultAdjustField,
		},
		Values: ValuesConfig{
			Mark: valuevis.HiddenValueMark,
		},
	}
}

// Validate checks the configuration and fills in empty settings.
func (c *Config) Validate() error {
	if c.Charset == "" {
		c.Charset = "utf-8"
	}
	if _, err := htmlindex.Get(c.Charset); err != nil {
		return fmt.Errorf("unknown charset %q: %w", c.Charset, err)
	}

	if c.Values.Mark == "" {
		c.Values.Mark = valuevis.HiddenValueMark
	}
	if strings.Contains(c.Values.Mark, `"`) {
		return fmt.Errorf("marker field name %q must not contain quotes", c.Values.Mark)
	}
	return nil
}

// FormatOptions returns the load options for the configured charset and
// leniency. warn receives dropped records in lenient mode.
func (c *Config) FormatOptions(warn func(error)) []format.Option {
	opts := []format.Option{format.WithCharset(c.Charset)}
	if c.Lenient {
		opts = append(opts, format.Lenient(warn))
	}
	return opts
}

// BOMOptions converts the BOM settings for bom.Build.
func (c *Config) BOMOptions() bom.Config {
	return bom.Config{
		GroupBy:  c.BOM.GroupBy,
		Columns:  c.BOM.Columns,
		AllUnits: c.BOM.AllUnits,
		Group:    c.BOM.Group,
		Exclude:  c.BOM.Exclude,
		Adjust:   c.BOM.Adjust,
	}
}

// Dir returns the per-user directory searched for eesch.yaml.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "eesch"), nil
}

// Load reads the configuration. An explicit file must exist; otherwise
// eesch.{yaml,json,toml} is looked up in the working directory and then in
// Dir, and a missing file is not an error. Environment variables override the
// file, and flags in flags that were set on the command line override both.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("lenient", def.Lenient)
	v.SetDefault("charset", def.Charset)
	v.SetDefault("bom.group_by", def.BOM.GroupBy)
	v.SetDefault("bom.columns", def.BOM.Columns)
	v.SetDefault("bom.all_units", def.BOM.AllUnits)
	v.SetDefault("bom.group", def.BOM.Group)
	v.SetDefault("bom.exclude", def.BOM.Exclude)
	v.SetDefault("bom.adjust", def.BOM.Adjust)
	v.SetDefault("values.mark", def.Values.Mark)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range []string{"lenient", "charset"} {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", key, err)
				}
			}
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("eesch")
		v.AddConfigPath(".")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
