package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/nestq/internal/bind"
)

// EnvPrefix prefixes environment overrides: NESTQ_DIALECT, NESTQ_DB, ...
const EnvPrefix = "NESTQ"

// Config holds settings shared by all commands. Values come, in order of
// precedence, from flags, NESTQ_* environment variables, the config file
// and defaults.
type Config struct {
	Dialect   string
	Mode      string
	MaxDepth  int
	QuoteChar string
	DB        string
}

// configFlags maps config keys to the flag names that override them.
var configFlags = map[string]string{
	"dialect":    "dialect",
	"mode":       "mode",
	"max_depth":  "max-depth",
	"quote_char": "quote-char",
	"db":         "db",
}

// LoadConfig reads configuration. An empty path looks for .nestq.yaml in
// the working directory and tolerates its absence; an explicit path must
// exist. flags may be nil.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("dialect", bind.SQLite.Name)
	v.SetDefault("mode", "")
	v.SetDefault("max_depth", 0)
	v.SetDefault("quote_char", "")
	v.SetDefault("db", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(".nestq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if flags != nil {
		for key, name := range configFlags {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Dialect:   v.GetString("dialect"),
		Mode:      v.GetString("mode"),
		MaxDepth:  v.GetInt("max_depth"),
		QuoteChar: v.GetString("quote_char"),
		DB:        v.GetString("db"),
	}
	if _, err := bind.DialectByName(cfg.Dialect); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DialectPreset returns the bind dialect named by the config.
func (c *Config) DialectPreset() bind.Dialect {
	d, err := bind.DialectByName(c.Dialect)
	if err != nil {
		return bind.Generic
	}
	return d
}
