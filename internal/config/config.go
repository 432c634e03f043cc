package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DB struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"db" yaml:"db"`

	Web struct {
		Enabled bool `mapstructure:"enabled" yaml:"enabled"`
		Port    int  `mapstructure:"port" yaml:"port"`
	} `mapstructure:"web" yaml:"web"`

	Logging struct {
		Level string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
	} `mapstructure:"logging" yaml:"logging"`
}

func Default() Config {
	var cfg Config
	cfg.Web.Port = 8080
	cfg.Logging.Level = "info"
	return cfg
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazydesk", "config.yaml"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func setDefaults(v *viper.Viper) {
	defaults := Default()
	v.SetDefault("db.path", defaults.DB.Path)
	v.SetDefault("web.enabled", defaults.Web.Enabled)
	v.SetDefault("web.port", defaults.Web.Port)
	v.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the YAML file at path (a missing file yields defaults), then
// applies LAZYDESK_* environment variables and any flags bound from flags.
// Flag names map to keys by replacing "-" with ".", so --web-port sets
// web.port.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) && !isNotFound(err) {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		slog.Debug("no config file, using defaults", "path", path)
	}

	v.SetEnvPrefix("LAZYDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(flag *pflag.Flag) {
			key := strings.ReplaceAll(flag.Name, "-", ".")
			if !isKnownKey(key) {
				return
			}
			if err := v.BindPFlag(key, flag); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, bindErr
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func isKnownKey(key string) bool {
	switch key {
	case "db.path", "web.enabled", "web.port", "logging.level":
		return true
	}
	return false
}

func isNotFound(err error) bool {
	_, ok := err.(viper.ConfigFileNotFoundError)
	return ok
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}

// Logger builds the process logger. Unknown levels fall back to info.
func Logger(cfg Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
