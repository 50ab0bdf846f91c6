// Package config loads idsearch settings from config.yaml, .env files and
// IDSEARCH_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"idsearch/internal/blob"
	"idsearch/internal/core"
	"idsearch/internal/infra/persistence/sqlite"
	"idsearch/internal/platform/logging"
)

// EnvPrefix prefixes every environment override, e.g. IDSEARCH_DB_URL.
const EnvPrefix = "IDSEARCH"

// Storage configures the participant store when no db-url is given.
type Storage struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// Metrics exporters selectable with metrics.exporter.
const (
	MetricsPrometheus = "prometheus"
	MetricsExpvar     = "expvar"
)

// Metrics selects how service operation metrics are exported.
type Metrics struct {
	Exporter string `mapstructure:"exporter"`
}

// HTTP configures the lookup server.
type HTTP struct {
	Addr string `mapstructure:"addr"`
}

// Config is the merged application configuration.
type Config struct {
	DatabaseURL string         `mapstructure:"db-url"`
	Storage     Storage        `mapstructure:"storage"`
	Blob        blob.Config    `mapstructure:"blob"`
	Log         logging.Config `mapstructure:"log"`
	HTTP        HTTP           `mapstructure:"http"`
	Metrics     Metrics        `mapstructure:"metrics"`
	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// Options locate the configuration sources.
type Options struct {
	// File is an explicit config file. It must exist when set.
	File string
	// Dir is searched for config.yaml and .env. Defaults to the working directory.
	Dir string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db-url", "")
	v.SetDefault("storage.driver", string(core.StorageSQLite))
	v.SetDefault("storage.sqlite_path", sqlite.DefaultPath)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("blob.driver", string(blob.DriverFilesystem))
	v.SetDefault("blob.fs_root", "tmp")
	for _, key := range []string{"bucket", "region", "endpoint", "prefix", "access_key_id", "secret_access_key", "session_token"} {
		v.SetDefault("blob.s3."+key, "")
	}
	v.SetDefault("blob.s3.path_style", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("metrics.exporter", MetricsPrometheus)
}

// Load merges defaults, the config file and the environment. Environment
// variables take precedence over the file. A .env file in Dir is loaded
// first without overriding variables that are already set.
func Load(opts Options) (Config, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

// StorageConfig resolves the participant store settings. db-url wins over
// the storage section.
func (c Config) StorageConfig() (core.StorageConfig, error) {
	if c.DatabaseURL != "" {
		return core.ParseDatabaseURL(c.DatabaseURL)
	}
	driver := core.StorageDriver(c.Storage.Driver)
	switch driver {
	case "", core.StorageSQLite, core.StoragePostgres, core.StorageMemory:
	default:
		return core.StorageConfig{}, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return core.StorageConfig{Driver: driver, SQLitePath: c.Storage.SQLitePath, PostgresDSN: c.Storage.PostgresDSN}, nil
}
