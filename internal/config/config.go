// Package config loads datastore settings from a TOML file and
// DATASTORE_* environment variables.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/roach88/datastore/internal/datastore"
	"github.com/roach88/datastore/internal/dictionary"
	"github.com/roach88/datastore/internal/translate"
)

// EnvPrefix is prepended to every environment override, e.g.
// DATASTORE_QUERY_ROWS_LIMIT.
const EnvPrefix = "DATASTORE"

// Config is the full configuration tree.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Query      QueryConfig      `mapstructure:"query"`
	Datastore  DatastoreConfig  `mapstructure:"datastore"`
	Dictionary DictionaryConfig `mapstructure:"dictionary"`
	Server     ServerConfig     `mapstructure:"server"`
}

// DatabaseConfig selects the storage engine.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite3 | mysql | pgx
	DSN    string `mapstructure:"dsn"`
}

// QueryConfig bounds query documents.
type QueryConfig struct {
	MaxResources int `mapstructure:"max_resources"`
	DefaultLimit int `mapstructure:"default_limit"`
	RowsLimit    int `mapstructure:"rows_limit"`
}

// DatastoreConfig controls import and post-import behavior.
type DatastoreConfig struct {
	DropOnPostImportError bool `mapstructure:"drop_datastore_on_post_import_error"`
	PostImportWorkers     int  `mapstructure:"post_import_workers"`
	MySQLStrictModeOff    bool `mapstructure:"mysql_strict_mode_off"`
	BatchSize             int  `mapstructure:"batch_size"`
}

// DictionaryConfig controls dictionary discovery.
type DictionaryConfig struct {
	Mode string `mapstructure:"mode"`
	Dir  string `mapstructure:"dir"`
}

// ServerConfig is used by the serve command.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Options is the flat set of switches the processing components read.
type Options struct {
	MaxResources          int
	DropOnPostImportError bool
	DictionaryMode        dictionary.Mode
}

// SetDefaults registers the default for every key. Keys without a default
// are not picked up from the environment by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "datastore.db")

	v.SetDefault("query.max_resources", translate.DefaultMaxResources)
	v.SetDefault("query.default_limit", translate.DefaultRowsLimit)
	v.SetDefault("query.rows_limit", translate.DefaultRowsLimit)

	v.SetDefault("datastore.drop_datastore_on_post_import_error", false)
	v.SetDefault("datastore.post_import_workers", 2)
	v.SetDefault("datastore.mysql_strict_mode_off", false)
	v.SetDefault("datastore.batch_size", 500)

	v.SetDefault("dictionary.mode", string(dictionary.ModeNone))
	v.SetDefault("dictionary.dir", "dictionaries")

	v.SetDefault("server.addr", ":8080")
}

// New returns a viper instance with defaults and environment binding.
// When path is non-empty the TOML file is read; a missing file is an error.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}
	return v, nil
}

// Load reads path (optional) plus the environment and validates the result.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper decodes and validates an already prepared viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "mysql", "pgx":
	default:
		return errors.WithHint(
			errors.Newf("unsupported database.driver %q", c.Database.Driver),
			"use one of sqlite3, mysql or pgx")
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn must not be empty")
	}
	if c.Query.MaxResources < 1 {
		return errors.Newf("query.max_resources must be positive, got %d", c.Query.MaxResources)
	}
	if c.Query.RowsLimit < 1 {
		return errors.Newf("query.rows_limit must be positive, got %d", c.Query.RowsLimit)
	}
	if c.Query.DefaultLimit < 0 {
		return errors.Newf("query.default_limit cannot be negative, got %d", c.Query.DefaultLimit)
	}
	if c.Datastore.PostImportWorkers < 1 {
		return errors.Newf("datastore.post_import_workers must be positive, got %d", c.Datastore.PostImportWorkers)
	}
	if c.Datastore.BatchSize < 1 {
		return errors.Newf("datastore.batch_size must be positive, got %d", c.Datastore.BatchSize)
	}
	if _, err := dictionary.ParseMode(c.Dictionary.Mode); err != nil {
		return err
	}
	return nil
}

// Options flattens the settings consumed by the pipeline and translator.
func (c *Config) Options() Options {
	mode, _ := dictionary.ParseMode(c.Dictionary.Mode)
	return Options{
		MaxResources:          c.Query.MaxResources,
		DropOnPostImportError: c.Datastore.DropOnPostImportError,
		DictionaryMode:        mode,
	}
}

// TranslateOptions returns the query limits.
func (c *Config) TranslateOptions() translate.Options {
	return translate.Options{
		MaxResources: c.Query.MaxResources,
		DefaultLimit: c.Query.DefaultLimit,
		RowsLimit:    c.Query.RowsLimit,
	}
}

// StoreOptions returns the storage layer options.
func (c *Config) StoreOptions() datastore.Options {
	return datastore.Options{MySQLStrictModeOff: c.Datastore.MySQLStrictModeOff}
}
