package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/pkg/tablegate"
)

// Config represents the tablegate.yaml configuration file.
type Config struct {
	DatabaseURL       string        `yaml:"database_url"`
	Driver            string        `yaml:"driver"`
	Definitions       string        `yaml:"definitions"`
	StatementTimeout  time.Duration `yaml:"statement_timeout"`
	LockTimeout       time.Duration `yaml:"lock_timeout"`
	LockWait          time.Duration `yaml:"lock_wait"`
	LockName          string        `yaml:"lock_name"`
	DropRemovedTables bool          `yaml:"drop_removed_tables"`
	LogLevel          string        `yaml:"log_level"`
	LogFormat         string        `yaml:"log_format"`
}

func defaultConfig() *Config {
	return &Config{
		Driver:           DriverPostgres,
		Definitions:      DefaultDefinitions,
		StatementTimeout: 30 * time.Second,
		LockTimeout:      10 * time.Second,
		LockName:         "schema",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Supported database/sql drivers.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// Environment variables. DATABASE_URL is read as well.
const (
	envPrefix           = "TABLEGATE_"
	EnvDatabaseURL      = "DATABASE_URL"
	EnvTGDatabaseURL    = envPrefix + "DATABASE_URL"
	EnvDriver           = envPrefix + "DRIVER"
	EnvDefinitions      = envPrefix + "DEFINITIONS"
	EnvStatementTimeout = envPrefix + "STATEMENT_TIMEOUT"
	EnvLockTimeout      = envPrefix + "LOCK_TIMEOUT"
	EnvLockWait         = envPrefix + "LOCK_WAIT"
	EnvLockName         = envPrefix + "LOCK_NAME"
	EnvDropRemoved      = envPrefix + "DROP_REMOVED_TABLES"
	EnvLogLevel         = envPrefix + "LOG_LEVEL"
	EnvLogFormat        = envPrefix + "LOG_FORMAT"
)

// loadConfig builds the configuration.
// Precedence: CLI flags > env vars > .env file > config file > defaults
func loadConfig(flags *pflag.FlagSet) (*Config, error) {
	cfg := defaultConfig()

	// Variables already in the environment win over .env entries; the
	// file is read first so ${VAR} in tablegate.yaml can refer to them.
	if err := godotenv.Load(envFile); err != nil && (!errors.Is(err, fs.ErrNotExist) || flags.Changed("env-file")) {
		return nil, alerr.Wrap(alerr.ErrConfigRead, err, "failed to load env file").
			With("file", envFile)
	}

	if data, err := os.ReadFile(configFile); err == nil {
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, alerr.Wrap(alerr.ErrConfigInvalid, err, "failed to parse config file").
				With("file", configFile)
		}
	} else if !errors.Is(err, fs.ErrNotExist) || flags.Changed("config") {
		return nil, alerr.Wrap(alerr.ErrConfigRead, err, "failed to read config file").
			With("file", configFile)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, flags); err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.DatabaseURL, os.Getenv(EnvDatabaseURL))
	setString(&cfg.DatabaseURL, os.Getenv(EnvTGDatabaseURL))
	setString(&cfg.Driver, os.Getenv(EnvDriver))
	setString(&cfg.Definitions, os.Getenv(EnvDefinitions))
	setString(&cfg.LockName, os.Getenv(EnvLockName))
	setString(&cfg.LogLevel, os.Getenv(EnvLogLevel))
	setString(&cfg.LogFormat, os.Getenv(EnvLogFormat))

	for name, dst := range map[string]*time.Duration{
		EnvStatementTimeout: &cfg.StatementTimeout,
		EnvLockTimeout:      &cfg.LockTimeout,
		EnvLockWait:         &cfg.LockWait,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return alerr.Wrap(alerr.ErrConfigInvalid, err, "invalid duration").
				With("variable", name).
				With("value", v)
		}
		*dst = d
	}

	if v := os.Getenv(EnvDropRemoved); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return alerr.Wrap(alerr.ErrConfigInvalid, err, "invalid boolean").
				With("variable", EnvDropRemoved).
				With("value", v)
		}
		cfg.DropRemovedTables = b
	}
	return nil
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "database-url":
			cfg.DatabaseURL = f.Value.String()
		case "driver":
			cfg.Driver = f.Value.String()
		case "definitions":
			cfg.Definitions = f.Value.String()
		case "lock-name":
			cfg.LockName = f.Value.String()
		case "log-level":
			cfg.LogLevel = f.Value.String()
		case "log-format":
			cfg.LogFormat = f.Value.String()
		case "statement-timeout":
			cfg.StatementTimeout, err = flags.GetDuration(f.Name)
		case "lock-timeout":
			cfg.LockTimeout, err = flags.GetDuration(f.Name)
		case "lock-wait":
			cfg.LockWait, err = flags.GetDuration(f.Name)
		case "drop-removed-tables":
			cfg.DropRemovedTables, err = flags.GetBool(f.Name)
		}
	})
	if err != nil {
		return alerr.Wrap(alerr.ErrConfigInvalid, err, "invalid flag value")
	}
	return nil
}

func validateConfig(cfg *Config) error {
	switch cfg.Driver {
	case DriverPostgres, DriverPgx:
	default:
		return alerr.Newf(alerr.ErrConfigInvalid, "unknown driver %q", cfg.Driver).
			WithHelp(fmt.Sprintf("use %q (lib/pq) or %q (pgx)", DriverPostgres, DriverPgx))
	}
	for name, d := range map[string]time.Duration{
		"statement_timeout": cfg.StatementTimeout,
		"lock_timeout":      cfg.LockTimeout,
		"lock_wait":         cfg.LockWait,
	} {
		if d < 0 {
			return alerr.New(alerr.ErrConfigInvalid, "durations must not be negative").
				With("setting", name).
				With("value", d.String())
		}
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return alerr.Newf(alerr.ErrConfigInvalid, "unknown log format %q", cfg.LogFormat).
			WithHelp(`use "text" or "json"`)
	}
	return nil
}

// engineOptions maps cfg onto library options.
func (c *Config) engineOptions() []tablegate.Option {
	return []tablegate.Option{
		tablegate.WithStatementTimeout(c.StatementTimeout),
		tablegate.WithLockTimeout(c.LockTimeout),
		tablegate.WithLockWait(c.LockWait),
		tablegate.WithLockName(c.LockName),
		tablegate.WithDropRemovedTables(c.DropRemovedTables),
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string.
func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}
