package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/hlop3z/tablegate/internal/alerr"
)

var configEnv = []string{
	EnvDatabaseURL, EnvTGDatabaseURL, EnvDriver, EnvDefinitions,
	EnvStatementTimeout, EnvLockTimeout, EnvLockWait, EnvLockName,
	EnvDropRemoved, EnvLogLevel, EnvLogFormat, "TG_TEST_USER",
}

// isolate runs the test in an empty directory with no tablegate variables set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, name := range configEnv {
		t.Setenv(name, "x")
		_ = os.Unsetenv(name)
	}
	return dir
}

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := newRootCmd().PersistentFlags()
	if err := flags.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}
	return flags
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := loadConfig(parseFlags(t))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Driver != DriverPostgres {
		t.Errorf("Driver = %q", cfg.Driver)
	}
	if cfg.Definitions != DefaultDefinitions {
		t.Errorf("Definitions = %q", cfg.Definitions)
	}
	if cfg.StatementTimeout != 30*time.Second || cfg.LockTimeout != 10*time.Second || cfg.LockWait != 0 {
		t.Errorf("timeouts = %v %v %v", cfg.StatementTimeout, cfg.LockTimeout, cfg.LockWait)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv("TG_TEST_USER", "svc")
	write(t, filepath.Join(dir, DefaultConfigFile), `database_url: postgres://${TG_TEST_USER}@localhost/app
driver: pgx
definitions: schema
lock_wait: 45s
drop_removed_tables: true
log_format: json
`)

	cfg, err := loadConfig(parseFlags(t))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.DatabaseURL != "postgres://svc@localhost/app" {
		t.Errorf("DatabaseURL = %q, ${VAR} not expanded", cfg.DatabaseURL)
	}
	if cfg.Driver != DriverPgx || cfg.Definitions != "schema" {
		t.Errorf("Driver, Definitions = %q, %q", cfg.Driver, cfg.Definitions)
	}
	if cfg.LockWait != 45*time.Second {
		t.Errorf("LockWait = %v", cfg.LockWait)
	}
	if !cfg.DropRemovedTables || cfg.LogFormat != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.StatementTimeout != 30*time.Second {
		t.Errorf("StatementTimeout = %v, default lost", cfg.StatementTimeout)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, DefaultConfigFile), "lock_name: file\ndefinitions: file\nlog_level: debug\ndriver: pgx\n")
	write(t, filepath.Join(dir, DefaultEnvFile), "TABLEGATE_LOCK_NAME=dotenv\nTABLEGATE_DEFINITIONS=dotenv\nTABLEGATE_LOG_LEVEL=warn\n")
	t.Setenv(EnvDefinitions, "env")
	t.Setenv(EnvLogLevel, "error")

	cfg, err := loadConfig(parseFlags(t, "--log-level", "debug"))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	tests := []struct {
		name, got, want string
	}{
		{"config file over defaults", cfg.Driver, DriverPgx},
		{".env over config file", cfg.LockName, "dotenv"},
		{"environment over .env", cfg.Definitions, "env"},
		{"flag over environment", cfg.LogLevel, "debug"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadConfigDatabaseURLEnv(t *testing.T) {
	isolate(t)
	t.Setenv(EnvDatabaseURL, "postgres://generic/app")

	cfg, err := loadConfig(parseFlags(t))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.DatabaseURL != "postgres://generic/app" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}

	t.Setenv(EnvTGDatabaseURL, "postgres://specific/app")
	cfg, err = loadConfig(parseFlags(t))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.DatabaseURL != "postgres://specific/app" {
		t.Errorf("DatabaseURL = %q, TABLEGATE_DATABASE_URL must win", cfg.DatabaseURL)
	}
}

func TestLoadConfigFlags(t *testing.T) {
	isolate(t)

	cfg, err := loadConfig(parseFlags(t,
		"-d", "postgres://flag/app",
		"--statement-timeout", "0",
		"--lock-wait", "2m",
		"--drop-removed-tables",
		"--lock-name", "billing",
	))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.DatabaseURL != "postgres://flag/app" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.StatementTimeout != 0 || cfg.LockWait != 2*time.Minute {
		t.Errorf("StatementTimeout, LockWait = %v, %v", cfg.StatementTimeout, cfg.LockWait)
	}
	if !cfg.DropRemovedTables || cfg.LockName != "billing" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.engineOptions()) != 5 {
		t.Errorf("engineOptions() = %d options", len(cfg.engineOptions()))
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		args []string
		code alerr.Code
	}{
		{"bad yaml", "driver: [\n", nil, nil, alerr.ErrConfigInvalid},
		{"unknown driver", "driver: mysql\n", nil, nil, alerr.ErrConfigInvalid},
		{"negative duration", "lock_wait: -1s\n", nil, nil, alerr.ErrConfigInvalid},
		{"bad env duration", "", map[string]string{EnvLockTimeout: "soon"}, nil, alerr.ErrConfigInvalid},
		{"bad env bool", "", map[string]string{EnvDropRemoved: "maybe"}, nil, alerr.ErrConfigInvalid},
		{"unknown log level", "", nil, []string{"--log-level", "loud"}, alerr.ErrConfigInvalid},
		{"unknown log format", "", nil, []string{"--log-format", "xml"}, alerr.ErrConfigInvalid},
		{"missing explicit config", "", nil, []string{"-c", "absent.yaml"}, alerr.ErrConfigRead},
		{"missing explicit env file", "", nil, []string{"--env-file", "absent.env"}, alerr.ErrConfigRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			if tt.file != "" {
				write(t, filepath.Join(dir, DefaultConfigFile), tt.file)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := loadConfig(parseFlags(t, tt.args...))
			if !alerr.Is(err, tt.code) {
				t.Errorf("loadConfig() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://localhost/app", "postgres://localhost/app"},
		{"postgres://u:secret@db/app", "postgres://u:***@db/app"},
		{"postgres://u:p%40ss%2Fw@db/app?sslmode=disable", "postgres://u:***@db/app?sslmode=disable"},
		{"postgres://u:@db/app", "postgres://u:***@db/app"},
		{"postgres://user@a-very-long-host-name.internal.example.com/app", "postgres://user@a-very-long-host-name.in..."},
	}
	for _, tt := range tests {
		if got := MaskDatabaseURL(tt.in); got != tt.want {
			t.Errorf("MaskDatabaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
