package tablegate

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hlop3z/tablegate/internal/runner"
)

// Config holds all configuration options for the Engine.
type Config struct {
	// Logger receives structured progress and warning messages.
	// Default: slog.Default()
	Logger *slog.Logger

	// StatementTimeout bounds each statement of the migration transaction.
	// Zero disables the timeout. Default: 30s
	StatementTimeout time.Duration

	// LockTimeout bounds waits for table locks inside the migration
	// transaction. Zero disables the timeout. Default: 10s
	LockTimeout time.Duration

	// LockWait bounds the wait for the cross-process migration lock.
	// Zero waits until the lock is free.
	LockWait time.Duration

	// LockName selects the advisory lock. Engines sharing a database and a
	// lock name never migrate concurrently. Default: "schema"
	LockName string

	// DropRemovedTables drops tables that disappeared from the definition
	// set. When false they are left in place and reported as warnings.
	DropRemovedTables bool

	// Registerer receives the migration metrics. Nil keeps them unregistered.
	Registerer prometheus.Registerer

	// Now is the clock used for history timestamps. Default: time.Now
	Now func() time.Time
}

// Option is a functional option for configuring the Engine.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Logger:           slog.Default(),
		StatementTimeout: runner.DefaultStatementTimeout,
		LockTimeout:      runner.DefaultLockTimeout,
		LockName:         runner.DefaultLockName,
		Now:              time.Now,
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithStatementTimeout sets the per-statement timeout of the migration
// transaction. Zero disables it.
func WithStatementTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.StatementTimeout = d
	}
}

// WithLockTimeout sets how long a statement may wait for a table lock.
// Zero disables it.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.LockTimeout = d
	}
}

// WithLockWait bounds the wait for the migration lock. When another process
// holds it longer, Migrate fails with a LockAcquisitionFailure.
func WithLockWait(d time.Duration) Option {
	return func(c *Config) {
		c.LockWait = d
	}
}

// WithLockName sets the advisory lock name.
// Default: "schema"
func WithLockName(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.LockName = name
		}
	}
}

// WithDropRemovedTables enables dropping tables removed from the definitions.
func WithDropRemovedTables(drop bool) Option {
	return func(c *Config) {
		c.DropRemovedTables = drop
	}
}

// WithRegisterer registers the migration metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registerer = reg
	}
}

// WithClock overrides the clock used for history timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Now = now
		}
	}
}
