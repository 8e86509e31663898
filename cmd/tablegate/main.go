// Package main provides the tablegate CLI. It gates a service start on the
// database schema matching a set of table definitions.
//
// Usage:
//
//	tablegate migrate            # Apply definition changes (no-op when unchanged)
//	tablegate plan [--watch]     # Print the statements migrate would run
//	tablegate status             # Show the stored checksum and run history
//	tablegate verify             # Compare the live catalog with the last run
//	tablegate checksum           # Print the checksum of the definitions
//	tablegate kinds              # List field kinds and their column types
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hlop3z/tablegate/internal/cli"
	"github.com/hlop3z/tablegate/internal/defload"
	"github.com/hlop3z/tablegate/pkg/tablegate"
)

// version is set via ldflags during build: -ldflags="-X main.version=v1.0.0"
var version = "dev"

// Global flags
var (
	configFile string
	envFile    string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tablegate",
		Short:         "Runtime schema migration gate for PostgreSQL",
		Long:          `tablegate brings a PostgreSQL schema in line with a set of table definitions before a service starts. Changes run in one transaction under an advisory lock; unchanged definitions are skipped.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", DefaultConfigFile, "Path to config file")
	flags.StringVar(&envFile, "env-file", DefaultEnvFile, "Path to .env file")
	flags.StringP("database-url", "d", "", "Database connection URL")
	flags.String("driver", DriverPostgres, "database/sql driver: postgres or pgx")
	flags.StringP("definitions", "f", DefaultDefinitions, "Definition file or directory")
	flags.Duration("statement-timeout", 30*time.Second, "Per-statement timeout (0 disables)")
	flags.Duration("lock-timeout", 10*time.Second, "Table lock timeout inside the migration (0 disables)")
	flags.Duration("lock-wait", 0, "How long to wait for the migration lock (0 waits forever)")
	flags.String("lock-name", "schema", "Advisory lock name")
	flags.Bool("drop-removed-tables", false, "Drop tables removed from the definitions")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(
		migrateCmd(),
		planCmd(),
		statusCmd(),
		verifyCmd(),
		checksumCmd(),
		kindsCmd(),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprint(os.Stderr, cli.FormatError(err))
		stop()
		os.Exit(1)
	}
}

// env is what every command needs: configuration, logger and output.
type env struct {
	cfg    *Config
	logger *slog.Logger
	out    io.Writer
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	cli.SetDefault(cli.ConfigFor(cmd.OutOrStdout()))
	return &env{cfg: cfg, logger: logger, out: cmd.OutOrStdout()}, nil
}

// definitions loads the configured definition set.
func (e *env) definitions() (*defload.Set, error) {
	return defload.Load(e.cfg.Definitions)
}

// engine opens the database and builds an Engine on it.
func (e *env) engine(ctx context.Context) (*tablegate.Engine, func(), error) {
	db, err := openDB(ctx, e.cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := append(e.cfg.engineOptions(), tablegate.WithLogger(e.logger))
	eng, err := tablegate.New(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return eng, func() { _ = db.Close() }, nil
}
