package main

import (
	"context"
	"database/sql"
	"time"

	// Database drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/hlop3z/tablegate/internal/alerr"
)

const connectTimeout = 10 * time.Second

// openDB opens and pings the configured database.
func openDB(ctx context.Context, cfg *Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, alerr.New(alerr.ErrConfigInvalid, "database URL is required").
			WithHelp("set DATABASE_URL, pass --database-url or add database_url to " + DefaultConfigFile)
	}

	db, err := sql.Open(cfg.Driver, cfg.DatabaseURL)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrSQLConnection, err, "failed to open database").
			With("driver", cfg.Driver)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, alerr.Wrap(alerr.ErrSQLConnection, err, "failed to connect to database").
			With("driver", cfg.Driver).
			With("url", MaskDatabaseURL(cfg.DatabaseURL))
	}
	return db, nil
}
