//go:build integration

package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	// Database drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

const postgresImage = "postgres:17-alpine"

var (
	containerOnce sync.Once
	containerURL  string
	containerErr  error
)

// PostgresURL returns the server tests run against: POSTGRES_URL when set,
// otherwise a container started once per test binary. The container is
// removed by the testcontainers reaper when the process exits.
func PostgresURL(t *testing.T) string {
	t.Helper()

	if url := os.Getenv("POSTGRES_URL"); url != "" {
		return url
	}
	SkipIfShort(t)

	containerOnce.Do(func() {
		ctx := context.Background()
		c, err := postgres.Run(ctx,
			postgresImage,
			postgres.WithDatabase("tablegate_test"),
			postgres.WithUsername("tablegate"),
			postgres.WithPassword("tablegate"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			containerErr = err
			return
		}
		containerURL, containerErr = c.ConnectionString(ctx, "sslmode=disable")
	})
	if containerErr != nil {
		t.Fatalf("failed to start postgres container: %v\n\nSet POSTGRES_URL to use an existing server.", containerErr)
	}
	return containerURL
}

// SetupPostgres connects to a PostgreSQL test database.
// The connection is automatically closed when the test completes.
//
// Each test gets its own PostgreSQL schema so packages can run in parallel
// without interference. The schema is the only entry of search_path, so
// unqualified names and current_schema() resolve to it.
func SetupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	db, _ := SetupPostgresWithURL(t)
	return db
}

// SetupPostgresWithURL is SetupPostgres that also returns a URL bound to the
// test schema, for opening more pools that see the same tables.
func SetupPostgresWithURL(t *testing.T) (*sql.DB, string) {
	t.Helper()

	base := PostgresURL(t)
	schema := newSchemaName(t)

	admin := Open(t, base)
	if _, err := admin.Exec(fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = admin.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema))
	})

	// Do NOT include public: tables must land in the test schema.
	separator := "&"
	if !strings.Contains(base, "?") {
		separator = "?"
	}
	url := fmt.Sprintf("%s%ssearch_path=%s", base, separator, schema)

	return Open(t, url), url
}

// Open opens and pings url with lib/pq. The pool is closed when the test
// completes, before schemas created by the test are dropped.
func Open(t *testing.T, url string) *sql.DB {
	t.Helper()

	db, err := sql.Open("postgres", url)
	if err != nil {
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("failed to ping postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newSchemaName(t *testing.T) string {
	t.Helper()
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		t.Fatalf("failed to generate random schema name: %v", err)
	}
	return "test_" + hex.EncodeToString(randomBytes)
}

// -----------------------------------------------------------------------------
// Assertions
// -----------------------------------------------------------------------------

// AssertTableExists checks that a table exists in the test schema.
func AssertTableExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()
	if !tableExists(t, db, table) {
		t.Errorf("expected table %q to exist", table)
	}
}

// AssertTableNotExists checks that a table does not exist in the test schema.
func AssertTableNotExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()
	if tableExists(t, db, table) {
		t.Errorf("expected table %q not to exist", table)
	}
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (
  SELECT 1 FROM information_schema.tables
  WHERE table_schema = current_schema() AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to check table %q: %v", table, err)
	}
	return exists
}

// AssertColumnExists checks that a column exists in a table.
func AssertColumnExists(t *testing.T, db *sql.DB, table, column string) {
	t.Helper()
	if !columnExists(t, db, table, column) {
		t.Errorf("expected column %s.%s to exist", table, column)
	}
}

// AssertColumnNotExists checks that a column does not exist in a table.
func AssertColumnNotExists(t *testing.T, db *sql.DB, table, column string) {
	t.Helper()
	if columnExists(t, db, table, column) {
		t.Errorf("expected column %s.%s not to exist", table, column)
	}
}

func columnExists(t *testing.T, db *sql.DB, table, column string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (
  SELECT 1 FROM information_schema.columns
  WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
)`, table, column).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to check column %s.%s: %v", table, column, err)
	}
	return exists
}

// ExecSQL executes a SQL statement and fails the test on error.
func ExecSQL(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("failed to execute SQL: %v\nquery: %s", err, query)
	}
}

// AssertRowCount checks that a table has the expected number of rows.
func AssertRowCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()
	var count int
	if err := db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %q`, table)).Scan(&count); err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}
	if count != expected {
		t.Errorf("expected %d rows in %s, got %d", expected, table, count)
	}
}
