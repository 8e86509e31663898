//go:build integration

package tablegate

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/testutil"
)

func migrate(t *testing.T, db *sql.DB, tables []*Table, opts ...Option) *Result {
	t.Helper()
	eng, err := New(db, append([]Option{quiet()}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return testutil.MustValue(t, eng.Migrate(context.Background(), tables))
}

func TestIntegrationFirstRunAndSkip(t *testing.T) {
	db := testutil.SetupPostgres(t)

	res := migrate(t, db, usersTables())
	if res.Skipped || !res.FirstRun {
		t.Fatalf("first run: Skipped=%v FirstRun=%v", res.Skipped, res.FirstRun)
	}
	testutil.AssertEqual(t, res.Outcome, "applied")
	testutil.AssertTableExists(t, db, "users")
	testutil.AssertColumnExists(t, db, "users", "email")
	testutil.AssertColumnExists(t, db, "users", "age")
	testutil.AssertColumnExists(t, db, "users", "created_at")

	again := migrate(t, db, usersTables())
	if !again.Skipped {
		t.Fatalf("second run executed %d statements", len(again.Statements))
	}
	testutil.AssertEqual(t, again.Checksum, res.Checksum)
}

func TestIntegrationRenamePreservesData(t *testing.T) {
	db := testutil.SetupPostgres(t)
	migrate(t, db, usersTables())
	testutil.ExecSQL(t, db, `INSERT INTO "users" ("email", "age") VALUES ('ada@example.com', 36)`)

	renamed := usersTables()
	renamed[0].Name = "members"
	renamed[0].Fields[0].Name = "contact_email"

	res := migrate(t, db, renamed)
	if len(res.Renames) != 2 {
		t.Fatalf("got %d renames, want 2: %v", len(res.Renames), res.Renames)
	}

	testutil.AssertTableNotExists(t, db, "users")
	testutil.AssertColumnExists(t, db, "members", "contact_email")
	testutil.AssertColumnNotExists(t, db, "members", "email")
	testutil.AssertRowCount(t, db, "members", 1)

	var email string
	testutil.Must(t, db.QueryRow(`SELECT "contact_email" FROM "members"`).Scan(&email))
	testutil.AssertEqual(t, email, "ada@example.com")
}

func TestIntegrationFailureRollsBack(t *testing.T) {
	db := testutil.SetupPostgres(t)
	first := migrate(t, db, usersTables())
	testutil.ExecSQL(t, db, `INSERT INTO "users" ("email", "age") VALUES ('a@example.com', 30), ('b@example.com', 30)`)

	// The new column succeeds, then the unique constraint fails on duplicate ages.
	next := usersTables()
	next[0].Fields[1].Unique = true
	next[0].Fields = append(next[0].Fields, &Field{ID: 3, Name: "nickname", Kind: Text})

	eng := testutil.MustValue(t, New(db, quiet()))
	_, err := eng.Migrate(context.Background(), next)
	testutil.AssertCategory(t, err, alerr.CategoryExecution)

	testutil.AssertColumnNotExists(t, db, "users", "nickname")
	testutil.AssertRowCount(t, db, "users", 2)

	st := testutil.MustValue(t, eng.Status(context.Background(), 0))
	testutil.AssertEqual(t, st.Checksum, first.Checksum)
}

func TestIntegrationConcurrentStartups(t *testing.T) {
	_, url := testutil.SetupPostgresWithURL(t)

	const instances = 4
	var applied, skipped atomic.Int32

	g, ctx := errgroup.WithContext(context.Background())
	for range instances {
		db := testutil.Open(t, url)
		eng := testutil.MustValue(t, New(db, quiet(), WithLockWait(30*time.Second)))
		g.Go(func() error {
			res, err := eng.Migrate(ctx, usersTables())
			if err != nil {
				return err
			}
			if res.Skipped {
				skipped.Add(1)
			} else {
				applied.Add(1)
			}
			return nil
		})
	}
	testutil.Must(t, g.Wait())

	testutil.AssertEqual(t, applied.Load(), int32(1))
	testutil.AssertEqual(t, skipped.Load(), int32(instances-1))
}

func TestIntegrationPgxDriver(t *testing.T) {
	_, url := testutil.SetupPostgresWithURL(t)

	db, err := sql.Open("pgx", url)
	testutil.Must(t, err)
	t.Cleanup(func() { db.Close() })

	res := migrate(t, db, usersTables())
	testutil.AssertEqual(t, res.Outcome, "applied")
	testutil.AssertTableExists(t, db, "users")

	eng := testutil.MustValue(t, New(db, quiet()))
	status := testutil.MustValue(t, eng.Status(context.Background(), 5))
	if len(status.History) != 1 {
		t.Fatalf("got %d history records, want 1", len(status.History))
	}
	testutil.AssertEqual(t, status.Tables, 1)
}

func TestIntegrationVerifyDetectsManualChange(t *testing.T) {
	db := testutil.SetupPostgres(t)
	migrate(t, db, usersTables())

	eng := testutil.MustValue(t, New(db, quiet()))
	report := testutil.MustValue(t, eng.Verify(context.Background()))
	if report.HasDrift {
		t.Fatalf("drift right after migrate: %+v", report.Comparison)
	}

	testutil.ExecSQL(t, db, `ALTER TABLE "users" ADD COLUMN "notes" TEXT`)

	report = testutil.MustValue(t, eng.Verify(context.Background()))
	if !report.HasDrift {
		t.Fatal("manual column not detected")
	}
	diff := report.Comparison.TableDiffs["users"]
	if diff == nil || len(diff.ExtraColumns) != 1 || diff.ExtraColumns[0] != "notes" {
		t.Errorf("TableDiffs[users] = %+v, want extra column notes", diff)
	}
}
