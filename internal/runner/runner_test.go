package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/history"
	"github.com/hlop3z/tablegate/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRunner(cfg Config) *Runner {
	cfg.Logger = quietLogger()
	return New(history.New(nil, 0), cfg)
}

func request(stmts ...string) Request {
	return Request{
		Statements: stmts,
		Checksum:   "new",
		Tables:     []*ast.TableDef{{ID: 1, Name: "users"}},
	}
}

func expectTimeouts(mock sqlmock.Sqlmock) {
	testutil.ExpectExec(mock, "SET LOCAL statement_timeout = 30000")
	testutil.ExpectExec(mock, "SET LOCAL lock_timeout = 10000")
}

// expectHistory expects the history writes that end every successful run.
func expectHistory(mock sqlmock.Sqlmock) {
	testutil.ExpectExec(mock, `INSERT INTO "_schema_checksum"`).
		WithArgs("new", sqlmock.AnyArg())
	testutil.ExpectExec(mock, `INSERT INTO "_schema_snapshot"`).
		WithArgs("new", `[{"id":1,"name":"users","fields":null}]`, sqlmock.AnyArg())
	testutil.ExpectRow(mock, `INSERT INTO "_migrations"`, []string{"id"}, int64(7))
}

// -----------------------------------------------------------------------------
// Execute
// -----------------------------------------------------------------------------

func TestExecuteCommitsStatementsAndHistory(t *testing.T) {
	db, mock := testutil.NewMock(t)
	mock.ExpectBegin()
	expectTimeouts(mock)
	testutil.ExpectExec(mock, "CREATE TABLE a ()")
	testutil.ExpectExec(mock, "CREATE TABLE b ()")
	expectHistory(mock)
	mock.ExpectCommit()

	out, err := newRunner(DefaultConfig()).Execute(context.Background(), db, request("CREATE TABLE a ()", "CREATE TABLE b ()"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Outcome != ast.OutcomeApplied || out.Statements != 2 || out.RecordID != 7 || out.RunID == "" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestExecuteRollsBackOnFailure(t *testing.T) {
	db, mock := testutil.NewMock(t)
	mock.ExpectBegin()
	expectTimeouts(mock)
	testutil.ExpectExec(mock, "CREATE TABLE a ()")
	mock.ExpectExec(testutil.Prefix("CREATE TABLE b ()")).
		WillReturnError(&pq.Error{Code: "42P07", Message: `relation "b" already exists`})
	mock.ExpectRollback()

	_, err := newRunner(DefaultConfig()).Execute(context.Background(), db, request("CREATE TABLE a ()", "CREATE TABLE b ()", "CREATE TABLE c ()"))
	if err == nil {
		t.Fatal("expected error")
	}

	if alerr.CategoryOf(err) != alerr.CategoryExecution {
		t.Errorf("category = %q", alerr.CategoryOf(err))
	}
	coded, ok := err.(*alerr.Error)
	if !ok {
		t.Fatalf("expected *alerr.Error, got %T", err)
	}
	if coded.SQL() != "CREATE TABLE b ()" {
		t.Errorf("SQL() = %q", coded.SQL())
	}
	if coded.GetContext()["sqlstate"] != "42P07" {
		t.Errorf("context = %v", coded.GetContext())
	}
	if coded.GetContext()["statement_index"] != 1 {
		t.Errorf("statement_index = %v", coded.GetContext()["statement_index"])
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("database error missing from %q", err.Error())
	}
}

func TestExecutePersistenceFailure(t *testing.T) {
	db, mock := testutil.NewMock(t)
	mock.ExpectBegin()
	expectTimeouts(mock)
	testutil.ExpectExec(mock, "CREATE TABLE a ()")
	mock.ExpectExec(testutil.Prefix(`INSERT INTO "_schema_checksum"`)).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := newRunner(DefaultConfig()).Execute(context.Background(), db, request("CREATE TABLE a ()"))

	if alerr.GetErrorCode(err) != alerr.ErrDDLExecution {
		t.Errorf("outer code = %s", alerr.GetErrorCode(err))
	}
	if !alerr.Is(err, alerr.ErrChecksumPersistence) {
		t.Errorf("expected ChecksumPersistenceError inside, got %v", err)
	}
}

func TestExecuteCommitFailure(t *testing.T) {
	db, mock := testutil.NewMock(t)
	mock.ExpectBegin()
	expectTimeouts(mock)
	testutil.ExpectExec(mock, "CREATE TABLE a ()")
	expectHistory(mock)
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	_, err := newRunner(DefaultConfig()).Execute(context.Background(), db, request("CREATE TABLE a ()"))
	if !alerr.Is(err, alerr.ErrSQLTransaction) {
		t.Errorf("expected ErrSQLTransaction, got %v", err)
	}
}

func TestExecuteIgnoresCancellation(t *testing.T) {
	db, mock := testutil.NewMock(t)
	mock.ExpectBegin()
	expectTimeouts(mock)
	testutil.ExpectExec(mock, "CREATE TABLE a ()")
	expectHistory(mock)
	mock.ExpectCommit()

	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("Conn() error = %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newRunner(DefaultConfig()).Execute(ctx, conn, request("CREATE TABLE a ()")); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestExecuteWithoutTimeoutsOrStatements(t *testing.T) {
	db, mock := testutil.NewMock(t)
	mock.ExpectBegin()
	expectHistory(mock)
	mock.ExpectCommit()

	out, err := newRunner(Config{}).Execute(context.Background(), db, request())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Outcome != ast.OutcomeNoop || out.Statements != 0 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestExecuteUsesClock(t *testing.T) {
	db, mock := testutil.NewMock(t)
	mock.ExpectBegin()
	testutil.ExpectExec(mock, "SELECT 1")
	expectHistory(mock)
	mock.ExpectCommit()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	calls := 0
	cfg := Config{Now: func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}}

	out, err := newRunner(cfg).Execute(context.Background(), db, request("SELECT 1"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Duration <= 0 {
		t.Errorf("Duration = %v", out.Duration)
	}
}

// -----------------------------------------------------------------------------
// Advisory lock
// -----------------------------------------------------------------------------

func TestLockKey(t *testing.T) {
	a := LockKey("schema")
	if a != LockKey("schema") {
		t.Error("LockKey not deterministic")
	}
	if a != LockKey("") {
		t.Error("empty name should use the default lock name")
	}
	if a == LockKey("other") {
		t.Error("different names share a key")
	}
	for _, name := range []string{"schema", "other", "x", "a-much-longer-lock-name"} {
		if k := LockKey(name); k < 0 || k+1 < k {
			t.Errorf("LockKey(%q) = %d out of range", name, k)
		}
	}
}

func expectTryLock(mock sqlmock.Sqlmock, key int64, ok bool) {
	testutil.ExpectRow(mock, "SELECT pg_try_advisory_lock($1)", []string{"ok"}, ok).WithArgs(key)
}

func expectUnlock(mock sqlmock.Sqlmock, key int64, ok bool) {
	testutil.ExpectRow(mock, "SELECT pg_advisory_unlock($1)", []string{"ok"}, ok).WithArgs(key)
}

func TestAdvisoryLockUncontended(t *testing.T) {
	db, mock := testutil.NewMock(t)
	lock := NewAdvisoryLock(db, "schema", 0, quietLogger())
	expectTryLock(mock, lock.Key(), true)
	expectUnlock(mock, lock.Key(), true)

	lease, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if lease.Conn() == nil {
		t.Fatal("lease has no connection")
	}
	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("second Release() error = %v", err)
	}

	if lock.BootstrapKey() != lock.Key()+1 {
		t.Error("bootstrap key must follow the migration key")
	}
}

func TestAdvisoryLockBlocksWithoutWait(t *testing.T) {
	db, mock := testutil.NewMock(t)
	lock := NewAdvisoryLock(db, "schema", 0, quietLogger())
	expectTryLock(mock, lock.Key(), false)
	testutil.ExpectExec(mock, "SELECT pg_advisory_lock($1)").WithArgs(lock.Key())
	expectUnlock(mock, lock.Key(), true)

	lease, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
}

func TestAdvisoryLockWaitTimesOut(t *testing.T) {
	db, mock := testutil.NewMock(t)
	lock := NewAdvisoryLock(db, "schema", 30*time.Millisecond, quietLogger())
	lock.interval = time.Hour
	expectTryLock(mock, lock.Key(), false)

	_, err := lock.Acquire(context.Background())
	if !alerr.Is(err, alerr.ErrLockAcquisition) {
		t.Fatalf("expected ErrLockAcquisition, got %v", err)
	}
	if alerr.CategoryOf(err) != alerr.CategoryLock {
		t.Errorf("category = %q", alerr.CategoryOf(err))
	}
}

func TestLeaseReleaseNotHeld(t *testing.T) {
	db, mock := testutil.NewMock(t)
	lock := NewAdvisoryLock(db, "schema", 0, quietLogger())
	expectTryLock(mock, lock.Key(), true)
	expectUnlock(mock, lock.Key(), false)

	lease, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := lease.Release(context.Background()); !alerr.Is(err, alerr.ErrLockRelease) {
		t.Errorf("expected ErrLockRelease, got %v", err)
	}
}

func TestLeaseReleaseFailureDiscardsConnection(t *testing.T) {
	db, mock := testutil.NewMock(t)
	lock := NewAdvisoryLock(db, "schema", 0, quietLogger())
	expectTryLock(mock, lock.Key(), true)
	mock.ExpectQuery(testutil.Prefix("SELECT pg_advisory_unlock($1)")).
		WillReturnError(context.DeadlineExceeded)
	// The session still holds the lock, so it must be closed, not pooled.
	mock.ExpectClose()

	lease, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := lease.Release(context.Background()); !alerr.Is(err, alerr.ErrLockRelease) {
		t.Errorf("expected ErrLockRelease, got %v", err)
	}
}
