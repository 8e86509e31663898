package runner

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/hlop3z/tablegate/internal/alerr"
)

const (
	// DefaultLockName is hashed into the advisory lock key.
	DefaultLockName = "schema"

	lockNamespace    = "tablegate:"
	lockPollInterval = 250 * time.Millisecond
)

// LockKey maps a lock name to a PostgreSQL advisory lock key. The result is
// non-negative and below math.MaxInt64, so LockKey(name)+1 is also valid.
func LockKey(name string) int64 {
	if name == "" {
		name = DefaultLockName
	}
	return int64(murmur3.Sum64([]byte(lockNamespace+name)) >> 2)
}

// AdvisoryLock is a session-level pg_advisory_lock held on a dedicated
// connection, so every statement of a migration runs on the session that
// owns the lock.
type AdvisoryLock struct {
	db       *sql.DB
	key      int64
	wait     time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewAdvisoryLock returns a lock named name. A wait of zero blocks until the
// lock is free; a positive wait gives up with LockAcquisitionFailure.
func NewAdvisoryLock(db *sql.DB, name string, wait time.Duration, logger *slog.Logger) *AdvisoryLock {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdvisoryLock{db: db, key: LockKey(name), wait: wait, interval: lockPollInterval, logger: logger}
}

// Key returns the migration lock key.
func (l *AdvisoryLock) Key() int64 { return l.key }

// BootstrapKey returns the key of the transaction-scoped lock that guards
// history table creation.
func (l *AdvisoryLock) BootstrapKey() int64 { return l.key + 1 }

// Acquire takes the lock and returns the lease holding it.
func (l *AdvisoryLock) Acquire(ctx context.Context) (*Lease, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrSQLConnection, err, "failed to open lock connection")
	}

	ok, err := tryLock(ctx, conn, l.key)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if !ok {
		l.logger.Info("waiting for migration lock", "key", l.key, "wait", l.wait)
		if l.wait > 0 {
			err = l.pollLock(ctx, conn)
		} else {
			err = l.block(ctx, conn)
		}
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	l.logger.Info("migration lock acquired", "key", l.key)
	return &Lease{conn: conn, key: l.key, logger: l.logger}, nil
}

func (l *AdvisoryLock) block(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", l.key); err != nil {
		return alerr.Wrap(alerr.ErrLockAcquisition, err, "failed to acquire migration lock").
			With("key", l.key)
	}
	return nil
}

func (l *AdvisoryLock) pollLock(ctx context.Context, conn *sql.Conn) error {
	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return alerr.Wrap(alerr.ErrLockAcquisition, ctx.Err(), "migration lock wait cancelled").
				With("key", l.key)
		case <-deadline.C:
			return alerr.New(alerr.ErrLockAcquisition, "timed out waiting for migration lock").
				With("key", l.key).
				With("wait", l.wait.String()).
				WithHelp("another instance is migrating; raise lock_wait or retry later")
		case <-ticker.C:
			ok, err := tryLock(ctx, conn, l.key)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
	}
}

func tryLock(ctx context.Context, conn *sql.Conn, key int64) (bool, error) {
	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		return false, alerr.Wrap(alerr.ErrLockAcquisition, err, "failed to try migration lock").
			With("key", key)
	}
	return ok, nil
}

// Lease is a held advisory lock.
type Lease struct {
	conn     *sql.Conn
	key      int64
	logger   *slog.Logger
	released bool
}

// Conn returns the connection that owns the lock.
func (l *Lease) Conn() *sql.Conn { return l.conn }

// Release unlocks and returns the connection to the pool. If the unlock
// fails the connection is closed instead. Calling it more than once is a
// no-op.
func (l *Lease) Release(ctx context.Context) error {
	if l.released {
		return nil
	}
	l.released = true
	defer func() { _ = l.conn.Close() }()

	var ok bool
	if err := l.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", l.key).Scan(&ok); err != nil {
		l.discard()
		return alerr.Wrap(alerr.ErrLockRelease, err, "failed to release migration lock").
			With("key", l.key).
			WithNote("the lock connection was closed, which ends its session and the lock")
	}
	if !ok {
		return alerr.New(alerr.ErrLockRelease, "migration lock was not held").
			With("key", l.key)
	}
	return nil
}

// discard closes the underlying session instead of returning it to the pool,
// where it would keep holding the lock.
func (l *Lease) discard() {
	if err := l.conn.Raw(func(any) error { return driver.ErrBadConn }); err != nil && !errors.Is(err, driver.ErrBadConn) {
		l.logger.Warn("failed to discard lock connection", "error", err)
	}
}
