// Package runner is the only place schema changes reach the database. It
// takes the migration advisory lock and applies a rendered plan in a single
// transaction together with the history records.
package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/history"
)

// Default transaction timeouts.
const (
	DefaultStatementTimeout = 30 * time.Second
	DefaultLockTimeout      = 10 * time.Second
)

// Config tunes a Runner. Zero timeouts disable the corresponding SET LOCAL.
type Config struct {
	StatementTimeout time.Duration
	LockTimeout      time.Duration
	Logger           *slog.Logger
	Now              func() time.Time
}

// DefaultConfig returns the default timeouts with the default logger.
func DefaultConfig() Config {
	return Config{
		StatementTimeout: DefaultStatementTimeout,
		LockTimeout:      DefaultLockTimeout,
	}
}

// Runner executes statements transactionally.
type Runner struct {
	store  *history.Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Runner that records runs in store.
func New(store *history.Store, cfg Config) *Runner {
	r := &Runner{store: store, cfg: cfg, logger: cfg.Logger, now: cfg.Now}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Request describes one run.
type Request struct {
	Statements       []string
	Checksum         string
	PreviousChecksum string
	Tables           []*ast.TableDef
}

// Outcome reports a committed run.
type Outcome struct {
	RunID      string
	RecordID   int64
	Outcome    string
	Statements int
	Duration   time.Duration
}

// Execute applies req on conn, normally the connection holding the
// migration lock. Caller cancellation is ignored once Execute starts: a
// half-sent DDL transaction is never abandoned. Nothing is retried.
func (r *Runner) Execute(ctx context.Context, conn history.Beginner, req Request) (*Outcome, error) {
	ctx = context.WithoutCancel(ctx)
	runID := uuid.NewString()
	start := r.now()
	log := r.logger.With("run_id", runID)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrSQLTransaction, err, "failed to begin migration transaction").
			With("run_id", runID)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Warn("rollback failed", "error", err)
		}
	}()

	for _, stmt := range r.timeoutStatements() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, execErr(err, "failed to set transaction timeout", stmt, runID)
		}
	}

	if len(req.Statements) > 0 {
		log.Info("applying schema changes", "statements", len(req.Statements), "checksum", req.Checksum)
	}
	for i, stmt := range req.Statements {
		log.Debug("executing statement", "index", i, "sql", stmt)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, execErr(err, "schema statement failed", stmt, runID).
				With("statement_index", i).
				With("statements_total", len(req.Statements)).
				WithNote("the transaction was rolled back; no statement of this run was applied")
		}
	}

	outcome := ast.OutcomeApplied
	if len(req.Statements) == 0 {
		outcome = ast.OutcomeNoop
	}
	applied := start.UTC()
	duration := r.now().Sub(start)

	id, err := r.store.SaveTx(ctx, tx, history.SaveRequest{
		Checksum: req.Checksum,
		Tables:   req.Tables,
		Record: ast.MigrationRecord{
			AppliedAt:        applied,
			Checksum:         req.Checksum,
			PreviousChecksum: req.PreviousChecksum,
			Outcome:          outcome,
			Statements:       req.Statements,
			RunID:            runID,
			Duration:         duration,
		},
	})
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrDDLExecution, err, "failed to persist schema history").
			With("run_id", runID).
			WithNote("the transaction was rolled back")
	}

	if err := tx.Commit(); err != nil {
		return nil, alerr.Wrap(alerr.ErrSQLTransaction, err, "failed to commit migration transaction").
			With("run_id", runID).
			With("sqlstate", history.SQLState(err))
	}
	committed = true

	duration = r.now().Sub(start)
	log.Info("schema migration applied", "outcome", outcome, "statements", len(req.Statements), "duration", duration)

	return &Outcome{
		RunID:      runID,
		RecordID:   id,
		Outcome:    outcome,
		Statements: len(req.Statements),
		Duration:   duration,
	}, nil
}

// timeoutStatements returns the SET LOCAL statements for the configured
// timeouts, in milliseconds.
func (r *Runner) timeoutStatements() []string {
	var stmts []string
	if r.cfg.StatementTimeout > 0 {
		stmts = append(stmts, fmt.Sprintf("SET LOCAL statement_timeout = %d", r.cfg.StatementTimeout.Milliseconds()))
	}
	if r.cfg.LockTimeout > 0 {
		stmts = append(stmts, fmt.Sprintf("SET LOCAL lock_timeout = %d", r.cfg.LockTimeout.Milliseconds()))
	}
	return stmts
}

func execErr(err error, msg, stmt, runID string) *alerr.Error {
	e := alerr.Wrap(alerr.ErrDDLExecution, err, msg).
		WithSQL(stmt).
		With("run_id", runID)
	if code := history.SQLState(err); code != "" {
		e = e.With("sqlstate", code)
	}
	return e
}
