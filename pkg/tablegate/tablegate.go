// Package tablegate reconciles a live PostgreSQL schema with a declared set
// of tables at process start. Tables and fields carry stable ids, so a name
// change becomes a rename and no data is lost. Nothing runs when the
// definitions are unchanged since the last successful run.
package tablegate

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/checksum"
	"github.com/hlop3z/tablegate/internal/dialect"
	"github.com/hlop3z/tablegate/internal/engine"
	"github.com/hlop3z/tablegate/internal/history"
	"github.com/hlop3z/tablegate/internal/metrics"
	"github.com/hlop3z/tablegate/internal/runner"
)

// releaseTimeout bounds the advisory unlock after a run.
const releaseTimeout = 5 * time.Second

// Engine is the main entry point. It is safe to reuse across calls but is
// meant to gate a single startup.
//
// Example:
//
//	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	eng, err := tablegate.New(db, tablegate.WithLockWait(time.Minute))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := eng.Migrate(ctx, tables)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Engine struct {
	db      *sql.DB
	config  *Config
	logger  *slog.Logger
	dialect dialect.Dialect
	store   *history.Store
	lock    *runner.AdvisoryLock
	runner  *runner.Runner
	metrics *metrics.Collector
}

// New creates an Engine on db with the given options.
func New(db *sql.DB, opts ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	lock := runner.NewAdvisoryLock(db, cfg.LockName, cfg.LockWait, cfg.Logger)
	store := history.New(db, lock.BootstrapKey())

	return &Engine{
		db:      db,
		config:  cfg,
		logger:  cfg.Logger,
		dialect: dialect.Postgres(),
		store:   store,
		lock:    lock,
		runner: runner.New(store, runner.Config{
			StatementTimeout: cfg.StatementTimeout,
			LockTimeout:      cfg.LockTimeout,
			Logger:           cfg.Logger,
			Now:              cfg.Now,
		}),
		metrics: metrics.New(cfg.Registerer),
	}, nil
}

// Result describes what Migrate or Plan did.
type Result struct {
	// Skipped is true when the definitions match the last applied checksum.
	Skipped bool

	// Checksum of the definitions passed in.
	Checksum string

	// PreviousChecksum is the checksum of the last successful run, if any.
	PreviousChecksum string

	// FirstRun is true when nothing had been applied before.
	FirstRun bool

	// Statements are the DDL statements, in execution order.
	Statements []string

	// Renames lists the tables and fields recognized as renamed.
	Renames []RenameEvent

	// Warnings lists changes left unapplied, such as removed tables.
	Warnings []string

	// Summary counts operations by type, for example "1 AddColumn, 1 RenameColumn".
	Summary string

	// RunID identifies the history record of an executed run.
	RunID string

	// Outcome is "applied" or "noop" for executed runs.
	Outcome string

	// Duration of the executed transaction.
	Duration time.Duration
}

// Migrate brings the database in line with tables. It validates the
// definitions, skips when their checksum matches the last run and otherwise
// applies the generated DDL in one transaction under a cross-process
// advisory lock. Any error means the schema was left as it was.
func (e *Engine) Migrate(ctx context.Context, tables []*Table) (res *Result, err error) {
	start := e.config.Now()
	defer func() {
		switch {
		case err != nil:
			e.metrics.ObserveRun(metrics.OutcomeFailed, e.config.Now().Sub(start), 0)
		case res.Skipped:
			e.metrics.ObserveRun(metrics.OutcomeSkipped, e.config.Now().Sub(start), 0)
		default:
			e.metrics.ObserveRun(res.Outcome, res.Duration, len(res.Statements))
		}
	}()

	if err := engine.Validate(tables); err != nil {
		return nil, err
	}
	sum, err := checksum.Compute(tables)
	if err != nil {
		return nil, err
	}

	if err := e.store.Bootstrap(ctx); err != nil {
		return nil, err
	}
	decision, err := e.check(ctx, e.store, sum)
	if err != nil {
		return nil, err
	}
	if decision.Skip {
		e.logger.Info("checksum unchanged, skipping", "checksum", sum)
		return &Result{Skipped: true, Checksum: sum, PreviousChecksum: decision.PreviousChecksum}, nil
	}

	lease, err := e.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer e.release(ctx, lease)

	// Another process may have applied the same definitions while we waited.
	locked := e.store.On(lease.Conn())
	decision, err = e.check(ctx, locked, sum)
	if err != nil {
		return nil, err
	}
	if decision.Skip {
		e.logger.Info("checksum unchanged, skipping", "checksum", sum)
		return &Result{Skipped: true, Checksum: sum, PreviousChecksum: decision.PreviousChecksum}, nil
	}

	previous, err := locked.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	res, p, err := e.plan(previous, tables, sum, decision)
	if err != nil {
		return nil, err
	}

	out, err := e.runner.Execute(ctx, lease.Conn(), runner.Request{
		Statements:       res.Statements,
		Checksum:         sum,
		PreviousChecksum: decision.PreviousChecksum,
		Tables:           p.Snapshot(tables),
	})
	if err != nil {
		return nil, err
	}

	res.RunID = out.RunID
	res.Outcome = out.Outcome
	res.Duration = out.Duration
	return res, nil
}

// Plan returns what Migrate would execute, without taking the lock or
// changing the database. History tables are not created.
func (e *Engine) Plan(ctx context.Context, tables []*Table) (*Result, error) {
	if err := engine.Validate(tables); err != nil {
		return nil, err
	}
	sum, err := checksum.Compute(tables)
	if err != nil {
		return nil, err
	}

	decision, err := e.check(ctx, e.store, sum)
	if err != nil {
		return nil, err
	}
	if decision.Skip {
		return &Result{Skipped: true, Checksum: sum, PreviousChecksum: decision.PreviousChecksum}, nil
	}

	previous, err := e.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	res, _, err := e.plan(previous, tables, sum, decision)
	return res, err
}

// check runs the Checksum Tracker against store. An unchanged checksum still
// migrates when dropping removed tables is enabled and the snapshot holds
// retired tables, so turning the option on takes effect without a
// definition change.
func (e *Engine) check(ctx context.Context, store *history.Store, sum string) (checksum.Decision, error) {
	decision, err := checksum.NewTracker(store).Check(ctx, sum)
	if err != nil || !decision.Skip || !e.config.DropRemovedTables {
		return decision, err
	}

	snapshot, err := store.LoadSnapshot(ctx)
	if err != nil {
		return decision, err
	}
	if ast.HasRetired(snapshot) {
		e.logger.Info("checksum unchanged, dropping retired tables")
		decision.Skip = false
	}
	return decision, nil
}

func (e *Engine) plan(previous, tables []*Table, sum string, decision checksum.Decision) (*Result, *engine.Plan, error) {
	p, err := engine.Generate(previous, tables, engine.GenerateOptions{
		DropRemovedTables: e.config.DropRemovedTables,
	})
	if err != nil {
		return nil, nil, err
	}
	stmts, err := p.Statements(e.dialect)
	if err != nil {
		return nil, nil, err
	}

	for _, w := range p.Warnings {
		e.logger.Warn("definition change left unapplied", "detail", w)
	}
	for _, r := range p.Renames {
		e.logger.Info("rename detected", "scope", r.Scope.String(), "from", r.OldName, "to", r.NewName)
	}

	return &Result{
		Checksum:         sum,
		PreviousChecksum: decision.PreviousChecksum,
		FirstRun:         p.FirstRun,
		Statements:       stmts,
		Renames:          p.Renames,
		Warnings:         p.Warnings,
		Summary:          p.Summary().String(),
	}, p, nil
}

// release unlocks lease. Failures are only logged.
func (e *Engine) release(ctx context.Context, lease *runner.Lease) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := lease.Release(ctx); err != nil {
		e.logger.Warn("failed to release migration lock", "error", err)
	}
}
