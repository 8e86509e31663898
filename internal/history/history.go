// Package history persists what the engine has applied: the checksum of the
// last definition set, a snapshot of those definitions, and one record per
// run that changed the checksum.
//
// Tables:
//
//	_schema_checksum (id TEXT PRIMARY KEY DEFAULT 'singleton', checksum TEXT NOT NULL, last_generated_at TIMESTAMPTZ)
//	_schema_snapshot (id TEXT PRIMARY KEY DEFAULT 'singleton', checksum TEXT NOT NULL, definitions JSONB NOT NULL, saved_at TIMESTAMPTZ)
//	_migrations      (id SERIAL PRIMARY KEY, applied_at TIMESTAMPTZ, checksum TEXT, outcome TEXT, detail TEXT)
package history

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/ast"
)

const (
	ChecksumTable   = "_schema_checksum"
	SnapshotTable   = "_schema_snapshot"
	MigrationsTable = "_migrations"
)

// bootstrapSQL creates the history tables. Every statement is idempotent.
var bootstrapSQL = []string{
	`CREATE TABLE IF NOT EXISTS "_schema_checksum" (
  "id" TEXT PRIMARY KEY DEFAULT 'singleton',
  "checksum" TEXT NOT NULL,
  "last_generated_at" TIMESTAMPTZ
)`,
	`CREATE TABLE IF NOT EXISTS "_schema_snapshot" (
  "id" TEXT PRIMARY KEY DEFAULT 'singleton',
  "checksum" TEXT NOT NULL,
  "definitions" JSONB NOT NULL,
  "saved_at" TIMESTAMPTZ
)`,
	`CREATE TABLE IF NOT EXISTS "_migrations" (
  "id" SERIAL PRIMARY KEY,
  "applied_at" TIMESTAMPTZ,
  "checksum" TEXT,
  "outcome" TEXT,
  "detail" TEXT
)`,
}

const (
	loadChecksumSQL = `SELECT "checksum", "last_generated_at" FROM "_schema_checksum" WHERE "id" = 'singleton'`
	loadSnapshotSQL = `SELECT "definitions" FROM "_schema_snapshot" WHERE "id" = 'singleton'`
	historySQL      = `SELECT "id", "applied_at", "checksum", "outcome", "detail" FROM "_migrations" ORDER BY "id" DESC LIMIT $1`

	saveChecksumSQL = `INSERT INTO "_schema_checksum" ("id", "checksum", "last_generated_at")
VALUES ('singleton', $1, $2)
ON CONFLICT ("id") DO UPDATE SET "checksum" = EXCLUDED."checksum", "last_generated_at" = EXCLUDED."last_generated_at"`

	saveSnapshotSQL = `INSERT INTO "_schema_snapshot" ("id", "checksum", "definitions", "saved_at")
VALUES ('singleton', $1, $2, $3)
ON CONFLICT ("id") DO UPDATE SET "checksum" = EXCLUDED."checksum", "definitions" = EXCLUDED."definitions", "saved_at" = EXCLUDED."saved_at"`

	insertRecordSQL = `INSERT INTO "_migrations" ("applied_at", "checksum", "outcome", "detail") VALUES ($1, $2, $3, $4) RETURNING "id"`
)

// Querier is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Beginner is a Querier that can start transactions: *sql.DB or *sql.Conn.
type Beginner interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Store reads and writes the history tables.
type Store struct {
	db           Beginner
	bootstrapKey int64
}

// New returns a Store on db. bootstrapKey is the advisory lock key that
// serialises concurrent Bootstrap calls.
func New(db Beginner, bootstrapKey int64) *Store {
	return &Store{db: db, bootstrapKey: bootstrapKey}
}

// On returns a Store bound to another connection, typically the one holding
// the migration lock.
func (s *Store) On(db Beginner) *Store {
	return &Store{db: db, bootstrapKey: s.bootstrapKey}
}

// Bootstrap creates the history tables. It runs in its own transaction under
// a transaction-scoped advisory lock so concurrent first starts do not race
// on CREATE TABLE IF NOT EXISTS.
func (s *Store) Bootstrap(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return alerr.Wrap(alerr.ErrSQLTransaction, err, "failed to begin bootstrap transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", s.bootstrapKey); err != nil {
		return alerr.Wrap(alerr.ErrLockAcquisition, err, "failed to acquire bootstrap lock").
			With("key", s.bootstrapKey)
	}
	for _, stmt := range bootstrapSQL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return alerr.Wrap(alerr.ErrDDLExecution, err, "failed to create history table").
				WithSQL(stmt).
				With("sqlstate", SQLState(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return alerr.Wrap(alerr.ErrSQLTransaction, err, "failed to commit bootstrap transaction")
	}
	return nil
}

// Load returns the stored checksum, or nil when none was ever saved.
func (s *Store) Load(ctx context.Context) (*ast.SchemaChecksum, error) {
	var (
		sum ast.SchemaChecksum
		at  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, loadChecksumSQL).Scan(&sum.Checksum, &at)
	switch {
	case errors.Is(err, sql.ErrNoRows), IsUndefinedTable(err):
		return nil, nil
	case err != nil:
		return nil, alerr.Wrap(alerr.ErrHistoryRead, err, "failed to read schema checksum").
			WithSQL(loadChecksumSQL)
	}
	if at.Valid {
		sum.LastGeneratedAt = at.Time
	}
	return &sum, nil
}

// LoadSnapshot returns the definitions saved by the last run, or nil when
// nothing was applied yet.
func (s *Store) LoadSnapshot(ctx context.Context) ([]*ast.TableDef, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, loadSnapshotSQL).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows), IsUndefinedTable(err):
		return nil, nil
	case err != nil:
		return nil, alerr.Wrap(alerr.ErrHistoryRead, err, "failed to read schema snapshot").
			WithSQL(loadSnapshotSQL)
	}

	tables, err := DecodeSnapshot(raw)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrHistoryRead, err, "stored schema snapshot is not valid JSON")
	}
	return tables, nil
}

// SaveRequest is everything written at the end of a successful run.
type SaveRequest struct {
	Checksum string
	Tables   []*ast.TableDef
	Record   ast.MigrationRecord
}

// SaveTx writes the checksum, the snapshot and the run record inside tx.
// Any failure is a ChecksumPersistenceError; the caller rolls back.
func (s *Store) SaveTx(ctx context.Context, tx Querier, req SaveRequest) (int64, error) {
	now := req.Record.AppliedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	snapshot, err := EncodeSnapshot(req.Tables)
	if err != nil {
		return 0, alerr.Wrap(alerr.ErrChecksumPersistence, err, "failed to encode schema snapshot")
	}
	detail, err := encodeDetail(req.Record)
	if err != nil {
		return 0, alerr.Wrap(alerr.ErrChecksumPersistence, err, "failed to encode migration record")
	}

	if _, err := tx.ExecContext(ctx, saveChecksumSQL, req.Checksum, now); err != nil {
		return 0, persistErr(err, "failed to save schema checksum", saveChecksumSQL)
	}
	if _, err := tx.ExecContext(ctx, saveSnapshotSQL, req.Checksum, string(snapshot), now); err != nil {
		return 0, persistErr(err, "failed to save schema snapshot", saveSnapshotSQL)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, insertRecordSQL, now, req.Checksum, req.Record.Outcome, detail).Scan(&id); err != nil {
		return 0, persistErr(err, "failed to record migration", insertRecordSQL)
	}
	return id, nil
}

func persistErr(err error, msg, query string) error {
	return alerr.Wrap(alerr.ErrChecksumPersistence, err, msg).
		WithSQL(query).
		With("sqlstate", SQLState(err))
}

// History returns up to limit run records, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]ast.MigrationRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, historySQL, limit)
	if IsUndefinedTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrHistoryRead, err, "failed to query migration history").
			WithSQL(historySQL)
	}
	defer rows.Close()

	var records []ast.MigrationRecord
	for rows.Next() {
		var (
			rec      ast.MigrationRecord
			at       sql.NullTime
			checksum sql.NullString
			outcome  sql.NullString
			detail   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &at, &checksum, &outcome, &detail); err != nil {
			return nil, alerr.Wrap(alerr.ErrHistoryRead, err, "failed to scan migration row")
		}
		rec.AppliedAt = at.Time
		rec.Checksum = checksum.String
		rec.Outcome = outcome.String
		if detail.Valid {
			if err := decodeDetail(detail.String, &rec); err != nil {
				return nil, alerr.Wrap(alerr.ErrHistoryRead, err, "migration detail is not valid JSON").
					With("id", rec.ID)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, alerr.Wrap(alerr.ErrHistoryRead, err, "error iterating migration rows")
	}
	return records, nil
}

// -----------------------------------------------------------------------------
// Encoding
// -----------------------------------------------------------------------------

// EncodeSnapshot serialises tables ordered by id.
func EncodeSnapshot(tables []*ast.TableDef) ([]byte, error) {
	sorted := ast.SortTables(tables)
	if sorted == nil {
		sorted = []*ast.TableDef{}
	}
	return json.Marshal(sorted)
}

// DecodeSnapshot parses a snapshot. Numbers in defaults stay json.Number so
// they re-render exactly as they were declared.
func DecodeSnapshot(data []byte) ([]*ast.TableDef, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tables := []*ast.TableDef{}
	if err := dec.Decode(&tables); err != nil {
		return nil, err
	}
	return tables, nil
}

type detail struct {
	RunID            string   `json:"run_id"`
	PreviousChecksum string   `json:"previous_checksum,omitempty"`
	Statements       []string `json:"statements"`
	DurationMs       int64    `json:"duration_ms"`
}

func encodeDetail(rec ast.MigrationRecord) (string, error) {
	stmts := rec.Statements
	if stmts == nil {
		stmts = []string{}
	}
	data, err := json.Marshal(detail{
		RunID:            rec.RunID,
		PreviousChecksum: rec.PreviousChecksum,
		Statements:       stmts,
		DurationMs:       rec.Duration.Milliseconds(),
	})
	return string(data), err
}

func decodeDetail(s string, rec *ast.MigrationRecord) error {
	var d detail
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return err
	}
	rec.RunID = d.RunID
	rec.PreviousChecksum = d.PreviousChecksum
	rec.Statements = d.Statements
	rec.StatementsApplied = len(d.Statements)
	rec.Duration = time.Duration(d.DurationMs) * time.Millisecond
	return nil
}
