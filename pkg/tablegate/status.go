package tablegate

import (
	"context"
	"time"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/drift"
)

// DefaultHistoryLimit is the number of history records Status returns.
const DefaultHistoryLimit = 20

// Status is the state recorded by previous runs.
type Status struct {
	// Checksum of the last applied definitions. Empty before the first run.
	Checksum string

	// LastGeneratedAt is when Checksum was saved.
	LastGeneratedAt time.Time

	// Tables is the number of tables in the last applied definitions.
	// Retired tables kept in the database are not counted.
	Tables int

	// History holds the most recent runs, newest first.
	History []MigrationRecord
}

// Applied reports whether any run has completed.
func (s *Status) Applied() bool {
	return s.Checksum != ""
}

// Status reads the history tables. It works before the first run and never
// creates anything.
func (e *Engine) Status(ctx context.Context, limit int) (*Status, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	st := &Status{}
	sum, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sum != nil {
		st.Checksum = sum.Checksum
		st.LastGeneratedAt = sum.LastGeneratedAt
	}

	snapshot, err := e.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range snapshot {
		if !t.Retired {
			st.Tables++
		}
	}

	st.History, err = e.store.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// VerifyReport is the outcome of Verify.
type VerifyReport = drift.Result

// Verify compares the last applied definitions with the live catalog and
// reports tables, columns and constraints changed outside tablegate.
func (e *Engine) Verify(ctx context.Context) (*VerifyReport, error) {
	snapshot, err := e.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, alerr.New(alerr.ErrHistoryRead, "no schema snapshot recorded").
			WithHelp("run migrate once before verifying")
	}

	report, err := drift.NewDetector(e.db).Detect(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	if report.HasDrift {
		e.logger.Warn("schema drift detected",
			"missing_tables", len(report.Comparison.MissingTables),
			"modified_tables", len(report.Comparison.TableDiffs))
	}
	return report, nil
}
