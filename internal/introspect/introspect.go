// Package introspect reads the live PostgreSQL catalog for the tables
// tablegate manages. It reports columns and named constraints in the shape
// the drift detector compares against the recorded definitions.
package introspect

import (
	"context"
	"database/sql"
	"slices"
)

// ConstraintType mirrors pg_constraint.contype.
type ConstraintType string

const (
	ConstraintPrimaryKey ConstraintType = "p"
	ConstraintUnique     ConstraintType = "u"
	ConstraintCheck      ConstraintType = "c"
	ConstraintForeignKey ConstraintType = "f"
)

func (c ConstraintType) String() string {
	switch c {
	case ConstraintPrimaryKey:
		return "primary key"
	case ConstraintUnique:
		return "unique"
	case ConstraintCheck:
		return "check"
	case ConstraintForeignKey:
		return "foreign key"
	}
	return string(c)
}

// Column is one column as seen in the catalog.
type Column struct {
	Name       string
	Type       string // canonical, see CanonicalType
	NotNull    bool
	PrimaryKey bool
}

// Constraint is a named table constraint on a single column.
type Constraint struct {
	Name   string
	Type   ConstraintType
	Column string
}

// Table is a table with its columns in ordinal order.
type Table struct {
	Name        string
	Columns     []*Column
	Constraints []*Constraint
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Constraint returns the constraint with the given name, or nil.
func (t *Table) Constraint(name string) *Constraint {
	for _, c := range t.Constraints {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Queryer is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Reader queries the catalog of the connection's current schema.
type Reader struct {
	db Queryer
}

// New returns a Reader on db.
func New(db Queryer) *Reader {
	return &Reader{db: db}
}

// sortedNames returns the distinct names in ascending order.
func sortedNames(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return slices.Compact(out)
}
