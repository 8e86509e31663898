package engine

import (
	"fmt"
	"strings"

	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/dialect"
)

// Plan is the ordered result of Generate.
type Plan struct {
	// FirstRun is true when no previous definitions existed.
	FirstRun bool

	// Operations in execution order.
	Operations []ast.Operation

	// Renames lists every table and field rename, including virtual fields
	// that produce no statement.
	Renames []RenameEvent

	// DroppedTables lists tables dropped because they left the definition set.
	DroppedTables []string

	// Retired holds tables that left the definition set but still exist.
	// They belong in the next snapshot so a later run can drop them, or
	// adopt them again when their id returns.
	Retired []*ast.TableDef

	// Warnings describes changes that were deliberately not applied.
	Warnings []string
}

// Snapshot returns what the history store should record once the plan is
// applied: current followed by the retired tables.
func (p *Plan) Snapshot(current []*ast.TableDef) []*ast.TableDef {
	out := make([]*ast.TableDef, 0, len(current)+len(p.Retired))
	out = append(out, current...)
	return append(out, p.Retired...)
}

// Empty reports whether the plan has no operations.
func (p *Plan) Empty() bool {
	return len(p.Operations) == 0
}

// Statements renders the plan for d.
func (p *Plan) Statements(d dialect.Dialect) ([]string, error) {
	return dialect.RenderAll(d, p.Operations)
}

// Summary counts operations by type.
type Summary map[ast.OpType]int

// Summary returns the operation counts of the plan.
func (p *Plan) Summary() Summary {
	s := make(Summary)
	for _, op := range p.Operations {
		s[op.Type()]++
	}
	return s
}

// String renders the summary as "1 CreateTable, 2 AddColumn" in OpType order.
func (s Summary) String() string {
	if len(s) == 0 {
		return "no changes"
	}
	var parts []string
	for t := ast.OpCreateTable; t <= ast.OpDropForeignKey; t++ {
		if n := s[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, t))
		}
	}
	return strings.Join(parts, ", ")
}
