// Package dialect renders schema operations as PostgreSQL DDL.
package dialect

import (
	"fmt"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/ast"
)

// Dialect renders operations for one database.
type Dialect interface {
	// Name returns the dialect name.
	Name() string

	// QuoteIdent quotes an identifier.
	QuoteIdent(name string) string

	// QuoteLiteral quotes a string literal.
	QuoteLiteral(value string) string

	CreateTableSQL(op *ast.CreateTable) (string, error)
	DropTableSQL(op *ast.DropTable) (string, error)
	RenameTableSQL(op *ast.RenameTable) (string, error)
	AddColumnSQL(op *ast.AddColumn) (string, error)
	DropColumnSQL(op *ast.DropColumn) (string, error)
	RenameColumnSQL(op *ast.RenameColumn) (string, error)

	// AlterColumnSQL may return several statements, one per clause.
	AlterColumnSQL(op *ast.AlterColumn) ([]string, error)

	AddUniqueSQL(op *ast.AddUnique) (string, error)
	AddCheckSQL(op *ast.AddCheck) (string, error)
	DropConstraintSQL(op *ast.DropConstraint) (string, error)
	AddForeignKeySQL(op *ast.AddForeignKey) (string, error)
	DropForeignKeySQL(op *ast.DropForeignKey) (string, error)
}

// Render validates op and returns its statements in execution order.
func Render(d Dialect, op ast.Operation) ([]string, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	var (
		stmt string
		err  error
	)
	switch o := op.(type) {
	case *ast.CreateTable:
		stmt, err = d.CreateTableSQL(o)
	case *ast.DropTable:
		stmt, err = d.DropTableSQL(o)
	case *ast.RenameTable:
		stmt, err = d.RenameTableSQL(o)
	case *ast.AddColumn:
		stmt, err = d.AddColumnSQL(o)
	case *ast.DropColumn:
		stmt, err = d.DropColumnSQL(o)
	case *ast.RenameColumn:
		stmt, err = d.RenameColumnSQL(o)
	case *ast.AlterColumn:
		return d.AlterColumnSQL(o)
	case *ast.AddUnique:
		stmt, err = d.AddUniqueSQL(o)
	case *ast.AddCheck:
		stmt, err = d.AddCheckSQL(o)
	case *ast.DropConstraint:
		stmt, err = d.DropConstraintSQL(o)
	case *ast.AddForeignKey:
		stmt, err = d.AddForeignKeySQL(o)
	case *ast.DropForeignKey:
		stmt, err = d.DropForeignKeySQL(o)
	default:
		return nil, alerr.New(alerr.ErrDDLGeneration, fmt.Sprintf("unsupported operation %T", op))
	}
	if err != nil {
		return nil, err
	}
	return []string{stmt}, nil
}

// RenderAll renders every operation in order.
func RenderAll(d Dialect, ops []ast.Operation) ([]string, error) {
	var out []string
	for _, op := range ops {
		stmts, err := Render(d, op)
		if err != nil {
			return nil, alerr.Wrap(alerr.ErrDDLGeneration, err, "failed to render operation").
				With("operation", op.Type().String()).
				WithTable(op.Table())
		}
		out = append(out, stmts...)
	}
	return out, nil
}
