package dialect

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hlop3z/tablegate/internal/ast"
)

type postgres struct{}

// Postgres returns the PostgreSQL dialect.
func Postgres() Dialect {
	return &postgres{}
}

func (d *postgres) Name() string {
	return "postgres"
}

// -----------------------------------------------------------------------------
// Identifiers and literals
// -----------------------------------------------------------------------------

func (d *postgres) QuoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d *postgres) QuoteLiteral(value string) string {
	return pq.QuoteLiteral(value)
}

// -----------------------------------------------------------------------------
// Tables
// -----------------------------------------------------------------------------

func (d *postgres) CreateTableSQL(op *ast.CreateTable) (string, error) {
	var b strings.Builder

	b.WriteString("CREATE TABLE ")
	if op.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(d.QuoteIdent(op.Name))
	b.WriteString(" (\n")

	for i, col := range op.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(buildColumnDefSQL(col, d.QuoteIdent, d.QuoteLiteral))
	}

	b.WriteString("\n)")
	return b.String(), nil
}

func (d *postgres) DropTableSQL(op *ast.DropTable) (string, error) {
	var b strings.Builder
	b.WriteString("DROP TABLE ")
	if op.IfExists {
		b.WriteString("IF EXISTS ")
	}
	b.WriteString(d.QuoteIdent(op.Name))
	if op.Cascade {
		b.WriteString(" CASCADE")
	}
	return b.String(), nil
}

func (d *postgres) RenameTableSQL(op *ast.RenameTable) (string, error) {
	return alterTablePrefix(op.OldName, d.QuoteIdent) + "RENAME TO " + d.QuoteIdent(op.NewName), nil
}

// -----------------------------------------------------------------------------
// Columns
// -----------------------------------------------------------------------------

func (d *postgres) AddColumnSQL(op *ast.AddColumn) (string, error) {
	return alterTablePrefix(op.Table_, d.QuoteIdent) + "ADD COLUMN " +
		buildColumnDefSQL(op.Column, d.QuoteIdent, d.QuoteLiteral), nil
}

func (d *postgres) DropColumnSQL(op *ast.DropColumn) (string, error) {
	return alterTablePrefix(op.Table_, d.QuoteIdent) + "DROP COLUMN " + d.QuoteIdent(op.Name), nil
}

func (d *postgres) RenameColumnSQL(op *ast.RenameColumn) (string, error) {
	return alterTablePrefix(op.Table_, d.QuoteIdent) + "RENAME COLUMN " +
		d.QuoteIdent(op.OldName) + " TO " + d.QuoteIdent(op.NewName), nil
}

func (d *postgres) AlterColumnSQL(op *ast.AlterColumn) ([]string, error) {
	var statements []string
	prefix := alterTablePrefix(op.Table_, d.QuoteIdent) + "ALTER COLUMN " + d.QuoteIdent(op.Name) + " "

	if op.NewType != "" {
		if op.DropDefault {
			statements = append(statements, prefix+"DROP DEFAULT")
		}
		statements = append(statements, fmt.Sprintf("%sTYPE %s USING %s", prefix, op.NewType, d.usingSQL(op)))
	}

	if op.SetNotNull != nil {
		if *op.SetNotNull {
			statements = append(statements, prefix+"SET NOT NULL")
		} else {
			statements = append(statements, prefix+"DROP NOT NULL")
		}
	}

	switch {
	case op.SetDefault != "":
		statements = append(statements, prefix+"SET DEFAULT "+op.SetDefault)
	case op.DropDefault && op.NewType == "":
		statements = append(statements, prefix+"DROP DEFAULT")
	}

	return statements, nil
}

func (d *postgres) usingSQL(op *ast.AlterColumn) string {
	col := d.QuoteIdent(op.Name)
	switch op.Conversion {
	case ast.ConvertToArray:
		return "CASE WHEN " + col + " IS NULL THEN NULL ELSE ARRAY[" + col + "] END"
	case ast.ConvertFromArray:
		return "array_to_string(" + col + ", ',')"
	}
	return col + "::" + op.NewType
}

// -----------------------------------------------------------------------------
// Constraints
// -----------------------------------------------------------------------------

func (d *postgres) AddUniqueSQL(op *ast.AddUnique) (string, error) {
	return alterTablePrefix(op.Table_, d.QuoteIdent) + "ADD CONSTRAINT " + d.QuoteIdent(op.Name) +
		" UNIQUE (" + d.QuoteIdent(op.Column) + ")", nil
}

func (d *postgres) AddCheckSQL(op *ast.AddCheck) (string, error) {
	return alterTablePrefix(op.Table_, d.QuoteIdent) + "ADD CONSTRAINT " + d.QuoteIdent(op.Check.Name) +
		" CHECK (" + buildCheckExprSQL(op.Column, op.Check, d.QuoteIdent, d.QuoteLiteral) + ")", nil
}

func (d *postgres) DropConstraintSQL(op *ast.DropConstraint) (string, error) {
	return alterTablePrefix(op.Table_, d.QuoteIdent) + "DROP CONSTRAINT IF EXISTS " + d.QuoteIdent(op.Name), nil
}

func (d *postgres) AddForeignKeySQL(op *ast.AddForeignKey) (string, error) {
	var b strings.Builder

	b.WriteString(alterTablePrefix(op.Table_, d.QuoteIdent))
	b.WriteString("ADD CONSTRAINT ")
	b.WriteString(d.QuoteIdent(op.Ref.Name))
	b.WriteString(" FOREIGN KEY (")
	b.WriteString(d.QuoteIdent(op.Column))
	b.WriteString(") REFERENCES ")
	b.WriteString(d.QuoteIdent(op.Ref.Table))
	b.WriteString(" (")
	b.WriteString(d.QuoteIdent(op.Ref.Column))
	b.WriteString(")")
	if op.Ref.OnDelete != "" {
		b.WriteString(" ON DELETE ")
		b.WriteString(op.Ref.OnDelete)
	}

	if !op.IfNotExists {
		return b.String(), nil
	}

	// PostgreSQL has no ADD CONSTRAINT IF NOT EXISTS.
	return fmt.Sprintf(`DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_constraint
    WHERE conname = %s AND conrelid = to_regclass(%s)
  ) THEN
    %s;
  END IF;
END $$`, d.QuoteLiteral(op.Ref.Name), d.QuoteLiteral(d.QuoteIdent(op.Table_)), b.String()), nil
}

func (d *postgres) DropForeignKeySQL(op *ast.DropForeignKey) (string, error) {
	return alterTablePrefix(op.Table_, d.QuoteIdent) + "DROP CONSTRAINT IF EXISTS " + d.QuoteIdent(op.Name), nil
}
