package dialect

import (
	"strconv"
	"strings"

	"github.com/hlop3z/tablegate/internal/ast"
)

// QuoteIdentFunc is a function that quotes an identifier.
type QuoteIdentFunc func(string) string

// QuoteLiteralFunc is a function that quotes a string literal.
type QuoteLiteralFunc func(string) string

// writeQuotedList writes items as a comma-separated list using quote.
func writeQuotedList(b *strings.Builder, items []string, quote func(string) string) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(item))
	}
}

// buildColumnDefSQL renders one column clause. References are never inline.
func buildColumnDefSQL(col *ast.ColumnSpec, quoteIdent QuoteIdentFunc, quoteLiteral QuoteLiteralFunc) string {
	var b strings.Builder

	b.WriteString(quoteIdent(col.Name))
	b.WriteString(" ")
	b.WriteString(col.Type)

	if col.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if col.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(col.Default)
	}
	if col.NotNull {
		b.WriteString(" NOT NULL")
	}
	if col.Unique != nil {
		b.WriteString(" CONSTRAINT ")
		b.WriteString(quoteIdent(col.Unique.Name))
		b.WriteString(" UNIQUE")
	}
	if col.Check != nil {
		b.WriteString(" CONSTRAINT ")
		b.WriteString(quoteIdent(col.Check.Name))
		b.WriteString(" CHECK (")
		b.WriteString(buildCheckExprSQL(col.Name, col.Check, quoteIdent, quoteLiteral))
		b.WriteString(")")
	}

	return b.String()
}

// buildCheckExprSQL renders the boolean expression of a check against column.
func buildCheckExprSQL(column string, check *ast.CheckSpec, quoteIdent QuoteIdentFunc, quoteLiteral QuoteLiteralFunc) string {
	var b strings.Builder
	b.WriteString(quoteIdent(column))

	switch check.Kind {
	case ast.CheckRange:
		b.WriteString(" BETWEEN ")
		b.WriteString(strconv.Itoa(check.Min))
		b.WriteString(" AND ")
		b.WriteString(strconv.Itoa(check.Max))
	case ast.CheckIn:
		b.WriteString(" IN (")
		writeQuotedList(&b, check.Values, quoteLiteral)
		b.WriteString(")")
	case ast.CheckContained:
		b.WriteString(" <@ ARRAY[")
		writeQuotedList(&b, check.Values, quoteLiteral)
		b.WriteString("]::TEXT[]")
	}

	return b.String()
}

// alterTablePrefix returns `ALTER TABLE "table" `.
func alterTablePrefix(table string, quoteIdent QuoteIdentFunc) string {
	return "ALTER TABLE " + quoteIdent(table) + " "
}
