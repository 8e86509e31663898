package introspect

import (
	"context"

	"github.com/lib/pq"

	"github.com/hlop3z/tablegate/internal/alerr"
)

const (
	columnsSQL = `SELECT c.relname, a.attname, format_type(a.atttypid, a.atttypmod), a.attnotnull
FROM pg_attribute a
JOIN pg_class c ON c.oid = a.attrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = current_schema()
  AND c.relkind = 'r'
  AND c.relname = ANY($1)
  AND a.attnum > 0
  AND NOT a.attisdropped
ORDER BY c.relname, a.attnum`

	constraintsSQL = `SELECT c.relname, con.conname, con.contype::text, COALESCE(a.attname, '')
FROM pg_constraint con
JOIN pg_class c ON c.oid = con.conrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
LEFT JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = con.conkey[1]
WHERE n.nspname = current_schema()
  AND c.relname = ANY($1)
  AND con.contype IN ('p', 'u', 'c', 'f')
ORDER BY c.relname, con.conname`
)

// Tables returns the named tables that exist in the current schema, keyed by
// name. Names with no matching table are absent from the result.
func (r *Reader) Tables(ctx context.Context, names []string) (map[string]*Table, error) {
	tables := make(map[string]*Table)
	if len(names) == 0 {
		return tables, nil
	}
	arg := pq.Array(sortedNames(names))

	if err := r.readColumns(ctx, arg, tables); err != nil {
		return nil, err
	}
	if err := r.readConstraints(ctx, arg, tables); err != nil {
		return nil, err
	}
	return tables, nil
}

func (r *Reader) readColumns(ctx context.Context, names any, tables map[string]*Table) error {
	rows, err := r.db.QueryContext(ctx, columnsSQL, names)
	if err != nil {
		return alerr.Wrap(alerr.ErrIntrospection, err, "failed to read columns").WithSQL(columnsSQL)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table, name, sqlType string
			notNull              bool
		)
		if err := rows.Scan(&table, &name, &sqlType, &notNull); err != nil {
			return alerr.Wrap(alerr.ErrIntrospection, err, "failed to scan column")
		}
		t := tables[table]
		if t == nil {
			t = &Table{Name: table}
			tables[table] = t
		}
		t.Columns = append(t.Columns, &Column{
			Name:    name,
			Type:    CanonicalType(sqlType),
			NotNull: notNull,
		})
	}
	if err := rows.Err(); err != nil {
		return alerr.Wrap(alerr.ErrIntrospection, err, "failed to read columns")
	}
	return nil
}

func (r *Reader) readConstraints(ctx context.Context, names any, tables map[string]*Table) error {
	rows, err := r.db.QueryContext(ctx, constraintsSQL, names)
	if err != nil {
		return alerr.Wrap(alerr.ErrIntrospection, err, "failed to read constraints").WithSQL(constraintsSQL)
	}
	defer rows.Close()

	for rows.Next() {
		var table, name, contype, column string
		if err := rows.Scan(&table, &name, &contype, &column); err != nil {
			return alerr.Wrap(alerr.ErrIntrospection, err, "failed to scan constraint")
		}
		t := tables[table]
		if t == nil {
			continue
		}
		c := &Constraint{Name: name, Type: ConstraintType(contype), Column: column}
		if c.Type == ConstraintPrimaryKey {
			if col := t.Column(column); col != nil {
				col.PrimaryKey = true
			}
		}
		t.Constraints = append(t.Constraints, c)
	}
	if err := rows.Err(); err != nil {
		return alerr.Wrap(alerr.ErrIntrospection, err, "failed to read constraints")
	}
	return nil
}
