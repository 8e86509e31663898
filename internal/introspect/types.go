package introspect

import (
	"strings"
)

// CanonicalType converts a PostgreSQL type name, as written in DDL or as
// reported by format_type(), to one comparable spelling.
//
//	CanonicalType("timestamp with time zone") == "TIMESTAMPTZ"
//	CanonicalType("NUMERIC(19, 4)")           == "NUMERIC(19,4)"
//	CanonicalType("SERIAL")                   == "INTEGER"
func CanonicalType(sqlType string) string {
	upper := strings.ToUpper(strings.TrimSpace(sqlType))

	array := strings.HasSuffix(upper, "[]")
	if array {
		upper = strings.TrimSuffix(upper, "[]")
	}

	base, args := upper, ""
	if i := strings.IndexByte(upper, '('); i >= 0 {
		base, args = strings.TrimSpace(upper[:i]), strings.ReplaceAll(upper[i:], " ", "")
	}

	switch base {
	case "SERIAL", "SERIAL4", "INT", "INT4":
		base = "INTEGER"
	case "BIGSERIAL", "SERIAL8", "INT8":
		base = "BIGINT"
	case "SMALLSERIAL", "SERIAL2", "INT2":
		base = "SMALLINT"
	case "DECIMAL":
		base = "NUMERIC"
	case "BOOL":
		base = "BOOLEAN"
	case "TIMESTAMP WITH TIME ZONE":
		base = "TIMESTAMPTZ"
	case "TIMESTAMP WITHOUT TIME ZONE":
		base = "TIMESTAMP"
	case "TIME WITHOUT TIME ZONE":
		base = "TIME"
	case "TIME WITH TIME ZONE":
		base = "TIMETZ"
	case "CHARACTER VARYING":
		base = "VARCHAR"
	}

	out := base + args
	if array {
		out += "[]"
	}
	return out
}
