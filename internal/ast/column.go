package ast

import "slices"

// ColumnSpec is the physical column derived from a field. It is never
// persisted; two specs are compared to decide whether a field changed.
type ColumnSpec struct {
	Name       string
	Type       string
	PrimaryKey bool
	NotNull    bool
	Default    string // SQL expression; empty means no default
	Unique     *ConstraintName
	Check      *CheckSpec
	References *ForeignKeySpec
}

// ConstraintName names a constraint derived from stable ids.
type ConstraintName struct {
	Name string
}

// CheckKind is the shape of a kind-implied CHECK constraint.
type CheckKind int

const (
	CheckRange     CheckKind = iota // col BETWEEN Min AND Max
	CheckIn                         // col IN (Values...)
	CheckContained                  // col <@ ARRAY[Values...]
)

// CheckSpec is a column CHECK constraint. It stores the rule, not the SQL
// text, so a column rename does not change it.
type CheckSpec struct {
	Name   string
	Kind   CheckKind
	Values []string
	Min    int
	Max    int
}

// Equal reports whether two checks enforce the same rule under the same name.
func (c *CheckSpec) Equal(o *CheckSpec) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Name == o.Name && c.Kind == o.Kind && c.Min == o.Min && c.Max == o.Max &&
		slices.Equal(c.Values, o.Values)
}

// ForeignKeySpec is a linked-record reference. TargetID identifies the target
// table across renames; Table is its current name.
type ForeignKeySpec struct {
	Name     string
	TargetID int64
	Table    string
	Column   string
	OnDelete string
}

// Equal compares references by target id, ignoring the target's current name.
func (r *ForeignKeySpec) Equal(o *ForeignKeySpec) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.Name == o.Name && r.TargetID == o.TargetID && r.Column == o.Column && r.OnDelete == o.OnDelete
}

// ColumnChange lists which parts of a column differ between two specs.
type ColumnChange struct {
	Type      bool
	NotNull   bool
	Default   bool
	Unique    bool
	Check     bool
	Reference bool
}

// Any reports whether anything changed.
func (c ColumnChange) Any() bool {
	return c.Type || c.NotNull || c.Default || c.Unique || c.Check || c.Reference
}

// Compare returns the differences from c to next. Names are not compared;
// renames are detected separately.
func (c *ColumnSpec) Compare(next *ColumnSpec) ColumnChange {
	return ColumnChange{
		Type:      c.Type != next.Type,
		NotNull:   c.NotNull != next.NotNull,
		Default:   c.Default != next.Default,
		Unique:    (c.Unique == nil) != (next.Unique == nil) || (c.Unique != nil && c.Unique.Name != next.Unique.Name),
		Check:     !c.Check.Equal(next.Check),
		Reference: !c.References.Equal(next.References),
	}
}

// Equal reports whether c and next describe the same column, including its name.
func (c *ColumnSpec) Equal(next *ColumnSpec) bool {
	return c.Name == next.Name && c.PrimaryKey == next.PrimaryKey && !c.Compare(next).Any()
}

// System column names present on every managed table.
const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
	ColumnDeletedAt = "deleted_at"
)

// IsSystemColumn reports whether name is reserved for a system column.
func IsSystemColumn(name string) bool {
	switch name {
	case ColumnID, ColumnCreatedAt, ColumnUpdatedAt, ColumnDeletedAt:
		return true
	}
	return false
}

// LeadingSystemColumns are placed before user columns.
func LeadingSystemColumns() []*ColumnSpec {
	return []*ColumnSpec{
		{Name: ColumnID, Type: "SERIAL", PrimaryKey: true},
	}
}

// TrailingSystemColumns are placed after user columns.
func TrailingSystemColumns() []*ColumnSpec {
	return []*ColumnSpec{
		{Name: ColumnCreatedAt, Type: "TIMESTAMPTZ", Default: "NOW()", NotNull: true},
		{Name: ColumnUpdatedAt, Type: "TIMESTAMPTZ", Default: "NOW()", NotNull: true},
		{Name: ColumnDeletedAt, Type: "TIMESTAMPTZ"},
	}
}
