package ast

import "testing"

func TestColumnSpecCompare(t *testing.T) {
	base := func() *ColumnSpec {
		return &ColumnSpec{
			Name:    "status",
			Type:    "TEXT",
			NotNull: true,
			Check:   &CheckSpec{Name: "t1_f2_check", Kind: CheckIn, Values: []string{"open", "closed"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *ColumnSpec)
		want   ColumnChange
	}{
		{"identical", func(c *ColumnSpec) {}, ColumnChange{}},
		{"renamed only", func(c *ColumnSpec) { c.Name = "state" }, ColumnChange{}},
		{"type", func(c *ColumnSpec) { c.Type = "INTEGER" }, ColumnChange{Type: true}},
		{"nullability", func(c *ColumnSpec) { c.NotNull = false }, ColumnChange{NotNull: true}},
		{"default", func(c *ColumnSpec) { c.Default = "'open'" }, ColumnChange{Default: true}},
		{"unique", func(c *ColumnSpec) { c.Unique = &ConstraintName{Name: "t1_f2_key"} }, ColumnChange{Unique: true}},
		{"choices", func(c *ColumnSpec) { c.Check.Values = append(c.Check.Values, "archived") }, ColumnChange{Check: true}},
		{"check removed", func(c *ColumnSpec) { c.Check = nil }, ColumnChange{Check: true}},
		{"reference added", func(c *ColumnSpec) {
			c.References = &ForeignKeySpec{Name: "t1_f2_fkey", TargetID: 2, Table: "teams", Column: "id"}
		}, ColumnChange{Reference: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base()
			tt.mutate(next)
			got := base().Compare(next)
			if got != tt.want {
				t.Errorf("Compare() = %+v, want %+v", got, tt.want)
			}
			if got.Any() != (tt.want != ColumnChange{}) {
				t.Errorf("Any() = %v", got.Any())
			}
		})
	}
}

func TestForeignKeySpecIgnoresTargetName(t *testing.T) {
	a := &ForeignKeySpec{Name: "t1_f3_fkey", TargetID: 2, Table: "teams", Column: "id"}
	b := &ForeignKeySpec{Name: "t1_f3_fkey", TargetID: 2, Table: "squads", Column: "id"}
	if !a.Equal(b) {
		t.Error("renamed target should not count as a reference change")
	}
	b.OnDelete = "CASCADE"
	if a.Equal(b) {
		t.Error("on delete change should count as a reference change")
	}
}

func TestSystemColumns(t *testing.T) {
	for _, name := range []string{"id", "created_at", "updated_at", "deleted_at"} {
		if !IsSystemColumn(name) {
			t.Errorf("%s should be a system column", name)
		}
	}
	if IsSystemColumn("email") {
		t.Error("email is not a system column")
	}

	lead := LeadingSystemColumns()
	if len(lead) != 1 || !lead[0].PrimaryKey || lead[0].Type != "SERIAL" {
		t.Errorf("unexpected leading columns: %+v", lead[0])
	}
	trail := TrailingSystemColumns()
	if len(trail) != 3 || trail[2].NotNull {
		t.Errorf("unexpected trailing columns: %+v", trail)
	}
}
