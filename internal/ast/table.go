// Package ast holds the declared table model, the column specs derived from
// it, and the schema operations the generator emits.
package ast

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/kinds"
)

// validIdentifierPattern matches safe SQL identifiers (lowercase snake_case).
var validIdentifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// maxIdentifierLength is PostgreSQL's NAMEDATALEN - 1.
const maxIdentifierLength = 63

// ValidateIdentifier checks that a name is a safe SQL identifier (lowercase snake_case).
func ValidateIdentifier(name string) error {
	if !validIdentifierPattern.MatchString(name) {
		return alerr.New(alerr.ErrInvalidIdentifier,
			fmt.Sprintf("invalid identifier %q; must match [a-z_][a-z0-9_]*", name))
	}
	if len(name) > maxIdentifierLength {
		return alerr.New(alerr.ErrInvalidIdentifier,
			fmt.Sprintf("identifier %q is longer than %d characters", name, maxIdentifierLength))
	}
	return nil
}

// ValidFKActions is the set of valid ON DELETE actions.
var ValidFKActions = map[string]bool{
	"":            true,
	"CASCADE":     true,
	"SET NULL":    true,
	"SET DEFAULT": true,
	"RESTRICT":    true,
	"NO ACTION":   true,
}

// NormalizeFKAction normalizes and validates an FK action string.
func NormalizeFKAction(action string) (string, error) {
	if action == "" {
		return "", nil
	}
	upper := strings.ToUpper(strings.TrimSpace(action))
	if !ValidFKActions[upper] {
		return "", alerr.New(alerr.ErrInvalidOption,
			fmt.Sprintf("invalid foreign key action %q; must be one of: CASCADE, SET NULL, SET DEFAULT, RESTRICT, NO ACTION", action))
	}
	return upper, nil
}

// -----------------------------------------------------------------------------
// TableDef - declared table
// -----------------------------------------------------------------------------

// TableDef is a declared table. ID is stable for the table's lifetime and is
// never reused; Name may change between runs.
type TableDef struct {
	ID     int64       `json:"id" yaml:"id"`
	Name   string      `json:"name" yaml:"name"`
	Fields []*FieldDef `json:"fields" yaml:"fields"`

	// Retired marks a snapshot entry for a table that left the definition
	// set but was kept in the database. It is never set on declared tables.
	Retired bool `json:"retired,omitempty" yaml:"-"`
}

// AsRetired returns a copy of t marked as retired.
func (t *TableDef) AsRetired() *TableDef {
	c := *t
	c.Retired = true
	return &c
}

// HasRetired reports whether any of tables is a retired snapshot entry.
func HasRetired(tables []*TableDef) bool {
	for _, t := range tables {
		if t.Retired {
			return true
		}
	}
	return false
}

// Field returns the field with the given id, or nil.
func (t *TableDef) Field(id int64) *FieldDef {
	for _, f := range t.Fields {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// FieldByName returns the field with the given name, or nil.
func (t *TableDef) FieldByName(name string) *FieldDef {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// SortedFields returns the fields ordered by id. The receiver is not modified.
func (t *TableDef) SortedFields() []*FieldDef {
	out := slices.Clone(t.Fields)
	slices.SortFunc(out, func(a, b *FieldDef) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// SortTables returns tables ordered by id. The input is not modified.
func SortTables(tables []*TableDef) []*TableDef {
	out := slices.Clone(tables)
	slices.SortFunc(out, func(a, b *TableDef) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// IndexTables maps table id to definition.
func IndexTables(tables []*TableDef) map[int64]*TableDef {
	m := make(map[int64]*TableDef, len(tables))
	for _, t := range tables {
		m[t.ID] = t
	}
	return m
}

// -----------------------------------------------------------------------------
// FieldDef - declared field
// -----------------------------------------------------------------------------

// FieldDef is a declared field. ID is scoped to its table and stable across renames.
type FieldDef struct {
	ID       int64        `json:"id" yaml:"id"`
	Name     string       `json:"name" yaml:"name"`
	Kind     kinds.Kind   `json:"kind" yaml:"kind"`
	Required bool         `json:"required,omitempty" yaml:"required,omitempty"`
	Unique   bool         `json:"unique,omitempty" yaml:"unique,omitempty"`
	Options  FieldOptions `json:"options,omitzero" yaml:"options,omitempty"`
}

// FieldOptions holds kind-specific settings.
type FieldOptions struct {
	// Choices lists the allowed values of single_select and multi_select.
	Choices []string `json:"choices,omitempty" yaml:"choices,omitempty"`

	// Target names the linked table; TargetID identifies it by id and wins when both are set.
	Target   string `json:"target,omitempty" yaml:"target,omitempty"`
	TargetID int64  `json:"target_id,omitempty" yaml:"target_id,omitempty"`
	OnDelete string `json:"on_delete,omitempty" yaml:"on_delete,omitempty"`

	Precision int `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale     int `json:"scale,omitempty" yaml:"scale,omitempty"`
	Max       int `json:"max,omitempty" yaml:"max,omitempty"`

	Default any `json:"default,omitempty" yaml:"default,omitempty"`

	// Expression is the source of a computed field. It never reaches DDL.
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Virtual reports whether the field has no physical column.
func (f *FieldDef) Virtual() bool {
	return f.Kind.Virtual()
}
