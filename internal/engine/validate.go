// Package engine validates definition sets and turns the difference between
// two of them into an ordered list of schema operations.
package engine

import (
	"strings"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/kinds"
	"github.com/hlop3z/tablegate/internal/mapper"
)

// reservedTablePrefix is used by the history tables and temporary rename names.
const reservedTablePrefix = "_schema_"

// reservedTables are owned by the history store.
var reservedTables = map[string]bool{
	"_schema_checksum": true,
	"_schema_snapshot": true,
	"_migrations":      true,
}

// Validate checks a definition set for semantic consistency. It runs before
// any statement reaches the database; every failure is a
// DefinitionValidationError.
func Validate(tables []*ast.TableDef) error {
	tableIDs := make(map[int64]bool, len(tables))
	tableNames := make(map[string]bool, len(tables))

	for _, t := range tables {
		if t == nil {
			return alerr.New(alerr.ErrDefinitionInvalid, "table definition is nil")
		}
		if t.ID <= 0 {
			return alerr.New(alerr.ErrDefinitionInvalid, "table id must be a positive integer").
				WithTable(t.Name).
				With("id", t.ID)
		}
		if t.Retired {
			return alerr.New(alerr.ErrDefinitionInvalid, "declared table cannot be marked retired").
				WithTable(t.Name)
		}
		if err := ast.ValidateIdentifier(t.Name); err != nil {
			return withTable(err, t.Name)
		}
		if reservedTables[t.Name] || strings.HasPrefix(t.Name, reservedTablePrefix) || strings.HasPrefix(t.Name, tempPrefix) {
			return alerr.New(alerr.ErrReservedName, "table name is reserved").
				WithTable(t.Name)
		}
		if tableIDs[t.ID] {
			return alerr.New(alerr.ErrDuplicateID, "duplicate table id").
				WithTable(t.Name).
				With("id", t.ID)
		}
		if tableNames[t.Name] {
			return alerr.New(alerr.ErrDuplicateName, "duplicate table name").
				WithTable(t.Name)
		}
		tableIDs[t.ID] = true
		tableNames[t.Name] = true

		if err := validateFields(t); err != nil {
			return err
		}
	}

	m := mapper.New(tables)
	for _, t := range ast.SortTables(tables) {
		for _, f := range t.SortedFields() {
			if _, err := m.Column(t, f); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateFields(t *ast.TableDef) error {
	ids := make(map[int64]bool, len(t.Fields))
	names := make(map[string]bool, len(t.Fields))

	for _, f := range t.Fields {
		if f == nil {
			return alerr.New(alerr.ErrDefinitionInvalid, "field definition is nil").
				WithTable(t.Name)
		}
		if f.ID <= 0 {
			return alerr.New(alerr.ErrDefinitionInvalid, "field id must be a positive integer").
				WithTable(t.Name).
				WithField(f.Name).
				With("id", f.ID)
		}
		if err := ast.ValidateIdentifier(f.Name); err != nil {
			return withTable(err, t.Name)
		}
		if ast.IsSystemColumn(f.Name) {
			return alerr.New(alerr.ErrReservedName, "field name is reserved for a system column").
				WithTable(t.Name).
				WithField(f.Name)
		}
		if strings.HasPrefix(f.Name, tempPrefix) {
			return alerr.New(alerr.ErrReservedName, "field name is reserved").
				WithTable(t.Name).
				WithField(f.Name)
		}
		if _, err := kinds.Parse(string(f.Kind)); err != nil {
			return withField(err, t.Name, f.Name)
		}
		if ids[f.ID] {
			return alerr.New(alerr.ErrDuplicateID, "duplicate field id").
				WithTable(t.Name).
				WithField(f.Name).
				With("id", f.ID)
		}
		if names[f.Name] {
			return alerr.New(alerr.ErrDuplicateName, "duplicate field name").
				WithTable(t.Name).
				WithField(f.Name)
		}
		ids[f.ID] = true
		names[f.Name] = true
	}

	return nil
}

func withTable(err error, table string) error {
	if e, ok := err.(*alerr.Error); ok {
		return e.WithTable(table)
	}
	return err
}

func withField(err error, table, field string) error {
	if e, ok := err.(*alerr.Error); ok {
		return e.WithTable(table).WithField(field)
	}
	return err
}
