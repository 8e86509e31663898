// Package mapper turns declared fields into physical column specs.
//
// Mapping is pure: it reads only the definition set it was built from and
// never touches the database.
package mapper

import (
	"fmt"
	"slices"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/kinds"
)

// Mapper maps fields of one definition set. Linked-record targets resolve
// against the tables the Mapper was built from.
type Mapper struct {
	byID   map[int64]*ast.TableDef
	byName map[string]*ast.TableDef
}

// New returns a Mapper for the given definition set.
func New(tables []*ast.TableDef) *Mapper {
	m := &Mapper{
		byID:   make(map[int64]*ast.TableDef, len(tables)),
		byName: make(map[string]*ast.TableDef, len(tables)),
	}
	for _, t := range tables {
		m.byID[t.ID] = t
		m.byName[t.Name] = t
	}
	return m
}

// UniqueName, CheckName and ForeignKeyName derive constraint names from
// stable ids so they survive table and column renames.
func UniqueName(tableID, fieldID int64) string {
	return fmt.Sprintf("t%d_f%d_key", tableID, fieldID)
}

func CheckName(tableID, fieldID int64) string {
	return fmt.Sprintf("t%d_f%d_check", tableID, fieldID)
}

func ForeignKeyName(tableID, fieldID int64) string {
	return fmt.Sprintf("t%d_f%d_fkey", tableID, fieldID)
}

// Target resolves a linked-record field's target table, or nil if it is not
// part of the definition set. TargetID wins over Target.
func (m *Mapper) Target(opts ast.FieldOptions) *ast.TableDef {
	if opts.TargetID != 0 {
		return m.byID[opts.TargetID]
	}
	if opts.Target != "" {
		return m.byName[opts.Target]
	}
	return nil
}

// Column returns the column for field, or nil for virtual kinds.
func (m *Mapper) Column(table *ast.TableDef, field *ast.FieldDef) (*ast.ColumnSpec, error) {
	def := kinds.LookupDef(field.Kind)
	if def == nil {
		return nil, fieldErr(alerr.New(alerr.ErrUnknownKind, "unknown field kind").
			With("kind", string(field.Kind)), table, field)
	}
	if def.Virtual() {
		return nil, nil
	}

	opts := field.Options
	if err := checkPrecision(def, opts); err != nil {
		return nil, fieldErr(err, table, field)
	}

	spec := &ast.ColumnSpec{
		Name:    field.Name,
		Type:    def.SQLType(kinds.Params{Precision: opts.Precision, Scale: opts.Scale}),
		NotNull: field.Required,
	}
	if field.Unique && def.Family == kinds.FamilyGeometric {
		return nil, fieldErr(alerr.New(alerr.ErrInvalidOption, "field kind does not support unique").
			With("kind", string(field.Kind)), table, field)
	}
	if field.Unique {
		spec.Unique = &ast.ConstraintName{Name: UniqueName(table.ID, field.ID)}
	}

	var err error
	switch def.Constraint {
	case kinds.ConstraintNone:
	case kinds.ConstraintRange:
		spec.Check, err = rangeCheck(table, field)
	case kinds.ConstraintChoice:
		spec.Check, err = choiceCheck(table, field, ast.CheckIn)
	case kinds.ConstraintChoiceSet:
		spec.Check, err = choiceCheck(table, field, ast.CheckContained)
	case kinds.ConstraintReference:
		spec.References, err = m.reference(table, field)
	}
	if err != nil {
		return nil, fieldErr(err, table, field)
	}

	if opts.Default != nil {
		spec.Default, err = renderDefault(def, field, spec)
		if err != nil {
			return nil, fieldErr(err, table, field)
		}
	}

	return spec, nil
}

// Columns returns the user columns of table ordered by field id, skipping virtual fields.
func (m *Mapper) Columns(table *ast.TableDef) ([]*ast.ColumnSpec, error) {
	var cols []*ast.ColumnSpec
	for _, f := range table.SortedFields() {
		col, err := m.Column(table, f)
		if err != nil {
			return nil, err
		}
		if col != nil {
			cols = append(cols, col)
		}
	}
	return cols, nil
}

// TableColumns returns every column of table, system columns included, in
// creation order.
func (m *Mapper) TableColumns(table *ast.TableDef) ([]*ast.ColumnSpec, error) {
	user, err := m.Columns(table)
	if err != nil {
		return nil, err
	}
	cols := ast.LeadingSystemColumns()
	cols = append(cols, user...)
	return append(cols, ast.TrailingSystemColumns()...), nil
}

func checkPrecision(def *kinds.Def, opts ast.FieldOptions) error {
	if def.Kind != kinds.Decimal {
		return nil
	}
	if opts.Precision < 0 || opts.Precision > 1000 {
		return alerr.New(alerr.ErrInvalidOption, "decimal precision must be between 1 and 1000").
			With("precision", opts.Precision)
	}
	if opts.Scale < 0 || (opts.Precision > 0 && opts.Scale > opts.Precision) {
		return alerr.New(alerr.ErrInvalidOption, "decimal scale must be between 0 and precision").
			With("precision", opts.Precision).
			With("scale", opts.Scale)
	}
	return nil
}

func rangeCheck(table *ast.TableDef, field *ast.FieldDef) (*ast.CheckSpec, error) {
	upper := field.Options.Max
	if upper == 0 {
		upper = kinds.DefaultRatingMax
	}
	if upper < 1 || upper > 100 {
		return nil, alerr.New(alerr.ErrInvalidOption, "rating max must be between 1 and 100").
			With("max", upper)
	}
	return &ast.CheckSpec{Name: CheckName(table.ID, field.ID), Kind: ast.CheckRange, Min: 0, Max: upper}, nil
}

func choiceCheck(table *ast.TableDef, field *ast.FieldDef, kind ast.CheckKind) (*ast.CheckSpec, error) {
	choices := field.Options.Choices
	if len(choices) == 0 {
		return nil, alerr.New(alerr.ErrInvalidOption, "select field requires at least one choice").
			WithHelp("add options.choices")
	}
	values := slices.Clone(choices)
	slices.Sort(values)
	for i, v := range values {
		if v == "" {
			return nil, alerr.New(alerr.ErrInvalidOption, "select choices must not be empty strings")
		}
		if i > 0 && values[i-1] == v {
			return nil, alerr.New(alerr.ErrInvalidOption, "duplicate select choice").
				With("choice", v)
		}
	}
	return &ast.CheckSpec{Name: CheckName(table.ID, field.ID), Kind: kind, Values: values}, nil
}

func (m *Mapper) reference(table *ast.TableDef, field *ast.FieldDef) (*ast.ForeignKeySpec, error) {
	opts := field.Options
	target := m.Target(opts)
	if target == nil {
		err := alerr.New(alerr.ErrDanglingLink, "linked record target is not in the definition set")
		switch {
		case opts.TargetID != 0:
			err.With("target_id", opts.TargetID)
		case opts.Target != "":
			err.With("target", opts.Target)
		default:
			err.WithHelp("set options.target or options.target_id")
		}
		return nil, err
	}
	action, err := ast.NormalizeFKAction(opts.OnDelete)
	if err != nil {
		return nil, err
	}
	if action == "SET NULL" && field.Required {
		return nil, alerr.New(alerr.ErrInvalidOption, "on_delete SET NULL conflicts with required")
	}
	return &ast.ForeignKeySpec{
		Name:     ForeignKeyName(table.ID, field.ID),
		TargetID: target.ID,
		Table:    target.Name,
		Column:   ast.ColumnID,
		OnDelete: action,
	}, nil
}

func fieldErr(err error, table *ast.TableDef, field *ast.FieldDef) error {
	if e, ok := err.(*alerr.Error); ok {
		return e.WithTable(table.Name).WithField(field.Name)
	}
	return err
}
