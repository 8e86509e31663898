package engine

import (
	"fmt"
	"slices"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/kinds"
	"github.com/hlop3z/tablegate/internal/mapper"
)

// GenerateOptions controls optional behaviour of Generate.
type GenerateOptions struct {
	// DropRemovedTables drops tables whose id left the definition set.
	// When false they stay in the database, are reported as warnings and
	// are carried in Plan.Retired.
	DropRemovedTables bool
}

// phase orders operation groups within a plan.
type phase int

const (
	phaseDropForeignKeys phase = iota
	phaseDropConstraints
	phaseDropColumns
	phaseDropTables
	phaseRenameTables
	phaseRenameColumns
	phaseCreateTables
	phaseAddColumns
	phaseAlterColumns
	phaseAddConstraints
	phaseAddForeignKeys
	phaseCount
)

type builder struct {
	groups [phaseCount][]ast.Operation
	plan   *Plan
}

func (b *builder) add(p phase, op ast.Operation) {
	b.groups[p] = append(b.groups[p], op)
}

// Generate computes the operations that move the schema from previous to
// current. A nil previous means no definitions were ever applied: every
// table is created with IF NOT EXISTS. Generate is pure.
func Generate(previous, current []*ast.TableDef, opts GenerateOptions) (*Plan, error) {
	if err := Validate(current); err != nil {
		return nil, err
	}

	b := &builder{plan: &Plan{FirstRun: previous == nil}}
	cur := mapper.New(current)

	if previous == nil {
		if err := b.create(cur, current, true); err != nil {
			return nil, err
		}
	} else {
		if err := b.diff(mapper.New(previous), cur, previous, current, opts); err != nil {
			return nil, err
		}
	}

	for _, g := range b.groups {
		b.plan.Operations = append(b.plan.Operations, g...)
	}
	return b.plan, nil
}

// create emits CREATE TABLE for tables in link-dependency order, with their
// foreign keys deferred to the last phase.
func (b *builder) create(m *mapper.Mapper, tables []*ast.TableDef, firstRun bool) error {
	for _, t := range createOrder(m, tables) {
		cols, err := m.TableColumns(t)
		if err != nil {
			return err
		}
		b.add(phaseCreateTables, &ast.CreateTable{
			TableOp:     ast.TableOp{Name: t.Name},
			Columns:     withoutReferences(cols),
			IfNotExists: firstRun,
		})
		for _, col := range cols {
			if col.References != nil {
				b.add(phaseAddForeignKeys, &ast.AddForeignKey{
					TableRef:    ast.TableRef{Table_: t.Name},
					Column:      col.Name,
					Ref:         col.References,
					IfNotExists: firstRun,
				})
			}
		}
	}
	return nil
}

func (b *builder) diff(prev, cur *mapper.Mapper, previous, current []*ast.TableDef, opts GenerateOptions) error {
	prevByID := ast.IndexTables(previous)
	curByID := ast.IndexTables(current)

	for _, pt := range ast.SortTables(previous) {
		if _, ok := curByID[pt.ID]; ok {
			continue
		}
		if opts.DropRemovedTables {
			b.add(phaseDropTables, &ast.DropTable{TableOp: ast.TableOp{Name: pt.Name}, IfExists: true, Cascade: true})
			b.plan.DroppedTables = append(b.plan.DroppedTables, pt.Name)
			continue
		}
		b.plan.Retired = append(b.plan.Retired, pt.AsRetired())
		if !pt.Retired {
			b.plan.Warnings = append(b.plan.Warnings,
				fmt.Sprintf("table %q (id %d) left the definition set and was kept", pt.Name, pt.ID))
		}
	}

	tableRenames := DetectTableRenames(previous, current)
	b.plan.Renames = append(b.plan.Renames, tableRenames...)
	b.renameTables(tableRenames)

	var created []*ast.TableDef
	for _, ct := range current {
		if _, ok := prevByID[ct.ID]; !ok {
			created = append(created, ct)
		}
	}
	if err := b.create(cur, created, false); err != nil {
		return err
	}

	for _, ct := range ast.SortTables(current) {
		pt, ok := prevByID[ct.ID]
		if !ok {
			continue
		}
		if err := b.diffTable(prev, cur, pt, ct); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) diffTable(prev, cur *mapper.Mapper, pt, ct *ast.TableDef) error {
	b.plan.Renames = append(b.plan.Renames, DetectRenames(ct.ID, pt.Fields, ct.Fields)...)

	var colRenames []RenameEvent
	for _, id := range fieldIDs(pt, ct) {
		pf, cf := pt.Field(id), ct.Field(id)

		var pc, cc *ast.ColumnSpec
		var err error
		if pf != nil {
			if pc, err = prev.Column(pt, pf); err != nil {
				return alerr.Wrap(alerr.ErrDDLGeneration, err, "previous definition no longer maps to a column").
					WithTable(pt.Name).
					WithField(pf.Name)
			}
		}
		if cf != nil {
			if cc, err = cur.Column(ct, cf); err != nil {
				return err
			}
		}

		switch {
		case pc == nil && cc == nil:
		case cc == nil:
			b.add(phaseDropColumns, &ast.DropColumn{TableRef: ast.TableRef{Table_: pt.Name}, Name: pc.Name})
		case pc == nil:
			b.addColumn(ct.Name, cc)
		default:
			if pc.Name != cc.Name {
				colRenames = append(colRenames, RenameEvent{
					Scope: RenameField, TableID: ct.ID, FieldID: id, OldName: pc.Name, NewName: cc.Name,
				})
			}
			if err := b.alterColumn(pt.Name, ct.Name, pc, cc); err != nil {
				return err
			}
		}
	}

	b.renameColumns(ct.Name, colRenames)
	return nil
}

func (b *builder) addColumn(table string, col *ast.ColumnSpec) {
	spec := *col
	spec.References = nil
	b.add(phaseAddColumns, &ast.AddColumn{TableRef: ast.TableRef{Table_: table}, Column: &spec})
	if col.References != nil {
		b.add(phaseAddForeignKeys, &ast.AddForeignKey{
			TableRef: ast.TableRef{Table_: table},
			Column:   col.Name,
			Ref:      col.References,
		})
	}
}

// alterColumn diffs a field present on both sides. Drops address the table
// by its old name because they run before table renames.
func (b *builder) alterColumn(oldTable, newTable string, pc, cc *ast.ColumnSpec) error {
	ch := pc.Compare(cc)
	if !ch.Any() {
		return nil
	}

	if ch.Type && (isSerial(pc.Type) || isSerial(cc.Type)) {
		return alerr.New(alerr.ErrUnsupportedChange, "cannot change a column to or from an auto-number type").
			WithTable(newTable).
			WithField(cc.Name).
			With("from", pc.Type).
			With("to", cc.Type).
			WithHelp("add a new field with a new id instead")
	}

	if ch.Reference {
		if pc.References != nil {
			b.add(phaseDropForeignKeys, &ast.DropForeignKey{TableRef: ast.TableRef{Table_: oldTable}, Name: pc.References.Name})
		}
		if cc.References != nil {
			b.add(phaseAddForeignKeys, &ast.AddForeignKey{TableRef: ast.TableRef{Table_: newTable}, Column: cc.Name, Ref: cc.References})
		}
	}

	if ch.Check || (ch.Type && pc.Check != nil) {
		if pc.Check != nil {
			b.add(phaseDropConstraints, &ast.DropConstraint{TableRef: ast.TableRef{Table_: oldTable}, Name: pc.Check.Name})
		}
		if cc.Check != nil {
			b.add(phaseAddConstraints, &ast.AddCheck{TableRef: ast.TableRef{Table_: newTable}, Column: cc.Name, Check: cc.Check})
		}
	}

	if ch.Unique {
		if pc.Unique != nil {
			b.add(phaseDropConstraints, &ast.DropConstraint{TableRef: ast.TableRef{Table_: oldTable}, Name: pc.Unique.Name})
		}
		if cc.Unique != nil {
			b.add(phaseAddConstraints, &ast.AddUnique{TableRef: ast.TableRef{Table_: newTable}, Name: cc.Unique.Name, Column: cc.Name})
		}
	}

	alter := &ast.AlterColumn{TableRef: ast.TableRef{Table_: newTable}, Name: cc.Name}
	switch {
	case ch.Type:
		alter.NewType = cc.Type
		alter.Conversion = conversion(pc.Type, cc.Type)
		alter.DropDefault = pc.Default != ""
		alter.SetDefault = cc.Default
	case ch.Default:
		alter.SetDefault = cc.Default
		alter.DropDefault = cc.Default == ""
	}
	if ch.NotNull {
		notNull := cc.NotNull
		alter.SetNotNull = &notNull
	}
	if alter.NewType != "" || alter.SetNotNull != nil || alter.SetDefault != "" || alter.DropDefault {
		b.add(phaseAlterColumns, alter)
	}
	return nil
}

func (b *builder) renameTables(events []RenameEvent) {
	if !needsTwoPhase(events) {
		for _, e := range events {
			b.add(phaseRenameTables, &ast.RenameTable{OldName: e.OldName, NewName: e.NewName})
		}
		return
	}
	for _, e := range events {
		b.add(phaseRenameTables, &ast.RenameTable{OldName: e.OldName, NewName: tempTableName(e.TableID)})
	}
	for _, e := range events {
		b.add(phaseRenameTables, &ast.RenameTable{OldName: tempTableName(e.TableID), NewName: e.NewName})
	}
}

func (b *builder) renameColumns(table string, events []RenameEvent) {
	ref := ast.TableRef{Table_: table}
	if !needsTwoPhase(events) {
		for _, e := range events {
			b.add(phaseRenameColumns, &ast.RenameColumn{TableRef: ref, OldName: e.OldName, NewName: e.NewName})
		}
		return
	}
	for _, e := range events {
		b.add(phaseRenameColumns, &ast.RenameColumn{TableRef: ref, OldName: e.OldName, NewName: tempFieldName(e.FieldID)})
	}
	for _, e := range events {
		b.add(phaseRenameColumns, &ast.RenameColumn{TableRef: ref, OldName: tempFieldName(e.FieldID), NewName: e.NewName})
	}
}

func tempTableName(id int64) string { return fmt.Sprintf("%st%d", tempPrefix, id) }
func tempFieldName(id int64) string { return fmt.Sprintf("%sf%d", tempPrefix, id) }

func isSerial(sqlType string) bool {
	return sqlType == "SERIAL" || sqlType == "BIGSERIAL"
}

// conversion picks how existing values reach the new type.
func conversion(from, to string) ast.Conversion {
	switch {
	case from == "TEXT" && to == "TEXT[]":
		return ast.ConvertToArray
	case from == "TEXT[]" && to == "TEXT":
		return ast.ConvertFromArray
	}
	return ast.ConvertCast
}

func fieldIDs(a, b *ast.TableDef) []int64 {
	seen := make(map[int64]bool, len(a.Fields)+len(b.Fields))
	var ids []int64
	for _, fields := range [][]*ast.FieldDef{a.Fields, b.Fields} {
		for _, f := range fields {
			if !seen[f.ID] {
				seen[f.ID] = true
				ids = append(ids, f.ID)
			}
		}
	}
	slices.Sort(ids)
	return ids
}

func withoutReferences(cols []*ast.ColumnSpec) []*ast.ColumnSpec {
	out := make([]*ast.ColumnSpec, len(cols))
	for i, c := range cols {
		if c.References == nil {
			out[i] = c
			continue
		}
		spec := *c
		spec.References = nil
		out[i] = &spec
	}
	return out
}

// tableNode adapts a table for TopoSort; it depends on its link targets.
type tableNode struct {
	table *ast.TableDef
	deps  []int64
}

func (n *tableNode) Key() int64            { return n.table.ID }
func (n *tableNode) Dependencies() []int64 { return n.deps }

// createOrder sorts tables so link targets come first. Cycles fall back to
// id order; foreign keys are added after all tables exist either way.
func createOrder(m *mapper.Mapper, tables []*ast.TableDef) []*ast.TableDef {
	nodes := make([]*tableNode, 0, len(tables))
	for _, t := range tables {
		n := &tableNode{table: t}
		for _, f := range t.Fields {
			if f.Kind != kinds.LinkedRecord {
				continue
			}
			if target := m.Target(f.Options); target != nil {
				n.deps = append(n.deps, target.ID)
			}
		}
		nodes = append(nodes, n)
	}

	sorted, err := TopoSort[int64](nodes)
	if err != nil {
		return ast.SortTables(tables)
	}
	out := make([]*ast.TableDef, len(sorted))
	for i, n := range sorted {
		out[i] = n.table
	}
	return out
}
