package engine

import (
	"cmp"
	"slices"

	"github.com/hlop3z/tablegate/internal/ast"
)

// RenameScope says whether a rename applies to a table or a field.
type RenameScope int

const (
	RenameTable RenameScope = iota
	RenameField
)

func (s RenameScope) String() string {
	if s == RenameTable {
		return "table"
	}
	return "field"
}

// RenameEvent records a name change for an unchanged id.
type RenameEvent struct {
	Scope   RenameScope
	TableID int64
	FieldID int64 // zero for table renames
	OldName string
	NewName string
}

// DetectRenames pairs fields by id only. A field whose id exists on both
// sides with a different name is renamed; ids present on one side are never
// matched heuristically. Results are ordered by field id.
func DetectRenames(tableID int64, previous, current []*ast.FieldDef) []RenameEvent {
	prev := make(map[int64]*ast.FieldDef, len(previous))
	for _, f := range previous {
		prev[f.ID] = f
	}

	var events []RenameEvent
	for _, f := range current {
		old, ok := prev[f.ID]
		if !ok || old.Name == f.Name {
			continue
		}
		events = append(events, RenameEvent{
			Scope:   RenameField,
			TableID: tableID,
			FieldID: f.ID,
			OldName: old.Name,
			NewName: f.Name,
		})
	}

	slices.SortFunc(events, func(a, b RenameEvent) int { return cmp.Compare(a.FieldID, b.FieldID) })
	return events
}

// DetectTableRenames pairs tables by id, ordered by table id.
func DetectTableRenames(previous, current []*ast.TableDef) []RenameEvent {
	prev := ast.IndexTables(previous)

	var events []RenameEvent
	for _, t := range current {
		old, ok := prev[t.ID]
		if !ok || old.Name == t.Name {
			continue
		}
		events = append(events, RenameEvent{
			Scope:   RenameTable,
			TableID: t.ID,
			OldName: old.Name,
			NewName: t.Name,
		})
	}

	slices.SortFunc(events, func(a, b RenameEvent) int { return cmp.Compare(a.TableID, b.TableID) })
	return events
}

// tempPrefix marks intermediate names used to break rename conflicts.
const tempPrefix = "_tg_tmp_"

// needsTwoPhase reports whether applying renames one by one would collide,
// such as a swap, or a chain where a new name is still held by another item.
func needsTwoPhase(events []RenameEvent) bool {
	olds := make(map[string]bool, len(events))
	for _, e := range events {
		olds[e.OldName] = true
	}
	for _, e := range events {
		if olds[e.NewName] {
			return true
		}
	}
	return false
}
