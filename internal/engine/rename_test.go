package engine

import (
	"testing"

	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/kinds"
)

func TestDetectRenames(t *testing.T) {
	previous := []*ast.FieldDef{
		field(1, "email", kinds.Email),
		field(2, "name", kinds.Text),
		field(3, "gone", kinds.Text),
	}
	current := []*ast.FieldDef{
		field(4, "gone", kinds.Text),
		field(2, "full_name", kinds.Text),
		field(1, "contact_email", kinds.Email),
	}

	events := DetectRenames(7, previous, current)
	if len(events) != 2 {
		t.Fatalf("expected 2 renames, got %+v", events)
	}
	want := []RenameEvent{
		{Scope: RenameField, TableID: 7, FieldID: 1, OldName: "email", NewName: "contact_email"},
		{Scope: RenameField, TableID: 7, FieldID: 2, OldName: "name", NewName: "full_name"},
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestDetectRenamesIgnoresNameOnlyMatches(t *testing.T) {
	// Same name under a new id is a drop plus an add, never a rename.
	events := DetectRenames(1, []*ast.FieldDef{field(1, "email", kinds.Email)}, []*ast.FieldDef{field(2, "mail", kinds.Email)})
	if len(events) != 0 {
		t.Errorf("expected no renames, got %+v", events)
	}
}

func TestDetectTableRenames(t *testing.T) {
	events := DetectTableRenames(
		[]*ast.TableDef{table(2, "teams"), table(1, "people")},
		[]*ast.TableDef{table(1, "members"), table(2, "teams"), table(3, "people")},
	)
	if len(events) != 1 {
		t.Fatalf("expected 1 rename, got %+v", events)
	}
	e := events[0]
	if e.Scope != RenameTable || e.TableID != 1 || e.OldName != "people" || e.NewName != "members" {
		t.Errorf("event = %+v", e)
	}
	if e.Scope.String() != "table" {
		t.Errorf("Scope.String() = %q", e.Scope.String())
	}
}

func TestNeedsTwoPhase(t *testing.T) {
	tests := []struct {
		name   string
		events []RenameEvent
		want   bool
	}{
		{"none", nil, false},
		{"independent", []RenameEvent{{OldName: "a", NewName: "x"}, {OldName: "b", NewName: "y"}}, false},
		{"swap", []RenameEvent{{OldName: "a", NewName: "b"}, {OldName: "b", NewName: "a"}}, true},
		{"chain", []RenameEvent{{OldName: "a", NewName: "b"}, {OldName: "b", NewName: "c"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsTwoPhase(tt.events); got != tt.want {
				t.Errorf("needsTwoPhase() = %v, want %v", got, tt.want)
			}
		})
	}
}
