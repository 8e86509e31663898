package engine

import (
	"testing"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/kinds"
)

func TestValidate(t *testing.T) {
	link := func(target string) *ast.FieldDef {
		f := field(2, "owner", kinds.LinkedRecord)
		f.Options.Target = target
		return f
	}

	tests := []struct {
		name   string
		tables []*ast.TableDef
		code   alerr.Code
	}{
		{"valid", []*ast.TableDef{table(1, "users", field(1, "email", kinds.Email), link("users"))}, ""},
		{"empty set", nil, ""},
		{"unknown kind", []*ast.TableDef{table(1, "stores", field(1, "spot", "geo"))}, alerr.ErrUnknownKind},
		{"zero table id", []*ast.TableDef{table(0, "users")}, alerr.ErrDefinitionInvalid},
		{"retired table", []*ast.TableDef{{ID: 1, Name: "users", Retired: true}}, alerr.ErrDefinitionInvalid},
		{"negative field id", []*ast.TableDef{table(1, "users", field(-1, "email", kinds.Email))}, alerr.ErrDefinitionInvalid},
		{"duplicate table id", []*ast.TableDef{table(1, "users"), table(1, "teams")}, alerr.ErrDuplicateID},
		{"duplicate table name", []*ast.TableDef{table(1, "users"), table(2, "users")}, alerr.ErrDuplicateName},
		{"duplicate field id", []*ast.TableDef{table(1, "users", field(1, "a", kinds.Text), field(1, "b", kinds.Text))}, alerr.ErrDuplicateID},
		{"duplicate field name", []*ast.TableDef{table(1, "users", field(1, "a", kinds.Text), field(2, "a", kinds.Text))}, alerr.ErrDuplicateName},
		{"invalid table name", []*ast.TableDef{table(1, "User Table")}, alerr.ErrInvalidIdentifier},
		{"invalid field name", []*ast.TableDef{table(1, "users", field(1, "1st", kinds.Text))}, alerr.ErrInvalidIdentifier},
		{"history table name", []*ast.TableDef{table(1, "_migrations")}, alerr.ErrReservedName},
		{"schema prefix", []*ast.TableDef{table(1, "_schema_extra")}, alerr.ErrReservedName},
		{"temp prefix", []*ast.TableDef{table(1, "_tg_tmp_t1")}, alerr.ErrReservedName},
		{"system column", []*ast.TableDef{table(1, "users", field(1, "created_at", kinds.DateTime))}, alerr.ErrReservedName},
		{"temp field prefix", []*ast.TableDef{table(1, "users", field(1, "_tg_tmp_f1", kinds.Text))}, alerr.ErrReservedName},
		{"dangling link", []*ast.TableDef{table(1, "users", link("teams"))}, alerr.ErrDanglingLink},
		{"select without choices", []*ast.TableDef{table(1, "users", field(1, "status", kinds.SingleSelect))}, alerr.ErrInvalidOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tables)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !alerr.Is(err, tt.code) {
				t.Fatalf("Validate() error = %v, want code %s", err, tt.code)
			}
			if alerr.CategoryOf(err) != alerr.CategoryDefinition {
				t.Errorf("category = %q", alerr.CategoryOf(err))
			}
		})
	}
}

func TestValidateErrorContext(t *testing.T) {
	err := Validate([]*ast.TableDef{table(1, "stores", field(1, "spot", "geo"))})

	coded, ok := err.(*alerr.Error)
	if !ok {
		t.Fatalf("expected *alerr.Error, got %T", err)
	}
	ctx := coded.GetContext()
	if ctx["table"] != "stores" || ctx["field"] != "spot" {
		t.Errorf("context = %v", ctx)
	}
}
