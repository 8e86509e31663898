package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hlop3z/tablegate/internal/alerr"
)

func init() {
	// Force plain mode in tests so style functions return raw text (no ANSI codes).
	SetDefault(&Config{Mode: ModePlain})
}

// ---------------------------------------------------------------------------
// FormatError
// ---------------------------------------------------------------------------

func TestFormatError_ExecutionFailure(t *testing.T) {
	err := alerr.Wrap(alerr.ErrDDLExecution, errors.New(`pq: column "email" of relation "users" already exists`), "schema statement failed").
		WithSQL(`ALTER TABLE "users" ADD COLUMN "email" TEXT`).
		With("sqlstate", "42701").
		With("statement_index", 2).
		WithNote("the transaction was rolled back; no statement of this run was applied")

	output := FormatError(err)

	checks := []string{
		"error[E4001] DDLExecutionError: schema statement failed",
		`| sql: ALTER TABLE "users" ADD COLUMN "email" TEXT`,
		"| sqlstate: 42701",
		"| statement_index: 2",
		"note: the transaction was rolled back",
		`cause: pq: column "email" of relation "users" already exists`,
	}
	for _, want := range checks {
		if !strings.Contains(output, want) {
			t.Errorf("FormatError output missing %q\ngot:\n%s", want, output)
		}
	}

	if strings.Index(output, "sqlstate") > strings.Index(output, "statement_index") {
		t.Errorf("context keys not sorted:\n%s", output)
	}
}

func TestFormatError_MultilineSQL(t *testing.T) {
	err := alerr.New(alerr.ErrDDLExecution, "schema statement failed").
		WithSQL("CREATE TABLE \"users\" (\n  \"id\" SERIAL PRIMARY KEY\n)")

	output := FormatError(err)
	for _, want := range []string{"| sql:\n", `|   CREATE TABLE "users" (`, `|     "id" SERIAL PRIMARY KEY`} {
		if !strings.Contains(output, want) {
			t.Errorf("FormatError output missing %q\ngot:\n%s", want, output)
		}
	}
}

func TestFormatError_DefinitionContext(t *testing.T) {
	err := alerr.New(alerr.ErrUnknownKind, "unknown field kind").
		WithTable("stores").
		WithField("spot").
		With("kind", "geo").
		With("file", "defs/stores.yaml").
		With("line", 12).
		WithHelp(`did you mean "location"?`)

	output := FormatError(err)

	checks := []string{
		"error[E1002] DefinitionValidationError: unknown field kind",
		"--> defs/stores.yaml:12",
		"| field: spot",
		"| kind: geo",
		"| table: stores",
		`help: did you mean "location"?`,
	}
	for _, want := range checks {
		if !strings.Contains(output, want) {
			t.Errorf("FormatError output missing %q\ngot:\n%s", want, output)
		}
	}
	if strings.Contains(output, "| file:") || strings.Contains(output, "| helps:") {
		t.Errorf("location or help repeated in context block:\n%s", output)
	}
}

func TestFormatError_NestedCause(t *testing.T) {
	inner := alerr.Wrap(alerr.ErrChecksumPersistence, errors.New("disk full"), "failed to save schema checksum").
		With("sqlstate", "53100")
	err := alerr.Wrap(alerr.ErrDDLExecution, inner, "failed to persist schema history")

	output := FormatError(err)

	checks := []string{
		"error[E4001] DDLExecutionError: failed to persist schema history",
		"caused by:",
		"  error[E4004] ChecksumPersistenceError: failed to save schema checksum",
		"  cause: disk full",
	}
	for _, want := range checks {
		if !strings.Contains(output, want) {
			t.Errorf("FormatError output missing %q\ngot:\n%s", want, output)
		}
	}
}

func TestFormatError_WrappedByFmt(t *testing.T) {
	err := fmt.Errorf("startup: %w", alerr.New(alerr.ErrLockAcquisition, "timed out waiting for migration lock"))

	output := FormatError(err)
	if !strings.Contains(output, "error[E3001] LockAcquisitionFailure: timed out waiting for migration lock") {
		t.Errorf("coded error not found through wrapper:\n%s", output)
	}
}

func TestFormatError_GenericError(t *testing.T) {
	output := FormatError(errors.New("something went wrong"))
	if output != "error: something went wrong\n" {
		t.Errorf("FormatError() = %q", output)
	}
}

func TestFormatError_Nil(t *testing.T) {
	if output := FormatError(nil); output != "" {
		t.Errorf("FormatError(nil) = %q, want empty", output)
	}
}

// ---------------------------------------------------------------------------
// FormatWarning
// ---------------------------------------------------------------------------

func TestFormatWarning(t *testing.T) {
	output := FormatWarning(`table "legacy" left the definition set and was kept`,
		WithFile("defs", 0),
		WithNotes("set drop_removed_tables to drop it"),
		WithHelps("remove the table by hand once its data is safe"))

	want := "warning: table \"legacy\" left the definition set and was kept\n" +
		"  --> defs\n" +
		"note: set drop_removed_tables to drop it\n" +
		"help: remove the table by hand once its data is safe\n"
	if output != want {
		t.Errorf("FormatWarning() =\n%s\nwant\n%s", output, want)
	}
}
