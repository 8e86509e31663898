package alerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Constructor Tests
// -----------------------------------------------------------------------------

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    Code
		message string
	}{
		{"definition error", ErrUnknownKind, "unknown field kind"},
		{"generation error", ErrDDLGeneration, "cannot generate DDL"},
		{"lock error", ErrLockAcquisition, "lock not acquired"},
		{"execution error", ErrDDLExecution, "statement failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)
			if err.GetCode() != tt.code {
				t.Errorf("code = %v, want %v", err.GetCode(), tt.code)
			}
			if err.GetMessage() != tt.message {
				t.Errorf("message = %v, want %v", err.GetMessage(), tt.message)
			}
			if err.GetCause() != nil {
				t.Error("expected nil cause for New()")
			}
			if err.GetStack() == "" {
				t.Error("expected stack trace to be captured")
			}
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("wrap existing error", func(t *testing.T) {
		cause := errors.New("relation \"users\" already exists")
		err := Wrap(ErrDDLExecution, cause, "failed to execute statement")

		if err.GetCause() != cause {
			t.Error("cause should be the wrapped error")
		}
		if !errors.Is(err, cause) {
			t.Error("errors.Is should find the cause")
		}
	})

	t.Run("wrap nil behaves like New", func(t *testing.T) {
		err := Wrap(ErrDDLExecution, nil, "nothing to wrap")
		if err.GetCause() != nil {
			t.Error("expected nil cause")
		}
	})

	t.Run("wrapf formats message", func(t *testing.T) {
		err := Wrapf(ErrHistoryRead, errors.New("boom"), "failed to read %s", "_migrations")
		if err.GetMessage() != "failed to read _migrations" {
			t.Errorf("message = %q", err.GetMessage())
		}
	})
}

// -----------------------------------------------------------------------------
// Formatting Tests
// -----------------------------------------------------------------------------

func TestErrorFormatting(t *testing.T) {
	err := New(ErrUnknownKind, `unknown field kind "geo"`).
		WithTable("stores").
		WithField("location")

	want := "[E1002] unknown field kind \"geo\"\n  field: location\n  table: stores"
	if got := err.Error(); got != want {
		t.Errorf("Error() =\n%s\nwant\n%s", got, want)
	}
}

func TestErrorFormattingWithCause(t *testing.T) {
	err := Wrap(ErrDDLExecution, errors.New("syntax error"), "failed to execute statement").
		WithSQL("ALTER TABLE x")

	got := err.Error()
	if !strings.Contains(got, "sql: ALTER TABLE x") {
		t.Errorf("missing sql context: %s", got)
	}
	if !strings.HasSuffix(got, "cause: syntax error") {
		t.Errorf("missing cause: %s", got)
	}
	if err.SQL() != "ALTER TABLE x" {
		t.Errorf("SQL() = %q", err.SQL())
	}
}

func TestNotesAndHelps(t *testing.T) {
	err := New(ErrDanglingLink, "target missing").
		WithNote("first").
		WithNote("second").
		WithHelp("add the table")

	if len(err.Notes()) != 2 {
		t.Errorf("Notes() = %v", err.Notes())
	}
	if len(err.Helps()) != 1 || err.Helps()[0] != "add the table" {
		t.Errorf("Helps() = %v", err.Helps())
	}
}

// -----------------------------------------------------------------------------
// Matching Tests
// -----------------------------------------------------------------------------

func TestIsMatchesCodeInChain(t *testing.T) {
	inner := Wrap(ErrChecksumPersistence, errors.New("disk full"), "failed to save checksum")
	outer := Wrap(ErrDDLExecution, inner, "migration rolled back")
	wrapped := fmt.Errorf("startup: %w", outer)

	if !Is(wrapped, ErrDDLExecution) {
		t.Error("expected outer code to match")
	}
	if !Is(wrapped, ErrChecksumPersistence) {
		t.Error("expected inner code to match")
	}
	if Is(wrapped, ErrLockAcquisition) {
		t.Error("unexpected match for unrelated code")
	}
	if GetErrorCode(wrapped) != ErrDDLExecution {
		t.Errorf("GetErrorCode() = %v", GetErrorCode(wrapped))
	}
	if !errors.Is(wrapped, New(ErrDDLExecution, "")) {
		t.Error("errors.Is should match by code")
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{New(ErrUnknownKind, ""), CategoryDefinition},
		{New(ErrDanglingLink, ""), CategoryDefinition},
		{New(ErrUnsupportedChange, ""), CategoryGeneration},
		{New(ErrLockAcquisition, ""), CategoryLock},
		{New(ErrDDLExecution, ""), CategoryExecution},
		{New(ErrChecksumPersistence, ""), CategoryPersistence},
		{Wrap(ErrDDLExecution, New(ErrChecksumPersistence, ""), ""), CategoryExecution},
		{New(ErrConfigInvalid, ""), CategoryConfig},
		{errors.New("plain"), CategoryUnknown},
		{nil, CategoryUnknown},
	}

	for _, tt := range tests {
		if got := CategoryOf(tt.err); got != tt.want {
			t.Errorf("CategoryOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
