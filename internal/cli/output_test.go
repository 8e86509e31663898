package cli

import (
	"strings"
	"testing"
)

func init() {
	// Use plain mode for deterministic test output
	SetDefault(&Config{Mode: ModePlain})
}

func TestTable(t *testing.T) {
	table := NewTable("CHECKSUM", "OUTCOME", "STATEMENTS")
	table.AddRow("3f2a9c", "applied", "4")
	table.AddRow("b71e04", "noop")
	table.AddRow("too", "many", "cells", "dropped")

	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}

	want := "" +
		"CHECKSUM  OUTCOME  STATEMENTS\n" +
		"--------  -------  ----------\n" +
		"3f2a9c    applied  4\n" +
		"b71e04    noop\n" +
		"too       many     cells\n"
	if got := table.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestTableWidensColumns(t *testing.T) {
	table := NewTable("KIND", "TYPE")
	table.AddRow("linked_record", "INTEGER")

	lines := strings.Split(table.String(), "\n")
	if !strings.HasPrefix(lines[0], "KIND           TYPE") {
		t.Errorf("header not widened: %q", lines[0])
	}
	if lines[1] != "-------------  -------" {
		t.Errorf("separator = %q", lines[1])
	}
}

func TestTableEmpty(t *testing.T) {
	if got := NewTable().String(); got != "" {
		t.Errorf("String() = %q, want empty", got)
	}
}

func TestList(t *testing.T) {
	list := NewList()
	list.Add(`CREATE TABLE "users"`)
	list.AddSuccess("applied")
	list.AddWarning("table kept")
	list.AddError("failed")

	want := "" +
		"  • CREATE TABLE \"users\"\n" +
		"  ✓ applied\n" +
		"  ! table kept\n" +
		"  ✗ failed\n"
	if got := list.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
	if got := NewList().String(); got != "" {
		t.Errorf("empty list = %q", got)
	}
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"key value", FormatKeyValue("checksum", "abc"), "checksum: abc"},
		{"singular", FormatCount(1, "statement", "statements"), "1 statement"},
		{"plural", FormatCount(3, "statement", "statements"), "3 statements"},
		{"zero", FormatCount(0, "table", "tables"), "0 tables"},
		{"section", Section("Plan", "body\n"), "Plan\nbody\n"},
		{"note", FormatNote("n"), "note: n\n"},
		{"help", FormatHelp("h"), "help: h\n"},
		{"success", FormatSuccess("s"), "success: s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestBadgePlain(t *testing.T) {
	tests := map[string]string{
		"applied": "[APPLIED]",
		"skipped": "[SKIPPED]",
		"noop":    "[NOOP]",
		"failed":  "[FAILED]",
	}
	for in, want := range tests {
		if got := Badge(in); got != want {
			t.Errorf("Badge(%q) = %q, want %q", in, got, want)
		}
	}
}
