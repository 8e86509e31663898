package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hlop3z/tablegate/internal/alerr"
)

// MessageType represents the type of diagnostic message.
type MessageType int

const (
	TypeError MessageType = iota
	TypeWarning
	TypeNote
	TypeHelp
)

// DiagnosticMessage represents a single diagnostic message.
type DiagnosticMessage struct {
	Type    MessageType
	Code    string // Error code like "E1002" (empty for warnings/notes/help)
	Message string
	File    string
	Line    int
	Notes   []string
	Helps   []string
}

// shownElsewhere lists context keys rendered outside the generic block.
var shownElsewhere = map[string]bool{
	"sql": true, "file": true, "line": true,
	"notes": true, "helps": true,
}

// FormatError formats an error for CLI display in Cargo/rustc style.
// Coded errors show their category, context, failing statement and cause
// chain; other errors are printed as-is.
//
//	error[E4001] DDLExecutionError: schema statement failed
//	   |
//	   | sql: ALTER TABLE "users" ADD COLUMN "email" TEXT
//	   | sqlstate: 42701
//	   |
//	note: the transaction was rolled back
//	cause: pq: column "email" of relation "users" already exists
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var coded *alerr.Error
	if !errors.As(err, &coded) {
		return formatGenericError(err)
	}

	var b strings.Builder
	writeCoded(&b, coded, "")
	return b.String()
}

func writeCoded(b *strings.Builder, err *alerr.Error, indent string) {
	ctx := err.GetContext()

	b.WriteString(indent)
	b.WriteString(Error("error"))
	b.WriteString("[")
	b.WriteString(Code(string(err.GetCode())))
	b.WriteString("]")
	if cat := err.Category(); cat != alerr.CategoryUnknown {
		b.WriteString(" ")
		b.WriteString(Header(string(cat)))
	}
	b.WriteString(": ")
	b.WriteString(err.GetMessage())
	b.WriteString("\n")

	if file, _ := ctx["file"].(string); file != "" {
		loc := file
		if line, _ := ctx["line"].(int); line > 0 {
			loc = fmt.Sprintf("%s:%d", file, line)
		}
		fmt.Fprintf(b, "%s  %s %s\n", indent, Dim("-->"), FilePath(loc))
	}

	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		if !shownElsewhere[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	stmt := err.SQL()
	if stmt != "" || len(keys) > 0 {
		fmt.Fprintf(b, "%s   %s\n", indent, Pipe())
	}
	if stmt != "" {
		writeSQL(b, stmt, indent)
	}
	for _, k := range keys {
		fmt.Fprintf(b, "%s   %s %s: %v\n", indent, Pipe(), k, ctx[k])
	}
	if stmt != "" || len(keys) > 0 {
		fmt.Fprintf(b, "%s   %s\n", indent, Pipe())
	}

	for _, note := range err.Notes() {
		fmt.Fprintf(b, "%s%s: %s\n", indent, Note("note"), note)
	}
	for _, help := range err.Helps() {
		fmt.Fprintf(b, "%s%s: %s\n", indent, Help("help"), help)
	}

	cause := err.GetCause()
	if cause == nil {
		return
	}
	var inner *alerr.Error
	if errors.As(cause, &inner) {
		fmt.Fprintf(b, "%s%s:\n", indent, Note("caused by"))
		writeCoded(b, inner, indent+"  ")
		return
	}
	fmt.Fprintf(b, "%s%s: %s\n", indent, Note("cause"), cause.Error())
}

// writeSQL prints a statement, one line per source line.
func writeSQL(b *strings.Builder, stmt, indent string) {
	lines := strings.Split(stmt, "\n")
	if len(lines) == 1 {
		fmt.Fprintf(b, "%s   %s sql: %s\n", indent, Pipe(), SQL(stmt))
		return
	}
	fmt.Fprintf(b, "%s   %s sql:\n", indent, Pipe())
	for _, line := range lines {
		fmt.Fprintf(b, "%s   %s   %s\n", indent, Pipe(), SQL(line))
	}
}

// formatGenericError formats a non-alerr error.
func formatGenericError(err error) string {
	var b strings.Builder
	b.WriteString(Error("error"))
	b.WriteString(": ")
	b.WriteString(err.Error())
	b.WriteString("\n")
	return b.String()
}

// FormatWarning formats a warning message in Cargo style.
func FormatWarning(msg string, opts ...DiagnosticOption) string {
	diag := &DiagnosticMessage{
		Type:    TypeWarning,
		Message: msg,
	}
	for _, opt := range opts {
		opt(diag)
	}
	return formatDiagnostic(diag)
}

// FormatNote formats a note message.
func FormatNote(msg string) string {
	return Note("note") + ": " + msg + "\n"
}

// FormatHelp formats a help message.
func FormatHelp(msg string) string {
	return Help("help") + ": " + msg + "\n"
}

// FormatSuccess formats a success message.
func FormatSuccess(msg string) string {
	return Success("success") + ": " + msg + "\n"
}

// DiagnosticOption configures a diagnostic message.
type DiagnosticOption func(*DiagnosticMessage)

// WithFile sets the file location for a diagnostic.
func WithFile(file string, line int) DiagnosticOption {
	return func(d *DiagnosticMessage) {
		d.File = file
		d.Line = line
	}
}

// WithNotes adds notes to a diagnostic.
func WithNotes(notes ...string) DiagnosticOption {
	return func(d *DiagnosticMessage) {
		d.Notes = append(d.Notes, notes...)
	}
}

// WithHelps adds help suggestions to a diagnostic.
func WithHelps(helps ...string) DiagnosticOption {
	return func(d *DiagnosticMessage) {
		d.Helps = append(d.Helps, helps...)
	}
}

// formatDiagnostic formats a DiagnosticMessage.
func formatDiagnostic(d *DiagnosticMessage) string {
	var b strings.Builder

	switch d.Type {
	case TypeError:
		b.WriteString(Error("error"))
		if d.Code != "" {
			b.WriteString("[")
			b.WriteString(Code(d.Code))
			b.WriteString("]")
		}
	case TypeWarning:
		b.WriteString(Warning("warning"))
	case TypeNote:
		b.WriteString(Note("note"))
	case TypeHelp:
		b.WriteString(Help("help"))
	}

	b.WriteString(": ")
	b.WriteString(d.Message)
	b.WriteString("\n")

	if d.File != "" {
		loc := d.File
		if d.Line > 0 {
			loc = fmt.Sprintf("%s:%d", d.File, d.Line)
		}
		fmt.Fprintf(&b, "  %s %s\n", Dim("-->"), FilePath(loc))
	}

	for _, note := range d.Notes {
		fmt.Fprintf(&b, "%s: %s\n", Note("note"), note)
	}
	for _, help := range d.Helps {
		fmt.Fprintf(&b, "%s: %s\n", Help("help"), help)
	}

	return b.String()
}
