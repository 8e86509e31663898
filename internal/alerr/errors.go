// Package alerr provides standardized error handling for tablegate.
// All errors have stable, machine-readable codes, structured context, and proper wrapping.
package alerr

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Code represents a stable, machine-readable error code.
// Format: E{category}{number} where category is 1-9 and number is 001-999.
type Code string

// Error codes organized by category.
const (
	// Definition errors (E1xxx) - the declared table set is inconsistent
	ErrDefinitionInvalid Code = "E1001" // Definition set is malformed
	ErrUnknownKind       Code = "E1002" // Field kind is not registered
	ErrDuplicateID       Code = "E1003" // Table or field id used twice
	ErrDuplicateName     Code = "E1004" // Table or field name used twice
	ErrDanglingLink      Code = "E1005" // Linked-record target does not exist
	ErrInvalidIdentifier Code = "E1006" // Name does not match allowed pattern
	ErrInvalidOption     Code = "E1007" // Field option is missing or invalid
	ErrReservedName      Code = "E1008" // Name collides with a system column or table

	// Generation errors (E2xxx) - the diff cannot be expressed as DDL
	ErrDDLGeneration     Code = "E2001" // DDL could not be generated
	ErrUnsupportedChange Code = "E2002" // Change cannot be applied in place

	// Lock errors (E3xxx)
	ErrLockAcquisition Code = "E3001" // Advisory lock was not acquired in time
	ErrLockRelease     Code = "E3002" // Advisory lock release failed

	// Execution errors (E4xxx) - problems with database operations
	ErrDDLExecution        Code = "E4001" // DDL statement failed to execute
	ErrSQLConnection       Code = "E4002" // Database connection failed
	ErrSQLTransaction      Code = "E4003" // Transaction operation failed
	ErrChecksumPersistence Code = "E4004" // Checksum or history write failed

	// History errors (E5xxx)
	ErrHistoryRead Code = "E5001" // Schema history tables could not be read

	// Introspection errors (E6xxx)
	ErrIntrospection Code = "E6001" // Database catalog introspection failed

	// Config errors (E8xxx)
	ErrConfigInvalid Code = "E8001" // Configuration is invalid
	ErrConfigRead    Code = "E8002" // Configuration or definition file unreadable

	// Internal errors (E9xxx) - unexpected internal errors
	EInternalError Code = "E9001" // Internal error
)

// Category names the failure class an error code belongs to.
type Category string

const (
	CategoryDefinition   Category = "DefinitionValidationError"
	CategoryGeneration   Category = "DDLGenerationError"
	CategoryLock         Category = "LockAcquisitionFailure"
	CategoryExecution    Category = "DDLExecutionError"
	CategoryPersistence  Category = "ChecksumPersistenceError"
	CategoryHistory      Category = "HistoryReadError"
	CategoryIntrospect   Category = "IntrospectionError"
	CategoryConfig       Category = "ConfigError"
	CategoryInternal     Category = "InternalError"
	CategoryUnknown      Category = ""
)

// CategoryOfCode maps a code to its category.
func CategoryOfCode(code Code) Category {
	switch code {
	case ErrChecksumPersistence:
		return CategoryPersistence
	case ErrLockRelease:
		return CategoryLock
	}
	if len(code) < 2 {
		return CategoryUnknown
	}
	switch code[1] {
	case '1':
		return CategoryDefinition
	case '2':
		return CategoryGeneration
	case '3':
		return CategoryLock
	case '4':
		return CategoryExecution
	case '5':
		return CategoryHistory
	case '6':
		return CategoryIntrospect
	case '8':
		return CategoryConfig
	case '9':
		return CategoryInternal
	}
	return CategoryUnknown
}

// CategoryOf returns the category of the outermost coded error in err's chain.
// A ChecksumPersistenceError wrapped by an execution error reports as DDLExecutionError.
func CategoryOf(err error) Category {
	return CategoryOfCode(GetErrorCode(err))
}

// Error is the standard error type for tablegate.
// It provides structured error information with codes, context, and wrapping support.
type Error struct {
	code    Code           // Machine-readable error code
	message string         // Human-readable error message
	context map[string]any // Structured context data
	cause   error          // Wrapped underlying error
	stack   string         // Stack trace for debugging
}

// Error returns the formatted error string.
// Format:
//
//	[E1002] unknown field kind "geo"
//	  field: location
//	  table: stores
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.code, e.message))

	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			b.WriteString(fmt.Sprintf("\n  %s: %v", k, e.context[k]))
		}
	}

	if e.cause != nil {
		b.WriteString(fmt.Sprintf("\n  cause: %v", e.cause))
	}

	return b.String()
}

// Unwrap returns the underlying cause error for errors.Unwrap compatibility.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether the target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.code == targetErr.code
	}

	return false
}

// GetCode returns the error code.
func (e *Error) GetCode() Code {
	return e.code
}

// GetMessage returns the error message.
func (e *Error) GetMessage() string {
	return e.message
}

// GetContext returns the error context map.
func (e *Error) GetContext() map[string]any {
	return e.context
}

// GetCause returns the underlying cause error.
func (e *Error) GetCause() error {
	return e.cause
}

// GetStack returns the stack trace.
func (e *Error) GetStack() string {
	return e.stack
}

// Category returns the failure class of this error.
func (e *Error) Category() Category {
	return CategoryOfCode(e.code)
}

// With adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) With(key string, value any) *Error {
	if e.context == nil {
		e.context = make(map[string]any)
	}
	e.context[key] = value
	return e
}

// WithTable adds table context to the error.
func (e *Error) WithTable(table string) *Error {
	return e.With("table", table)
}

// WithField adds field context to the error.
func (e *Error) WithField(name string) *Error {
	return e.With("field", name)
}

// WithSQL adds SQL statement context to the error.
func (e *Error) WithSQL(sql string) *Error {
	return e.With("sql", sql)
}

// WithNote adds a note to the error (displayed as "note: ...").
func (e *Error) WithNote(note string) *Error {
	notes, _ := e.context["notes"].([]string)
	notes = append(notes, note)
	return e.With("notes", notes)
}

// WithHelp adds a help suggestion to the error (displayed as "help: ...").
func (e *Error) WithHelp(help string) *Error {
	helps, _ := e.context["helps"].([]string)
	helps = append(helps, help)
	return e.With("helps", helps)
}

// Notes returns all notes attached to this error.
func (e *Error) Notes() []string {
	notes, _ := e.context["notes"].([]string)
	return notes
}

// Helps returns all help suggestions attached to this error.
func (e *Error) Helps() []string {
	helps, _ := e.context["helps"].([]string)
	return helps
}

// SQL returns the statement attached with WithSQL, if any.
func (e *Error) SQL() string {
	s, _ := e.context["sql"].(string)
	return s
}

// captureStack captures a stack trace for debugging.
func captureStack(skip int) string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if strings.Contains(frame.File, "runtime/") {
			if !more {
				break
			}
			continue
		}
		b.WriteString(fmt.Sprintf("%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return b.String()
}

// New creates a new Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
		stack:   captureStack(3),
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		code:    code,
		message: fmt.Sprintf(format, args...),
		context: make(map[string]any),
		stack:   captureStack(3),
	}
}

// Wrap creates a new Error that wraps an existing error.
func Wrap(code Code, err error, msg string) *Error {
	if err == nil {
		return New(code, msg)
	}
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
		cause:   err,
		stack:   captureStack(3),
	}
}

// Wrapf creates a new Error that wraps an existing error with a formatted message.
func Wrapf(code Code, err error, format string, args ...any) *Error {
	return Wrap(code, err, fmt.Sprintf(format, args...))
}

// GetErrorCode extracts the outermost error code from an error chain.
// Returns empty string if no code is found.
func GetErrorCode(err error) Code {
	if err == nil {
		return ""
	}

	var coded *Error
	if errors.As(err, &coded) {
		return coded.code
	}

	return ""
}

// Is checks if an error has the specified code anywhere in its chain.
func Is(err error, code Code) bool {
	for err != nil {
		var coded *Error
		if !errors.As(err, &coded) {
			return false
		}
		if coded.code == code {
			return true
		}
		err = coded.cause
	}
	return false
}

// HasCode checks if an error has any error code.
func HasCode(err error) bool {
	return GetErrorCode(err) != ""
}
