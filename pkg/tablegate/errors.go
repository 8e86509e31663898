package tablegate

import (
	"errors"

	"github.com/hlop3z/tablegate/internal/alerr"
)

// ErrNoDatabase is returned by New when no database handle is given.
var ErrNoDatabase = errors.New("tablegate: database handle required")

// Failure categories reported by Category.
const (
	CategoryDefinition  = string(alerr.CategoryDefinition)
	CategoryGeneration  = string(alerr.CategoryGeneration)
	CategoryLock        = string(alerr.CategoryLock)
	CategoryExecution   = string(alerr.CategoryExecution)
	CategoryPersistence = string(alerr.CategoryPersistence)
	CategoryHistory     = string(alerr.CategoryHistory)
	CategoryIntrospect  = string(alerr.CategoryIntrospect)
)

// Category returns the failure class of err, such as
// "DefinitionValidationError" or "DDLExecutionError". It is empty for errors
// that did not originate in tablegate.
func Category(err error) string {
	return string(alerr.CategoryOf(err))
}

// FailedStatement returns the SQL statement attached to err, if any.
func FailedStatement(err error) string {
	var e *alerr.Error
	for err != nil {
		if !errors.As(err, &e) {
			return ""
		}
		if s := e.SQL(); s != "" {
			return s
		}
		err = e.Unwrap()
	}
	return ""
}
