package testutil

import (
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// NewMock returns a *sql.DB backed by go-sqlmock. Expectations match in
// order and must all be met by the end of the test; the database is closed
// first so pooled connections do not count as unmet Close calls.
func NewMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet database expectations: %v", err)
		}
		_ = db.Close()
	})
	return db, mock
}

// ExpectExec expects a statement starting with query and reports success.
func ExpectExec(mock sqlmock.Sqlmock, query string) *sqlmock.ExpectedExec {
	return mock.ExpectExec(Prefix(query)).WillReturnResult(sqlmock.NewResult(0, 0))
}

// ExpectRow expects a query starting with query that returns one row.
func ExpectRow(mock sqlmock.Sqlmock, query string, columns []string, values ...driver.Value) *sqlmock.ExpectedQuery {
	return mock.ExpectQuery(Prefix(query)).WillReturnRows(sqlmock.NewRows(columns).AddRow(values...))
}

// ExpectNoRows expects a query starting with query that returns nothing.
func ExpectNoRows(mock sqlmock.Sqlmock, query string) *sqlmock.ExpectedQuery {
	return mock.ExpectQuery(Prefix(query)).WillReturnRows(sqlmock.NewRows([]string{"value"}))
}

// Prefix turns literal SQL into a sqlmock pattern anchored at the start.
func Prefix(query string) string {
	return "^" + regexp.QuoteMeta(query)
}
