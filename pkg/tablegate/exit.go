package tablegate

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/hlop3z/tablegate/internal/cli"
)

// Replaced in tests.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// MigrateOrExit runs Migrate and terminates the process with status 1 when
// it fails, after printing the error to stderr. It is meant to be the first
// call of a service's main, before any listener starts.
//
//	func main() {
//	    db := mustOpen()
//	    tablegate.MigrateOrExit(context.Background(), db, schema.Tables)
//	    serve(db)
//	}
func MigrateOrExit(ctx context.Context, db *sql.DB, tables []*Table, opts ...Option) *Result {
	eng, err := New(db, opts...)
	if err != nil {
		fail(err)
		return nil
	}
	res, err := eng.Migrate(ctx, tables)
	if err != nil {
		fail(err)
		return nil
	}
	return res
}

func fail(err error) {
	fmt.Fprint(stderr, cli.FormatError(err))
	exit(1)
}
