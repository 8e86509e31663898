package drift

import (
	"context"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/introspect"
	"github.com/hlop3z/tablegate/internal/mapper"
)

// Detector performs schema drift detection by comparing the recorded
// definitions against the live database catalog.
type Detector struct {
	reader *introspect.Reader
}

// NewDetector creates a new drift detector for the given database connection.
func NewDetector(db introspect.Queryer) *Detector {
	return &Detector{reader: introspect.New(db)}
}

// Result represents the complete drift detection result.
type Result struct {
	// HasDrift is true if any differences were found
	HasDrift bool

	// Tables is the number of tables that were checked
	Tables int

	// ExpectedHash is the merkle root of the expected tables
	ExpectedHash string

	// ActualHash is the merkle root of the same tables as found in the database
	ActualHash string

	// Comparison contains detailed comparison results
	Comparison *HashComparison
}

// Detect compares the tables defs describe against the database.
func (d *Detector) Detect(ctx context.Context, defs []*ast.TableDef) (*Result, error) {
	expected, err := Expected(defs)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(expected))
	for i, t := range expected {
		names[i] = t.Name
	}
	found, err := d.reader.Tables(ctx, names)
	if err != nil {
		return nil, err
	}
	actual := make([]*introspect.Table, 0, len(found))
	for _, t := range found {
		actual = append(actual, t)
	}

	expectedHash, err := ComputeSchemaHash(expected)
	if err != nil {
		return nil, err
	}
	actualHash, err := ComputeSchemaHash(actual)
	if err != nil {
		return nil, err
	}

	comparison := CompareHashes(expectedHash, actualHash)

	return &Result{
		HasDrift:     !comparison.Match,
		Tables:       len(expected),
		ExpectedHash: expectedHash.Root,
		ActualHash:   actualHash.Root,
		Comparison:   comparison,
	}, nil
}

// Expected renders defs into the catalog shape the database should have.
func Expected(defs []*ast.TableDef) ([]*introspect.Table, error) {
	m := mapper.New(defs)
	tables := make([]*introspect.Table, 0, len(defs))

	for _, def := range ast.SortTables(defs) {
		cols, err := m.TableColumns(def)
		if err != nil {
			return nil, alerr.Wrap(alerr.ErrIntrospection, err, "failed to map recorded definitions").
				WithTable(def.Name)
		}

		t := &introspect.Table{Name: def.Name}
		for _, col := range cols {
			t.Columns = append(t.Columns, &introspect.Column{
				Name:       col.Name,
				Type:       introspect.CanonicalType(col.Type),
				NotNull:    col.NotNull || col.PrimaryKey,
				PrimaryKey: col.PrimaryKey,
			})
			if col.Unique != nil {
				t.Constraints = append(t.Constraints, &introspect.Constraint{
					Name: col.Unique.Name, Type: introspect.ConstraintUnique, Column: col.Name,
				})
			}
			if col.Check != nil {
				t.Constraints = append(t.Constraints, &introspect.Constraint{
					Name: col.Check.Name, Type: introspect.ConstraintCheck, Column: col.Name,
				})
			}
			if col.References != nil {
				t.Constraints = append(t.Constraints, &introspect.Constraint{
					Name: col.References.Name, Type: introspect.ConstraintForeignKey, Column: col.Name,
				})
			}
		}
		tables = append(tables, t)
	}

	return tables, nil
}

// Summary provides a short account of drift detection results.
type Summary struct {
	Tables         int
	MissingTables  int
	ModifiedTables int
	Details        []TableSummary
}

// TableSummary summarizes drift for a single table.
type TableSummary struct {
	Name        string
	Status      string // "missing", "modified"
	Columns     Counts
	Constraints Counts
}

// Counts tracks missing/extra/modified counts.
type Counts struct {
	Missing  int
	Extra    int
	Modified int
}

// Summarize creates a summary from a drift detection result.
func Summarize(result *Result) *Summary {
	if result == nil || result.Comparison == nil {
		return &Summary{}
	}

	summary := &Summary{
		Tables:         result.Tables,
		MissingTables:  len(result.Comparison.MissingTables),
		ModifiedTables: len(result.Comparison.TableDiffs),
	}

	for _, name := range result.Comparison.MissingTables {
		summary.Details = append(summary.Details, TableSummary{Name: name, Status: "missing"})
	}
	for _, name := range result.Comparison.ModifiedTables() {
		diff := result.Comparison.TableDiffs[name]
		summary.Details = append(summary.Details, TableSummary{
			Name:   name,
			Status: "modified",
			Columns: Counts{
				Missing:  len(diff.MissingColumns),
				Extra:    len(diff.ExtraColumns),
				Modified: len(diff.ModifiedColumns),
			},
			Constraints: Counts{
				Missing:  len(diff.MissingConstraints),
				Extra:    len(diff.ExtraConstraints),
				Modified: len(diff.ModifiedConstraints),
			},
		})
	}

	return summary
}
