// Package drift provides schema drift detection using merkle trees.
// It compares the tables tablegate last applied against the live database
// catalog and identifies differences using hierarchical hashing.
package drift

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/cbergoon/merkletree"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/introspect"
)

// SchemaHash represents the merkle root hash of a set of tables.
type SchemaHash struct {
	Root   string                // Root hash of every table
	Tables map[string]*TableHash // Individual table hashes for drill-down
}

// TableHash represents the hash of a single table.
type TableHash struct {
	Name        string
	Hash        string            // Hash of entire table structure
	Columns     map[string]string // Column name -> hash
	Constraints map[string]string // Constraint name -> hash
}

// tableContent implements merkletree.Content for table-level hashing.
type tableContent struct {
	name string
	hash string
}

func (t tableContent) CalculateHash() ([]byte, error) {
	h := sha256.Sum256([]byte(t.hash))
	return h[:], nil
}

func (t tableContent) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(tableContent)
	if !ok {
		return false, nil
	}
	return t.hash == o.hash, nil
}

// ComputeSchemaHash computes the merkle tree hash for tables.
// The hash is hierarchical: tables -> columns/constraints.
func ComputeSchemaHash(tables []*introspect.Table) (*SchemaHash, error) {
	result := &SchemaHash{
		Tables: make(map[string]*TableHash, len(tables)),
	}
	if len(tables) == 0 {
		result.Root = emptyHash()
		return result, nil
	}

	sorted := make([]*introspect.Table, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	contents := make([]merkletree.Content, 0, len(sorted))
	for _, table := range sorted {
		th := computeTableHash(table)
		result.Tables[table.Name] = th
		contents = append(contents, tableContent{name: table.Name, hash: th.Hash})
	}

	tree, err := merkletree.NewTree(contents)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrIntrospection, err, "failed to build merkle tree")
	}

	result.Root = hex.EncodeToString(tree.MerkleRoot())
	return result, nil
}

// computeTableHash hashes columns and named constraints. Primary keys are
// compared through the column flag since their names are server-assigned.
func computeTableHash(table *introspect.Table) *TableHash {
	result := &TableHash{
		Name:        table.Name,
		Columns:     make(map[string]string),
		Constraints: make(map[string]string),
	}

	for _, col := range table.Columns {
		result.Columns[col.Name] = computeColumnHash(col)
	}
	for _, c := range table.Constraints {
		if c.Type == introspect.ConstraintPrimaryKey {
			continue
		}
		result.Constraints[c.Name] = computeConstraintHash(c)
	}

	data := fmt.Sprintf("table:%s|columns:[%s]|constraints:[%s]",
		table.Name,
		joinSorted(result.Columns),
		joinSorted(result.Constraints),
	)
	result.Hash = hashString(data)

	return result
}

// computeColumnHash computes a deterministic hash for a column.
func computeColumnHash(col *introspect.Column) string {
	return hashString(fmt.Sprintf("name:%s|type:%s|not_null:%v|pk:%v",
		col.Name,
		col.Type,
		col.NotNull || col.PrimaryKey,
		col.PrimaryKey,
	))
}

// computeConstraintHash computes a deterministic hash for a constraint.
func computeConstraintHash(c *introspect.Constraint) string {
	return hashString(fmt.Sprintf("name:%s|type:%s|column:%s", c.Name, c.Type, c.Column))
}

func joinSorted(hashes map[string]string) string {
	keys := make([]string, 0, len(hashes))
	for k := range hashes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + hashes[k]
	}
	return strings.Join(parts, ",")
}

// hashString computes SHA256 hash of a string and returns hex encoding.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// emptyHash returns a consistent hash for an empty table set.
func emptyHash() string {
	return hashString("empty_schema")
}

// CompareHashes compares two schema hashes and returns differences.
func CompareHashes(expected, actual *SchemaHash) *HashComparison {
	result := &HashComparison{
		Match:         expected.Root == actual.Root,
		ExpectedRoot:  expected.Root,
		ActualRoot:    actual.Root,
		TableDiffs:    make(map[string]*TableDiff),
		MissingTables: []string{},
	}

	if result.Match {
		return result
	}

	for name, expectedTable := range expected.Tables {
		actualTable, exists := actual.Tables[name]
		if !exists {
			result.MissingTables = append(result.MissingTables, name)
			continue
		}
		if expectedTable.Hash != actualTable.Hash {
			result.TableDiffs[name] = compareTableHashes(expectedTable, actualTable)
		}
	}
	sort.Strings(result.MissingTables)

	return result
}

// HashComparison represents the result of comparing two schema hashes.
type HashComparison struct {
	Match         bool                  // True if schemas are identical
	ExpectedRoot  string                // Expected schema root hash
	ActualRoot    string                // Actual schema root hash
	TableDiffs    map[string]*TableDiff // Tables with differences
	MissingTables []string              // Tables missing from actual
}

// ModifiedTables returns the names of tables with differences, sorted.
func (c *HashComparison) ModifiedTables() []string {
	names := make([]string, 0, len(c.TableDiffs))
	for name := range c.TableDiffs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TableDiff represents differences within a table.
type TableDiff struct {
	Name                string
	MissingColumns      []string // Columns missing from actual
	ExtraColumns        []string // Extra columns in actual
	ModifiedColumns     []string // Columns with different definitions
	MissingConstraints  []string
	ExtraConstraints    []string
	ModifiedConstraints []string
}

// HasDifferences returns true if the table has any differences.
func (d *TableDiff) HasDifferences() bool {
	return len(d.MissingColumns) > 0 ||
		len(d.ExtraColumns) > 0 ||
		len(d.ModifiedColumns) > 0 ||
		len(d.MissingConstraints) > 0 ||
		len(d.ExtraConstraints) > 0 ||
		len(d.ModifiedConstraints) > 0
}

// compareTableHashes compares two table hashes and returns differences.
func compareTableHashes(expected, actual *TableHash) *TableDiff {
	diff := &TableDiff{Name: expected.Name}
	diff.MissingColumns, diff.ExtraColumns, diff.ModifiedColumns = compareMaps(expected.Columns, actual.Columns)
	diff.MissingConstraints, diff.ExtraConstraints, diff.ModifiedConstraints = compareMaps(expected.Constraints, actual.Constraints)
	return diff
}

func compareMaps(expected, actual map[string]string) (missing, extra, modified []string) {
	for name, hash := range expected {
		actualHash, exists := actual[name]
		if !exists {
			missing = append(missing, name)
		} else if hash != actualHash {
			modified = append(modified, name)
		}
	}
	for name := range actual {
		if _, exists := expected[name]; !exists {
			extra = append(extra, name)
		}
	}

	sort.Strings(missing)
	sort.Strings(extra)
	sort.Strings(modified)
	return missing, extra, modified
}
