// Package checksum fingerprints a definition set so a startup can tell,
// without generating any DDL, whether the database already matches it.
//
// Each table is encoded canonically (fields ordered by id, options
// normalised) and hashed with SHA-256. The table hashes become the leaves of
// a merkle tree ordered by table id, so the root does not depend on the
// order in which tables or fields were declared.
package checksum

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"

	"github.com/cbergoon/merkletree"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/ast"
)

// FormatVersion is mixed into every hash. Bump it when the canonical
// encoding or the generated schema shape changes, so existing databases
// re-run the generator once.
const FormatVersion = "tablegate/1"

// Sum is the checksum of a definition set with per-table drill-down.
type Sum struct {
	Root   string           // merkle root, hex encoded
	Tables map[int64]string // table id -> table hash
}

type tableLeaf struct {
	id   int64
	hash []byte
}

func (l tableLeaf) CalculateHash() ([]byte, error) {
	return l.hash, nil
}

func (l tableLeaf) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(tableLeaf)
	if !ok {
		return false, nil
	}
	return l.id == o.id && bytes.Equal(l.hash, o.hash), nil
}

// Compute returns the hex merkle root of tables.
func Compute(tables []*ast.TableDef) (string, error) {
	sum, err := ComputeSum(tables)
	if err != nil {
		return "", err
	}
	return sum.Root, nil
}

// ComputeSum returns the root together with every table hash.
func ComputeSum(tables []*ast.TableDef) (*Sum, error) {
	sum := &Sum{Tables: make(map[int64]string, len(tables))}
	if len(tables) == 0 {
		sum.Root = emptyHash()
		return sum, nil
	}

	leaves := make([]merkletree.Content, 0, len(tables))
	for _, t := range ast.SortTables(tables) {
		h, err := tableHash(t)
		if err != nil {
			return nil, alerr.Wrap(alerr.EInternalError, err, "failed to encode table definition").
				WithTable(t.Name)
		}
		sum.Tables[t.ID] = hex.EncodeToString(h)
		leaves = append(leaves, tableLeaf{id: t.ID, hash: h})
	}

	tree, err := merkletree.NewTree(leaves)
	if err != nil {
		return nil, alerr.Wrap(alerr.EInternalError, err, "failed to build merkle tree")
	}
	sum.Root = hex.EncodeToString(tree.MerkleRoot())
	return sum, nil
}

// canonicalTable and canonicalField fix the key order of the encoding.
type canonicalTable struct {
	Version string           `json:"v"`
	ID      int64            `json:"id"`
	Name    string           `json:"name"`
	Fields  []canonicalField `json:"fields"`
}

type canonicalField struct {
	ID       int64            `json:"id"`
	Name     string           `json:"name"`
	Kind     string           `json:"kind"`
	Required bool             `json:"required"`
	Unique   bool             `json:"unique"`
	Options  ast.FieldOptions `json:"options"`
}

func tableHash(t *ast.TableDef) ([]byte, error) {
	ct := canonicalTable{Version: FormatVersion, ID: t.ID, Name: t.Name}
	for _, f := range t.SortedFields() {
		ct.Fields = append(ct.Fields, canonicalField{
			ID:       f.ID,
			Name:     f.Name,
			Kind:     string(f.Kind),
			Required: f.Required,
			Unique:   f.Unique,
			Options:  normalizeOptions(f.Options),
		})
	}

	data, err := json.Marshal(ct)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(data)
	return h[:], nil
}

// normalizeOptions removes differences that never reach the database:
// choice order and foreign key action spelling.
func normalizeOptions(opts ast.FieldOptions) ast.FieldOptions {
	if len(opts.Choices) > 0 {
		opts.Choices = slices.Clone(opts.Choices)
		slices.Sort(opts.Choices)
	}
	opts.OnDelete = strings.ToUpper(strings.TrimSpace(opts.OnDelete))
	return opts
}

func emptyHash() string {
	h := sha256.Sum256([]byte(FormatVersion + ":empty"))
	return hex.EncodeToString(h[:])
}

// -----------------------------------------------------------------------------
// Tracker
// -----------------------------------------------------------------------------

// Source reads the last applied checksum. It returns nil when none exists.
type Source interface {
	Load(ctx context.Context) (*ast.SchemaChecksum, error)
}

// Decision is the outcome of ShouldMigrate.
type Decision struct {
	Skip             bool
	Checksum         string
	PreviousChecksum string
}

// Tracker compares a definition set with the stored checksum.
type Tracker struct {
	source Source
}

// NewTracker returns a Tracker reading from source.
func NewTracker(source Source) *Tracker {
	return &Tracker{source: source}
}

// ShouldMigrate reports whether tables differ from what was last applied.
func (t *Tracker) ShouldMigrate(ctx context.Context, tables []*ast.TableDef) (Decision, error) {
	sum, err := Compute(tables)
	if err != nil {
		return Decision{}, err
	}
	return t.Check(ctx, sum)
}

// Check is ShouldMigrate for an already computed checksum.
func (t *Tracker) Check(ctx context.Context, sum string) (Decision, error) {
	stored, err := t.source.Load(ctx)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Checksum: sum}
	if stored != nil {
		d.PreviousChecksum = stored.Checksum
		d.Skip = stored.Checksum == sum
	}
	return d, nil
}
