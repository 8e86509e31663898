// Package kinds defines the closed set of semantic field kinds and how each
// one is stored in PostgreSQL.
//
// Every kind is declared exactly once in the catalog below together with its
// storage rule. A kind that is not in the catalog cannot be parsed, so there
// is no fallback mapping for unrecognised input.
package kinds

import (
	"fmt"
	"sort"

	"github.com/hlop3z/tablegate/internal/alerr"
)

// Kind is the semantic type of a field.
type Kind string

// Field kinds.
const (
	Text         Kind = "text"
	LongText     Kind = "long_text"
	RichText     Kind = "rich_text"
	Email        Kind = "email"
	URL          Kind = "url"
	Phone        Kind = "phone"
	Slug         Kind = "slug"
	Color        Kind = "color"
	Barcode      Kind = "barcode"
	Collaborator Kind = "collaborator"

	Integer    Kind = "integer"
	BigInteger Kind = "big_integer"
	Decimal    Kind = "decimal"
	Currency   Kind = "currency"
	Percent    Kind = "percent"
	Rating     Kind = "rating"
	Duration   Kind = "duration"
	Autonumber Kind = "autonumber"

	Boolean Kind = "boolean"

	Date     Kind = "date"
	DateTime Kind = "date_time"
	Time     Kind = "time"

	SingleSelect Kind = "single_select"
	MultiSelect  Kind = "multi_select"
	LinkedRecord Kind = "linked_record"

	Attachment Kind = "attachment"
	JSON       Kind = "json"
	UUID       Kind = "uuid"
	IPAddress  Kind = "ip_address"
	Location   Kind = "location"

	Formula          Kind = "formula"
	Rollup           Kind = "rollup"
	Lookup           Kind = "lookup"
	Count            Kind = "count"
	CreatedTime      Kind = "created_time"
	LastModifiedTime Kind = "last_modified_time"
)

// Family groups kinds that share literal and default rendering rules.
type Family int

const (
	FamilyText Family = iota
	FamilyInteger
	FamilyNumeric
	FamilyBoolean
	FamilyDate
	FamilyTimestamp
	FamilyTime
	FamilyInterval
	FamilySelect
	FamilyMultiSelect
	FamilyLink
	FamilyDocument
	FamilyUUID
	FamilyNetwork
	FamilyGeometric
	FamilySerial
	FamilyVirtual
)

// Constraint is the column-level constraint a kind always carries.
type Constraint int

const (
	ConstraintNone      Constraint = iota
	ConstraintRange                // CHECK (col BETWEEN 0 AND max)
	ConstraintChoice               // CHECK (col IN (...))
	ConstraintChoiceSet            // CHECK (col <@ ARRAY[...])
	ConstraintReference            // REFERENCES target(id)
)

// Params carries the options that affect a kind's column type.
type Params struct {
	Precision int
	Scale     int
}

// Def describes how a kind is stored.
type Def struct {
	Kind        Kind
	Family      Family
	Constraint  Constraint
	Description string

	// SQLType returns the PostgreSQL column type. Nil for virtual kinds.
	SQLType func(p Params) string
}

// Virtual reports whether the kind has no physical column.
func (d *Def) Virtual() bool {
	return d.Family == FamilyVirtual
}

// Default decimal precision and scale.
const (
	DefaultPrecision = 18
	DefaultScale     = 2
	DefaultRatingMax = 5
)

func fixed(sqlType string) func(Params) string {
	return func(Params) string { return sqlType }
}

func numeric(precision, scale int) func(Params) string {
	return fixed(fmt.Sprintf("NUMERIC(%d, %d)", precision, scale))
}

func decimalType(p Params) string {
	precision, scale := p.Precision, p.Scale
	if precision == 0 {
		precision = DefaultPrecision
	}
	if scale == 0 && p.Precision == 0 {
		scale = DefaultScale
	}
	return fmt.Sprintf("NUMERIC(%d, %d)", precision, scale)
}

// catalog is the complete list of kinds, in display order.
var catalog = []Def{
	{Kind: Text, Family: FamilyText, SQLType: fixed("TEXT"), Description: "single line of text"},
	{Kind: LongText, Family: FamilyText, SQLType: fixed("TEXT"), Description: "multi-line text"},
	{Kind: RichText, Family: FamilyText, SQLType: fixed("TEXT"), Description: "formatted text (markdown/html)"},
	{Kind: Email, Family: FamilyText, SQLType: fixed("TEXT"), Description: "email address"},
	{Kind: URL, Family: FamilyText, SQLType: fixed("TEXT"), Description: "web address"},
	{Kind: Phone, Family: FamilyText, SQLType: fixed("TEXT"), Description: "phone number"},
	{Kind: Slug, Family: FamilyText, SQLType: fixed("TEXT"), Description: "url-safe identifier"},
	{Kind: Color, Family: FamilyText, SQLType: fixed("TEXT"), Description: "color code"},
	{Kind: Barcode, Family: FamilyText, SQLType: fixed("TEXT"), Description: "barcode value"},
	{Kind: Collaborator, Family: FamilyText, SQLType: fixed("TEXT"), Description: "external user identifier"},

	{Kind: Integer, Family: FamilyInteger, SQLType: fixed("INTEGER"), Description: "32-bit integer"},
	{Kind: BigInteger, Family: FamilyInteger, SQLType: fixed("BIGINT"), Description: "64-bit integer"},
	{Kind: Decimal, Family: FamilyNumeric, SQLType: decimalType, Description: "exact decimal (precision, scale)"},
	{Kind: Currency, Family: FamilyNumeric, SQLType: numeric(19, 4), Description: "monetary amount"},
	{Kind: Percent, Family: FamilyNumeric, SQLType: numeric(9, 4), Description: "percentage"},
	{Kind: Rating, Family: FamilyInteger, Constraint: ConstraintRange, SQLType: fixed("SMALLINT"), Description: "rating from 0 to max"},
	{Kind: Duration, Family: FamilyInterval, SQLType: fixed("INTERVAL"), Description: "time span"},
	{Kind: Autonumber, Family: FamilySerial, SQLType: fixed("BIGSERIAL"), Description: "auto-incrementing number"},

	{Kind: Boolean, Family: FamilyBoolean, SQLType: fixed("BOOLEAN"), Description: "true or false"},

	{Kind: Date, Family: FamilyDate, SQLType: fixed("DATE"), Description: "calendar date"},
	{Kind: DateTime, Family: FamilyTimestamp, SQLType: fixed("TIMESTAMPTZ"), Description: "timestamp with time zone"},
	{Kind: Time, Family: FamilyTime, SQLType: fixed("TIME"), Description: "time of day"},

	{Kind: SingleSelect, Family: FamilySelect, Constraint: ConstraintChoice, SQLType: fixed("TEXT"), Description: "one of a fixed set of choices"},
	{Kind: MultiSelect, Family: FamilyMultiSelect, Constraint: ConstraintChoiceSet, SQLType: fixed("TEXT[]"), Description: "subset of a fixed set of choices"},
	{Kind: LinkedRecord, Family: FamilyLink, Constraint: ConstraintReference, SQLType: fixed("INTEGER"), Description: "reference to a row of another table"},

	{Kind: Attachment, Family: FamilyDocument, SQLType: fixed("JSONB"), Description: "file metadata"},
	{Kind: JSON, Family: FamilyDocument, SQLType: fixed("JSONB"), Description: "arbitrary JSON document"},
	{Kind: UUID, Family: FamilyUUID, SQLType: fixed("UUID"), Description: "universally unique identifier"},
	{Kind: IPAddress, Family: FamilyNetwork, SQLType: fixed("INET"), Description: "IPv4 or IPv6 address"},
	{Kind: Location, Family: FamilyGeometric, SQLType: fixed("POINT"), Description: "geographic point"},

	{Kind: Formula, Family: FamilyVirtual, Description: "computed from an expression"},
	{Kind: Rollup, Family: FamilyVirtual, Description: "aggregate over linked records"},
	{Kind: Lookup, Family: FamilyVirtual, Description: "value read through a link"},
	{Kind: Count, Family: FamilyVirtual, Description: "number of linked records"},
	{Kind: CreatedTime, Family: FamilyVirtual, Description: "mirror of created_at"},
	{Kind: LastModifiedTime, Family: FamilyVirtual, Description: "mirror of updated_at"},
}

var registry = make(map[Kind]*Def, len(catalog))

func init() {
	for i := range catalog {
		d := &catalog[i]
		if _, exists := registry[d.Kind]; exists {
			panic("kind already registered: " + string(d.Kind))
		}
		if d.Virtual() != (d.SQLType == nil) {
			panic("kind storage rule mismatch: " + string(d.Kind))
		}
		registry[d.Kind] = d
	}
}

// LookupDef returns the definition of k, or nil when k is not registered.
func LookupDef(k Kind) *Def {
	return registry[k]
}

// Parse converts a name into a registered Kind.
func Parse(name string) (Kind, error) {
	k := Kind(name)
	if registry[k] == nil {
		err := alerr.New(alerr.ErrUnknownKind, "unknown field kind").
			With("kind", name)
		if hint := alerr.SuggestSimilar(name, Names()); hint != "" {
			err.WithHelp(hint)
		}
		return "", err
	}
	return k, nil
}

// Valid reports whether k is registered.
func (k Kind) Valid() bool {
	return registry[k] != nil
}

// Virtual reports whether k produces no column. Unregistered kinds are not virtual.
func (k Kind) Virtual() bool {
	d := registry[k]
	return d != nil && d.Virtual()
}

// All returns every registered definition in catalog order.
func All() []*Def {
	out := make([]*Def, len(catalog))
	for i := range catalog {
		out[i] = &catalog[i]
	}
	return out
}

// Names returns the sorted names of all kinds.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for _, d := range catalog {
		names = append(names, string(d.Kind))
	}
	sort.Strings(names)
	return names
}
