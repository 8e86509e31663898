package tablegate

import (
	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/engine"
	"github.com/hlop3z/tablegate/internal/kinds"
)

// Definition types. Tables and fields are identified by their stable ids;
// names may change between runs.
type (
	Table           = ast.TableDef
	Field           = ast.FieldDef
	FieldOptions    = ast.FieldOptions
	Kind            = kinds.Kind
	MigrationRecord = ast.MigrationRecord
	RenameEvent     = engine.RenameEvent
)

// Field kinds.
const (
	Text         = kinds.Text
	LongText     = kinds.LongText
	RichText     = kinds.RichText
	Email        = kinds.Email
	URL          = kinds.URL
	Phone        = kinds.Phone
	Slug         = kinds.Slug
	Color        = kinds.Color
	Barcode      = kinds.Barcode
	Collaborator = kinds.Collaborator

	Integer    = kinds.Integer
	BigInteger = kinds.BigInteger
	Decimal    = kinds.Decimal
	Currency   = kinds.Currency
	Percent    = kinds.Percent
	Rating     = kinds.Rating
	Duration   = kinds.Duration
	Autonumber = kinds.Autonumber

	Boolean  = kinds.Boolean
	Date     = kinds.Date
	DateTime = kinds.DateTime
	Time     = kinds.Time

	SingleSelect = kinds.SingleSelect
	MultiSelect  = kinds.MultiSelect
	LinkedRecord = kinds.LinkedRecord

	Attachment = kinds.Attachment
	JSON       = kinds.JSON
	UUID       = kinds.UUID
	IPAddress  = kinds.IPAddress
	Location   = kinds.Location

	// Virtual kinds produce no column.
	Formula          = kinds.Formula
	Rollup           = kinds.Rollup
	Lookup           = kinds.Lookup
	Count            = kinds.Count
	CreatedTime      = kinds.CreatedTime
	LastModifiedTime = kinds.LastModifiedTime
)
