package ast

import (
	"github.com/hlop3z/tablegate/internal/alerr"
)

// Operation represents a single atomic change to the database schema.
type Operation interface {
	// Type returns the operation type (OpCreateTable, OpAddColumn, etc.)
	Type() OpType

	// Table returns the name of the table the operation targets.
	Table() string

	// Validate checks that the operation is well-formed.
	Validate() error
}

// TableOp provides the Name field for table-level operations.
type TableOp struct {
	Name string
}

// Table returns the table name.
func (t TableOp) Table() string { return t.Name }

// TableRef provides the Table_ field for column and constraint operations.
type TableRef struct {
	Table_ string
}

// Table returns the table name.
func (t TableRef) Table() string { return t.Table_ }

func requireTable(table, action string) error {
	if table == "" {
		return alerr.New(alerr.ErrDDLGeneration, "table name is required for "+action)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Table operations
// -----------------------------------------------------------------------------

// CreateTable creates a table with system and user columns.
// Foreign keys are never inline; they are added by AddForeignKey.
type CreateTable struct {
	TableOp
	Columns     []*ColumnSpec
	IfNotExists bool
}

func (op *CreateTable) Type() OpType { return OpCreateTable }

func (op *CreateTable) Validate() error {
	if err := requireTable(op.Name, "create table"); err != nil {
		return err
	}
	if len(op.Columns) == 0 {
		return alerr.New(alerr.ErrDDLGeneration, "table must have at least one column").
			WithTable(op.Name)
	}
	for _, col := range op.Columns {
		if col.Name == "" || col.Type == "" {
			return alerr.New(alerr.ErrDDLGeneration, "column name and type are required").
				WithTable(op.Name)
		}
	}
	return nil
}

// DropTable drops a table that left the definition set. Cascade also drops
// foreign keys of other tables that still point at it.
type DropTable struct {
	TableOp
	IfExists bool
	Cascade  bool
}

func (op *DropTable) Type() OpType { return OpDropTable }

func (op *DropTable) Validate() error {
	return requireTable(op.Name, "drop table")
}

// RenameTable renames a table whose id is unchanged.
type RenameTable struct {
	OldName string
	NewName string
}

func (op *RenameTable) Type() OpType { return OpRenameTable }

func (op *RenameTable) Table() string { return op.OldName }

func (op *RenameTable) Validate() error {
	if op.OldName == "" || op.NewName == "" {
		return alerr.New(alerr.ErrDDLGeneration, "old and new table names are required for rename")
	}
	if op.OldName == op.NewName {
		return alerr.New(alerr.ErrDDLGeneration, "old and new table names must be different").
			WithTable(op.OldName)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Column operations
// -----------------------------------------------------------------------------

// AddColumn adds a column. Unique and check constraints are rendered inline;
// references are added separately.
type AddColumn struct {
	TableRef
	Column *ColumnSpec
}

func (op *AddColumn) Type() OpType { return OpAddColumn }

func (op *AddColumn) Validate() error {
	if err := requireTable(op.Table_, "add column"); err != nil {
		return err
	}
	if op.Column == nil || op.Column.Name == "" || op.Column.Type == "" {
		return alerr.New(alerr.ErrDDLGeneration, "column definition is required").
			WithTable(op.Table_)
	}
	return nil
}

// DropColumn removes a column.
type DropColumn struct {
	TableRef
	Name string
}

func (op *DropColumn) Type() OpType { return OpDropColumn }

func (op *DropColumn) Validate() error {
	if err := requireTable(op.Table_, "drop column"); err != nil {
		return err
	}
	if op.Name == "" {
		return alerr.New(alerr.ErrDDLGeneration, "column name is required for drop column").
			WithTable(op.Table_)
	}
	return nil
}

// RenameColumn renames a column whose field id is unchanged.
type RenameColumn struct {
	TableRef
	OldName string
	NewName string
}

func (op *RenameColumn) Type() OpType { return OpRenameColumn }

func (op *RenameColumn) Validate() error {
	if err := requireTable(op.Table_, "rename column"); err != nil {
		return err
	}
	if op.OldName == "" || op.NewName == "" {
		return alerr.New(alerr.ErrDDLGeneration, "old and new column names are required for rename").
			WithTable(op.Table_)
	}
	if op.OldName == op.NewName {
		return alerr.New(alerr.ErrDDLGeneration, "old and new column names must be different").
			WithTable(op.Table_).
			WithField(op.OldName)
	}
	return nil
}

// AlterColumn modifies a column's type, nullability, or default.
// Only set the fields that should change. With a type change, DropDefault
// runs before the new type and SetDefault after it.
type AlterColumn struct {
	TableRef
	Name string

	NewType     string     // empty = no change
	Conversion  Conversion // how existing values reach NewType
	SetNotNull  *bool  // nil = no change
	SetDefault  string // empty = no change
	DropDefault bool
}

func (op *AlterColumn) Type() OpType { return OpAlterColumn }

func (op *AlterColumn) Validate() error {
	if err := requireTable(op.Table_, "alter column"); err != nil {
		return err
	}
	if op.Name == "" {
		return alerr.New(alerr.ErrDDLGeneration, "column name is required for alter column").
			WithTable(op.Table_)
	}
	if op.NewType == "" && op.SetNotNull == nil && op.SetDefault == "" && !op.DropDefault {
		return alerr.New(alerr.ErrDDLGeneration, "alter column must specify at least one change").
			WithTable(op.Table_).
			WithField(op.Name)
	}
	if op.SetDefault != "" && op.DropDefault && op.NewType == "" {
		return alerr.New(alerr.ErrDDLGeneration, "alter column cannot both set and drop a default without a type change").
			WithTable(op.Table_).
			WithField(op.Name)
	}
	return nil
}

// Conversion is the USING strategy of a column type change.
type Conversion int

const (
	ConvertCast      Conversion = iota // col::new_type
	ConvertToArray                     // scalar becomes a one-element array
	ConvertFromArray                   // array elements joined with commas
)

// -----------------------------------------------------------------------------
// Constraint operations
// -----------------------------------------------------------------------------

// AddUnique adds a named UNIQUE constraint on one column.
type AddUnique struct {
	TableRef
	Name   string
	Column string
}

func (op *AddUnique) Type() OpType { return OpAddUnique }

func (op *AddUnique) Validate() error {
	if err := requireTable(op.Table_, "add unique"); err != nil {
		return err
	}
	if op.Name == "" || op.Column == "" {
		return alerr.New(alerr.ErrDDLGeneration, "constraint name and column are required for add unique").
			WithTable(op.Table_)
	}
	return nil
}

// AddCheck adds a kind-implied CHECK constraint on one column.
type AddCheck struct {
	TableRef
	Column string
	Check  *CheckSpec
}

func (op *AddCheck) Type() OpType { return OpAddCheck }

func (op *AddCheck) Validate() error {
	if err := requireTable(op.Table_, "add check"); err != nil {
		return err
	}
	if op.Column == "" || op.Check == nil || op.Check.Name == "" {
		return alerr.New(alerr.ErrDDLGeneration, "column and named check are required for add check").
			WithTable(op.Table_)
	}
	return nil
}

// DropConstraint drops a unique or check constraint by name.
type DropConstraint struct {
	TableRef
	Name string
}

func (op *DropConstraint) Type() OpType { return OpDropConstraint }

func (op *DropConstraint) Validate() error {
	if err := requireTable(op.Table_, "drop constraint"); err != nil {
		return err
	}
	if op.Name == "" {
		return alerr.New(alerr.ErrDDLGeneration, "constraint name is required for drop constraint").
			WithTable(op.Table_)
	}
	return nil
}

// AddForeignKey adds a linked-record reference. IfNotExists guards against
// a constraint that already exists, for first runs against a populated database.
type AddForeignKey struct {
	TableRef
	Column      string
	Ref         *ForeignKeySpec
	IfNotExists bool
}

func (op *AddForeignKey) Type() OpType { return OpAddForeignKey }

func (op *AddForeignKey) Validate() error {
	if err := requireTable(op.Table_, "add foreign key"); err != nil {
		return err
	}
	if op.Column == "" || op.Ref == nil || op.Ref.Name == "" || op.Ref.Table == "" {
		return alerr.New(alerr.ErrDDLGeneration, "column, constraint name and target are required for add foreign key").
			WithTable(op.Table_)
	}
	return nil
}

// DropForeignKey drops a linked-record reference by name.
type DropForeignKey struct {
	TableRef
	Name string
}

func (op *DropForeignKey) Type() OpType { return OpDropForeignKey }

func (op *DropForeignKey) Validate() error {
	if err := requireTable(op.Table_, "drop foreign key"); err != nil {
		return err
	}
	if op.Name == "" {
		return alerr.New(alerr.ErrDDLGeneration, "constraint name is required for drop foreign key").
			WithTable(op.Table_)
	}
	return nil
}
