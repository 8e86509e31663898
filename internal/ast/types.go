package ast

import "time"

// OpType represents the type of a schema operation.
type OpType int

const (
	OpCreateTable OpType = iota
	OpDropTable
	OpRenameTable
	OpAddColumn
	OpDropColumn
	OpRenameColumn
	OpAlterColumn
	OpAddUnique
	OpAddCheck
	OpDropConstraint
	OpAddForeignKey
	OpDropForeignKey
)

// String returns the string representation of an OpType.
func (o OpType) String() string {
	switch o {
	case OpCreateTable:
		return "CreateTable"
	case OpDropTable:
		return "DropTable"
	case OpRenameTable:
		return "RenameTable"
	case OpAddColumn:
		return "AddColumn"
	case OpDropColumn:
		return "DropColumn"
	case OpRenameColumn:
		return "RenameColumn"
	case OpAlterColumn:
		return "AlterColumn"
	case OpAddUnique:
		return "AddUnique"
	case OpAddCheck:
		return "AddCheck"
	case OpDropConstraint:
		return "DropConstraint"
	case OpAddForeignKey:
		return "AddForeignKey"
	case OpDropForeignKey:
		return "DropForeignKey"
	default:
		return "Unknown"
	}
}

// SchemaChecksum is the singleton record of the last applied definition set.
type SchemaChecksum struct {
	Checksum        string
	LastGeneratedAt time.Time
}

// Migration outcomes recorded in history.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
)

// MigrationRecord is one successful migration run.
type MigrationRecord struct {
	ID                int64
	AppliedAt         time.Time
	Checksum          string
	PreviousChecksum  string
	Outcome           string
	StatementsApplied int
	Statements        []string
	RunID             string
	Duration          time.Duration
}
