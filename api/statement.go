package api

// StmtType describes the kind of a statement. Batches validate added
// statements based on this kind.
type StmtType int

// Recognized statement kinds.
const (
	UnknownStmtType StmtType = iota
	SelectStmtType
	InsertStmtType
	UpdateStmtType
	DeleteStmtType
	BatchStmtType
	SequenceStmtType
	RawStmtType
)

// Statement is anything that can be rendered to wire-level CQL text plus
// bound arguments. Rendering is purely computational; execution belongs to
// the Executor collaborator.
type Statement interface {
	// ToUql builds the statement into a CQL string and bound args.
	// As a runtime optimization, it also returns query options.
	ToUql() (query string, args []interface{}, options map[string]interface{}, err error)

	// StmtType returns the kind of the statement.
	StmtType() StmtType
}

// ObjectStatement is a statement bound to a concrete domain object. Batches
// notify recorders about object statements as they are staged.
type ObjectStatement interface {
	Statement

	// Object returns the domain object the statement was built from.
	Object() interface{}
}

// CounterStatement reports whether a statement operates on counter columns.
// A batch may contain counter statements or non-counter statements, never
// both.
type CounterStatement interface {
	// IsCounterOp returns true when the statement mutates counter columns.
	IsCounterOp() bool
}

// StatementAccessor provides an interface to access statement internals.
type StatementAccessor interface {
	// GetResource gets the resource (that is, the table) on which this
	// statement operates.
	GetResource() string

	// GetColumns returns the column names the statement touches.
	GetColumns() []string
}
