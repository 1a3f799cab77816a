package api

import (
	"context"
	"reflect"
)

// Row exposes one result row through a narrow contract: null checks, typed
// getters per primitive, and the element runtime types advertised for
// collection columns. The codec layer depends only on this interface.
type Row interface {
	// IsNull returns true when the column is absent or null in the row.
	IsNull(column string) bool

	// Value returns the store-native value of the column, nil when absent.
	Value(column string) interface{}

	// Columns returns the column names present in the row.
	Columns() []string

	// TypeArguments returns the element runtime types the store advertises
	// for a collection column (one for list/set, two for map). Nil for
	// non-collection columns.
	TypeArguments(column string) []reflect.Type
}

// ResultSet iterates over rows returned by the executor.
type ResultSet interface {
	// One returns the next row, or nil when the result is exhausted.
	One() Row

	// All drains the result set.
	All() []Row

	// Applied reports the applied flag of a conditional write result.
	Applied() bool

	// Close releases the underlying iterator.
	Close() error
}

// Executor sends rendered statements over the wire and returns result rows.
// The mapping core never performs I/O itself; it hands statement trees to an
// Executor. Execution sequence is Execute or ExecuteBatch per statement tree.
type Executor interface {
	// Execute runs a single statement.
	Execute(ctx context.Context, stmt Statement) (ResultSet, error)

	// ExecuteBatch runs the statements as one batch. Batches return no rows.
	ExecuteBatch(ctx context.Context, stmts []Statement) error
}

// FuncType is the function signature decorators wrap.
type FuncType func() error

// Decorator is a chainable wrapper around a FuncType.
type Decorator func(FuncType) FuncType

type contextKey string

// TagKey carries per-call metric tags in a context.
const TagKey = contextKey("tags")
