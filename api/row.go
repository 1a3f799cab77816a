package api

import "reflect"

// MapRow is a Row backed by a column-name keyed map, the shape gocql's
// MapScan produces. TypeArgs advertises element runtime types for
// collection columns.
type MapRow struct {
	Values   map[string]interface{}
	TypeArgs map[string][]reflect.Type
}

// NewMapRow builds a MapRow over scanned column values.
func NewMapRow(values map[string]interface{}) *MapRow {
	return &MapRow{Values: values, TypeArgs: map[string][]reflect.Type{}}
}

// WithTypeArguments declares the element runtime types of a collection
// column and returns the row for chaining.
func (r *MapRow) WithTypeArguments(column string, args ...reflect.Type) *MapRow {
	r.TypeArgs[column] = args
	return r
}

// IsNull returns true when the column is absent or nil.
func (r *MapRow) IsNull(column string) bool {
	v, ok := r.Values[column]
	return !ok || v == nil
}

// Value returns the raw column value, nil when absent.
func (r *MapRow) Value(column string) interface{} {
	return r.Values[column]
}

// Columns returns the column names present in the row.
func (r *MapRow) Columns() []string {
	cols := make([]string, 0, len(r.Values))
	for name := range r.Values {
		cols = append(cols, name)
	}
	return cols
}

// TypeArguments returns the advertised element types of a collection column.
func (r *MapRow) TypeArguments(column string) []reflect.Type {
	return r.TypeArgs[column]
}
