package cassandra

import (
	"reflect"
	"time"

	"github.com/gocql/gocql"

	"github.com/helenus-driver/helenus-sub004/api"
)

// ResultSet adapts a gocql iterator to the row contract the codec layer
// consumes. Conditional write results carry a single row plus the applied
// flag instead of an iterator.
type ResultSet struct {
	rawIter *gocql.Iter
	store   *Store

	applied bool
	casRow  map[string]interface{}
	casDone bool
}

// One returns the next row, nil when exhausted.
func (r *ResultSet) One() api.Row {
	if r.casRow != nil {
		if r.casDone {
			return nil
		}
		r.casDone = true
		return r.toRow(r.casRow)
	}
	if r.rawIter == nil {
		return nil
	}
	m := map[string]interface{}{}
	if !r.rawIter.MapScan(m) {
		return nil
	}
	return r.toRow(m)
}

// All drains the result set.
func (r *ResultSet) All() []api.Row {
	var rows []api.Row
	for row := r.One(); row != nil; row = r.One() {
		rows = append(rows, row)
	}
	return rows
}

// Applied reports the applied flag of a conditional write result.
func (r *ResultSet) Applied() bool { return r.applied }

// Close releases the underlying iterator.
func (r *ResultSet) Close() error {
	if r.rawIter == nil {
		return nil
	}
	return r.rawIter.Close()
}

// toRow wraps scanned values, advertising element runtime types for
// collection columns from the iterator's column metadata.
func (r *ResultSet) toRow(values map[string]interface{}) api.Row {
	row := api.NewMapRow(values)
	if r.rawIter == nil {
		return row
	}
	for _, col := range r.rawIter.Columns() {
		if collection, ok := col.TypeInfo.(gocql.CollectionType); ok {
			args := make([]reflect.Type, 0, 2)
			if collection.Key != nil {
				args = append(args, nativeType(collection.Key))
			}
			if collection.Elem != nil {
				args = append(args, nativeType(collection.Elem))
			}
			row.WithTypeArguments(col.Name, args...)
		}
	}
	return row
}

// nativeType maps a column type to the Go type gocql scans it into.
func nativeType(info gocql.TypeInfo) reflect.Type {
	switch info.Type() {
	case gocql.TypeVarchar, gocql.TypeText, gocql.TypeAscii:
		return reflect.TypeOf("")
	case gocql.TypeBoolean:
		return reflect.TypeOf(false)
	case gocql.TypeInt:
		return reflect.TypeOf(int(0))
	case gocql.TypeBigInt, gocql.TypeCounter:
		return reflect.TypeOf(int64(0))
	case gocql.TypeFloat:
		return reflect.TypeOf(float32(0))
	case gocql.TypeDouble:
		return reflect.TypeOf(float64(0))
	case gocql.TypeBlob:
		return reflect.TypeOf([]byte(nil))
	case gocql.TypeTimestamp:
		return reflect.TypeOf(time.Time{})
	case gocql.TypeUUID, gocql.TypeTimeUUID:
		return reflect.TypeOf(gocql.UUID{})
	default:
		return reflect.TypeOf((*interface{})(nil)).Elem()
	}
}
