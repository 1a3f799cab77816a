package statement

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"errors"

	"github.com/lann/builder"

	"github.com/helenus-driver/helenus-sub004/api"
)

type updateData struct {
	PlaceholderFormat PlaceholderFormat
	Keyspace          string
	Table             string
	SetClauses        []setClause
	SetClausesAdd     []setClause // collections and counters, +
	SetClausesRemove  []setClause // collections and counters, -
	WhereParts        []Sqlizer
	IfOnlyParts       []Sqlizer
	Usings            exprs
	Counter           bool
}

type setClause struct {
	column string
	value  interface{}
}

var (
	// ErrMalformedSetClause indicates that the update is missing a set clause
	ErrMalformedSetClause = errors.New("update statements must have at least one Set clause")

	// ErrMissingUpdateTable indicates that the update is missing a target table
	ErrMissingUpdateTable = errors.New("update statements must specify a table")
)

func (d *updateData) ToSQL() (sqlStr string, args []interface{}, err error) {
	if len(d.Table) == 0 {
		err = ErrMissingUpdateTable
		return
	}
	sql := &bytes.Buffer{}

	sql.WriteString("UPDATE ")
	if len(d.Keyspace) > 0 {
		sql.WriteString(d.Keyspace)
		sql.WriteString(".")
	}
	sql.WriteString(d.Table)

	if len(d.Usings) > 0 {
		sql.WriteString(" USING ")
		args, _ = d.Usings.AppendToSQL(sql, " AND ", args)
	}

	var setSqls []string
	if len(d.SetClauses) > 0 || len(d.SetClausesAdd) > 0 || len(d.SetClausesRemove) > 0 {
		sql.WriteString(" SET ")
		setSqls = make([]string, len(d.SetClauses)+len(d.SetClausesAdd)+len(d.SetClausesRemove))
	} else {
		err = ErrMalformedSetClause
		return
	}
	setIdx := 0
	for _, setClause := range d.SetClauses {
		var valSQL string
		e, isExpr := setClause.value.(expr)
		if isExpr {
			valSQL = e.sql
			args = append(args, e.args...)
		} else {
			valSQL = "?"
			args = append(args, setClause.value)
		}
		setSqls[setIdx] = fmt.Sprintf("%s = %s", setClause.column, valSQL)
		setIdx++
	}
	for _, setClause := range d.SetClausesAdd { // SET emails = emails + ?
		args = append(args, setClause.value)
		setSqls[setIdx] = fmt.Sprintf("%s = %s + ?", setClause.column, setClause.column)
		setIdx++
	}
	for _, setClause := range d.SetClausesRemove { // SET emails = emails - ?
		args = append(args, setClause.value)
		setSqls[setIdx] = fmt.Sprintf("%s = %s - ?", setClause.column, setClause.column)
		setIdx++
	}
	sql.WriteString(strings.Join(setSqls, ", "))

	if len(d.WhereParts) > 0 {
		sql.WriteString(" WHERE ")
		args, err = appendToSQL(d.WhereParts, sql, " AND ", args)
		if err != nil {
			return
		}
	}

	if len(d.IfOnlyParts) > 0 {
		sql.WriteString(" IF ")
		args, err = appendToSQL(d.IfOnlyParts, sql, " AND ", args)
		if err != nil {
			return
		}
	}

	sql.WriteString(";")

	sqlStr, err = d.PlaceholderFormat.ReplacePlaceholders(sql.String())
	return
}

func (d updateData) GetResource() string {
	return d.Table
}

func (d updateData) GetColumns() []string {
	columns := make([]string, 0, len(d.SetClauses)+len(d.SetClausesAdd)+len(d.SetClausesRemove))
	for _, clauses := range [][]setClause{d.SetClauses, d.SetClausesAdd, d.SetClausesRemove} {
		for _, c := range clauses {
			columns = append(columns, c.column)
		}
	}
	return columns
}

// Builder

// UpdateBuilder builds CQL UPDATE statements.
type UpdateBuilder builder.Builder

func init() {
	builder.Register(UpdateBuilder{}, updateData{})
}

// Format methods

// PlaceholderFormat sets PlaceholderFormat (e.g. Question or Dollar) for the
// update.
func (b UpdateBuilder) PlaceholderFormat(f PlaceholderFormat) UpdateBuilder {
	return builder.Set(b, "PlaceholderFormat", f).(UpdateBuilder)
}

// SQL methods

// ToSQL builds the update into a SQL string and bound args.
func (b UpdateBuilder) ToSQL() (string, []interface{}, error) {
	data := builder.GetStruct(b).(updateData)
	return data.ToSQL()
}

// ToUql builds the query into a UQL string and bound args.
// As an runtime optimization, it also returns query options
func (b UpdateBuilder) ToUql() (query string, args []interface{},
	options map[string]interface{}, err error) {
	data := builder.GetStruct(b).(updateData)
	query, args, err = data.ToSQL()
	options = map[string]interface{}{
		"IsCAS": len(data.IfOnlyParts) > 0,
	}
	return
}

// StmtType returns type of the statement
func (b UpdateBuilder) StmtType() api.StmtType {
	return api.UpdateStmtType
}

// GetData returns the underlying struct as an interface
func (b UpdateBuilder) GetData() api.StatementAccessor {
	return builder.GetStruct(b).(updateData)
}

// Keyspace qualifies the target table with a keyspace.
func (b UpdateBuilder) Keyspace(keyspace string) UpdateBuilder {
	return builder.Set(b, "Keyspace", keyspace).(UpdateBuilder)
}

// Table sets the table to be updated.
func (b UpdateBuilder) Table(table string) UpdateBuilder {
	return builder.Set(b, "Table", table).(UpdateBuilder)
}

// Set adds SET clauses to the update.
func (b UpdateBuilder) Set(column string, value interface{}) UpdateBuilder {
	return builder.Append(b, "SetClauses", setClause{column: column, value: value}).(UpdateBuilder)
}

// Add appends a value to a collection column, or increments a counter.
func (b UpdateBuilder) Add(column string, value interface{}) UpdateBuilder {
	return builder.Append(b, "SetClausesAdd", setClause{column: column, value: value}).(UpdateBuilder)
}

// Remove discards a value from a collection column, or decrements a counter.
func (b UpdateBuilder) Remove(column string, value interface{}) UpdateBuilder {
	return builder.Append(b, "SetClausesRemove", setClause{column: column, value: value}).(UpdateBuilder)
}

// SetMap is a convenience method which calls .Set for each key/value pair in clauses.
func (b UpdateBuilder) SetMap(clauses map[string]interface{}) UpdateBuilder {
	keys := make([]string, len(clauses))
	i := 0
	for key := range clauses {
		keys[i] = key
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		val := clauses[key]
		b = b.Set(key, val)
	}
	return b
}

// Where adds WHERE expressions to the update.
func (b UpdateBuilder) Where(pred interface{}, args ...interface{}) UpdateBuilder {
	return builder.Append(b, "WhereParts", newWherePart(pred, args...)).(UpdateBuilder)
}

// IfOnly represents a LWT
func (b UpdateBuilder) IfOnly(pred interface{}, rest ...interface{}) UpdateBuilder {
	return builder.Append(b, "IfOnlyParts", newWherePart(pred, rest...)).(UpdateBuilder)
}

// IsCAS returns true is the update statement has a compare-and-set part
func (b UpdateBuilder) IsCAS() bool {
	data := builder.GetStruct(b).(updateData)
	return len(data.IfOnlyParts) > 0
}

// Counter marks the update as a counter-column mutation. Batches refuse to
// mix counter and non-counter statements.
func (b UpdateBuilder) Counter() UpdateBuilder {
	return builder.Set(b, "Counter", true).(UpdateBuilder)
}

// IsCounterOp reports whether the update mutates counter columns.
func (b UpdateBuilder) IsCounterOp() bool {
	data := builder.GetStruct(b).(updateData)
	return data.Counter
}

// Using adds an option expression to the end of the update.
func (b UpdateBuilder) Using(sql string, args ...interface{}) UpdateBuilder {
	return builder.Append(b, "Usings", expression(sql, args...)).(UpdateBuilder)
}

// NewUpdate returns an update builder with question mark placeholders.
func NewUpdate(table string) UpdateBuilder {
	return UpdateBuilder(builder.EmptyBuilder).
		PlaceholderFormat(Question).
		Table(table)
}
