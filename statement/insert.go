package statement

import (
	"bytes"
	"strings"

	"errors"

	"github.com/lann/builder"

	"github.com/helenus-driver/helenus-sub004/api"
)

type insertData struct {
	PlaceholderFormat PlaceholderFormat
	Keyspace          string
	Table             string
	Columns           []string
	Values            []interface{}
	IfNotExists       bool
	Usings            exprs
}

var (
	// ErrMissingTable indicates that the insert is missing a target table
	ErrMissingTable = errors.New("insert statements must specify a table")

	// ErrMalformedValues indicates a column/value count mismatch
	ErrMalformedValues = errors.New("insert statements need one value per column")
)

func (d *insertData) ToSQL() (sqlStr string, args []interface{}, err error) {
	if len(d.Table) == 0 {
		err = ErrMissingTable
		return
	}
	if len(d.Columns) == 0 || len(d.Columns) != len(d.Values) {
		err = ErrMalformedValues
		return
	}
	sql := &bytes.Buffer{}

	sql.WriteString("INSERT INTO ")
	if len(d.Keyspace) > 0 {
		sql.WriteString(d.Keyspace)
		sql.WriteString(".")
	}
	sql.WriteString(d.Table)

	questions := make([]string, len(d.Values))
	for i := range questions {
		questions[i] = "?"
	}

	sql.WriteString(" (")
	sql.WriteString(strings.Join(d.Columns, ", "))
	sql.WriteString(") VALUES (")
	sql.WriteString(strings.Join(questions, ", "))
	sql.WriteString(")")
	args = append(args, d.Values...)

	if d.IfNotExists {
		sql.WriteString(" IF NOT EXISTS")
	}

	if len(d.Usings) > 0 {
		sql.WriteString(" USING ")
		args, _ = d.Usings.AppendToSQL(sql, " AND ", args)
	}

	sql.WriteString(";")

	sqlStr, err = d.PlaceholderFormat.ReplacePlaceholders(sql.String())
	return
}

func (d insertData) GetResource() string {
	return d.Table
}

func (d insertData) GetColumns() []string {
	return d.Columns
}

// Builder

// InsertBuilder builds CQL INSERT statements.
type InsertBuilder builder.Builder

func init() {
	builder.Register(InsertBuilder{}, insertData{})
}

// Format methods

// PlaceholderFormat sets PlaceholderFormat (e.g. Question or Dollar) for the
// insert.
func (b InsertBuilder) PlaceholderFormat(f PlaceholderFormat) InsertBuilder {
	return builder.Set(b, "PlaceholderFormat", f).(InsertBuilder)
}

// SQL methods

// ToSQL builds the insert into a SQL string and bound args.
func (b InsertBuilder) ToSQL() (string, []interface{}, error) {
	data := builder.GetStruct(b).(insertData)
	return data.ToSQL()
}

// ToUql builds the query into a UQL string and bound args.
// As an runtime optimization, it also returns query options
func (b InsertBuilder) ToUql() (query string, args []interface{},
	options map[string]interface{}, err error) {
	data := builder.GetStruct(b).(insertData)
	query, args, err = data.ToSQL()
	options = map[string]interface{}{
		"IsCAS": data.IfNotExists,
	}
	return
}

// StmtType returns type of the statement
func (b InsertBuilder) StmtType() api.StmtType {
	return api.InsertStmtType
}

// IsCounterOp returns false; inserts never touch counter columns.
func (b InsertBuilder) IsCounterOp() bool {
	return false
}

// GetData returns the underlying struct as an interface
func (b InsertBuilder) GetData() api.StatementAccessor {
	return builder.GetStruct(b).(insertData)
}

// Keyspace qualifies the target table with a keyspace.
func (b InsertBuilder) Keyspace(keyspace string) InsertBuilder {
	return builder.Set(b, "Keyspace", keyspace).(InsertBuilder)
}

// Into sets the table the insert targets.
func (b InsertBuilder) Into(table string) InsertBuilder {
	return builder.Set(b, "Table", table).(InsertBuilder)
}

// Columns sets the column list of the insert.
func (b InsertBuilder) Columns(columns ...string) InsertBuilder {
	return builder.Extend(b, "Columns", columns).(InsertBuilder)
}

// Values sets the values bound to the column list, index for index.
func (b InsertBuilder) Values(values ...interface{}) InsertBuilder {
	return builder.Extend(b, "Values", values).(InsertBuilder)
}

// IfNotExists makes the insert conditional on the row not existing. The
// applied flag of the result distinguishes object-already-exists from
// ordinary failure.
func (b InsertBuilder) IfNotExists() InsertBuilder {
	return builder.Set(b, "IfNotExists", true).(InsertBuilder)
}

// Using adds an option expression to the end of the insert.
func (b InsertBuilder) Using(sql string, args ...interface{}) InsertBuilder {
	return builder.Append(b, "Usings", expression(sql, args...)).(InsertBuilder)
}

// NewInsert returns an insert builder with question mark placeholders.
func NewInsert(table string) InsertBuilder {
	return InsertBuilder(builder.EmptyBuilder).
		PlaceholderFormat(Question).
		Into(table)
}
