// Package schema assembles keyspace, table, index and seed-data statements
// from entity metadata. It is thin glue over the statement engine: all text
// it produces is handed to the executor collaborator as raw or batch
// statements, never executed here.
package schema

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"go.uber.org/yarpc/yarpcerrors"

	"github.com/helenus-driver/helenus-sub004/api"
	"github.com/helenus-driver/helenus-sub004/entity"
	"github.com/helenus-driver/helenus-sub004/statement"
)

// Options tune generated schema statements.
type Options struct {
	// ReplicationFactor of the generated keyspace; defaults to 1.
	ReplicationFactor int
	// IfNotExists guards every generated DDL statement.
	IfNotExists bool
}

func (o Options) replication() int {
	if o.ReplicationFactor < 1 {
		return 1
	}
	return o.ReplicationFactor
}

func (o Options) guard() string {
	if o.IfNotExists {
		return "IF NOT EXISTS "
	}
	return ""
}

// CreateKeyspace renders the CREATE KEYSPACE statement for a descriptor's
// keyspace.
func CreateKeyspace(d *entity.Descriptor, opts Options) (api.Statement, error) {
	ks := d.Keyspace()
	if ks == "" {
		return nil, yarpcerrors.InvalidArgumentErrorf(
			"entity %q declares no keyspace", d.Name())
	}
	cql := fmt.Sprintf(
		"CREATE KEYSPACE %s%s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d};",
		opts.guard(), ks, opts.replication())
	return statement.NewRaw(cql), nil
}

// CreateTables renders one CREATE TABLE statement per table mapped by the
// descriptor, with the merged hierarchy column set and the primary key
// clause derived from the column roles.
func CreateTables(d *entity.Descriptor, opts Options) ([]api.Statement, error) {
	if !d.SupportsTablesAndIndexes() {
		return nil, errors.Wrapf(api.ErrUnsupported,
			"embeddable %q has no tables", d.Name())
	}
	tables, err := d.TableNames()
	if err != nil {
		return nil, err
	}

	out := make([]api.Statement, 0, len(tables))
	for _, table := range tables {
		cols, err := d.Columns(table)
		if err != nil {
			return nil, err
		}
		cql, err := createTable(d.Keyspace(), table, cols, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "table %q", table)
		}
		out = append(out, statement.NewRaw(cql))
	}
	return out, nil
}

func createTable(keyspace, table string, cols []entity.Column, opts Options) (string, error) {
	sql := &bytes.Buffer{}
	sql.WriteString("CREATE TABLE ")
	sql.WriteString(opts.guard())
	if keyspace != "" {
		sql.WriteString(keyspace)
		sql.WriteString(".")
	}
	sql.WriteString(table)
	sql.WriteString(" (")

	var partition, clustering, descending []string
	for i, c := range cols {
		if i > 0 {
			sql.WriteString(", ")
		}
		cqlType, err := cqlTypeOf(c.Type)
		if err != nil {
			return "", errors.Wrapf(err, "column %q", c.Name)
		}
		sql.WriteString(c.Name)
		sql.WriteString(" ")
		sql.WriteString(cqlType)
		if c.PartitionKey {
			partition = append(partition, c.Name)
		}
		if c.ClusteringKey {
			clustering = append(clustering, c.Name)
			if c.Descending {
				descending = append(descending, c.Name)
			}
		}
	}
	if len(partition) == 0 {
		return "", yarpcerrors.InvalidArgumentErrorf("no partition key declared")
	}

	sql.WriteString(", PRIMARY KEY ((")
	sql.WriteString(strings.Join(partition, ", "))
	sql.WriteString(")")
	if len(clustering) > 0 {
		sql.WriteString(", ")
		sql.WriteString(strings.Join(clustering, ", "))
	}
	sql.WriteString("))")

	if len(descending) > 0 {
		orders := make([]string, len(descending))
		for i, name := range descending {
			orders[i] = name + " DESC"
		}
		sql.WriteString(" WITH CLUSTERING ORDER BY (")
		sql.WriteString(strings.Join(orders, ", "))
		sql.WriteString(")")
	}
	sql.WriteString(";")
	return sql.String(), nil
}

// CreateIndexes renders CREATE INDEX statements for every indexed column.
func CreateIndexes(d *entity.Descriptor, opts Options) ([]api.Statement, error) {
	if !d.SupportsTablesAndIndexes() {
		return nil, errors.Wrapf(api.ErrUnsupported,
			"embeddable %q has no indexes", d.Name())
	}
	tables, err := d.TableNames()
	if err != nil {
		return nil, err
	}

	var out []api.Statement
	for _, table := range tables {
		cols, err := d.Columns(table)
		if err != nil {
			return nil, err
		}
		qualified := table
		if ks := d.Keyspace(); ks != "" {
			qualified = ks + "." + table
		}
		for _, c := range cols {
			if !c.Indexed {
				continue
			}
			cql := fmt.Sprintf("CREATE INDEX %sON %s (%s);",
				opts.guard(), qualified, c.Name)
			out = append(out, statement.NewRaw(cql))
		}
	}
	return out, nil
}

// SeedBatch builds an unlogged batch inserting initial objects through the
// statement engine.
func SeedBatch(d *entity.Descriptor, objects ...interface{}) (*statement.Batch, error) {
	batch := statement.NewUnloggedBatch(nil)
	for _, obj := range objects {
		inserts, err := statement.ObjectInserts(d, obj)
		if err != nil {
			return nil, err
		}
		for _, ins := range inserts {
			if err := batch.Add(ins); err != nil {
				return nil, err
			}
		}
	}
	return batch, nil
}

// Generate assembles the full schema sequence for a descriptor: keyspace,
// tables, indexes and seed data, in order.
func Generate(d *entity.Descriptor, opts Options, seeds ...interface{}) (*statement.Sequence, error) {
	seq := statement.NewSequence()

	ks, err := CreateKeyspace(d, opts)
	if err != nil {
		return nil, err
	}
	if err := seq.Add(ks); err != nil {
		return nil, err
	}

	tables, err := CreateTables(d, opts)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if err := seq.Add(t); err != nil {
			return nil, err
		}
	}

	indexes, err := CreateIndexes(d, opts)
	if err != nil {
		return nil, err
	}
	for _, idx := range indexes {
		if err := seq.Add(idx); err != nil {
			return nil, err
		}
	}

	if len(seeds) > 0 {
		batch, err := SeedBatch(d, seeds...)
		if err != nil {
			return nil, err
		}
		if err := seq.Add(batch); err != nil {
			return nil, err
		}
	}
	return seq, nil
}

// cqlTypeOf maps a Go field type to its store column type.
func cqlTypeOf(t reflect.Type) (string, error) {
	switch t {
	case reflect.TypeOf([]byte(nil)):
		return "blob", nil
	case reflect.TypeOf(time.Time{}):
		return "timestamp", nil
	case reflect.TypeOf(gocql.UUID{}):
		return "uuid", nil
	case reflect.TypeOf((*time.Location)(nil)):
		return "text", nil
	}

	switch t.Kind() {
	case reflect.String:
		return "text", nil
	case reflect.Bool:
		return "boolean", nil
	case reflect.Int32:
		return "int", nil
	case reflect.Int, reflect.Int64, reflect.Uint64:
		return "bigint", nil
	case reflect.Float32:
		return "float", nil
	case reflect.Float64:
		return "double", nil
	case reflect.Slice:
		elem, err := cqlTypeOf(t.Elem())
		if err != nil {
			return "", err
		}
		return "list<" + elem + ">", nil
	case reflect.Map:
		key, err := cqlTypeOf(t.Key())
		if err != nil {
			return "", err
		}
		if t.Elem() == reflect.TypeOf(struct{}{}) {
			return "set<" + key + ">", nil
		}
		elem, err := cqlTypeOf(t.Elem())
		if err != nil {
			return "", err
		}
		return "map<" + key + ", " + elem + ">", nil
	case reflect.Ptr:
		return cqlTypeOf(t.Elem())
	}
	return "", yarpcerrors.InvalidArgumentErrorf("no column type for %v", t)
}
