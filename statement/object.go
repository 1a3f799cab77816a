package statement

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/yarpc/yarpcerrors"

	"github.com/helenus-driver/helenus-sub004/api"
	"github.com/helenus-driver/helenus-sub004/entity"
)

// ObjectInsert is one INSERT statement bound to the domain object it was
// built from. Batches notify recorders about object inserts as they are
// staged.
type ObjectInsert struct {
	insert InsertBuilder
	object interface{}
	table  string
}

// ToUql renders the insert.
func (s *ObjectInsert) ToUql() (string, []interface{}, map[string]interface{}, error) {
	return s.insert.ToUql()
}

// StmtType returns api.InsertStmtType.
func (s *ObjectInsert) StmtType() api.StmtType { return api.InsertStmtType }

// IsCounterOp returns false; inserts never touch counter columns.
func (s *ObjectInsert) IsCounterOp() bool { return false }

// Object returns the bound domain object.
func (s *ObjectInsert) Object() interface{} { return s.object }

// Table returns the table the insert targets.
func (s *ObjectInsert) Table() string { return s.table }

// GetData returns the underlying insert internals.
func (s *ObjectInsert) GetData() api.StatementAccessor { return s.insert.GetData() }

type insertOptions struct {
	columns     []string
	tables      []string
	ifNotExists bool
	usings      exprs
}

// InsertOption customizes an object insert build.
type InsertOption func(*insertOptions)

// WithColumns restricts the insert to an explicit column subset. Mandatory
// and key columns are always included, injected ahead of the subset.
func WithColumns(columns ...string) InsertOption {
	return func(o *insertOptions) { o.columns = append(o.columns, columns...) }
}

// WithTables restricts the build to a subset of the entity's tables.
func WithTables(tables ...string) InsertOption {
	return func(o *insertOptions) { o.tables = append(o.tables, tables...) }
}

// WithIfNotExists makes every generated insert conditional.
func WithIfNotExists() InsertOption {
	return func(o *insertOptions) { o.ifNotExists = true }
}

// WithUsing adds an option expression (TTL, TIMESTAMP) to every generated
// insert.
func WithUsing(sql string, args ...interface{}) InsertOption {
	return func(o *insertOptions) { o.usings = append(o.usings, expression(sql, args...)) }
}

// ObjectInserts builds the INSERT statements persisting an object across
// its mapped tables.
//
// Per table the column/value map is the full column set, or the union of
// mandatory+key columns with an explicitly requested subset. Multi-key
// columns expand into the Cartesian product of their value sets, one INSERT
// per combination. A table whose optional primary key carries no value is
// skipped, not failed: an object may legitimately map only a subset of its
// tables for a given state.
func ObjectInserts(d *entity.Descriptor, object interface{}, opts ...InsertOption) ([]*ObjectInsert, error) {
	o := &insertOptions{}
	for _, opt := range opts {
		opt(o)
	}

	ctx, err := entity.NewContext(d, object)
	if err != nil {
		return nil, err
	}
	desc := ctx.Descriptor()

	tables, err := desc.TableNames()
	if err != nil {
		return nil, err
	}
	if len(o.tables) > 0 {
		tables = intersect(tables, o.tables)
	}

	var out []*ObjectInsert
	for _, table := range tables {
		values, err := bindTable(ctx, table, o.columns)
		if errors.Cause(err) == api.ErrEmptyKey {
			log.WithFields(log.Fields{
				"entity": desc.Name(),
				"table":  table,
			}).Debug("skipping table with empty optional primary key")
			continue
		}
		if err != nil {
			return nil, err
		}

		expanded, err := expandMultiKeys(desc, table, values)
		if err != nil {
			return nil, err
		}
		for _, combo := range expanded {
			out = append(out, newObjectInsert(desc, object, table, combo, o))
		}
	}
	return out, nil
}

// bindTable resolves the column/value map for one table and validates
// mandatory columns.
func bindTable(ctx *entity.Context, table string, subset []string) ([]entity.ColumnValue, error) {
	var (
		values []entity.ColumnValue
		err    error
	)
	if len(subset) == 0 {
		values, err = ctx.AllColumns(table)
	} else {
		values, err = ctx.SubsetColumns(table, subset)
	}
	if err != nil {
		return nil, err
	}

	cols, err := ctx.Descriptor().Columns(table)
	if err != nil {
		return nil, err
	}
	mandatory := map[string]bool{}
	for _, c := range cols {
		mandatory[c.Name] = c.Mandatory
	}

	bound := values[:0]
	for _, cv := range values {
		if cv.Value == nil {
			if mandatory[cv.Name] {
				return nil, yarpcerrors.InvalidArgumentErrorf(
					"mandatory column %q has no value", cv.Name)
			}
			continue // absent optionals are not bound
		}
		bound = append(bound, cv)
	}
	return bound, nil
}

// expandMultiKeys computes the Cartesian product across all multi-key
// columns' value sets, yielding one column/value map per combination.
// Elements are visited in a deterministic order.
func expandMultiKeys(desc *entity.Descriptor, table string, values []entity.ColumnValue) ([][]entity.ColumnValue, error) {
	cols, err := desc.Columns(table)
	if err != nil {
		return nil, err
	}
	multiKey := map[string]bool{}
	for _, c := range cols {
		if c.MultiKey {
			multiKey[c.Name] = true
		}
	}

	combos := [][]entity.ColumnValue{append([]entity.ColumnValue(nil), values...)}
	for i, cv := range values {
		if !multiKey[cv.Name] {
			continue
		}
		elements, err := setElements(cv.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "multi-key column %q", cv.Name)
		}
		next := make([][]entity.ColumnValue, 0, len(combos)*len(elements))
		for _, combo := range combos {
			for _, e := range elements {
				dup := append([]entity.ColumnValue(nil), combo...)
				dup[i] = entity.ColumnValue{Name: cv.Name, Value: e}
				next = append(next, dup)
			}
		}
		combos = next
	}
	if len(combos) == 1 && len(combos[0]) == 0 {
		return nil, nil
	}
	return combos, nil
}

// setElements flattens a multi-key column value (a set or slice of discrete
// key values) into a deterministically ordered element list.
func setElements(value interface{}) ([]interface{}, error) {
	v := reflect.ValueOf(value)
	var out []interface{}
	switch v.Kind() {
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			out = append(out, iter.Key().Interface())
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			out = append(out, v.Index(i).Interface())
		}
	default:
		return nil, yarpcerrors.InvalidArgumentErrorf(
			"multi-key value must be a set or slice, not %T", value)
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out, nil
}

func newObjectInsert(desc *entity.Descriptor, object interface{}, table string,
	values []entity.ColumnValue, o *insertOptions) *ObjectInsert {

	columns := make([]string, len(values))
	bound := make([]interface{}, len(values))
	for i, cv := range values {
		columns[i] = cv.Name
		bound[i] = cv.Value
	}

	ins := NewInsert(table).Columns(columns...).Values(bound...)
	if ks := desc.Keyspace(); ks != "" {
		ins = ins.Keyspace(ks)
	}
	if o.ifNotExists {
		ins = ins.IfNotExists()
	}
	for _, u := range o.usings {
		ins = ins.Using(u.sql, u.args...)
	}
	return &ObjectInsert{insert: ins, object: object, table: table}
}

func intersect(all, want []string) []string {
	keep := map[string]struct{}{}
	for _, w := range want {
		keep[w] = struct{}{}
	}
	out := make([]string, 0, len(all))
	for _, t := range all {
		if _, ok := keep[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// CheckApplied inspects the result of a conditional insert. A missing row
// or a false applied flag is reported as api.ErrObjectAlreadyExists, a
// first-class outcome distinct from execution failure.
func CheckApplied(rs api.ResultSet) error {
	if rs == nil {
		return api.ErrObjectAlreadyExists
	}
	if !rs.Applied() {
		return api.ErrObjectAlreadyExists
	}
	return nil
}
