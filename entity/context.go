package entity

import (
	"reflect"

	"go.uber.org/yarpc/yarpcerrors"

	"github.com/helenus-driver/helenus-sub004/api"
)

// ColumnValue pairs a column name with the value bound for one row.
type ColumnValue struct {
	// Name of the column
	Name string
	// Value of the column
	Value interface{}
}

// Context binds a descriptor to one concrete instance and produces the
// column-name to value maps statement builds consume. A context is created
// fresh per statement build and never shared.
type Context struct {
	desc   *Descriptor
	object interface{}
}

// NewContext binds object to the descriptor. For root descriptors the
// context delegates to the subtype descriptor matching the object's runtime
// type.
func NewContext(d *Descriptor, object interface{}) (*Context, error) {
	if d.spec.Kind == KindEmbeddable {
		return nil, yarpcerrors.InvalidArgumentErrorf(
			"embeddable %q cannot bind a statement context", d.spec.Name)
	}
	if len(d.byType) > 0 {
		sub, ok := d.byType[reflect.TypeOf(object)]
		if !ok {
			return nil, yarpcerrors.InvalidArgumentErrorf(
				"type %T is not a subtype of root %q", object, d.spec.Name)
		}
		d = sub
	}
	return &Context{desc: d, object: object}, nil
}

// Descriptor returns the resolved (possibly subtype) descriptor.
func (c *Context) Descriptor() *Descriptor { return c.desc }

// Object returns the bound instance.
func (c *Context) Object() interface{} { return c.object }

// AllColumns returns name/value pairs for every column of the table, in
// declaration order.
func (c *Context) AllColumns(table string) ([]ColumnValue, error) {
	t, err := c.desc.table(table)
	if err != nil {
		return nil, err
	}
	return c.collect(t, func(Column) bool { return true })
}

// KeyColumns returns name/value pairs for the table's partition and
// clustering key columns.
func (c *Context) KeyColumns(table string) ([]ColumnValue, error) {
	t, err := c.desc.table(table)
	if err != nil {
		return nil, err
	}
	return c.collect(t, func(col Column) bool { return col.IsKey() })
}

// MandatoryAndKeyColumns returns name/value pairs for mandatory and key
// columns.
func (c *Context) MandatoryAndKeyColumns(table string) ([]ColumnValue, error) {
	t, err := c.desc.table(table)
	if err != nil {
		return nil, err
	}
	return c.collect(t, func(col Column) bool { return col.IsKey() || col.Mandatory || col.Discriminator })
}

// SubsetColumns returns name/value pairs for an explicit column subset,
// with mandatory and key columns injected first and the requested columns
// following in their given order.
func (c *Context) SubsetColumns(table string, names []string) ([]ColumnValue, error) {
	t, err := c.desc.table(table)
	if err != nil {
		return nil, err
	}
	out, err := c.collect(t, func(col Column) bool { return col.IsKey() || col.Mandatory || col.Discriminator })
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for _, cv := range out {
		seen[cv.Name] = struct{}{}
	}
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		col, ok := t.column(name)
		if !ok {
			return nil, yarpcerrors.InvalidArgumentErrorf(
				"column %q not mapped on table %q", name, table)
		}
		value, err := c.columnValue(col)
		if err != nil {
			return nil, err
		}
		seen[name] = struct{}{}
		out = append(out, ColumnValue{Name: name, Value: value})
	}
	return out, nil
}

func (c *Context) collect(t *tableInfo, want func(Column) bool) ([]ColumnValue, error) {
	out := make([]ColumnValue, 0, len(t.columns))
	for _, col := range t.columns {
		if !want(col) {
			continue
		}
		value, err := c.columnValue(col)
		if err != nil {
			return nil, err
		}
		out = append(out, ColumnValue{Name: col.Name, Value: value})
	}
	return out, nil
}

// columnValue extracts the bound value of one column. A key column backed
// by an optional field with no value yields api.ErrEmptyKey, which insert
// builds treat as "skip this table", not as a failure.
func (c *Context) columnValue(col Column) (interface{}, error) {
	if col.Discriminator && col.Field == "" {
		return c.desc.spec.DiscriminatorValue, nil
	}
	raw, err := objectField(c.object, col.Field)
	if err != nil {
		return nil, err
	}
	v := reflect.ValueOf(raw)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			if col.IsKey() {
				return nil, api.ErrEmptyKey
			}
			return nil, nil
		}
		return v.Elem().Interface(), nil
	case reflect.Map, reflect.Slice:
		if v.IsNil() {
			if col.IsKey() {
				return nil, api.ErrEmptyKey
			}
			return nil, nil
		}
	case reflect.Invalid:
		if col.IsKey() {
			return nil, api.ErrEmptyKey
		}
		return nil, nil
	}
	return raw, nil
}
