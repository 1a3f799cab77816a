package entity

import (
	"reflect"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/yarpc/yarpcerrors"

	"github.com/helenus-driver/helenus-sub004/api"
	"github.com/helenus-driver/helenus-sub004/codec"
)

// ObjectConversionError indicates a row could not be dispatched to a
// concrete subtype: the discriminator column was missing from the row, or
// its decoded value matched no known subtype.
type ObjectConversionError struct {
	Entity string
	Reason string
}

func (e *ObjectConversionError) Error() string {
	return "cannot convert row to " + e.Entity + ": " + e.Reason
}

// tableInfo is the validated, merged view of one mapped table.
type tableInfo struct {
	name          string
	columns       []Column
	byName        map[string]int
	discriminator string // discriminator column name, empty when none
}

func (t *tableInfo) column(name string) (Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

func (t *tableInfo) add(c Column) {
	t.byName[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
}

func newTableInfo(name string) *tableInfo {
	return &tableInfo{name: name, byName: map[string]int{}}
}

// Descriptor is the validated, immutable metadata of one entity. It is
// constructed once per entity at first use and cached for the process
// lifetime.
type Descriptor struct {
	spec *Spec

	tables   []*tableInfo
	decoders map[string]map[string]codec.Decoder // table -> column -> decoder

	// Root descriptors own the subtype indexes. The subtype back-reference
	// is the root's name, not a pointer, so there is no ownership cycle.
	byValue map[string]*Descriptor
	byType  map[reflect.Type]*Descriptor

	rootName   string
	keyspace   string
	objectType reflect.Type
}

// NewDescriptor validates a spec and builds its descriptor. Construction
// failures are fatal: no descriptor escapes, and the registry keeps the
// failure sticky so the spec is never retried.
func NewDescriptor(spec *Spec) (*Descriptor, error) {
	d := &Descriptor{spec: spec, keyspace: spec.Keyspace}
	if err := d.build(); err != nil {
		return nil, err
	}
	return d, nil
}

// Name returns the entity name.
func (d *Descriptor) Name() string { return d.spec.Name }

// Kind returns the descriptor kind.
func (d *Descriptor) Kind() Kind { return d.spec.Kind }

// Keyspace returns the keyspace qualifying generated statements. Subtypes
// inherit the root's keyspace.
func (d *Descriptor) Keyspace() string { return d.keyspace }

// RootName returns the owning root's entity name; empty unless KindType.
func (d *Descriptor) RootName() string { return d.rootName }

// DiscriminatorValue returns the value selecting this subtype; KindType only.
func (d *Descriptor) DiscriminatorValue() string { return d.spec.DiscriminatorValue }

// ObjectType returns the concrete runtime type mapped by the descriptor,
// nil for abstract roots.
func (d *Descriptor) ObjectType() reflect.Type { return d.objectType }

// Subtypes returns the concrete subtype descriptors ordered by
// discriminator value; empty unless KindRoot.
func (d *Descriptor) Subtypes() []*Descriptor {
	values := make([]string, 0, len(d.byValue))
	for v := range d.byValue {
		values = append(values, v)
	}
	sort.Strings(values)
	out := make([]*Descriptor, len(values))
	for i, v := range values {
		out[i] = d.byValue[v]
	}
	return out
}

// SupportsTablesAndIndexes reports whether table and index level operations
// apply. Embeddables are values, not queryable entities.
func (d *Descriptor) SupportsTablesAndIndexes() bool {
	return d.spec.Kind != KindEmbeddable
}

// TableNames returns the mapped table names. Embeddables have none: their
// single backing column group is never exposed as a table.
func (d *Descriptor) TableNames() ([]string, error) {
	if !d.SupportsTablesAndIndexes() {
		return nil, errors.Wrap(api.ErrUnsupported, "embeddable has no tables")
	}
	names := make([]string, len(d.tables))
	for i, t := range d.tables {
		names[i] = t.name
	}
	return names, nil
}

// Columns returns the merged, ordered column set of a table.
func (d *Descriptor) Columns(table string) ([]Column, error) {
	t, err := d.table(table)
	if err != nil {
		return nil, err
	}
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out, nil
}

func (d *Descriptor) table(name string) (*tableInfo, error) {
	for _, t := range d.tables {
		if t.name == name {
			return t, nil
		}
	}
	return nil, yarpcerrors.NotFoundErrorf(
		"table %q not mapped by entity %q", name, d.spec.Name)
}

// Decoder returns the statically selected decoder for a column.
func (d *Descriptor) Decoder(table, column string) (codec.Decoder, error) {
	cols, ok := d.decoders[table]
	if !ok {
		return nil, yarpcerrors.NotFoundErrorf(
			"table %q not mapped by entity %q", table, d.spec.Name)
	}
	dec, ok := cols[column]
	if !ok {
		return nil, yarpcerrors.NotFoundErrorf(
			"column %q not mapped on table %q", column, table)
	}
	return dec, nil
}

// build runs construction-time validation for the spec's kind.
func (d *Descriptor) build() error {
	switch d.spec.Kind {
	case KindEmbeddable:
		return d.buildEmbeddable()
	case KindType:
		return yarpcerrors.InvalidArgumentErrorf(
			"type spec %q must be built through its root", d.spec.Name)
	case KindRoot:
		return d.buildRoot()
	}
	return yarpcerrors.InvalidArgumentErrorf("unknown entity kind %d", d.spec.Kind)
}

func (d *Descriptor) buildEmbeddable() error {
	s := d.spec
	if s.Abstract {
		return yarpcerrors.InvalidArgumentErrorf(
			"embeddable %q must not be abstract", s.Name)
	}
	if s.Factory == nil {
		return yarpcerrors.InvalidArgumentErrorf(
			"embeddable %q needs a factory", s.Name)
	}
	if len(s.Tables) != 1 {
		return yarpcerrors.InvalidArgumentErrorf(
			"embeddable %q needs exactly one backing column group", s.Name)
	}
	for _, c := range s.Tables[0].Columns {
		if c.IsKey() || c.Discriminator || c.MultiKey {
			return yarpcerrors.InvalidArgumentErrorf(
				"embeddable %q column %q declares a key role", s.Name, c.Name)
		}
	}
	d.objectType = reflect.TypeOf(s.Factory())
	return d.assemble(s.Tables, false)
}

func (d *Descriptor) buildRoot() error {
	s := d.spec
	if len(s.Subtypes) == 0 {
		// A root with no subtypes maps a plain concrete entity.
		if s.Abstract || s.Factory == nil {
			return yarpcerrors.InvalidArgumentErrorf(
				"entity %q without subtypes must be concrete", s.Name)
		}
		d.objectType = reflect.TypeOf(s.Factory())
		return d.assemble(s.Tables, false)
	}

	if s.Factory != nil && s.Abstract {
		return yarpcerrors.InvalidArgumentErrorf(
			"abstract root %q must not have a factory", s.Name)
	}

	// Step 1/2: build every subtype descriptor, rejecting duplicate mapped
	// classes and duplicate discriminator values.
	d.byValue = map[string]*Descriptor{}
	d.byType = map[reflect.Type]*Descriptor{}
	for _, sub := range s.Subtypes {
		td, err := buildType(s, sub)
		if err != nil {
			return err
		}
		if _, dup := d.byValue[sub.DiscriminatorValue]; dup {
			return yarpcerrors.InvalidArgumentErrorf(
				"root %q: duplicate discriminator value %q", s.Name, sub.DiscriminatorValue)
		}
		if _, dup := d.byType[td.objectType]; dup {
			return yarpcerrors.InvalidArgumentErrorf(
				"root %q: type %v mapped by more than one subtype", s.Name, td.objectType)
		}
		d.byValue[sub.DiscriminatorValue] = td
		d.byType[td.objectType] = td
	}

	// Step 3: every root table needs exactly one discriminator column, and
	// the subtype column sets are unioned into it. The merge iterates
	// subtypes sorted by discriminator value so the result is deterministic
	// regardless of declaration order.
	merged, err := mergeTables(s, d.Subtypes())
	if err != nil {
		return err
	}
	return d.assembleInfos(merged)
}

// assemble validates raw table specs and selects decoders.
func (d *Descriptor) assemble(tables []Table, needDiscriminator bool) error {
	infos := make([]*tableInfo, 0, len(tables))
	for _, t := range tables {
		info := newTableInfo(t.Name)
		for _, c := range t.Columns {
			if _, dup := info.byName[c.Name]; dup {
				return yarpcerrors.InvalidArgumentErrorf(
					"table %q: duplicate column %q", t.Name, c.Name)
			}
			if c.MultiKey && !c.IsKey() {
				return yarpcerrors.InvalidArgumentErrorf(
					"table %q: multi-key column %q must be a key column", t.Name, c.Name)
			}
			if c.Discriminator {
				if info.discriminator != "" {
					return yarpcerrors.InvalidArgumentErrorf(
						"table %q: more than one discriminator column", t.Name)
				}
				info.discriminator = c.Name
			}
			info.add(c)
		}
		if needDiscriminator && info.discriminator == "" {
			return yarpcerrors.InvalidArgumentErrorf(
				"table %q: hierarchy root needs a discriminator column", t.Name)
		}
		infos = append(infos, info)
	}
	return d.assembleInfos(infos)
}

// assembleInfos installs validated tables and statically selects a decoder
// per column.
func (d *Descriptor) assembleInfos(infos []*tableInfo) error {
	d.tables = infos
	d.decoders = map[string]map[string]codec.Decoder{}
	for _, t := range infos {
		cols := map[string]codec.Decoder{}
		for _, c := range t.columns {
			dec, err := selectDecoder(c)
			if err != nil {
				return errors.Wrapf(err, "table %q column %q", t.name, c.Name)
			}
			cols[c.Name] = dec
		}
		d.decoders[t.name] = cols
	}
	return nil
}

// buildType validates a subtype spec against its root and constructs its
// descriptor. Keys, partition/clustering columns, multi-keys and the
// discriminator must originate from the root; a subtype may only add plain
// columns.
func buildType(root *Spec, sub *Spec) (*Descriptor, error) {
	if sub.Kind != KindType {
		return nil, yarpcerrors.InvalidArgumentErrorf(
			"root %q: subtype %q is not a type spec", root.Name, sub.Name)
	}
	if sub.Abstract {
		return nil, yarpcerrors.InvalidArgumentErrorf(
			"subtype %q must not be abstract", sub.Name)
	}
	if sub.Factory == nil {
		return nil, yarpcerrors.InvalidArgumentErrorf(
			"subtype %q needs a factory", sub.Name)
	}
	if sub.DiscriminatorValue == "" {
		return nil, yarpcerrors.InvalidArgumentErrorf(
			"subtype %q needs a discriminator value", sub.Name)
	}

	rootTables := map[string]Table{}
	for _, t := range root.Tables {
		rootTables[t.Name] = t
	}

	// The subtype's effective tables are the root-declared columns plus its
	// own extra columns.
	tables := make([]Table, 0, len(sub.Tables))
	for _, st := range sub.Tables {
		rt, ok := rootTables[st.Name]
		if !ok {
			return nil, yarpcerrors.InvalidArgumentErrorf(
				"subtype %q maps table %q not declared on root %q",
				sub.Name, st.Name, root.Name)
		}
		declared := map[string]Column{}
		for _, c := range rt.Columns {
			declared[c.Name] = c
		}
		merged := Table{Name: st.Name, Columns: append([]Column(nil), rt.Columns...)}
		for _, c := range st.Columns {
			if c.IsKey() || c.Discriminator || c.MultiKey {
				return nil, yarpcerrors.InvalidArgumentErrorf(
					"subtype %q column %q: key and discriminator columns must be declared on the root",
					sub.Name, c.Name)
			}
			if prev, dup := declared[c.Name]; dup {
				if prev.Type != c.Type {
					return nil, yarpcerrors.InvalidArgumentErrorf(
						"subtype %q column %q: type %v conflicts with root declaration %v",
						sub.Name, c.Name, c.Type, prev.Type)
				}
				continue
			}
			merged.Columns = append(merged.Columns, c)
		}
		tables = append(tables, merged)
	}

	td := &Descriptor{
		spec:     sub,
		rootName: root.Name,
		keyspace: root.Keyspace,
	}
	td.objectType = reflect.TypeOf(sub.Factory())
	if err := td.assemble(tables, false); err != nil {
		return nil, err
	}
	return td, nil
}

// mergeTables unions each subtype's extra columns into the root's table
// schema. Duplicate names across subtypes merge once when type-compatible
// and fail otherwise. Subtypes are visited sorted by discriminator value.
func mergeTables(root *Spec, subtypes []*Descriptor) ([]*tableInfo, error) {
	infos := make([]*tableInfo, 0, len(root.Tables))
	for _, rt := range root.Tables {
		info := newTableInfo(rt.Name)
		for _, c := range rt.Columns {
			if _, dup := info.byName[c.Name]; dup {
				return nil, yarpcerrors.InvalidArgumentErrorf(
					"table %q: duplicate column %q", rt.Name, c.Name)
			}
			if c.MultiKey && !c.IsKey() {
				return nil, yarpcerrors.InvalidArgumentErrorf(
					"table %q: multi-key column %q must be a key column", rt.Name, c.Name)
			}
			if c.Discriminator {
				if info.discriminator != "" {
					return nil, yarpcerrors.InvalidArgumentErrorf(
						"table %q: more than one discriminator column", rt.Name)
				}
				info.discriminator = c.Name
			}
			info.add(c)
		}
		if info.discriminator == "" {
			return nil, yarpcerrors.InvalidArgumentErrorf(
				"table %q: hierarchy root needs a discriminator column", rt.Name)
		}

		for _, sub := range subtypes {
			st, err := sub.table(rt.Name)
			if err != nil {
				continue // subtype does not map this table
			}
			for _, c := range st.columns {
				prev, exists := info.column(c.Name)
				if !exists {
					info.add(c)
					continue
				}
				if prev.Type != c.Type {
					return nil, yarpcerrors.InvalidArgumentErrorf(
						"table %q column %q: incompatible types %v and %v across hierarchy",
						rt.Name, c.Name, prev.Type, c.Type)
				}
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// selectDecoder picks the decoder for a column at construction time based
// on the mapped Go type. Slices decode as lists, struct{}-valued maps as
// sets, other maps as mappings, everything else as a scalar.
func selectDecoder(c Column) (codec.Decoder, error) {
	t := c.Type
	mandatory := c.Mandatory || c.IsKey()
	switch {
	case t == nil:
		return nil, yarpcerrors.InvalidArgumentErrorf("column %q has no type", c.Name)
	case t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8:
		return codec.NewList(t.Elem(), mandatory), nil
	case t.Kind() == reflect.Map && t.Elem() == reflect.TypeOf(struct{}{}):
		return codec.NewSet(t.Key(), mandatory), nil
	case t.Kind() == reflect.Map:
		return codec.NewMap(t.Key(), t.Elem(), mandatory), nil
	default:
		return codec.ForType(t)
	}
}
