package entity

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clickEvent struct {
	ID     string
	Target string
}

type viewEvent struct {
	ID       string
	Duration int64
}

func eventSpec() *Spec {
	return &Spec{
		Name:     "event",
		Keyspace: "app",
		Kind:     KindRoot,
		Abstract: true,
		Tables: []Table{
			{Name: "events", Columns: []Column{
				{Name: "id", Type: reflect.TypeOf(""), Field: "ID", PartitionKey: true},
				{Name: "kind", Type: reflect.TypeOf(""), Discriminator: true, Mandatory: true},
			}},
		},
		Subtypes: []*Spec{
			{
				Name:               "view",
				Kind:               KindType,
				DiscriminatorValue: "VIEW",
				Factory:            func() interface{} { return &viewEvent{} },
				Tables: []Table{
					{Name: "events", Columns: []Column{
						{Name: "duration", Type: reflect.TypeOf(int64(0)), Field: "Duration"},
					}},
				},
			},
			{
				Name:               "click",
				Kind:               KindType,
				DiscriminatorValue: "CLICK",
				Factory:            func() interface{} { return &clickEvent{} },
				Tables: []Table{
					{Name: "events", Columns: []Column{
						{Name: "target", Type: reflect.TypeOf(""), Field: "Target"},
					}},
				},
			},
		},
	}
}

func TestRootDescriptorMergesHierarchy(t *testing.T) {
	d, err := NewDescriptor(eventSpec())
	require.NoError(t, err)
	assert.Equal(t, KindRoot, d.Kind())
	assert.Equal(t, "app", d.Keyspace())
	assert.Nil(t, d.ObjectType())

	names, err := d.TableNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"events"}, names)

	// root columns first, then subtype extras sorted by discriminator value
	cols, err := d.Columns("events")
	require.NoError(t, err)
	colNames := make([]string, len(cols))
	for i, c := range cols {
		colNames[i] = c.Name
	}
	assert.Equal(t, []string{"id", "kind", "target", "duration"}, colNames)

	subs := d.Subtypes()
	require.Len(t, subs, 2)
	assert.Equal(t, "CLICK", subs[0].DiscriminatorValue())
	assert.Equal(t, "VIEW", subs[1].DiscriminatorValue())
	assert.Equal(t, "event", subs[0].RootName())
	assert.Equal(t, "app", subs[0].Keyspace())
	assert.Equal(t, reflect.TypeOf(&clickEvent{}), subs[0].ObjectType())
}

func TestPlainEntityDescriptor(t *testing.T) {
	type user struct{ ID string }
	d, err := NewDescriptor(&Spec{
		Name:    "user",
		Kind:    KindRoot,
		Factory: func() interface{} { return &user{} },
		Tables: []Table{
			{Name: "users", Columns: []Column{
				{Name: "id", Type: reflect.TypeOf(""), Field: "ID", PartitionKey: true},
			}},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, d.Subtypes())
	assert.Equal(t, reflect.TypeOf(&user{}), d.ObjectType())

	dec, err := d.Decoder("users", "id")
	require.NoError(t, err)
	assert.True(t, dec.CanDecodeTo(reflect.TypeOf("")))

	_, err = d.Decoder("users", "ghost")
	assert.Error(t, err)
	_, err = d.Decoder("ghosts", "id")
	assert.Error(t, err)
}

func TestTypeSpecMustBeBuiltThroughRoot(t *testing.T) {
	_, err := NewDescriptor(&Spec{
		Name:               "click",
		Kind:               KindType,
		DiscriminatorValue: "CLICK",
		Factory:            func() interface{} { return &clickEvent{} },
	})
	assert.Error(t, err)
}

func TestDuplicateDiscriminatorValueRejected(t *testing.T) {
	s := eventSpec()
	s.Subtypes[1].DiscriminatorValue = "VIEW"
	_, err := NewDescriptor(s)
	assert.Error(t, err)
}

func TestDuplicateMappedTypeRejected(t *testing.T) {
	s := eventSpec()
	s.Subtypes[1].Factory = func() interface{} { return &viewEvent{} }
	_, err := NewDescriptor(s)
	assert.Error(t, err)
}

func TestSubtypeKeyColumnRejected(t *testing.T) {
	s := eventSpec()
	s.Subtypes[0].Tables[0].Columns[0].ClusteringKey = true
	_, err := NewDescriptor(s)
	assert.Error(t, err)
}

func TestSubtypeUnknownTableRejected(t *testing.T) {
	s := eventSpec()
	s.Subtypes[0].Tables[0].Name = "ghosts"
	_, err := NewDescriptor(s)
	assert.Error(t, err)
}

func TestIncompatibleColumnTypesAcrossHierarchy(t *testing.T) {
	s := eventSpec()
	// both subtypes declare "extra" with conflicting types
	s.Subtypes[0].Tables[0].Columns = append(s.Subtypes[0].Tables[0].Columns,
		Column{Name: "extra", Type: reflect.TypeOf(""), Field: "Duration"})
	s.Subtypes[1].Tables[0].Columns = append(s.Subtypes[1].Tables[0].Columns,
		Column{Name: "extra", Type: reflect.TypeOf(int64(0)), Field: "Target"})
	_, err := NewDescriptor(s)
	assert.Error(t, err)
}

func TestRootTableNeedsDiscriminator(t *testing.T) {
	s := eventSpec()
	s.Tables[0].Columns = s.Tables[0].Columns[:1] // drop the kind column
	_, err := NewDescriptor(s)
	assert.Error(t, err)
}

func TestAtMostOneDiscriminator(t *testing.T) {
	s := eventSpec()
	s.Tables[0].Columns = append(s.Tables[0].Columns,
		Column{Name: "kind2", Type: reflect.TypeOf(""), Discriminator: true})
	_, err := NewDescriptor(s)
	assert.Error(t, err)
}

func TestDuplicateColumnRejected(t *testing.T) {
	s := eventSpec()
	s.Tables[0].Columns = append(s.Tables[0].Columns, s.Tables[0].Columns[0])
	_, err := NewDescriptor(s)
	assert.Error(t, err)
}

func TestMultiKeyMustBeKey(t *testing.T) {
	type user struct{ Tags map[string]struct{} }
	_, err := NewDescriptor(&Spec{
		Name:    "user",
		Kind:    KindRoot,
		Factory: func() interface{} { return &user{} },
		Tables: []Table{
			{Name: "users", Columns: []Column{
				{Name: "tags", Type: reflect.TypeOf(map[string]struct{}{}), Field: "Tags", MultiKey: true},
			}},
		},
	})
	assert.Error(t, err)
}

type address struct {
	Street string
	City   string
}

func addressSpec() *Spec {
	return &Spec{
		Name:    "address",
		Kind:    KindEmbeddable,
		Factory: func() interface{} { return &address{} },
		Tables: []Table{
			{Name: "address", Columns: []Column{
				{Name: "street", Type: reflect.TypeOf(""), Field: "Street"},
				{Name: "city", Type: reflect.TypeOf(""), Field: "City"},
			}},
		},
	}
}

func TestEmbeddableDescriptor(t *testing.T) {
	d, err := NewDescriptor(addressSpec())
	require.NoError(t, err)
	assert.Equal(t, KindEmbeddable, d.Kind())
	assert.False(t, d.SupportsTablesAndIndexes())

	_, err = d.TableNames()
	assert.Error(t, err)

	_, err = NewContext(d, &address{})
	assert.Error(t, err)
}

func TestEmbeddableRejectsKeyRoles(t *testing.T) {
	s := addressSpec()
	s.Tables[0].Columns[0].PartitionKey = true
	_, err := NewDescriptor(s)
	assert.Error(t, err)
}

func TestEmbeddableNeedsSingleColumnGroup(t *testing.T) {
	s := addressSpec()
	s.Tables = append(s.Tables, Table{Name: "extra"})
	_, err := NewDescriptor(s)
	assert.Error(t, err)
}

func TestEmbeddableEncodeDecodeRoundTrip(t *testing.T) {
	d, err := NewDescriptor(addressSpec())
	require.NoError(t, err)

	fields, err := d.EncodeValue(&address{Street: "main st", City: "berlin"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"street": "main st", "city": "berlin"}, fields)

	obj, err := d.DecodeValue(fields)
	require.NoError(t, err)
	assert.Equal(t, &address{Street: "main st", City: "berlin"}, obj)
}
