package persisted

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapFromDecodedValidatesEagerly(t *testing.T) {
	c := &countingCodec{}
	_, err := NewMapFromDecoded(c, []interface{}{"k1", "k2"}, []interface{}{"a", 42})
	assert.Error(t, err)

	m, err := NewMapFromDecoded(c, []interface{}{"k1", "k2"}, []interface{}{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []interface{}{"k1", "k2"}, m.Keys())
}

func TestMapFromEncodedDecodesLazily(t *testing.T) {
	c := &countingCodec{}
	m, err := NewMapFromEncoded(c, []interface{}{"k1"}, []interface{}{"ANN"})
	require.NoError(t, err)
	assert.Equal(t, 0, c.decodes)

	v, ok, err := m.Get("k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ann", v)
	assert.Equal(t, 1, c.decodes)
}

func TestMapPutAndRemove(t *testing.T) {
	c := &countingCodec{}
	m, err := NewMapFromDecoded(c, nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.Put("k1", "a"))
	require.NoError(t, m.Put("k2", "b"))
	require.NoError(t, m.Put("k1", "c")) // overwrite keeps position
	assert.Equal(t, []interface{}{"k1", "k2"}, m.Keys())

	assert.Error(t, m.Put("k3", 42)) // encoding validates at write time
	assert.Equal(t, 2, m.Len())

	assert.True(t, m.Remove("k1"))
	assert.False(t, m.Remove("k1"))
	assert.Equal(t, []interface{}{"k2"}, m.Keys())

	_, ok, err := m.Get("k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMapViewsReadThrough(t *testing.T) {
	c := &countingCodec{}
	m, err := NewMapFromEncoded(c, []interface{}{"k1", "k2"}, []interface{}{"ANN", "BEA"})
	require.NoError(t, err)

	values := m.Values()
	assert.Equal(t, 2, values.Len())
	v, err := values.At(1)
	require.NoError(t, err)
	assert.Equal(t, "bea", v)

	// mutation through an entry is visible in the map and its views
	entry := m.Entries().At(0)
	assert.Equal(t, "k1", entry.Key)
	entry.SetDecoded("cyd")

	v, ok, err := m.Get("k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cyd", v)

	encoded, err := entry.Encoded()
	require.NoError(t, err)
	assert.Equal(t, "CYD", encoded)
}

func TestMapEncodedEntries(t *testing.T) {
	c := &countingCodec{}
	m, err := NewMapFromDecoded(c, []interface{}{"k1", "k2"}, []interface{}{"a", "b"})
	require.NoError(t, err)

	keys, encoded, err := m.EncodedEntries()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"k1", "k2"}, keys)
	assert.Equal(t, []interface{}{"A", "B"}, encoded)
}
