package persisted

import "github.com/pkg/errors"

// Map is a facade over an insertion-ordered mapping of key to persisted
// Value. Reads and iteration project through to decoded values; writes go
// through the transform. Views returned by Values and Entries are
// read-through adapters over the backing entries, not copies.
type Map struct {
	codec   Codec
	keys    []interface{}
	entries map[interface{}]*Value
}

// Entry is one key plus its backing persisted value.
type Entry struct {
	Key   interface{}
	value *Value
}

// Decoded returns the entry's decoded value.
func (e Entry) Decoded() (interface{}, error) { return e.value.DecodedValue() }

// Encoded returns the entry's encoded value.
func (e Entry) Encoded() (interface{}, error) { return e.value.EncodedValue() }

// SetDecoded replaces the entry's decoded value in place. The change is
// immediately visible through the owning map.
func (e Entry) SetDecoded(decoded interface{}) { e.value.SetDecodedValue(decoded) }

// NewMapFromDecoded builds a map from application values. Every entry is
// encoded eagerly so the map is known to be representable before it is
// returned; this is a validation pass, later reads still hit the cache.
func NewMapFromDecoded(codec Codec, keys []interface{}, decoded []interface{}) (*Map, error) {
	if len(keys) != len(decoded) {
		return nil, errors.New("keys and values length mismatch")
	}
	m := &Map{codec: codec, entries: make(map[interface{}]*Value, len(keys))}
	for i, k := range keys {
		v := &Value{codec: codec}
		v.SetDecodedValue(decoded[i])
		if _, err := v.EncodedValue(); err != nil {
			return nil, err
		}
		m.put(k, v)
	}
	return m, nil
}

// NewMapFromEncoded builds a map from stored values. Decoding is lazy.
func NewMapFromEncoded(codec Codec, keys []interface{}, encoded []interface{}) (*Map, error) {
	if len(keys) != len(encoded) {
		return nil, errors.New("keys and values length mismatch")
	}
	m := &Map{codec: codec, entries: make(map[interface{}]*Value, len(keys))}
	for i, k := range keys {
		m.put(k, FromEncoded(codec, encoded[i]))
	}
	return m, nil
}

func (m *Map) put(key interface{}, v *Value) {
	if _, exists := m.entries[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = v
}

// Put stores a decoded value under key, encoding it eagerly to validate.
func (m *Map) Put(key, decoded interface{}) error {
	v := FromDecoded(m.codec, decoded)
	if _, err := v.EncodedValue(); err != nil {
		return err
	}
	m.put(key, v)
	return nil
}

// Remove deletes the entry for key, reporting whether it was present.
func (m *Map) Remove(key interface{}) bool {
	if _, exists := m.entries[key]; !exists {
		return false
	}
	delete(m.entries, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the decoded value for key.
func (m *Map) Get(key interface{}) (interface{}, bool, error) {
	v, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	decoded, err := v.DecodedValue()
	return decoded, true, err
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order. The slice is a copy; the keys
// themselves are the live map keys.
func (m *Map) Keys() []interface{} {
	out := make([]interface{}, len(m.keys))
	copy(out, m.keys)
	return out
}

// Values is a read-through view over the map's decoded values in insertion
// order. It delegates to the backing entries on every access.
type Values struct{ m *Map }

// Values returns the decoded-values view.
func (m *Map) Values() Values { return Values{m: m} }

// Len returns the view length.
func (v Values) Len() int { return v.m.Len() }

// At decodes and returns the i-th value in insertion order.
func (v Values) At(i int) (interface{}, error) {
	return v.m.entries[v.m.keys[i]].DecodedValue()
}

// Entries is a read-through view over the map's entries in insertion order.
type Entries struct{ m *Map }

// Entries returns the entry view.
func (m *Map) Entries() Entries { return Entries{m: m} }

// Len returns the view length.
func (e Entries) Len() int { return e.m.Len() }

// At returns the i-th entry in insertion order. The entry shares the
// backing value: mutations through it are visible in the map and vice versa.
func (e Entries) At(i int) Entry {
	k := e.m.keys[i]
	return Entry{Key: k, value: e.m.entries[k]}
}

// EncodedEntries materializes key to encoded-value pairs in insertion order
// for handing to the statement layer.
func (m *Map) EncodedEntries() ([]interface{}, []interface{}, error) {
	keys := make([]interface{}, 0, len(m.keys))
	encoded := make([]interface{}, 0, len(m.keys))
	for _, k := range m.keys {
		ev, err := m.entries[k].EncodedValue()
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, k)
		encoded = append(encoded, ev)
	}
	return keys, encoded, nil
}
