// Package persisted implements transparent encode-on-write, decode-on-read
// wrappers for fields declared with a custom persistence transform. A field
// value lives in an application representation but is written to the store
// in a transformed (encoded) representation.
package persisted

import "github.com/pkg/errors"

// Codec is the transform pair applied to a persisted field. Encode and
// Decode must be mutual inverses for the values the field can hold.
type Codec interface {
	// Encode turns the application representation into the stored one.
	Encode(decoded interface{}) (interface{}, error)

	// Decode turns the stored representation back into the application one.
	Decode(encoded interface{}) (interface{}, error)
}

// Value holds either representation of a persisted field and computes the
// missing side lazily on first access. Once a representation has been
// computed, subsequent reads never re-invoke the transform.
type Value struct {
	codec      Codec
	encoded    interface{}
	decoded    interface{}
	hasEncoded bool
	hasDecoded bool
}

// FromEncoded wraps a value as read from the store. The decoded side is
// computed on first access.
func FromEncoded(codec Codec, encoded interface{}) *Value {
	return &Value{codec: codec, encoded: encoded, hasEncoded: true}
}

// FromDecoded wraps an application value. The encoded side is computed on
// first access.
func FromDecoded(codec Codec, decoded interface{}) *Value {
	return &Value{codec: codec, decoded: decoded, hasDecoded: true}
}

// EncodedValue returns the stored representation, computing and caching it
// from the decoded side if needed.
func (v *Value) EncodedValue() (interface{}, error) {
	if v.hasEncoded {
		return v.encoded, nil
	}
	if !v.hasDecoded {
		return nil, errors.New("persisted value holds neither representation")
	}
	encoded, err := v.codec.Encode(v.decoded)
	if err != nil {
		return nil, errors.Wrap(err, "encode persisted value")
	}
	v.encoded = encoded
	v.hasEncoded = true
	return v.encoded, nil
}

// DecodedValue returns the application representation, computing and caching
// it from the encoded side if needed.
func (v *Value) DecodedValue() (interface{}, error) {
	if v.hasDecoded {
		return v.decoded, nil
	}
	if !v.hasEncoded {
		return nil, errors.New("persisted value holds neither representation")
	}
	decoded, err := v.codec.Decode(v.encoded)
	if err != nil {
		return nil, errors.Wrap(err, "decode persisted value")
	}
	v.decoded = decoded
	v.hasDecoded = true
	return v.decoded, nil
}

// SetDecodedValue replaces the application representation and invalidates
// the cached encoded side.
func (v *Value) SetDecodedValue(decoded interface{}) {
	v.decoded = decoded
	v.hasDecoded = true
	v.encoded = nil
	v.hasEncoded = false
}
