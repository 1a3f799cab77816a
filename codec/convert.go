package codec

import (
	"bytes"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// UnsupportedConversionError indicates no converter exists between the store
// value's runtime type and the requested type.
type UnsupportedConversionError struct {
	From reflect.Type
	To   reflect.Type
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("unsupported conversion from %v to %v", e.From, e.To)
}

// converter maps one store value to the requested representation.
type converter func(value interface{}) (interface{}, error)

func identity(value interface{}) (interface{}, error) { return value, nil }

// converterFor resolves the conversion between a store runtime type and a
// requested type. Resolution happens once per decode call (for collections,
// once per call rather than once per element). The supported pairs are:
// identity, numeric widening, named string <-> text (enumerations), zone-id
// <-> text, byte slice <-> opaque buffer, and integral timestamp <->
// structured timestamp.
func converterFor(from, to reflect.Type) (converter, error) {
	if from == nil || to == nil {
		return nil, &UnsupportedConversionError{From: from, To: to}
	}
	if from == to {
		return identity, nil
	}

	switch {
	// Named string types (enumerations) to and from text.
	case from.Kind() == reflect.String && to.Kind() == reflect.String:
		return func(value interface{}) (interface{}, error) {
			s := reflect.ValueOf(value).String()
			if literals, ok := enumLiterals(to); ok {
				if _, known := literals[s]; !known {
					return nil, fmt.Errorf("unknown literal %q for %v", s, to)
				}
			}
			return reflect.ValueOf(value).Convert(to).Interface(), nil
		}, nil

	// Zone identifiers are stored as text.
	case from == stringType && to == locationType:
		return func(value interface{}) (interface{}, error) {
			loc, err := time.LoadLocation(value.(string))
			if err != nil {
				return nil, err
			}
			return loc, nil
		}, nil
	case from == locationType && to == stringType:
		return func(value interface{}) (interface{}, error) {
			return value.(*time.Location).String(), nil
		}, nil

	// Byte sequences to and from an opaque buffer.
	case from == bytesType && to == bufferPtrType:
		return func(value interface{}) (interface{}, error) {
			return bytes.NewBuffer(value.([]byte)), nil
		}, nil
	case from == bufferPtrType && to == bytesType:
		return func(value interface{}) (interface{}, error) {
			return value.(*bytes.Buffer).Bytes(), nil
		}, nil

	// Integral timestamps (milliseconds since epoch) to and from time.Time.
	case from == int64Type && to == timeType:
		return func(value interface{}) (interface{}, error) {
			return time.UnixMilli(value.(int64)).UTC(), nil
		}, nil
	case from == timeType && to == int64Type:
		return func(value interface{}) (interface{}, error) {
			return value.(time.Time).UnixMilli(), nil
		}, nil

	// Numeric widening between integer and float kinds of the same family.
	case isIntKind(from) && isIntKind(to), isFloatKind(from) && isFloatKind(to):
		return func(value interface{}) (interface{}, error) {
			return reflect.ValueOf(value).Convert(to).Interface(), nil
		}, nil
	}

	return nil, &UnsupportedConversionError{From: from, To: to}
}

var (
	enumMu   sync.RWMutex
	enumSets = map[reflect.Type]map[string]struct{}{}
)

// RegisterEnum declares the valid literals of a named string type. Decoding
// a text column into a registered type fails with a conversion error when
// the store holds a literal outside this set.
func RegisterEnum(sample interface{}, literals ...string) {
	t := reflect.TypeOf(sample)
	set := make(map[string]struct{}, len(literals))
	for _, l := range literals {
		set[l] = struct{}{}
	}
	enumMu.Lock()
	enumSets[t] = set
	enumMu.Unlock()
}

func enumLiterals(t reflect.Type) (map[string]struct{}, bool) {
	enumMu.RLock()
	defer enumMu.RUnlock()
	set, ok := enumSets[t]
	return set, ok
}

func isIntKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return t != bytesType
	}
	return false
}

func isFloatKind(t reflect.Type) bool {
	return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
}
