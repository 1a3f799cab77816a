package codec

import (
	"bytes"
	"fmt"
	"reflect"
	"time"

	"github.com/gocql/gocql"

	"github.com/helenus-driver/helenus-sub004/api"
)

// Decoder converts one column of a store row into a strongly typed value.
// Decoders are stateless; selection happens once per field at descriptor
// construction time through CanDecodeTo, never per row.
type Decoder interface {
	// CanDecodeTo reports whether the decoder can produce the target type.
	CanDecodeTo(target reflect.Type) bool

	// Decode reads the named column from the row and converts it to the
	// target type. A type-mismatch error means the declared target type is
	// incompatible with the decoder; a conversion error means the store
	// value could not be losslessly mapped.
	Decode(row api.Row, column string, target reflect.Type) (interface{}, error)
}

// TypeMismatchError indicates the declared target type is incompatible with
// the decoder that was asked to produce it.
type TypeMismatchError struct {
	Column string
	Target reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("column %q: cannot decode to incompatible type %v", e.Column, e.Target)
}

// ConversionError indicates the store value of a column could not be mapped
// to the requested type. It is fatal to the single row/column being
// processed and does not corrupt sibling rows.
type ConversionError struct {
	Column string
	Value  interface{}
	Target reflect.Type
	Cause  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("column %q: cannot convert %T to %v: %v", e.Column, e.Value, e.Target, e.Cause)
}

// Store-native scalar types the primitive decoders produce.
var (
	boolType      = reflect.TypeOf(false)
	stringType    = reflect.TypeOf("")
	intType       = reflect.TypeOf(int(0))
	int32Type     = reflect.TypeOf(int32(0))
	int64Type     = reflect.TypeOf(int64(0))
	float32Type   = reflect.TypeOf(float32(0))
	float64Type   = reflect.TypeOf(float64(0))
	bytesType     = reflect.TypeOf([]byte(nil))
	timeType      = reflect.TypeOf(time.Time{})
	locationType  = reflect.TypeOf((*time.Location)(nil))
	uuidType      = reflect.TypeOf(gocql.UUID{})
	bufferPtrType = reflect.TypeOf((*bytes.Buffer)(nil))
)

// primitiveDecoder decodes a single store-native scalar column. native is
// the type the row hands back; the conversion table bridges native to the
// requested target.
type primitiveDecoder struct {
	name   string
	native reflect.Type
}

func (d *primitiveDecoder) CanDecodeTo(target reflect.Type) bool {
	_, err := converterFor(d.native, target)
	return err == nil
}

func (d *primitiveDecoder) Decode(row api.Row, column string, target reflect.Type) (interface{}, error) {
	if !d.CanDecodeTo(target) {
		return nil, &TypeMismatchError{Column: column, Target: target}
	}
	if row.IsNull(column) {
		return nil, nil
	}
	value := row.Value(column)
	convert, err := converterFor(reflect.TypeOf(value), target)
	if err != nil {
		return nil, &ConversionError{Column: column, Value: value, Target: target, Cause: err}
	}
	out, err := convert(value)
	if err != nil {
		return nil, &ConversionError{Column: column, Value: value, Target: target, Cause: err}
	}
	return out, nil
}

// Primitive decoders, one per store-native scalar type.
var (
	Bool      Decoder = &primitiveDecoder{name: "boolean", native: boolType}
	Text      Decoder = &primitiveDecoder{name: "text", native: stringType}
	Int       Decoder = &primitiveDecoder{name: "int", native: int32Type}
	BigInt    Decoder = &primitiveDecoder{name: "bigint", native: int64Type}
	Float     Decoder = &primitiveDecoder{name: "float", native: float32Type}
	Double    Decoder = &primitiveDecoder{name: "double", native: float64Type}
	Blob      Decoder = &primitiveDecoder{name: "blob", native: bytesType}
	Timestamp Decoder = &primitiveDecoder{name: "timestamp", native: timeType}
	UUID      Decoder = &primitiveDecoder{name: "uuid", native: uuidType}
)

var scalarDecoders = []Decoder{
	Bool, Text, Int, BigInt, Float, Double, Blob, Timestamp, UUID,
}

// ForType selects the scalar decoder for a target field type. Selection is
// static: the metadata layer calls this once per field when the descriptor
// is constructed.
func ForType(target reflect.Type) (Decoder, error) {
	for _, d := range scalarDecoders {
		if d.CanDecodeTo(target) {
			return d, nil
		}
	}
	return nil, &TypeMismatchError{Column: "", Target: target}
}
