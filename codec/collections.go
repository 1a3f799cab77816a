package codec

import (
	"reflect"

	"github.com/helenus-driver/helenus-sub004/api"
)

// collectionKind selects the container shape a collection decoder produces.
type collectionKind int

const (
	listKind collectionKind = iota
	setKind
	mapKind
)

// collectionDecoder decodes list, set and map columns. It is parametrized
// by the element type(s) and a mandatory flag: a mandatory (or key) column
// that comes back absent decodes to an empty container, a non-mandatory one
// stays nil so callers can distinguish "never set" from "set empty".
type collectionDecoder struct {
	kind      collectionKind
	keyType   reflect.Type // map only
	elemType  reflect.Type
	mandatory bool
}

// NewList returns a decoder producing []elem from a list column.
func NewList(elem reflect.Type, mandatory bool) Decoder {
	return &collectionDecoder{kind: listKind, elemType: elem, mandatory: mandatory}
}

// NewSet returns a decoder producing map[elem]struct{} from a set column.
func NewSet(elem reflect.Type, mandatory bool) Decoder {
	return &collectionDecoder{kind: setKind, elemType: elem, mandatory: mandatory}
}

// NewMap returns a decoder producing map[key]value from a map column.
func NewMap(key, value reflect.Type, mandatory bool) Decoder {
	return &collectionDecoder{kind: mapKind, keyType: key, elemType: value, mandatory: mandatory}
}

func (d *collectionDecoder) targetType() reflect.Type {
	switch d.kind {
	case listKind:
		return reflect.SliceOf(d.elemType)
	case setKind:
		return reflect.MapOf(d.elemType, reflect.TypeOf(struct{}{}))
	default:
		return reflect.MapOf(d.keyType, d.elemType)
	}
}

func (d *collectionDecoder) CanDecodeTo(target reflect.Type) bool {
	return target == d.targetType()
}

// empty builds the zero-length container for the decoder's shape.
func (d *collectionDecoder) empty() interface{} {
	t := d.targetType()
	if d.kind == listKind {
		return reflect.MakeSlice(t, 0, 0).Interface()
	}
	return reflect.MakeMap(t).Interface()
}

func (d *collectionDecoder) Decode(row api.Row, column string, target reflect.Type) (interface{}, error) {
	if !d.CanDecodeTo(target) {
		return nil, &TypeMismatchError{Column: column, Target: target}
	}
	if row.IsNull(column) {
		if d.mandatory {
			return d.empty(), nil
		}
		return nil, nil
	}

	// Resolve element conversion once per decode call, based on the
	// element runtime types the row advertises for this column.
	args := row.TypeArguments(column)
	switch d.kind {
	case listKind, setKind:
		if len(args) < 1 {
			return nil, &ConversionError{
				Column: column, Value: row.Value(column), Target: target,
				Cause: &UnsupportedConversionError{To: d.elemType},
			}
		}
		convert, err := converterFor(args[0], d.elemType)
		if err != nil {
			return nil, &ConversionError{Column: column, Value: row.Value(column), Target: target, Cause: err}
		}
		return d.decodeSequence(row, column, target, convert)
	default:
		if len(args) < 2 {
			return nil, &ConversionError{
				Column: column, Value: row.Value(column), Target: target,
				Cause: &UnsupportedConversionError{To: d.elemType},
			}
		}
		convertKey, err := converterFor(args[0], d.keyType)
		if err != nil {
			return nil, &ConversionError{Column: column, Value: row.Value(column), Target: target, Cause: err}
		}
		convertValue, err := converterFor(args[1], d.elemType)
		if err != nil {
			return nil, &ConversionError{Column: column, Value: row.Value(column), Target: target, Cause: err}
		}
		return d.decodeMapping(row, column, target, convertKey, convertValue)
	}
}

// decodeSequence accepts both []interface{} and the typed slices the driver
// scans collection columns into ([]string, []int64, ...).
func (d *collectionDecoder) decodeSequence(row api.Row, column string, target reflect.Type, convert converter) (interface{}, error) {
	raw := reflect.ValueOf(row.Value(column))
	if raw.Kind() != reflect.Slice && raw.Kind() != reflect.Array {
		return nil, &ConversionError{
			Column: column, Value: row.Value(column), Target: target,
			Cause: &UnsupportedConversionError{From: reflect.TypeOf(row.Value(column)), To: target},
		}
	}

	if d.kind == listKind {
		out := reflect.MakeSlice(target, 0, raw.Len())
		for i := 0; i < raw.Len(); i++ {
			e := raw.Index(i).Interface()
			v, err := convert(e)
			if err != nil {
				return nil, &ConversionError{Column: column, Value: e, Target: d.elemType, Cause: err}
			}
			out = reflect.Append(out, reflect.ValueOf(v))
		}
		return out.Interface(), nil
	}

	out := reflect.MakeMapWithSize(target, raw.Len())
	present := reflect.ValueOf(struct{}{})
	for i := 0; i < raw.Len(); i++ {
		e := raw.Index(i).Interface()
		v, err := convert(e)
		if err != nil {
			return nil, &ConversionError{Column: column, Value: e, Target: d.elemType, Cause: err}
		}
		out.SetMapIndex(reflect.ValueOf(v), present)
	}
	return out.Interface(), nil
}

func (d *collectionDecoder) decodeMapping(row api.Row, column string, target reflect.Type, convertKey, convertValue converter) (interface{}, error) {
	raw := reflect.ValueOf(row.Value(column))
	if raw.Kind() != reflect.Map {
		return nil, &ConversionError{
			Column: column, Value: row.Value(column), Target: target,
			Cause: &UnsupportedConversionError{From: raw.Type(), To: target},
		}
	}

	out := reflect.MakeMapWithSize(target, raw.Len())
	iter := raw.MapRange()
	for iter.Next() {
		k, err := convertKey(iter.Key().Interface())
		if err != nil {
			return nil, &ConversionError{Column: column, Value: iter.Key().Interface(), Target: d.keyType, Cause: err}
		}
		v, err := convertValue(iter.Value().Interface())
		if err != nil {
			return nil, &ConversionError{Column: column, Value: iter.Value().Interface(), Target: d.elemType, Cause: err}
		}
		out.SetMapIndex(reflect.ValueOf(k), reflect.ValueOf(v))
	}
	return out.Interface(), nil
}
