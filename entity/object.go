package entity

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"

	"github.com/helenus-driver/helenus-sub004/api"
)

// GetObject builds a domain object from a result row. Root descriptors scan
// the row for the discriminator column of one of their tables, decode its
// value and delegate construction to the matching subtype. Embeddables are
// values, not queryable entities; reading rows through them fails.
func (d *Descriptor) GetObject(row api.Row) (interface{}, error) {
	switch d.spec.Kind {
	case KindEmbeddable:
		return nil, errors.Wrapf(api.ErrUnsupported,
			"rows cannot be retrieved through embeddable %q", d.spec.Name)
	case KindType:
		return d.fillObject(row)
	}

	if len(d.byValue) == 0 {
		// Plain concrete entity.
		return d.fillObject(row)
	}

	for _, t := range d.tables {
		if t.discriminator == "" || row.IsNull(t.discriminator) {
			continue
		}
		col, _ := t.column(t.discriminator)
		dec, err := d.Decoder(t.name, t.discriminator)
		if err != nil {
			return nil, err
		}
		raw, err := dec.Decode(row, t.discriminator, col.Type)
		if err != nil {
			return nil, err
		}
		value := reflect.ValueOf(raw).String()
		sub, known := d.byValue[value]
		if !known {
			return nil, &ObjectConversionError{
				Entity: d.spec.Name,
				Reason: fmt.Sprintf("discriminator value %q matches no subtype", value),
			}
		}
		return sub.fillObject(row)
	}
	return nil, &ObjectConversionError{
		Entity: d.spec.Name,
		Reason: "row has no discriminator column",
	}
}

// fillObject constructs a fresh instance and fills it from the row using
// the statically selected decoders. A conversion failure is fatal to this
// row only.
func (d *Descriptor) fillObject(row api.Row) (interface{}, error) {
	obj := d.spec.Factory()
	for _, name := range row.Columns() {
		for _, t := range d.tables {
			col, ok := t.column(name)
			if !ok || col.Field == "" {
				continue
			}
			dec := d.decoders[t.name][name]
			value, err := dec.Decode(row, name, col.Type)
			if err != nil {
				return nil, err
			}
			if value == nil {
				break
			}
			if err := setObjectField(obj, col.Field, value); err != nil {
				return nil, err
			}
			break
		}
	}
	return obj, nil
}

// DecodeValue builds the embeddable's structured value from its encoded
// field map.
func (d *Descriptor) DecodeValue(fields map[string]interface{}) (interface{}, error) {
	if d.spec.Kind != KindEmbeddable {
		return nil, errors.Wrapf(api.ErrUnsupported,
			"%q is not an embeddable", d.spec.Name)
	}
	return d.fillObject(api.NewMapRow(fields))
}

// EncodeValue flattens the embeddable's structured value into its encoded
// field map.
func (d *Descriptor) EncodeValue(obj interface{}) (map[string]interface{}, error) {
	if d.spec.Kind != KindEmbeddable {
		return nil, errors.Wrapf(api.ErrUnsupported,
			"%q is not an embeddable", d.spec.Name)
	}
	out := map[string]interface{}{}
	for _, c := range d.tables[0].columns {
		value, err := objectField(obj, c.Field)
		if err != nil {
			return nil, err
		}
		out[c.Name] = value
	}
	return out, nil
}

// setObjectField sets the named field of object to value.
func setObjectField(object interface{}, fieldName string, value interface{}) error {
	objValue := reflect.ValueOf(object).Elem()
	objFieldValue := objValue.FieldByName(fieldName)

	if !objFieldValue.IsValid() {
		return fmt.Errorf("field %v not found in object", fieldName)
	}
	if !objFieldValue.CanSet() {
		return fmt.Errorf("field %v cannot be set", fieldName)
	}

	val := reflect.ValueOf(value)
	if val.Type() != objFieldValue.Type() {
		if !val.Type().ConvertibleTo(objFieldValue.Type()) {
			return fmt.Errorf("value type %v does not match field %v", val.Type(), fieldName)
		}
		val = val.Convert(objFieldValue.Type())
	}
	objFieldValue.Set(val)
	return nil
}

// objectField reads the named field of object.
func objectField(object interface{}, fieldName string) (interface{}, error) {
	objValue := reflect.ValueOf(object)
	if objValue.Kind() == reflect.Ptr {
		objValue = objValue.Elem()
	}
	f := objValue.FieldByName(fieldName)
	if !f.IsValid() {
		return nil, fmt.Errorf("field %v not found in object", fieldName)
	}
	return f.Interface(), nil
}
