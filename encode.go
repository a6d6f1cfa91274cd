package quarry

import (
	"context"
	"encoding"
	"encoding/base64"
	"fmt"
	"reflect"
	"time"
)

var documentMarshalerType = reflect.TypeFor[DocumentMarshaler]()

// Encode converts a record (or pointer to one) into its document form.
// Fields flagged skip are omitted; absent optional fields encode as nil.
// A nil pointer encodes to a nil document.
func Encode(record any) (map[string]any, error) {
	rv := reflect.ValueOf(record)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, nil
	}
	if !rv.CanAddr() {
		tmp := reflect.New(rv.Type()).Elem()
		tmp.Set(rv)
		rv = tmp
	}

	desc, err := DescribeType(rv.Type())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	doc, err := encodeRecord(desc, rv)
	emitEncoded(context.Background(), desc.Name(), time.Since(start), err)
	return doc, err
}

func encodeRecord(desc *Descriptor, rv reflect.Value) (map[string]any, error) {
	if m, ok := asDocumentMarshaler(rv); ok {
		return m.MarshalDocument()
	}

	doc := make(map[string]any, len(desc.fields))
	for _, f := range desc.fields {
		if f.Skip {
			continue
		}
		v, err := encodeValue(f.Shape, rv.FieldByIndex(f.Index))
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", desc.name, f.Name, err)
		}
		doc[f.External] = v
	}
	return doc, nil
}

func encodeValue(s *Shape, v reflect.Value) (any, error) {
	switch s.Kind {
	case ShapeOptional:
		if v.IsNil() {
			return nil, nil
		}
		return encodeValue(s.Elem, v.Elem())

	case ShapeSequence:
		out := make([]any, v.Len())
		for i := range out {
			ev, err := encodeValue(s.Elem, v.Index(i))
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil

	case ShapeNested:
		return encodeRecord(s.Nested, v)
	}

	switch s.Scalar {
	case ScalarBool:
		return v.Bool(), nil
	case ScalarInt:
		return v.Int(), nil
	case ScalarUint:
		return v.Uint(), nil
	case ScalarFloat:
		return v.Float(), nil
	case ScalarString:
		return v.String(), nil
	case ScalarBytes:
		return base64.StdEncoding.EncodeToString(v.Bytes()), nil
	case ScalarTimestamp:
		return FormatTimestamp(v.Interface().(time.Time)), nil
	case ScalarDate:
		return v.Interface().(Date).String(), nil
	case ScalarText:
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, err
		}
		return string(text), nil
	}

	if v.Kind() == reflect.Interface && v.IsNil() {
		return nil, nil
	}
	return v.Interface(), nil
}

func asDocumentMarshaler(rv reflect.Value) (DocumentMarshaler, bool) {
	if rv.Type().Implements(documentMarshalerType) {
		m, ok := rv.Interface().(DocumentMarshaler)
		return m, ok
	}
	if rv.CanAddr() && rv.Addr().Type().Implements(documentMarshalerType) {
		m, ok := rv.Addr().Interface().(DocumentMarshaler)
		return m, ok
	}
	return nil, false
}
