package quarry

import (
	"context"
	"encoding"
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

var documentUnmarshalerType = reflect.TypeFor[DocumentUnmarshaler]()

// Decode builds a T from a document. A nil document is an absent record
// and yields (nil, nil).
func Decode[T any](doc any) (*T, error) {
	if doc == nil {
		return nil, nil
	}
	out := new(T)
	if err := DecodeInto(doc, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeInto populates the record pointed to by dst from doc.
//
// Each field reads its external key (a missing key counts as null). String
// input for a field with a parser goes through the parser. Otherwise the
// field's shape drives conversion: optional fields accept null, sequences
// decode element-wise, nested records recurse and scalars are converted to
// the declared type. Failures are reported as *DecodeError.
func DecodeInto(doc any, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return newConfigError(ErrNotRecord, fmt.Sprintf("%T", dst), "", "")
	}

	desc, err := DescribeType(rv.Type())
	if err != nil {
		return err
	}

	start := time.Now()
	err = decodeRecord(desc, doc, rv.Elem(), "")
	emitDecoded(context.Background(), desc.Name(), time.Since(start), err)
	return err
}

func decodeRecord(desc *Descriptor, val any, dst reflect.Value, path string) error {
	m, ok := asMapping(val)
	if !ok {
		if path == "" {
			path = desc.name
		}
		return &DecodeError{Kind: TypeMismatch, Path: path, Value: val}
	}

	if dst.Addr().Type().Implements(documentUnmarshalerType) {
		dst.SetZero()
		return dst.Addr().Interface().(DocumentUnmarshaler).UnmarshalDocument(m)
	}

	for _, f := range desc.fields {
		fpath := f.External
		if path != "" {
			fpath = path + "." + f.External
		}
		fv := dst.FieldByIndex(f.Index)
		raw := m[f.External]

		if f.Parser != nil {
			if s, ok := raw.(string); ok {
				if err := applyParser(f, s, fv, fpath); err != nil {
					return err
				}
				continue
			}
		}

		if err := decodeValue(f.Shape, raw, fv, fpath); err != nil {
			return err
		}
	}
	return nil
}

func applyParser(f *Field, s string, dst reflect.Value, path string) error {
	parsed, err := f.Parser(s)
	if err != nil {
		return &DecodeError{Kind: TypeMismatch, Path: path, Value: s, Cause: err}
	}
	if parsed == nil {
		switch dst.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			dst.SetZero()
			return nil
		}
		return &DecodeError{Kind: TypeMismatch, Path: path, Value: parsed}
	}

	pv := reflect.ValueOf(parsed)
	switch {
	case pv.Type().AssignableTo(dst.Type()):
		dst.Set(pv)
	case dst.Kind() == reflect.Pointer && pv.Type().AssignableTo(dst.Type().Elem()):
		ptr := reflect.New(dst.Type().Elem())
		ptr.Elem().Set(pv)
		dst.Set(ptr)
	default:
		return &DecodeError{Kind: TypeMismatch, Path: path, Value: parsed}
	}
	return nil
}

func decodeValue(s *Shape, val any, dst reflect.Value, path string) error {
	if s.Kind == ShapeOptional {
		if val == nil {
			dst.SetZero()
			return nil
		}
		ptr := reflect.New(s.Elem.Type)
		if err := decodeValue(s.Elem, val, ptr.Elem(), path); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	}

	if val == nil {
		if s.Kind == ShapeScalar && s.Scalar == ScalarAny {
			dst.SetZero()
			return nil
		}
		return &DecodeError{Kind: MissingRequiredField, Path: path}
	}

	switch s.Kind {
	case ShapeSequence:
		seq, ok := asSequence(val)
		if !ok {
			return &DecodeError{Kind: TypeMismatch, Path: path, Value: val}
		}
		var out reflect.Value
		if s.Type.Kind() == reflect.Array {
			if seq.Len() != s.Type.Len() {
				return &DecodeError{Kind: TypeMismatch, Path: path, Value: val,
					Cause: fmt.Errorf("want %d elements, got %d", s.Type.Len(), seq.Len())}
			}
			out = reflect.New(s.Type).Elem()
		} else {
			out = reflect.MakeSlice(s.Type, seq.Len(), seq.Len())
		}
		for i := 0; i < seq.Len(); i++ {
			if err := decodeValue(s.Elem, seq.Index(i).Interface(), out.Index(i), path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil

	case ShapeNested:
		return decodeRecord(s.Nested, val, dst, path)
	}

	if err := decodeScalar(s, val, dst); err != nil {
		return &DecodeError{Kind: TypeMismatch, Path: path, Value: val, Cause: err}
	}
	return nil
}

// decodeScalar converts val into dst or reports why it cannot.
func decodeScalar(s *Shape, val any, dst reflect.Value) error {
	rv := reflect.ValueOf(val)
	if rv.Type() == dst.Type() {
		dst.Set(rv)
		return nil
	}
	isString := rv.Kind() == reflect.String

	switch s.Scalar {
	case ScalarAny:
		if rv.Type().AssignableTo(dst.Type()) {
			dst.Set(rv)
			return nil
		}
		if m, ok := asMapping(val); ok && dst.Type() == anyMapType {
			dst.Set(reflect.ValueOf(m))
			return nil
		}

	case ScalarTimestamp:
		if isString {
			t, err := ParseTimestamp(rv.String())
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(t))
			return nil
		}

	case ScalarDate:
		switch v := val.(type) {
		case time.Time:
			dst.Set(reflect.ValueOf(DateOf(v)))
			return nil
		case string:
			d, err := ParseDate(v)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(d))
			return nil
		}

	case ScalarText:
		text, ok := formatNumber(val)
		if isString {
			text, ok = rv.String(), true
		} else if m, isText := val.(encoding.TextMarshaler); isText && !ok {
			b, err := m.MarshalText()
			if err != nil {
				return err
			}
			text, ok = string(b), true
		}
		if ok {
			ptr := reflect.New(dst.Type())
			if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil {
				return err
			}
			dst.Set(ptr.Elem())
			return nil
		}

	case ScalarBool:
		switch {
		case rv.Kind() == reflect.Bool:
			dst.SetBool(rv.Bool())
			return nil
		case isString:
			b, err := strconv.ParseBool(rv.String())
			if err != nil {
				return err
			}
			dst.SetBool(b)
			return nil
		}

	case ScalarInt, ScalarUint, ScalarFloat:
		return setNumber(dst, val)

	case ScalarString:
		if isString {
			dst.SetString(rv.String())
			return nil
		}
		if rv.Kind() == reflect.Bool {
			dst.SetString(strconv.FormatBool(rv.Bool()))
			return nil
		}
		if text, ok := formatNumber(val); ok {
			dst.SetString(text)
			return nil
		}
		if m, ok := val.(encoding.TextMarshaler); ok {
			b, err := m.MarshalText()
			if err != nil {
				return err
			}
			dst.SetString(string(b))
			return nil
		}

	case ScalarBytes:
		if isString {
			b, err := base64.StdEncoding.DecodeString(rv.String())
			if err != nil {
				return err
			}
			dst.SetBytes(b)
			return nil
		}
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			dst.SetBytes(append([]byte(nil), rv.Bytes()...))
			return nil
		}
	}

	return errNotConvertible
}

// asMapping accepts map[string]any and any other string-keyed map.
func asMapping(val any) (map[string]any, bool) {
	if m, ok := val.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

// asSequence accepts any slice or array.
func asSequence(val any) (reflect.Value, bool) {
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv, true
	}
	return reflect.Value{}, false
}
