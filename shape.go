package quarry

import (
	"encoding"
	"reflect"
	"time"
)

// ShapeKind is the closed set of field type structures.
type ShapeKind int

const (
	// ShapeScalar is a single leaf value.
	ShapeScalar ShapeKind = iota + 1
	// ShapeOptional may be absent; it wraps an inner shape.
	ShapeOptional
	// ShapeSequence is an ordered list of an inner shape.
	ShapeSequence
	// ShapeNested is another record type.
	ShapeNested
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeScalar:
		return "scalar"
	case ShapeOptional:
		return "optional"
	case ShapeSequence:
		return "sequence"
	case ShapeNested:
		return "nested"
	}
	return "unknown"
}

// ScalarKind identifies the leaf value type of a scalar shape.
type ScalarKind int

const (
	ScalarBool ScalarKind = iota + 1
	ScalarInt
	ScalarUint
	ScalarFloat
	ScalarString
	ScalarBytes
	ScalarTimestamp
	ScalarDate
	// ScalarText covers types with a canonical text form, such as
	// arbitrary-precision decimals and UUIDs.
	ScalarText
	// ScalarAny passes values through untouched.
	ScalarAny
)

func (k ScalarKind) String() string {
	switch k {
	case ScalarBool:
		return "bool"
	case ScalarInt:
		return "int"
	case ScalarUint:
		return "uint"
	case ScalarFloat:
		return "float"
	case ScalarString:
		return "string"
	case ScalarBytes:
		return "bytes"
	case ScalarTimestamp:
		return "timestamp"
	case ScalarDate:
		return "date"
	case ScalarText:
		return "text"
	case ScalarAny:
		return "any"
	}
	return "unknown"
}

// Shape describes the structure of a field type. It is resolved once when
// the record type is described and never re-derived during encode or decode.
type Shape struct {
	Kind   ShapeKind
	Type   reflect.Type
	Scalar ScalarKind  // set for ShapeScalar
	Elem   *Shape      // set for ShapeOptional and ShapeSequence
	Nested *Descriptor // set for ShapeNested
}

func (s *Shape) String() string {
	switch s.Kind {
	case ShapeScalar:
		return s.Scalar.String()
	case ShapeOptional:
		return "optional[" + s.Elem.String() + "]"
	case ShapeSequence:
		return "sequence[" + s.Elem.String() + "]"
	case ShapeNested:
		return "nested[" + s.Nested.Name() + "]"
	}
	return "unknown"
}

var (
	timeType            = reflect.TypeFor[time.Time]()
	dateType            = reflect.TypeFor[Date]()
	anyMapType          = reflect.TypeFor[map[string]any]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

func isTextType(rt reflect.Type) bool {
	return rt.Implements(textMarshalerType) && reflect.PointerTo(rt).Implements(textUnmarshalerType)
}

// resolveShape derives the shape of rt. Struct types are described through
// b so recursive record types share one descriptor.
func (b *builder) resolveShape(rt reflect.Type) (*Shape, error) {
	scalar := func(k ScalarKind) (*Shape, error) {
		return &Shape{Kind: ShapeScalar, Type: rt, Scalar: k}, nil
	}

	switch {
	case rt == timeType:
		return scalar(ScalarTimestamp)
	case rt == dateType:
		return scalar(ScalarDate)
	case rt == anyMapType:
		return scalar(ScalarAny)
	case rt.Kind() != reflect.Pointer && rt.Kind() != reflect.Interface && isTextType(rt):
		return scalar(ScalarText)
	}

	switch rt.Kind() {
	case reflect.Bool:
		return scalar(ScalarBool)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar(ScalarInt)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return scalar(ScalarUint)
	case reflect.Float32, reflect.Float64:
		return scalar(ScalarFloat)
	case reflect.String:
		return scalar(ScalarString)
	case reflect.Interface:
		if rt.NumMethod() == 0 {
			return scalar(ScalarAny)
		}
	case reflect.Pointer:
		if rt.Elem().Kind() == reflect.Pointer {
			break
		}
		elem, err := b.resolveShape(rt.Elem())
		if err != nil {
			return nil, err
		}
		return &Shape{Kind: ShapeOptional, Type: rt, Elem: elem}, nil
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return scalar(ScalarBytes)
		}
		elem, err := b.resolveShape(rt.Elem())
		if err != nil {
			return nil, err
		}
		return &Shape{Kind: ShapeSequence, Type: rt, Elem: elem}, nil
	case reflect.Array:
		elem, err := b.resolveShape(rt.Elem())
		if err != nil {
			return nil, err
		}
		return &Shape{Kind: ShapeSequence, Type: rt, Elem: elem}, nil
	case reflect.Struct:
		desc, err := b.describe(rt)
		if err != nil {
			return nil, err
		}
		return &Shape{Kind: ShapeNested, Type: rt, Nested: desc}, nil
	}

	return nil, newConfigError(ErrUnsupportedType, "", "", rt.String())
}
