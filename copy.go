package quarry

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
)

// Source reads named values. ok is false when the name is not present.
type Source interface {
	TryGet(name string) (value any, ok bool)
}

// Destination writes named values, failing when the name is unknown or the
// value cannot be stored.
type Destination interface {
	TrySet(name string, value any) error
}

// Accessor is both a Source and a Destination.
type Accessor interface {
	Source
	Destination
}

// MapAdapter exposes a map as an Accessor. Writes always succeed.
type MapAdapter map[string]any

// TryGet implements Source.
func (m MapAdapter) TryGet(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// TrySet implements Destination.
func (m MapAdapter) TrySet(name string, value any) error {
	m[name] = value
	return nil
}

// reflectMap adapts string-keyed maps of any element type.
type reflectMap struct {
	rv reflect.Value
}

func (m reflectMap) TryGet(name string) (any, bool) {
	v := m.rv.MapIndex(reflect.ValueOf(name).Convert(m.rv.Type().Key()))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

func (m reflectMap) TrySet(name string, value any) error {
	if m.rv.IsNil() {
		return fmt.Errorf("%w: nil map", ErrTypeMismatch)
	}
	elem := reflect.New(m.rv.Type().Elem()).Elem()
	if err := assign(elem, value); err != nil {
		return err
	}
	m.rv.SetMapIndex(reflect.ValueOf(name).Convert(m.rv.Type().Key()), elem)
	return nil
}

// StructAdapter exposes a record's fields as an Accessor. Names resolve by
// Go field name, then store column, then external name, then a
// case-insensitive Go field name.
type StructAdapter struct {
	rv       reflect.Value
	desc     *Descriptor
	byColumn bool
}

// NewStructAdapter adapts a record. Pass a pointer to allow writes.
func NewStructAdapter(record any) (*StructAdapter, error) {
	rv := reflect.ValueOf(record)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, newConfigError(ErrNotRecord, rv.Type().String(), "", "")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, newConfigError(ErrNotRecord, fmt.Sprintf("%T", record), "", "")
	}
	desc, err := DescribeType(rv.Type())
	if err != nil {
		return nil, err
	}
	return &StructAdapter{rv: rv, desc: desc}, nil
}

// NewColumnAdapter adapts a record for row mapping: a name matching a
// field's store column resolves to that field before any other rule, so a
// column never lands in a field that merely shares its Go name.
func NewColumnAdapter(record any) (*StructAdapter, error) {
	a, err := NewStructAdapter(record)
	if err != nil {
		return nil, err
	}
	a.byColumn = true
	return a, nil
}

func (a *StructAdapter) field(name string) (reflect.Value, bool) {
	if a.byColumn {
		if f, ok := a.desc.ByColumn(name); ok {
			return a.rv.FieldByIndex(f.Index), true
		}
	}
	f, ok := a.desc.Field(name)
	if !ok {
		f, ok = a.desc.ByColumn(name)
	}
	if !ok {
		f, ok = a.desc.ByExternal(name)
	}
	if !ok {
		for _, cand := range a.desc.fields {
			if strings.EqualFold(cand.Name, name) {
				f, ok = cand, true
				break
			}
		}
	}
	if !ok {
		return reflect.Value{}, false
	}
	return a.rv.FieldByIndex(f.Index), true
}

// TryGet implements Source. Pointer fields are dereferenced; a nil pointer
// reads as nil.
func (a *StructAdapter) TryGet(name string) (any, bool) {
	fv, ok := a.field(name)
	if !ok {
		return nil, false
	}
	for fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil, true
		}
		fv = fv.Elem()
	}
	return fv.Interface(), true
}

// TrySet implements Destination.
func (a *StructAdapter) TrySet(name string, value any) error {
	fv, ok := a.field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if !fv.CanSet() {
		return fmt.Errorf("%w: %s is not settable", ErrTypeMismatch, name)
	}
	return assign(fv, value)
}

// Adapt wraps v as an Accessor. Mapping-like values are checked first so a
// map is never mistaken for a record.
func Adapt(v any) (Accessor, error) {
	switch t := v.(type) {
	case Accessor:
		return t, nil
	case map[string]any:
		return MapAdapter(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		return reflectMap{rv: rv}, nil
	}
	return NewStructAdapter(v)
}

// CopyFields copies each named value from src to dst. It is best effort:
// names missing from src, values dst rejects and panics raised by either
// side skip that name only. It returns how many names were copied.
func CopyFields(src Source, dst Destination, names []string) int {
	copied := 0
	for _, name := range names {
		if copyField(src, dst, name, name) {
			copied++
		}
	}
	return copied
}

func copyField(src Source, dst Destination, from, to string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	v, found := src.TryGet(from)
	if !found {
		return false
	}
	return dst.TrySet(to, v) == nil
}

// Copy adapts src and dst and copies the named values between them.
func Copy(src, dst any, names []string) (int, error) {
	s, err := Adapt(src)
	if err != nil {
		return 0, err
	}
	d, err := Adapt(dst)
	if err != nil {
		return 0, err
	}
	return CopyFields(s, d, names), nil
}

// Merge fills the record dst from src, reading each field by Go name, then
// column, then external name. Like CopyFields it never fails on a single
// field; it returns how many fields were set.
func Merge(dst any, src any) (int, error) {
	d, err := NewStructAdapter(dst)
	if err != nil {
		return 0, err
	}
	s, err := Adapt(src)
	if err != nil {
		return 0, err
	}
	merged := 0
	for _, f := range d.desc.fields {
		for _, name := range []string{f.Name, f.Column, f.External} {
			if name == "" {
				continue
			}
			if _, found := s.TryGet(name); found {
				if copyField(s, d, name, f.Name) {
					merged++
				}
				break
			}
		}
	}
	return merged, nil
}

var scannerType = reflect.TypeFor[sql.Scanner]()

// assign stores value in dst following Go assignability, with the
// conversions stores commonly need.
func assign(dst reflect.Value, value any) error {
	if value == nil {
		switch dst.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			dst.SetZero()
			return nil
		}
		if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
			return dst.Addr().Interface().(sql.Scanner).Scan(nil)
		}
		return fmt.Errorf("%w: nil into %s", ErrTypeMismatch, dst.Type())
	}

	sv := reflect.ValueOf(value)
	st, dt := sv.Type(), dst.Type()

	switch {
	case st.AssignableTo(dt):
		dst.Set(sv)
		return nil
	case dt.Kind() == reflect.Pointer:
		ptr := reflect.New(dt.Elem())
		if err := assign(ptr.Elem(), value); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	case st.Kind() == reflect.Pointer:
		if sv.IsNil() {
			return assign(dst, nil)
		}
		return assign(dst, sv.Elem().Interface())
	case dst.CanAddr() && dst.Addr().Type().Implements(scannerType):
		return dst.Addr().Interface().(sql.Scanner).Scan(value)
	case isNumericKind(st.Kind()) && isNumericKind(dt.Kind()):
		return setNumber(dst, value)
	case isIntKind(st.Kind()) && dt.Kind() == reflect.Bool:
		dst.SetBool(sv.Int() != 0)
		return nil
	case st.Kind() == reflect.String && dt.Kind() == reflect.String:
		dst.SetString(sv.String())
		return nil
	case st.Kind() == reflect.String && dt.Kind() == reflect.Slice && dt.Elem().Kind() == reflect.Uint8:
		dst.SetBytes([]byte(sv.String()))
		return nil
	case st.Kind() == reflect.Slice && st.Elem().Kind() == reflect.Uint8 && dt.Kind() == reflect.String:
		dst.SetString(string(sv.Bytes()))
		return nil
	case dt == timeType:
		var text string
		switch v := value.(type) {
		case string:
			text = v
		case []byte:
			text = string(v)
		default:
			return fmt.Errorf("%w: %s into %s", ErrTypeMismatch, st, dt)
		}
		t, err := ParseTimestamp(text)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	return fmt.Errorf("%w: %s into %s", ErrTypeMismatch, st, dt)
}
