package store

import (
	"bytes"
	"fmt"
	"reflect"
	"slices"
)

// Row is a record in column form.
type Row map[string]any

// Clone returns a deep copy of r. Slices, maps and pointers held in the
// row are copied so the clone shares no mutable memory with r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for c, v := range r {
		out[c] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, uint64, float64:
		return v
	case []byte:
		if t == nil {
			return t
		}
		return bytes.Clone(t)
	}
	return cloneReflect(reflect.ValueOf(v)).Interface()
}

func cloneReflect(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneReflect(rv.Index(i)))
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneReflect(iter.Value()))
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type().Elem())
		out.Elem().Set(cloneReflect(rv.Elem()))
		return out
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(cloneReflect(rv.Elem()))
		return out
	}
	return rv
}

// KeyStrategy selects how a backend fills an absent primary key on insert.
type KeyStrategy int

const (
	// KeySequence assigns the next integer of a per-table sequence, starting at 1.
	KeySequence KeyStrategy = iota
	// KeyUUID assigns a random UUID string.
	KeyUUID
	// KeyProvided requires the caller to supply the key.
	KeyProvided
)

func (k KeyStrategy) String() string {
	switch k {
	case KeySequence:
		return "sequence"
	case KeyUUID:
		return "uuid"
	case KeyProvided:
		return "provided"
	}
	return fmt.Sprintf("KeyStrategy(%d)", int(k))
}

// Table names a store location and its column layout.
type Table struct {
	Name       string
	Columns    []string
	PrimaryKey string
	Keys       KeyStrategy
}

// HasColumn reports whether col is one of the table's columns.
func (t Table) HasColumn(col string) bool {
	return slices.Contains(t.Columns, col)
}

func (t Table) validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTable)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: %s has no columns", ErrInvalidTable, t.Name)
	}
	if t.PrimaryKey == "" {
		return fmt.Errorf("%w: %s has no primary key", ErrInvalidTable, t.Name)
	}
	if !t.HasColumn(t.PrimaryKey) {
		return fmt.Errorf("%w: primary key %s is not a column of %s", ErrInvalidTable, t.PrimaryKey, t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c] {
			return fmt.Errorf("%w: column %s repeated in %s", ErrInvalidTable, c, t.Name)
		}
		seen[c] = true
	}
	return nil
}
