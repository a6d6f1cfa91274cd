package memory

import (
	"bytes"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zoobzio/quarry/store"
)

// match reports whether row satisfies every predicate of f.
func match(row store.Row, f store.Filter) bool {
	for _, p := range f {
		if !matchOne(row[p.Column], p) {
			return false
		}
	}
	return true
}

// matchOne compares a stored value against a predicate. Nulls match
// nothing, as in SQL.
func matchOne(v any, p store.Predicate) bool {
	v, want := deref(v), deref(p.Value)
	if v == nil || want == nil {
		return false
	}
	if p.Op == store.OpPrefix {
		s, ok := asString(v)
		prefix, pok := asString(want)
		return ok && pok && strings.HasPrefix(s, prefix)
	}

	c, ok := compare(v, want)
	if !ok {
		return p.Op == store.OpEq && reflect.DeepEqual(v, want)
	}
	switch p.Op {
	case store.OpEq:
		return c == 0
	case store.OpGte:
		return c >= 0
	case store.OpLte:
		return c <= 0
	}
	return false
}

// equal reports whether two keys are the same value.
func equal(a, b any) bool {
	return matchOne(a, store.Predicate{Op: store.OpEq, Value: b})
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

// compare orders two values of compatible kinds. ok is false when they
// have no common ordering.
func compare(a, b any) (int, bool) {
	if da, ok := asDecimal(a); ok {
		if db, ok := asDecimal(b); ok {
			return da.Cmp(db), true
		}
		return 0, false
	}

	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
		return 0, false
	case bool:
		if y, ok := b.(bool); ok && x == y {
			return 0, true
		}
		return 1, false
	case []byte:
		if y, ok := b.([]byte); ok {
			return bytes.Compare(x, y), true
		}
	}

	if sa, ok := asString(a); ok {
		if sb, ok := asString(b); ok {
			return strings.Compare(sa, sb), true
		}
		return 0, false
	}
	return 0, false
}

func asString(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

// asDecimal reads any number, or a decimal.Decimal, exactly.
func asDecimal(v any) (decimal.Decimal, bool) {
	if d, ok := v.(decimal.Decimal); ok {
		return d, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return decimal.NewFromUint64(u), true
		}
		return decimal.NewFromInt(int64(u)), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(f), true
	}
	return decimal.Decimal{}, false
}
