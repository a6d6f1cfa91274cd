package quarry

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

var (
	errNotNumeric = errors.New("not a number")
	errOverflow   = errors.New("value out of range")
	errFraction   = errors.New("value has a fractional part")

	errNotConvertible = errors.New("no conversion to field type")
)

func isIntKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUintKind(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumericKind(k reflect.Kind) bool {
	return isIntKind(k) || isUintKind(k) || isFloatKind(k)
}

// asInt64 reads v as a whole number. Floats must be integral and numeric
// strings (including json.Number) are parsed.
func asInt64(v any) (int64, error) {
	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case isIntKind(k):
		return rv.Int(), nil
	case isUintKind(k):
		if rv.Uint() > math.MaxInt64 {
			return 0, errOverflow
		}
		return int64(rv.Uint()), nil
	case isFloatKind(k):
		return floatToInt64(rv.Float())
	case k == reflect.String:
		s := strings.TrimSpace(rv.String())
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errNotNumeric
		}
		return floatToInt64(f)
	}
	return 0, errNotNumeric
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) {
		return 0, errFraction
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errOverflow
	}
	return int64(f), nil
}

// asUint64 reads v as a non-negative whole number.
func asUint64(v any) (uint64, error) {
	rv := reflect.ValueOf(v)
	if isUintKind(rv.Kind()) {
		return rv.Uint(), nil
	}
	if rv.Kind() == reflect.String {
		if n, err := strconv.ParseUint(strings.TrimSpace(rv.String()), 10, 64); err == nil {
			return n, nil
		}
	}
	if isFloatKind(rv.Kind()) && rv.Float() >= math.MaxInt64 {
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, errFraction
		}
		if f >= math.MaxUint64 {
			return 0, errOverflow
		}
		return uint64(f), nil
	}
	n, err := asInt64(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errOverflow
	}
	return uint64(n), nil
}

// asFloat64 reads v as a floating point number.
func asFloat64(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case isFloatKind(k):
		return rv.Float(), nil
	case isIntKind(k):
		return float64(rv.Int()), nil
	case isUintKind(k):
		return float64(rv.Uint()), nil
	case k == reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
		if err != nil {
			return 0, errNotNumeric
		}
		return f, nil
	}
	return 0, errNotNumeric
}

// setNumber stores v into a numeric dst, rejecting values that do not fit.
func setNumber(dst reflect.Value, v any) error {
	switch k := dst.Kind(); {
	case isIntKind(k):
		n, err := asInt64(v)
		if err != nil {
			return err
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("%w: %d overflows %s", errOverflow, n, dst.Type())
		}
		dst.SetInt(n)
	case isUintKind(k):
		n, err := asUint64(v)
		if err != nil {
			return err
		}
		if dst.OverflowUint(n) {
			return fmt.Errorf("%w: %d overflows %s", errOverflow, n, dst.Type())
		}
		dst.SetUint(n)
	case isFloatKind(k):
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		if dst.OverflowFloat(f) {
			return fmt.Errorf("%w: %g overflows %s", errOverflow, f, dst.Type())
		}
		dst.SetFloat(f)
	default:
		return errNotNumeric
	}
	return nil
}

// formatNumber renders a numeric value as text.
func formatNumber(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case isIntKind(k):
		return strconv.FormatInt(rv.Int(), 10), true
	case isUintKind(k):
		return strconv.FormatUint(rv.Uint(), 10), true
	case k == reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case k == reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	return "", false
}
