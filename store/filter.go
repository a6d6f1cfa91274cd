package store

import (
	"fmt"
	"slices"
	"strings"
)

// Op is a predicate comparison.
type Op int

const (
	// OpEq matches equal values.
	OpEq Op = iota
	// OpPrefix matches strings starting with the value.
	OpPrefix
	// OpGte matches values greater than or equal to the value.
	OpGte
	// OpLte matches values less than or equal to the value.
	OpLte
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpPrefix:
		return "prefix"
	case OpGte:
		return "gte"
	case OpLte:
		return "lte"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

var criteriaOps = map[string]Op{
	"prefix": OpPrefix,
	"gte":    OpGte,
	"lte":    OpLte,
}

// Predicate compares one column against a value.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Filter is a conjunction of predicates. An empty filter matches every row.
type Filter []Predicate

// Eq returns a filter matching rows whose column equals v.
func Eq(column string, v any) Filter {
	return Filter{{Column: column, Op: OpEq, Value: v}}
}

// ParseCriteria turns search criteria into a filter over table. Keys are a
// column name for equality or column-op with op one of prefix, gte and lte.
// A key whose suffix is not an operator is read as a whole column name, so
// columns may themselves contain dashes.
func ParseCriteria(table Table, criteria map[string]any) (Filter, error) {
	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	f := make(Filter, 0, len(keys))
	for _, key := range keys {
		p, err := parseCriterion(table, key, criteria[key])
		if err != nil {
			return nil, err
		}
		f = append(f, p)
	}
	return f, nil
}

func parseCriterion(table Table, key string, value any) (Predicate, error) {
	if i := strings.LastIndex(key, "-"); i > 0 {
		col, suffix := key[:i], key[i+1:]
		if op, ok := criteriaOps[suffix]; ok && table.HasColumn(col) {
			if op == OpPrefix {
				if _, isString := value.(string); !isString {
					return Predicate{}, fmt.Errorf("%w: %s needs a string value, got %T", ErrInvalidCriteria, key, value)
				}
			}
			return Predicate{Column: col, Op: op, Value: value}, nil
		}
	}
	if table.HasColumn(key) {
		return Predicate{Column: key, Op: OpEq, Value: value}, nil
	}
	return Predicate{}, fmt.Errorf("%w: %s", ErrInvalidCriteria, key)
}
