package engine

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/dukex/taskflow/pkg/template"
)

// Condition operators.
const (
	OperatorEquals      = "equals"
	OperatorNotEquals   = "not_equals"
	OperatorGreaterThan = "greater_than"
	OperatorLessThan    = "less_than"
	OperatorContains    = "contains"
	OperatorNotContains = "not_contains"
)

// Evaluate compares two interpolated operands.
//
// equals compares numbers numerically and everything else by its rendered
// text, so 5 equals "5". Ordering operators coerce both sides to numbers and
// are false when either side is not numeric. contains tests element
// membership when left is an array and substring containment otherwise.
func Evaluate(operator string, left, right any) (bool, error) {
	switch operator {
	case OperatorEquals:
		return looseEqual(left, right), nil
	case OperatorNotEquals:
		return !looseEqual(left, right), nil
	case OperatorGreaterThan, OperatorLessThan:
		l, lok := toNumber(left)
		r, rok := toNumber(right)

		if !lok || !rok {
			return false, nil
		}

		if operator == OperatorGreaterThan {
			return l > r, nil
		}

		return l < r, nil
	case OperatorContains:
		return contains(left, right), nil
	case OperatorNotContains:
		return !contains(left, right), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, operator)
	}
}

func looseEqual(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}

	if l, ok := numeric(left); ok {
		if r, ok := numeric(right); ok {
			return l == r
		}
	}

	return template.Stringify(left) == template.Stringify(right)
}

func contains(left, right any) bool {
	if left == nil {
		return false
	}

	if items, ok := asSlice(left); ok {
		for _, item := range items {
			if looseEqual(item, right) {
				return true
			}
		}

		return false
	}

	return strings.Contains(template.Stringify(left), template.Stringify(right))
}

// numeric converts Go number types only.
func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// toNumber also accepts numeric strings.
func toNumber(value any) (float64, bool) {
	if n, ok := numeric(value); ok {
		return n, true
	}

	s, ok := value.(string)
	if !ok {
		return 0, false
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}

	return n, true
}

// asSlice accepts any slice or array, not only []any.
func asSlice(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}

	return items, true
}

// branchMatches reports whether a child's branch setting selects it for result.
func branchMatches(branch any, result bool) bool {
	switch b := branch.(type) {
	case bool:
		return b == result
	case string:
		return strings.EqualFold(strings.TrimSpace(b), strconv.FormatBool(result))
	default:
		return false
	}
}
