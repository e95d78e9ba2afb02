package templating

import (
	"fmt"
	"html/template"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// toString returns the text form of a value as a template would print it.
// nil becomes the empty string.
func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case template.HTML:
		return string(s)
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}

func indirect(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// toNumber converts numbers and numeric strings to float64.
func toNumber(v any) (float64, bool) {
	rv := indirect(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
		return f, err == nil
	}
	return 0, false
}

// toInt converts integral numbers and integer strings to int64.
func toInt(v any) (int64, bool) {
	rv := indirect(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if rv.Uint() > math.MaxInt64 {
			return 0, false
		}
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	case reflect.String:
		i, err := strconv.ParseInt(strings.TrimSpace(rv.String()), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// compareValues orders a and b. Numbers compare numerically, strings
// lexically and times chronologically. A numeric string compared with a
// number is treated as a number. ok is false when the values have no order.
func compareValues(a, b any) (cmp int, ok bool) {
	av, bv := indirect(a), indirect(b)
	if !av.IsValid() || !bv.IsValid() {
		return 0, false
	}

	if av.Type() == timeType && bv.Type() == timeType {
		return av.Interface().(time.Time).Compare(bv.Interface().(time.Time)), true
	}
	if av.Kind() == reflect.String && bv.Kind() == reflect.String {
		return strings.Compare(av.String(), bv.String()), true
	}
	if !isNumberKind(av.Kind()) && !isNumberKind(bv.Kind()) {
		return 0, false
	}
	if ai, aok := toInt(a); aok {
		if bi, bok := toInt(b); bok {
			switch {
			case ai < bi:
				return -1, true
			case ai > bi:
				return 1, true
			}
			return 0, true
		}
	}
	af, aok := toNumber(a)
	bf, bok := toNumber(b)
	if !aok || !bok || math.IsNaN(af) || math.IsNaN(bf) {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

// looseEqual reports equality, treating numbers of different types as equal
// when their values are.
func looseEqual(a, b any) bool {
	av, bv := indirect(a), indirect(b)
	if av.IsValid() && bv.IsValid() && isNumberKind(av.Kind()) && isNumberKind(bv.Kind()) {
		c, ok := compareValues(a, b)
		return ok && c == 0
	}
	return reflect.DeepEqual(a, b)
}

// elements returns the members of a slice or array, or the keys of a map.
func elements(v any) ([]any, bool) {
	rv := indirect(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	case reflect.Map:
		out := make([]any, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out = append(out, iter.Key().Interface())
		}
		return out, true
	}
	return nil, false
}

// truthy returns true if a value is not its zero value. Empty slices, maps
// and strings are false, as are the strings "false", "0" and "off".
func truthy(val any) bool {
	v := indirect(val)
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() > 0
	case reflect.String:
		switch strings.ToLower(strings.TrimSpace(v.String())) {
		case "", "false", "0", "off", "no":
			return false
		}
		return true
	}
	return !v.IsZero()
}
