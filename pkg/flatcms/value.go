package flatcms

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// valueKind classifies a value within the closed value algebra used for
// content fields. Times appear only in envelope fields (createdAt etc.);
// everything inside Fields is JSON-shaped.
type valueKind int

const (
	kindNull valueKind = iota
	kindString
	kindNumber
	kindBool
	kindList
	kindMap
	kindTime
)

func kindOf(v any) valueKind {
	switch v.(type) {
	case nil:
		return kindNull
	case string:
		return kindString
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return kindNumber
	case bool:
		return kindBool
	case []any:
		return kindList
	case map[string]any, Fields:
		return kindMap
	case time.Time:
		return kindTime
	}
	return kindNull
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Fields:
		return m, true
	}
	return nil, false
}

// toNumber coerces a value to float64. Strings parse as decimal numbers,
// booleans map to 1 and 0.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case time.Time:
		return s.UTC().Format(time.RFC3339Nano)
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// looseEqualFunc compares two values of fixed kinds.
type looseEqualFunc func(a, b any) bool

// looseEqualTable is the cross-kind equality dispatch table. The permissive
// matches (string "true" equals boolean true, string "5" equals number 5)
// are deliberate, documented behavior of the query engine; keeping them in
// an explicit table keeps the looseness auditable.
var looseEqualTable map[[2]valueKind]looseEqualFunc

func init() {
	sameNumber := func(a, b any) bool {
		x, _ := toNumber(a)
		y, _ := toNumber(b)
		return x == y
	}
	stringNumber := func(a, b any) bool {
		x, ok := toNumber(a)
		if !ok {
			return false
		}
		y, _ := toNumber(b)
		return x == y
	}
	stringBool := func(s, b any) bool {
		parsed, err := strconv.ParseBool(strings.ToLower(s.(string)))
		if err != nil {
			return false
		}
		return parsed == b.(bool)
	}
	stringTime := func(s, t any) bool {
		parsed, err := time.Parse(time.RFC3339, s.(string))
		if err != nil {
			return false
		}
		return parsed.Equal(t.(time.Time))
	}

	looseEqualTable = map[[2]valueKind]looseEqualFunc{
		{kindNull, kindNull}:     func(a, b any) bool { return true },
		{kindString, kindString}: func(a, b any) bool { return a.(string) == b.(string) },
		{kindNumber, kindNumber}: sameNumber,
		{kindBool, kindBool}:     func(a, b any) bool { return a.(bool) == b.(bool) },
		{kindTime, kindTime}:     func(a, b any) bool { return a.(time.Time).Equal(b.(time.Time)) },
		{kindList, kindList}:     deepEqualValue,
		{kindMap, kindMap}:       deepEqualValue,

		// Permissive cross-kind matches.
		{kindString, kindNumber}: stringNumber,
		{kindNumber, kindString}: func(a, b any) bool { return stringNumber(b, a) },
		{kindString, kindBool}:   stringBool,
		{kindBool, kindString}:   func(a, b any) bool { return stringBool(b, a) },
		{kindNumber, kindBool}:   sameNumber,
		{kindBool, kindNumber}:   sameNumber,
		{kindString, kindTime}:   stringTime,
		{kindTime, kindString}:   func(a, b any) bool { return stringTime(b, a) },
	}
}

// looseEqual reports whether a and b match under the query engine's
// permissive equality. Kind pairs without a table entry never match.
func looseEqual(a, b any) bool {
	fn, ok := looseEqualTable[[2]valueKind{kindOf(a), kindOf(b)}]
	if !ok {
		return false
	}
	return fn(a, b)
}

func deepEqualValue(a, b any) bool {
	if m, ok := asMap(a); ok {
		a = map[string]any(m)
	}
	if m, ok := asMap(b); ok {
		b = map[string]any(m)
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two present values: numerically when both sides
// coerce to numbers, chronologically for two times, otherwise by string
// form. Returns <0, 0, or >0.
func compareValues(a, b any) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if kindOf(a) == kindNumber || kindOf(b) == kindNumber {
		if x, ok := toNumber(a); ok {
			if y, ok := toNumber(b); ok {
				switch {
				case x < y:
					return -1
				case x > y:
					return 1
				}
				return 0
			}
		}
	}
	return strings.Compare(stringify(a), stringify(b))
}

// lookupPath resolves a dot-separated path against a field map, descending
// into nested mappings. The boolean result reports presence.
func lookupPath(fields Fields, path string) (any, bool) {
	if fields == nil || path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var cur any = map[string]any(fields)
	for _, part := range parts {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// containsMatch implements the "contains" operator: case-insensitive
// substring match for scalar values, or a match against any element of a
// list-valued field.
func containsMatch(fieldVal any, term string) bool {
	term = strings.ToLower(term)
	if list, ok := fieldVal.([]any); ok {
		for _, el := range list {
			if strings.Contains(strings.ToLower(stringify(el)), term) {
				return true
			}
		}
		return false
	}
	if fieldVal == nil {
		return false
	}
	return strings.Contains(strings.ToLower(stringify(fieldVal)), term)
}

// searchValue recursively scans a value for a case-insensitive substring
// match over every string it contains, including strings nested in lists
// and mappings. Short-circuits on the first hit.
func searchValue(v any, loweredTerm string) bool {
	switch val := v.(type) {
	case string:
		return strings.Contains(strings.ToLower(val), loweredTerm)
	case []any:
		for _, el := range val {
			if searchValue(el, loweredTerm) {
				return true
			}
		}
	case map[string]any:
		for _, el := range val {
			if searchValue(el, loweredTerm) {
				return true
			}
		}
	case Fields:
		for _, el := range val {
			if searchValue(el, loweredTerm) {
				return true
			}
		}
	}
	return false
}

// deepCopyValue copies a value of the closed algebra. Scalars are returned
// as-is; lists and mappings are copied recursively.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = deepCopyValue(el)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, el := range val {
			out[k] = deepCopyValue(el)
		}
		return out
	case Fields:
		out := make(map[string]any, len(val))
		for k, el := range val {
			out[k] = deepCopyValue(el)
		}
		return out
	}
	return v
}

// timeFromValue interprets a field value as a timestamp: either a time.Time
// supplied programmatically or an RFC 3339 string from a decoded document.
func timeFromValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, t)
		}
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

// stringList extracts the string elements of a list-valued field.
func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, el := range list {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
