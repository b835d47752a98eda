package flatcms

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Operator identifies a filter predicate.
type Operator string

// Filter operators.
const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpIn       Operator = "in"
	OpContains Operator = "contains"
)

var suffixOperators = map[string]Operator{
	"gt":       OpGt,
	"lt":       OpLt,
	"gte":      OpGte,
	"lte":      OpLte,
	"ne":       OpNe,
	"in":       OpIn,
	"contains": OpContains,
}

// Condition is a single (operator, value) predicate on a field. For OpIn
// the value is a []any of candidate members.
type Condition struct {
	Op    Operator
	Value any
}

// SortSpec names the sort field and direction.
type SortSpec struct {
	Field      string
	Descending bool
}

// QuerySpec is the parsed, request-scoped representation of filter, search,
// sort, and pagination parameters.
type QuerySpec struct {
	Filters map[string][]Condition
	Search  string
	Sort    *SortSpec
	Limit   int // <= 0 means unbounded
	Offset  int
}

// Reserved parameter names.
const (
	paramLimit  = "limit"
	paramOffset = "offset"
	paramSort   = "sort"
	paramSearch = "search"
)

// ParseQuery turns raw URL parameters into a QuerySpec.
//
// Keys of the form field__gt|lt|gte|lte|ne|in|contains map to typed
// operators on field; in splits its value on commas. limit and offset parse
// to integers, falling back to unbounded and 0. sort takes "field" or
// "-field". search is a free-text term. Any other key is an implicit
// equality filter.
func ParseQuery(params url.Values) *QuerySpec {
	spec := &QuerySpec{Filters: make(map[string][]Condition)}

	for key, values := range params {
		switch key {
		case paramLimit:
			if n, err := strconv.Atoi(first(values)); err == nil && n > 0 {
				spec.Limit = n
			}
			continue
		case paramOffset:
			if n, err := strconv.Atoi(first(values)); err == nil && n > 0 {
				spec.Offset = n
			}
			continue
		case paramSort:
			field := first(values)
			if field == "" {
				continue
			}
			if strings.HasPrefix(field, "-") {
				spec.Sort = &SortSpec{Field: field[1:], Descending: true}
			} else {
				spec.Sort = &SortSpec{Field: field}
			}
			continue
		case paramSearch:
			spec.Search = first(values)
			continue
		}

		field, op := splitOperator(key)
		for _, value := range values {
			cond := Condition{Op: op, Value: any(value)}
			if op == OpIn {
				parts := strings.Split(value, ",")
				members := make([]any, len(parts))
				for i, p := range parts {
					members[i] = p
				}
				cond.Value = members
			}
			spec.Filters[field] = append(spec.Filters[field], cond)
		}
	}

	return spec
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// splitOperator separates a parameter key into field name and operator.
// Keys without a recognized __suffix are implicit equality filters.
func splitOperator(key string) (string, Operator) {
	if i := strings.LastIndex(key, "__"); i > 0 {
		if op, ok := suffixOperators[key[i+2:]]; ok {
			return key[:i], op
		}
	}
	return key, OpEq
}

// Apply shapes the item list: filter, search, sort, then paginate. The
// input order is preserved for unsorted results and for sort ties.
func (q *QuerySpec) Apply(items []*ContentItem) *QueryResult {
	matched := make([]*ContentItem, 0, len(items))
	for _, item := range items {
		if q.matchesFilters(item) && q.matchesSearch(item) {
			matched = append(matched, item)
		}
	}

	if q.Sort != nil {
		sortItems(matched, q.Sort)
	}

	return paginateItems(matched, q.Limit, q.Offset)
}

// matchesFilters reports whether every condition of every filtered field
// holds for the item.
func (q *QuerySpec) matchesFilters(item *ContentItem) bool {
	for field, conds := range q.Filters {
		value, present := item.Value(field)
		for _, cond := range conds {
			if !evalCondition(value, present, cond) {
				return false
			}
		}
	}
	return true
}

func evalCondition(value any, present bool, cond Condition) bool {
	switch cond.Op {
	case OpEq:
		return present && looseEqual(value, cond.Value)
	case OpNe:
		return !present || !looseEqual(value, cond.Value)
	case OpGt, OpGte, OpLt, OpLte:
		if !present {
			return false
		}
		x, ok := toNumber(value)
		if !ok {
			return false
		}
		y, ok := toNumber(cond.Value)
		if !ok {
			return false
		}
		switch cond.Op {
		case OpGt:
			return x > y
		case OpGte:
			return x >= y
		case OpLt:
			return x < y
		default:
			return x <= y
		}
	case OpIn:
		if !present {
			return false
		}
		members, _ := cond.Value.([]any)
		// A list-valued field matches when any of its elements is a member.
		if list, ok := value.([]any); ok {
			for _, el := range list {
				for _, m := range members {
					if looseEqual(el, m) {
						return true
					}
				}
			}
			return false
		}
		for _, m := range members {
			if looseEqual(value, m) {
				return true
			}
		}
		return false
	case OpContains:
		if !present {
			return false
		}
		term, _ := cond.Value.(string)
		return containsMatch(value, term)
	}
	return false
}

// matchesSearch scans every string-valued field, including strings nested
// in mappings and lists, for a case-insensitive substring match.
func (q *QuerySpec) matchesSearch(item *ContentItem) bool {
	if q.Search == "" {
		return true
	}
	term := strings.ToLower(q.Search)
	for _, v := range item.Fields {
		if searchValue(v, term) {
			return true
		}
	}
	return false
}

// sortItems orders items by the sort field. Missing and null values sort
// after present values regardless of direction; equal elements keep their
// relative order.
func sortItems(items []*ContentItem, spec *SortSpec) {
	sort.SliceStable(items, func(i, j int) bool {
		vi, iok := items[i].Value(spec.Field)
		vj, jok := items[j].Value(spec.Field)
		iok = iok && vi != nil
		jok = jok && vj != nil
		if !iok {
			return false
		}
		if !jok {
			return true
		}
		c := compareValues(vi, vj)
		if spec.Descending {
			return c > 0
		}
		return c < 0
	})
}

// paginateItems slices offset then limit over the shaped list. Total is the
// count before slicing; hasMore is defined only when a limit is set.
func paginateItems(items []*ContentItem, limit, offset int) *QueryResult {
	total := len(items)
	if offset < 0 {
		offset = 0
	}

	start := offset
	if start > total {
		start = total
	}
	end := total
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	return &QueryResult{
		Items:   items[start:end],
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: limit > 0 && offset+limit < total,
	}
}
