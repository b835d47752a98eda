package flatcms

import (
	"context"
	"fmt"
	"strings"
)

// UniquenessViolation reports one unique field whose candidate value is
// already taken by another item of the type.
type UniquenessViolation struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

// UniquenessReport is the outcome of a uniqueness check. Valid is true only
// when no declared unique field is violated; every violated field is listed.
type UniquenessReport struct {
	Valid      bool                  `json:"valid"`
	Violations []UniquenessViolation `json:"violations,omitempty"`
}

// CheckUniqueness scans all existing items of the type for collisions on
// the schema-declared unique fields. Candidate fields that are absent or
// null are skipped. String comparison is case-insensitive; all other kinds
// use exact equality. The item with id equal to excludeID is ignored, which
// makes the check usable for update-in-place.
func (s *service) CheckUniqueness(ctx context.Context, contentType string, candidate Fields, excludeID string) (*UniquenessReport, error) {
	report := &UniquenessReport{Valid: true}
	if s.schema == nil || len(candidate) == 0 {
		return report, nil
	}

	uniqueFields, err := s.schema.UniqueFields(contentType)
	if err != nil {
		return nil, fmt.Errorf("schema lookup for %q: %w", contentType, err)
	}
	if len(uniqueFields) == 0 {
		return report, nil
	}

	items, err := s.store.ListItems(ctx, contentType)
	if err != nil {
		return nil, err
	}

	for _, field := range uniqueFields {
		value, ok := candidate[field]
		if !ok || value == nil {
			continue
		}
		for _, item := range items {
			if item.ID == excludeID {
				continue
			}
			existing, present := item.Value(field)
			if !present || !uniqueValueEqual(value, existing) {
				continue
			}
			report.Valid = false
			report.Violations = append(report.Violations, UniquenessViolation{
				Field:   field,
				Value:   value,
				Message: fmt.Sprintf("value %v for field %q is already used by item %s", value, field, item.ID),
			})
			break
		}
	}

	return report, nil
}

// uniqueValueEqual compares two field values for the uniqueness check:
// case-insensitive for strings, exact for everything else.
func uniqueValueEqual(a, b any) bool {
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return strings.EqualFold(sa, sb)
	}
	if aok != bok {
		return false
	}
	return deepEqualValue(a, b) || looseEqualSameKind(a, b)
}

// looseEqualSameKind handles numeric kinds that differ in Go type but hold
// the same value (e.g. int 5 supplied programmatically vs float64 5 decoded
// from disk).
func looseEqualSameKind(a, b any) bool {
	if kindOf(a) != kindNumber || kindOf(b) != kindNumber {
		return false
	}
	x, _ := toNumber(a)
	y, _ := toNumber(b)
	return x == y
}
