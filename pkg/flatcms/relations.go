package flatcms

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Field names consulted by the relation resolver.
const (
	tagsField     = "tags"
	categoryField = "category"
)

// GetRelated loads the target item and scores every other item of the same
// type: one point per shared tag, one point for an equal category, and one
// point per recognized reference field pointing back at the target. Scores
// accumulate across reasons. Results are ordered by descending score with
// ties keeping the stable listing order, then paginated like a query.
func (s *service) GetRelated(ctx context.Context, contentType, id string, opts RelatedOptions) (*RelatedResult, error) {
	target, err := s.store.GetItem(ctx, contentType, id)
	if err != nil {
		// An absent target yields an empty result set, not an error.
		if errors.Is(err, ErrItemNotFound) {
			return &RelatedResult{Items: []*RelatedItem{}, Limit: opts.Limit, Offset: opts.Offset}, nil
		}
		return nil, &ItemError{ContentType: contentType, ID: id, Op: "related", Err: err}
	}

	items, err := s.store.ListItems(ctx, contentType)
	if err != nil {
		return nil, &ItemError{ContentType: contentType, ID: id, Op: "related", Err: err}
	}

	targetTags := targetTagSet(target)
	targetCategory, _ := target.Value(categoryField)

	scored := make([]*RelatedItem, 0, len(items))
	for _, item := range items {
		if item.ID == target.ID {
			continue
		}
		rel := &RelatedItem{Item: item}

		if shared := sharedTagCount(item, targetTags); shared > 0 {
			rel.Score += shared
			rel.Reasons = append(rel.Reasons, fmt.Sprintf("%d shared tags", shared))
		}
		if cat, ok := item.Value(categoryField); ok && targetCategory != nil && looseEqual(cat, targetCategory) {
			rel.Score++
			rel.Reasons = append(rel.Reasons, "same category")
		}
		for _, field := range s.relationFields {
			if v, ok := item.Value(field); ok && referencesID(v, target.ID) {
				rel.Score++
				rel.Reasons = append(rel.Reasons, fmt.Sprintf("references via %s", field))
			}
		}

		if rel.Score > 0 {
			scored = append(scored, rel)
		}
	}

	// Stable: ties keep the listing order (ascending id).
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return paginateRelated(scored, opts.Limit, opts.Offset), nil
}

func targetTagSet(item *ContentItem) map[string]struct{} {
	v, ok := item.Value(tagsField)
	if !ok {
		return nil
	}
	set := make(map[string]struct{})
	for _, tag := range stringList(v) {
		set[tag] = struct{}{}
	}
	return set
}

// sharedTagCount is the size of the intersection of the candidate's tags
// with the target's tag set. Duplicate tags on the candidate count once.
func sharedTagCount(item *ContentItem, targetTags map[string]struct{}) int {
	if len(targetTags) == 0 {
		return 0
	}
	v, ok := item.Value(tagsField)
	if !ok {
		return 0
	}
	seen := make(map[string]struct{})
	for _, tag := range stringList(v) {
		if _, shared := targetTags[tag]; shared {
			seen[tag] = struct{}{}
		}
	}
	return len(seen)
}

// referencesID reports whether a reference field value points at id. A
// reference may be a scalar id, a list of ids, or an embedded object (or
// list of objects) exposing an id field.
func referencesID(v any, id string) bool {
	switch ref := v.(type) {
	case string:
		return ref == id
	case []any:
		for _, el := range ref {
			if referencesID(el, id) {
				return true
			}
		}
	case map[string]any:
		if embedded, ok := ref[keyID].(string); ok {
			return embedded == id
		}
	}
	return false
}

func paginateRelated(items []*RelatedItem, limit, offset int) *RelatedResult {
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

	return &RelatedResult{
		Items:   items[start:end],
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: limit > 0 && offset+limit < total,
	}
}
