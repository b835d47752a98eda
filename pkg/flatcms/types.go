package flatcms

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the domain type for content lifecycle states.
type Status string

// Content status constants (typed).
const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Fields is the open mapping of schema-defined fields on a content item.
// Values are restricted to the JSON value algebra: string, float64 (or other
// numeric kinds supplied programmatically), bool, nil, []any, and nested
// map[string]any.
type Fields map[string]any

// Clone returns a deep copy of the field map.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = deepCopyValue(v)
	}
	return out
}

// Reserved envelope keys. These are pulled out of the flat on-disk document
// into the typed ContentItem envelope and are never stored in Fields.
const (
	keyID          = "id"
	keyStatus      = "status"
	keyCreatedAt   = "createdAt"
	keyUpdatedAt   = "updatedAt"
	keyPublishedAt = "publishedAt"
)

func reservedKey(k string) bool {
	switch k {
	case keyID, keyStatus, keyCreatedAt, keyUpdatedAt, keyPublishedAt:
		return true
	}
	return false
}

// ContentItem is a single stored record of a given content type.
//
// The wire and on-disk representation is a single flat JSON object: the
// envelope fields below plus every entry of Fields at the top level. Field
// order in the serialized form is not significant.
type ContentItem struct {
	ID          string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
	Fields      Fields
}

// Clone returns a deep copy of the item.
func (c *ContentItem) Clone() *ContentItem {
	if c == nil {
		return nil
	}
	out := *c
	if c.PublishedAt != nil {
		t := *c.PublishedAt
		out.PublishedAt = &t
	}
	out.Fields = c.Fields.Clone()
	return &out
}

// Value resolves a dot-separated field path against the item. Envelope
// fields resolve by their wire names; all other paths traverse Fields,
// descending into nested mappings. The second result reports whether a
// non-missing value was found (an unset publishedAt counts as missing).
func (c *ContentItem) Value(path string) (any, bool) {
	switch path {
	case keyID:
		return c.ID, true
	case keyStatus:
		return string(c.Status), true
	case keyCreatedAt:
		return c.CreatedAt, true
	case keyUpdatedAt:
		return c.UpdatedAt, true
	case keyPublishedAt:
		if c.PublishedAt == nil {
			return nil, false
		}
		return *c.PublishedAt, true
	}
	return lookupPath(c.Fields, path)
}

// flatMap renders the item as the flat document used on disk and on the wire.
func (c *ContentItem) flatMap() map[string]any {
	out := make(map[string]any, len(c.Fields)+5)
	for k, v := range c.Fields {
		if reservedKey(k) {
			continue
		}
		out[k] = v
	}
	out[keyID] = c.ID
	out[keyStatus] = string(c.Status)
	out[keyCreatedAt] = c.CreatedAt
	out[keyUpdatedAt] = c.UpdatedAt
	if c.PublishedAt != nil {
		out[keyPublishedAt] = *c.PublishedAt
	}
	return out
}

// MarshalJSON implements json.Marshaler using the flat document form.
func (c *ContentItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.flatMap())
}

// UnmarshalJSON implements json.Unmarshaler for the flat document form.
func (c *ContentItem) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(pick(raw, keyID), &c.ID); err != nil {
		return fmt.Errorf("field %q: %w", keyID, err)
	}
	var status string
	if err := json.Unmarshal(pick(raw, keyStatus), &status); err != nil {
		return fmt.Errorf("field %q: %w", keyStatus, err)
	}
	c.Status = Status(status)
	if err := json.Unmarshal(pick(raw, keyCreatedAt), &c.CreatedAt); err != nil {
		return fmt.Errorf("field %q: %w", keyCreatedAt, err)
	}
	if err := json.Unmarshal(pick(raw, keyUpdatedAt), &c.UpdatedAt); err != nil {
		return fmt.Errorf("field %q: %w", keyUpdatedAt, err)
	}
	c.PublishedAt = nil
	if msg, ok := raw[keyPublishedAt]; ok && string(msg) != "null" {
		var t time.Time
		if err := json.Unmarshal(msg, &t); err != nil {
			return fmt.Errorf("field %q: %w", keyPublishedAt, err)
		}
		c.PublishedAt = &t
		delete(raw, keyPublishedAt)
	}
	c.Fields = make(Fields, len(raw))
	for k, msg := range raw {
		if reservedKey(k) {
			continue
		}
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		c.Fields[k] = v
	}
	return nil
}

// pick removes and returns the raw message for key, or a JSON null when the
// key is absent so the unmarshal of optional envelope fields is a no-op.
func pick(raw map[string]json.RawMessage, key string) json.RawMessage {
	msg, ok := raw[key]
	if !ok {
		return json.RawMessage("null")
	}
	delete(raw, key)
	return msg
}

// Version snapshot wire keys.
const (
	keyVersionID   = "versionId"
	keyVersionedAt = "versionedAt"
)

// VersionSnapshot is an immutable full copy of a content item's state as it
// existed immediately before an update. Serialized as the item's flat
// document augmented with versionId and versionedAt.
type VersionSnapshot struct {
	VersionID   string
	VersionedAt time.Time
	Item        ContentItem
}

// MarshalJSON implements json.Marshaler.
func (v *VersionSnapshot) MarshalJSON() ([]byte, error) {
	out := v.Item.flatMap()
	out[keyVersionID] = v.VersionID
	out[keyVersionedAt] = v.VersionedAt
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *VersionSnapshot) UnmarshalJSON(data []byte) error {
	var header struct {
		VersionID   string    `json:"versionId"`
		VersionedAt time.Time `json:"versionedAt"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &v.Item); err != nil {
		return err
	}
	v.VersionID = header.VersionID
	v.VersionedAt = header.VersionedAt
	delete(v.Item.Fields, keyVersionID)
	delete(v.Item.Fields, keyVersionedAt)
	return nil
}

// QueryResult is the shaped result of a list query: the page of items after
// filtering, searching, sorting, and pagination.
type QueryResult struct {
	Items   []*ContentItem `json:"items"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit,omitempty"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"hasMore"`
}

// RelatedItem is a scored relation candidate. Relations are computed on
// demand and never persisted.
type RelatedItem struct {
	Item    *ContentItem `json:"item"`
	Score   int          `json:"score"`
	Reasons []string     `json:"reasons"`
}

// RelatedResult is a ranked, paginated set of related items.
type RelatedResult struct {
	Items   []*RelatedItem `json:"items"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit,omitempty"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"hasMore"`
}
