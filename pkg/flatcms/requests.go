package flatcms

// CreateItemRequest contains parameters for creating a content item. Data
// may carry the reserved envelope keys (id, status, createdAt, publishedAt)
// to override their defaults; all other keys become schema fields.
type CreateItemRequest struct {
	Type string
	Data Fields
}

// UpdateItemRequest contains parameters for updating a content item. Data
// is merged field-by-field over the existing item: explicit fields replace,
// all others are retained. The id is immutable and createdAt never changes.
type UpdateItemRequest struct {
	Type string
	ID   string
	Data Fields
}

// RelatedOptions sets pagination for relation resolution. A Limit of zero
// or less means unbounded.
type RelatedOptions struct {
	Limit  int
	Offset int
}
