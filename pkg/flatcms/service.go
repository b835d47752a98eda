package flatcms

import (
	"context"
	"net/url"
)

// Service is the main interface for the content storage engine.
type Service interface {
	// CreateItem persists a new content item. An id is assigned when Data
	// carries none; status defaults to draft; publishing sets publishedAt.
	// Fails with ErrItemExists when the id is taken and with
	// ErrUniquenessViolation when a schema-declared unique field collides.
	CreateItem(ctx context.Context, req CreateItemRequest) (*ContentItem, error)

	// GetItem returns the current item or ErrItemNotFound.
	GetItem(ctx context.Context, contentType, id string) (*ContentItem, error)

	// UpdateItem merges Data over the existing item and persists the result
	// atomically, snapshotting the pre-update state first (best effort).
	UpdateItem(ctx context.Context, req UpdateItemRequest) (*ContentItem, error)

	// DeleteItem removes the item and cascades to its version history,
	// reporting whether an item existed.
	DeleteItem(ctx context.Context, contentType, id string) (bool, error)

	// ListItems returns all items of a type in stable ascending id order.
	ListItems(ctx context.Context, contentType string) ([]*ContentItem, error)

	// QueryItems lists a type and shapes the result according to the raw
	// query parameters (filters, search, sort, pagination).
	QueryItems(ctx context.Context, contentType string, params url.Values) (*QueryResult, error)

	// ListVersions returns the item's snapshots, newest first.
	ListVersions(ctx context.Context, contentType, id string) ([]*VersionSnapshot, error)

	// GetVersion returns a single snapshot or ErrVersionNotFound.
	GetVersion(ctx context.Context, contentType, id, versionID string) (*VersionSnapshot, error)

	// RestoreVersion makes a past version's fields current again via a
	// normal update, so the pre-restore state is itself snapshotted and
	// history only ever grows.
	RestoreVersion(ctx context.Context, contentType, id, versionID string) (*ContentItem, error)

	// GetRelated ranks other items of the same type by tag overlap,
	// category match, and back-references, then paginates.
	GetRelated(ctx context.Context, contentType, id string, opts RelatedOptions) (*RelatedResult, error)

	// CheckUniqueness validates candidate field values against all existing
	// items of the type, excluding excludeID (for update-in-place checks).
	// Every violated field is reported, not just the first.
	CheckUniqueness(ctx context.Context, contentType string, candidate Fields, excludeID string) (*UniquenessReport, error)
}
