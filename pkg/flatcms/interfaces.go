package flatcms

import (
	"context"
)

// Store defines the persistence contract for current content items. Exactly
// one current representation exists per (type, id); Update must replace it
// atomically so no partial document is ever observable.
type Store interface {
	// CreateItem persists a new item. Returns ErrItemExists when an item
	// with the same id already exists for the type.
	CreateItem(ctx context.Context, contentType string, item *ContentItem) error

	// GetItem returns the current item or ErrItemNotFound.
	GetItem(ctx context.Context, contentType, id string) (*ContentItem, error)

	// UpdateItem replaces the current item atomically.
	UpdateItem(ctx context.Context, contentType string, item *ContentItem) error

	// DeleteItem removes the current item, reporting whether one existed.
	DeleteItem(ctx context.Context, contentType, id string) (bool, error)

	// ListItems returns all items of a type in ascending id order. Entries
	// that fail to parse are skipped with a warning, never fatal.
	ListItems(ctx context.Context, contentType string) ([]*ContentItem, error)
}

// VersionStore maintains the bounded per-item history of prior states.
type VersionStore interface {
	// CreateVersion snapshots the given pre-update state, assigns a version
	// id, and prunes the history to the store's retention count.
	CreateVersion(ctx context.Context, contentType, id string, item *ContentItem) (*VersionSnapshot, error)

	// ListVersions returns all snapshots for (type, id), newest first. An
	// absent history yields an empty list, not an error.
	ListVersions(ctx context.Context, contentType, id string) ([]*VersionSnapshot, error)

	// GetVersion returns the snapshot with the exact version id, or
	// ErrVersionNotFound.
	GetVersion(ctx context.Context, contentType, id, versionID string) (*VersionSnapshot, error)

	// DeleteAllVersions removes the entire history for (type, id). Absence
	// is not an error.
	DeleteAllVersions(ctx context.Context, contentType, id string) error
}

// SchemaProvider supplies the schema-derived facts this engine needs about
// a content type. Structural validation of record shapes is owned by the
// provider, not re-implemented here.
type SchemaProvider interface {
	// UniqueFields returns the names of fields whose values must be
	// distinct across all items of the type. A type without a schema has
	// no unique fields.
	UniqueFields(contentType string) ([]string, error)
}

// EventSink receives lifecycle notifications. Sink errors are logged by the
// service and never fail the triggering operation.
type EventSink interface {
	ItemCreated(ctx context.Context, contentType string, item *ContentItem) error
	ItemUpdated(ctx context.Context, contentType string, item *ContentItem) error
	ItemDeleted(ctx context.Context, contentType, id string) error
	VersionCreated(ctx context.Context, contentType, id, versionID string) error
	QueryExecuted(ctx context.Context, contentType string, total int) error
}
