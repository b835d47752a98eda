package flatcms

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface.
type service struct {
	store          Store
	versions       VersionStore
	schema         SchemaProvider
	sink           EventSink
	logger         *slog.Logger
	relationFields []string
	locks          *keyedMutex
}

// Option represents a functional option for configuring the service.
type Option func(*service)

// WithStore sets the content store for the service.
func WithStore(store Store) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithVersionStore sets the version history store. Without one, updates
// skip snapshotting and version operations report an empty history.
func WithVersionStore(versions VersionStore) Option {
	return func(s *service) {
		s.versions = versions
	}
}

// WithSchemaProvider sets the schema provider used for unique-field
// lookups. Without one, uniqueness checks always pass.
func WithSchemaProvider(provider SchemaProvider) Option {
	return func(s *service) {
		s.schema = provider
	}
}

// WithEventSink sets the event sink for lifecycle notifications.
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.sink = sink
	}
}

// WithLogger sets the logger for best-effort failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithRelationFields overrides the field names recognized as explicit
// references during relation resolution.
func WithRelationFields(names ...string) Option {
	return func(s *service) {
		s.relationFields = names
	}
}

// defaultRelationFields are the reference-carrying field names the relation
// resolver recognizes unless overridden.
var defaultRelationFields = []string{"related", "relatedTo", "references", "links"}

// New creates a new service instance with the given options. A content
// store is required.
func New(options ...Option) (Service, error) {
	s := &service{
		relationFields: defaultRelationFields,
		locks:          newKeyedMutex(),
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

func lockKey(contentType, id string) string {
	return contentType + "/" + id
}

// validateSegment guards type and id values used as path segments.
func validateSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\")
}

func (s *service) CreateItem(ctx context.Context, req CreateItemRequest) (*ContentItem, error) {
	if !validateSegment(req.Type) {
		return nil, ErrInvalidContentType
	}
	data := req.Data

	id := uuid.New().String()
	if v, ok := data[keyID]; ok && v != nil {
		str, ok := v.(string)
		if !ok || !validateSegment(str) {
			return nil, ErrInvalidID
		}
		id = str
	}

	status := StatusDraft
	if v, ok := data[keyStatus]; ok && v != nil {
		str, _ := v.(string)
		status = Status(str)
		if !status.Valid() {
			return nil, &ItemError{ContentType: req.Type, ID: id, Op: "create", Err: ErrInvalidStatus}
		}
	}

	now := time.Now().UTC()
	createdAt := now
	if v, ok := data[keyCreatedAt]; ok {
		if t, ok := timeFromValue(v); ok {
			createdAt = t
		}
	}
	var publishedAt *time.Time
	if v, ok := data[keyPublishedAt]; ok && v != nil {
		if t, ok := timeFromValue(v); ok {
			publishedAt = &t
		}
	}
	if status == StatusPublished && publishedAt == nil {
		publishedAt = &now
	}

	fields := make(Fields, len(data))
	for k, v := range data {
		if reservedKey(k) {
			continue
		}
		fields[k] = deepCopyValue(v)
	}

	item := &ContentItem{
		ID:          id,
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
		PublishedAt: publishedAt,
		Fields:      fields,
	}

	report, err := s.CheckUniqueness(ctx, req.Type, data, "")
	if err != nil {
		return nil, &ItemError{ContentType: req.Type, ID: id, Op: "create", Err: err}
	}
	if !report.Valid {
		return nil, &UniquenessError{ContentType: req.Type, Report: report}
	}

	unlock := s.locks.lock(lockKey(req.Type, id))
	defer unlock()

	if err := s.store.CreateItem(ctx, req.Type, item); err != nil {
		return nil, &ItemError{ContentType: req.Type, ID: id, Op: "create", Err: err}
	}

	s.fire(ctx, "item_created", func(sink EventSink) error {
		return sink.ItemCreated(ctx, req.Type, item)
	})

	return item, nil
}

func (s *service) GetItem(ctx context.Context, contentType, id string) (*ContentItem, error) {
	item, err := s.store.GetItem(ctx, contentType, id)
	if err != nil {
		return nil, &ItemError{ContentType: contentType, ID: id, Op: "get", Err: err}
	}
	return item, nil
}

func (s *service) UpdateItem(ctx context.Context, req UpdateItemRequest) (*ContentItem, error) {
	unlock := s.locks.lock(lockKey(req.Type, req.ID))
	defer unlock()

	existing, err := s.store.GetItem(ctx, req.Type, req.ID)
	if err != nil {
		return nil, &ItemError{ContentType: req.Type, ID: req.ID, Op: "update", Err: err}
	}

	report, err := s.CheckUniqueness(ctx, req.Type, req.Data, req.ID)
	if err != nil {
		return nil, &ItemError{ContentType: req.Type, ID: req.ID, Op: "update", Err: err}
	}
	if !report.Valid {
		return nil, &UniquenessError{ContentType: req.Type, Report: report}
	}

	// Snapshot the pre-update state. Best effort: a failed snapshot is
	// logged and never aborts the update.
	if s.versions != nil {
		snap, err := s.versions.CreateVersion(ctx, req.Type, req.ID, existing)
		if err != nil {
			s.logger.Warn("version snapshot failed",
				"content_type", req.Type, "id", req.ID, "error", err)
		} else {
			s.fire(ctx, "version_created", func(sink EventSink) error {
				return sink.VersionCreated(ctx, req.Type, req.ID, snap.VersionID)
			})
		}
	}

	now := time.Now().UTC()
	merged := existing.Clone()
	if merged.Fields == nil {
		merged.Fields = Fields{}
	}

	if v, ok := req.Data[keyStatus]; ok && v != nil {
		str, _ := v.(string)
		status := Status(str)
		if !status.Valid() {
			return nil, &ItemError{ContentType: req.Type, ID: req.ID, Op: "update", Err: ErrInvalidStatus}
		}
		merged.Status = status
	}
	if merged.Status == StatusPublished && merged.PublishedAt == nil {
		merged.PublishedAt = &now
	}
	// An explicitly supplied publishedAt wins outright, status aside.
	if v, ok := req.Data[keyPublishedAt]; ok {
		if v == nil {
			merged.PublishedAt = nil
		} else if t, ok := timeFromValue(v); ok {
			merged.PublishedAt = &t
		}
	}

	for k, v := range req.Data {
		if reservedKey(k) {
			continue
		}
		merged.Fields[k] = deepCopyValue(v)
	}
	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = now

	if err := s.store.UpdateItem(ctx, req.Type, merged); err != nil {
		return nil, &ItemError{ContentType: req.Type, ID: req.ID, Op: "update", Err: err}
	}

	s.fire(ctx, "item_updated", func(sink EventSink) error {
		return sink.ItemUpdated(ctx, req.Type, merged)
	})

	return merged, nil
}

func (s *service) DeleteItem(ctx context.Context, contentType, id string) (bool, error) {
	unlock := s.locks.lock(lockKey(contentType, id))
	defer unlock()

	existed, err := s.store.DeleteItem(ctx, contentType, id)
	if err != nil {
		return false, &ItemError{ContentType: contentType, ID: id, Op: "delete", Err: err}
	}

	// Cascade to the version history whether or not the item existed.
	// Best effort: failures are logged, never fatal.
	if s.versions != nil {
		if err := s.versions.DeleteAllVersions(ctx, contentType, id); err != nil {
			s.logger.Warn("version cascade delete failed",
				"content_type", contentType, "id", id, "error", err)
		}
	}

	if existed {
		s.fire(ctx, "item_deleted", func(sink EventSink) error {
			return sink.ItemDeleted(ctx, contentType, id)
		})
	}

	return existed, nil
}

func (s *service) ListItems(ctx context.Context, contentType string) ([]*ContentItem, error) {
	items, err := s.store.ListItems(ctx, contentType)
	if err != nil {
		return nil, &ItemError{ContentType: contentType, Op: "list", Err: err}
	}
	return items, nil
}

func (s *service) QueryItems(ctx context.Context, contentType string, params url.Values) (*QueryResult, error) {
	items, err := s.ListItems(ctx, contentType)
	if err != nil {
		return nil, err
	}

	spec := ParseQuery(params)
	result := spec.Apply(items)

	s.fire(ctx, "query_executed", func(sink EventSink) error {
		return sink.QueryExecuted(ctx, contentType, result.Total)
	})

	return result, nil
}

func (s *service) ListVersions(ctx context.Context, contentType, id string) ([]*VersionSnapshot, error) {
	if s.versions == nil {
		return []*VersionSnapshot{}, nil
	}
	versions, err := s.versions.ListVersions(ctx, contentType, id)
	if err != nil {
		return nil, &ItemError{ContentType: contentType, ID: id, Op: "list_versions", Err: err}
	}
	return versions, nil
}

func (s *service) GetVersion(ctx context.Context, contentType, id, versionID string) (*VersionSnapshot, error) {
	if s.versions == nil {
		return nil, &ItemError{ContentType: contentType, ID: id, Op: "get_version", Err: ErrVersionNotFound}
	}
	snap, err := s.versions.GetVersion(ctx, contentType, id, versionID)
	if err != nil {
		return nil, &ItemError{ContentType: contentType, ID: id, Op: "get_version", Err: err}
	}
	return snap, nil
}

// RestoreVersion fetches the target snapshot, strips the version-only
// fields, and replays the remainder through a normal update. The update
// snapshots the pre-restore state first, so restoring only adds history.
func (s *service) RestoreVersion(ctx context.Context, contentType, id, versionID string) (*ContentItem, error) {
	snap, err := s.GetVersion(ctx, contentType, id, versionID)
	if err != nil {
		return nil, err
	}

	data := snap.Item.Fields.Clone()
	if data == nil {
		data = Fields{}
	}
	data[keyStatus] = string(snap.Item.Status)
	if snap.Item.PublishedAt != nil {
		data[keyPublishedAt] = *snap.Item.PublishedAt
	} else {
		data[keyPublishedAt] = nil
	}

	return s.UpdateItem(ctx, UpdateItemRequest{Type: contentType, ID: id, Data: data})
}

// fire delivers an event to the sink, logging and swallowing sink errors.
func (s *service) fire(ctx context.Context, event string, deliver func(EventSink) error) {
	if s.sink == nil {
		return
	}
	if err := deliver(s.sink); err != nil {
		s.logger.Warn("event sink failed", "event", event, "error", err)
	}
}
