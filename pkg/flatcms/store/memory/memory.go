// Package memory implements an in-memory content store for tests and
// ephemeral deployments. Semantics mirror the filesystem store, including
// version retention.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flatcms/flatcms/pkg/flatcms"
)

// Store implements flatcms.Store and flatcms.VersionStore over maps.
type Store struct {
	mu       sync.RWMutex
	keep     int
	items    map[string]map[string]*flatcms.ContentItem    // type -> id -> item
	versions map[string]map[string][]*flatcms.VersionSnapshot // type -> id -> newest first
}

// New creates an in-memory store with the default retention count.
func New() *Store {
	return NewWithKeepCount(10)
}

// NewWithKeepCount creates an in-memory store retaining up to keep
// snapshots per item.
func NewWithKeepCount(keep int) *Store {
	if keep <= 0 {
		keep = 10
	}
	return &Store{
		keep:     keep,
		items:    make(map[string]map[string]*flatcms.ContentItem),
		versions: make(map[string]map[string][]*flatcms.VersionSnapshot),
	}
}

func (s *Store) CreateItem(ctx context.Context, contentType string, item *flatcms.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.items[contentType]
	if byID == nil {
		byID = make(map[string]*flatcms.ContentItem)
		s.items[contentType] = byID
	}
	if _, exists := byID[item.ID]; exists {
		return flatcms.ErrItemExists
	}
	byID[item.ID] = item.Clone()
	return nil
}

func (s *Store) GetItem(ctx context.Context, contentType, id string) (*flatcms.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[contentType][id]
	if !exists {
		return nil, flatcms.ErrItemNotFound
	}
	return item.Clone(), nil
}

func (s *Store) UpdateItem(ctx context.Context, contentType string, item *flatcms.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.items[contentType]
	if byID == nil {
		byID = make(map[string]*flatcms.ContentItem)
		s.items[contentType] = byID
	}
	byID[item.ID] = item.Clone()
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, contentType, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[contentType][id]; !exists {
		return false, nil
	}
	delete(s.items[contentType], id)
	return true, nil
}

func (s *Store) ListItems(ctx context.Context, contentType string) ([]*flatcms.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.items[contentType]
	items := make([]*flatcms.ContentItem, 0, len(byID))
	for _, item := range byID {
		items = append(items, item.Clone())
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *Store) CreateVersion(ctx context.Context, contentType, id string, item *flatcms.ContentItem) (*flatcms.VersionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	snap := &flatcms.VersionSnapshot{
		VersionID:   newVersionID(now),
		VersionedAt: now,
		Item:        *item.Clone(),
	}

	byID := s.versions[contentType]
	if byID == nil {
		byID = make(map[string][]*flatcms.VersionSnapshot)
		s.versions[contentType] = byID
	}
	history := append([]*flatcms.VersionSnapshot{snap}, byID[id]...)
	sort.SliceStable(history, func(i, j int) bool {
		if !history[i].VersionedAt.Equal(history[j].VersionedAt) {
			return history[i].VersionedAt.After(history[j].VersionedAt)
		}
		return history[i].VersionID > history[j].VersionID
	})
	if len(history) > s.keep {
		history = history[:s.keep]
	}
	byID[id] = history

	return snap, nil
}

func (s *Store) ListVersions(ctx context.Context, contentType, id string) ([]*flatcms.VersionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.versions[contentType][id]
	out := make([]*flatcms.VersionSnapshot, len(history))
	copy(out, history)
	return out, nil
}

func (s *Store) GetVersion(ctx context.Context, contentType, id, versionID string) (*flatcms.VersionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, snap := range s.versions[contentType][id] {
		if snap.VersionID == versionID {
			return snap, nil
		}
	}
	return nil, flatcms.ErrVersionNotFound
}

func (s *Store) DeleteAllVersions(ctx context.Context, contentType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.versions[contentType], id)
	return nil
}

// newVersionID matches the filesystem store's token format so version ids
// are interchangeable between store implementations.
func newVersionID(t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return "v" + strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
}
