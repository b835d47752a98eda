// Package fs implements the file-backed content store. Each content item is
// one JSON document at <baseDir>/<type>/<id>.<ext>; its version history
// lives under <baseDir>/<type>/<id>/versions/.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/flatcms/flatcms/pkg/flatcms"
)

// DefaultKeepVersions is the retention count applied when Config leaves
// KeepVersions unset.
const DefaultKeepVersions = 10

const versionsDirName = "versions"

// Config options for the filesystem store.
type Config struct {
	BaseDir      string       // Base directory for content documents (required)
	Ext          string       // Document extension without the dot (default "json")
	KeepVersions int          // Snapshots retained per item (default 10)
	Logger       *slog.Logger // Logger for skipped documents and pruning failures
}

// Store is a filesystem implementation of flatcms.Store and
// flatcms.VersionStore.
type Store struct {
	baseDir string
	ext     string
	keep    int
	logger  *slog.Logger
}

// New creates a filesystem store rooted at the configured base directory,
// creating it if necessary.
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	ext := config.Ext
	if ext == "" {
		ext = "json"
	}
	keep := config.KeepVersions
	if keep <= 0 {
		keep = DefaultKeepVersions
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		baseDir: config.BaseDir,
		ext:     ext,
		keep:    keep,
		logger:  logger,
	}, nil
}

func (s *Store) typeDir(contentType string) string {
	return filepath.Join(s.baseDir, contentType)
}

func (s *Store) itemPath(contentType, id string) string {
	return filepath.Join(s.baseDir, contentType, id+"."+s.ext)
}

func (s *Store) versionsDir(contentType, id string) string {
	return filepath.Join(s.baseDir, contentType, id, versionsDirName)
}

func (s *Store) versionPath(contentType, id, versionID string) string {
	return filepath.Join(s.versionsDir(contentType, id), versionID+"."+s.ext)
}

// CreateItem persists a new item document. Fails with ErrItemExists when a
// current document is already present for the id.
func (s *Store) CreateItem(ctx context.Context, contentType string, item *flatcms.ContentItem) error {
	path := s.itemPath(contentType, item.ID)
	if _, err := os.Stat(path); err == nil {
		return flatcms.ErrItemExists
	} else if !os.IsNotExist(err) {
		return &flatcms.StoreError{Path: path, Op: "stat", Err: err}
	}
	return s.writeDocument(path, item)
}

// GetItem reads the current item document. A missing file maps to
// ErrItemNotFound; an unreadable or malformed file is an I/O failure since
// a direct read targets a known path.
func (s *Store) GetItem(ctx context.Context, contentType, id string) (*flatcms.ContentItem, error) {
	path := s.itemPath(contentType, id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, flatcms.ErrItemNotFound
	} else if err != nil {
		return nil, &flatcms.StoreError{Path: path, Op: "read", Err: err}
	}

	var item flatcms.ContentItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, &flatcms.StoreError{Path: path, Op: "decode", Err: err}
	}
	return &item, nil
}

// UpdateItem replaces the current document by writing to a temporary file
// and renaming it over the target, so no partial document is observable.
func (s *Store) UpdateItem(ctx context.Context, contentType string, item *flatcms.ContentItem) error {
	return s.writeDocument(s.itemPath(contentType, item.ID), item)
}

// DeleteItem removes the current document, reporting whether one existed.
// The version history is left to the caller's cascade.
func (s *Store) DeleteItem(ctx context.Context, contentType, id string) (bool, error) {
	path := s.itemPath(contentType, id)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, &flatcms.StoreError{Path: path, Op: "remove", Err: err}
	}
	return true, nil
}

// ListItems reads every item document of a type in ascending file-name
// order. Documents that fail to parse are skipped with a warning; a missing
// type directory yields an empty list.
func (s *Store) ListItems(ctx context.Context, contentType string) ([]*flatcms.ContentItem, error) {
	dir := s.typeDir(contentType)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []*flatcms.ContentItem{}, nil
	} else if err != nil {
		return nil, &flatcms.StoreError{Path: dir, Op: "readdir", Err: err}
	}

	suffix := "." + s.ext
	items := make([]*flatcms.ContentItem, 0, len(entries))
	for _, entry := range entries {
		// Directories hold version histories, not current documents.
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable document", "path", path, "error", err)
			continue
		}
		var item flatcms.ContentItem
		if err := json.Unmarshal(data, &item); err != nil {
			s.logger.Warn("skipping malformed document", "path", path, "error", err)
			continue
		}
		items = append(items, &item)
	}

	// ReadDir returns entries sorted by name, which keeps the listing
	// order stable across calls; make the contract explicit anyway.
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// newVersionID encodes the snapshot timestamp into a filesystem-safe token:
// the UTC RFC 3339 form with millisecond precision, with ':' and '.'
// replaced by '-', prefixed with 'v'.
func newVersionID(t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return "v" + strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
}

// CreateVersion writes a snapshot of the given item state and prunes the
// history to the retention count. Pruning failures are logged, not fatal.
func (s *Store) CreateVersion(ctx context.Context, contentType, id string, item *flatcms.ContentItem) (*flatcms.VersionSnapshot, error) {
	now := time.Now().UTC()
	snap := &flatcms.VersionSnapshot{
		VersionID:   newVersionID(now),
		VersionedAt: now,
		Item:        *item.Clone(),
	}

	dir := s.versionsDir(contentType, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &flatcms.StoreError{Path: dir, Op: "mkdir", Err: err}
	}
	if err := s.writeDocument(s.versionPath(contentType, id, snap.VersionID), snap); err != nil {
		return nil, err
	}

	s.pruneVersions(contentType, id)
	return snap, nil
}

// ListVersions returns all snapshots for (type, id) sorted newest first.
// An absent history directory yields an empty list.
func (s *Store) ListVersions(ctx context.Context, contentType, id string) ([]*flatcms.VersionSnapshot, error) {
	dir := s.versionsDir(contentType, id)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []*flatcms.VersionSnapshot{}, nil
	} else if err != nil {
		return nil, &flatcms.StoreError{Path: dir, Op: "readdir", Err: err}
	}

	suffix := "." + s.ext
	versions := make([]*flatcms.VersionSnapshot, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot", "path", path, "error", err)
			continue
		}
		var snap flatcms.VersionSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			s.logger.Warn("skipping malformed snapshot", "path", path, "error", err)
			continue
		}
		versions = append(versions, &snap)
	}

	sort.SliceStable(versions, func(i, j int) bool {
		if !versions[i].VersionedAt.Equal(versions[j].VersionedAt) {
			return versions[i].VersionedAt.After(versions[j].VersionedAt)
		}
		return versions[i].VersionID > versions[j].VersionID
	})
	return versions, nil
}

// GetVersion returns the snapshot with the exact version id.
func (s *Store) GetVersion(ctx context.Context, contentType, id, versionID string) (*flatcms.VersionSnapshot, error) {
	path := s.versionPath(contentType, id, versionID)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, flatcms.ErrVersionNotFound
	} else if err != nil {
		return nil, &flatcms.StoreError{Path: path, Op: "read", Err: err}
	}

	var snap flatcms.VersionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &flatcms.StoreError{Path: path, Op: "decode", Err: err}
	}
	return &snap, nil
}

// DeleteAllVersions removes the entire history for (type, id). Absence is
// not an error.
func (s *Store) DeleteAllVersions(ctx context.Context, contentType, id string) error {
	dir := filepath.Join(s.baseDir, contentType, id)
	if err := os.RemoveAll(dir); err != nil {
		return &flatcms.StoreError{Path: dir, Op: "removeall", Err: err}
	}
	return nil
}

// pruneVersions deletes snapshots beyond the retention count, oldest first.
// Best effort throughout.
func (s *Store) pruneVersions(contentType, id string) {
	versions, err := s.ListVersions(context.Background(), contentType, id)
	if err != nil {
		s.logger.Warn("version pruning skipped", "content_type", contentType, "id", id, "error", err)
		return
	}
	for _, snap := range versions[min(s.keep, len(versions)):] {
		path := s.versionPath(contentType, id, snap.VersionID)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to prune snapshot", "path", path, "error", err)
		}
	}
}

// writeDocument writes v as JSON to a temporary file in the target
// directory and renames it into place.
func (s *Store) writeDocument(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &flatcms.StoreError{Path: dir, Op: "mkdir", Err: err}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &flatcms.StoreError{Path: path, Op: "encode", Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &flatcms.StoreError{Path: dir, Op: "tempfile", Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &flatcms.StoreError{Path: tmpName, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &flatcms.StoreError{Path: tmpName, Op: "close", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &flatcms.StoreError{Path: path, Op: "rename", Err: err}
	}
	return nil
}
