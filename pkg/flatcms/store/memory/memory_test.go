package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatcms/flatcms/pkg/flatcms"
)

func testItem(id string, fields flatcms.Fields) *flatcms.ContentItem {
	now := time.Now().UTC()
	return &flatcms.ContentItem{
		ID:        id,
		Status:    flatcms.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    fields,
	}
}

func TestCRUD(t *testing.T) {
	store := New()
	ctx := context.Background()

	item := testItem("a1", flatcms.Fields{"title": "Post"})
	require.NoError(t, store.CreateItem(ctx, "posts", item))

	err := store.CreateItem(ctx, "posts", testItem("a1", nil))
	assert.ErrorIs(t, err, flatcms.ErrItemExists)

	got, err := store.GetItem(ctx, "posts", "a1")
	require.NoError(t, err)
	assert.Equal(t, "Post", got.Fields["title"])

	item.Fields["title"] = "Edited"
	require.NoError(t, store.UpdateItem(ctx, "posts", item))
	got, err = store.GetItem(ctx, "posts", "a1")
	require.NoError(t, err)
	assert.Equal(t, "Edited", got.Fields["title"])

	existed, err := store.DeleteItem(ctx, "posts", "a1")
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = store.GetItem(ctx, "posts", "a1")
	assert.ErrorIs(t, err, flatcms.ErrItemNotFound)

	existed, err = store.DeleteItem(ctx, "posts", "a1")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestReadsAreIsolated(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.CreateItem(ctx, "posts", testItem("a1", flatcms.Fields{"tags": []any{"one"}})))

	got, err := store.GetItem(ctx, "posts", "a1")
	require.NoError(t, err)
	got.Fields["tags"].([]any)[0] = "mutated"

	again, err := store.GetItem(ctx, "posts", "a1")
	require.NoError(t, err)
	assert.Equal(t, "one", again.Fields["tags"].([]any)[0])
}

func TestListItemsSorted(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.CreateItem(ctx, "posts", testItem(id, nil)))
	}

	items, err := store.ListItems(ctx, "posts")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)
	assert.Equal(t, "c", items[2].ID)

	items, err = store.ListItems(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestVersionRetention(t *testing.T) {
	store := NewWithKeepCount(3)
	ctx := context.Background()

	item := testItem("a1", flatcms.Fields{})
	var last *flatcms.VersionSnapshot
	for i := 0; i < 5; i++ {
		item.Fields["n"] = float64(i)
		var err error
		last, err = store.CreateVersion(ctx, "posts", "a1", item)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	versions, err := store.ListVersions(ctx, "posts", "a1")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, last.VersionID, versions[0].VersionID, "newest first")
	assert.Equal(t, float64(4), versions[0].Item.Fields["n"])
	assert.Equal(t, float64(2), versions[2].Item.Fields["n"])
}

func TestGetVersion(t *testing.T) {
	store := New()
	ctx := context.Background()

	snap, err := store.CreateVersion(ctx, "posts", "a1", testItem("a1", flatcms.Fields{"title": "old"}))
	require.NoError(t, err)

	got, err := store.GetVersion(ctx, "posts", "a1", snap.VersionID)
	require.NoError(t, err)
	assert.Equal(t, "old", got.Item.Fields["title"])

	_, err = store.GetVersion(ctx, "posts", "a1", "v2000-01-01T00-00-00-000Z")
	assert.ErrorIs(t, err, flatcms.ErrVersionNotFound)
}

func TestDeleteAllVersions(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.CreateVersion(ctx, "posts", "a1", testItem("a1", nil))
	require.NoError(t, err)

	require.NoError(t, store.DeleteAllVersions(ctx, "posts", "a1"))

	versions, err := store.ListVersions(ctx, "posts", "a1")
	require.NoError(t, err)
	assert.Empty(t, versions)

	assert.NoError(t, store.DeleteAllVersions(ctx, "posts", "never-existed"))
}
