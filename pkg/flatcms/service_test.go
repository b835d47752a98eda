package flatcms_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatcms/flatcms/pkg/flatcms"
	memorystore "github.com/flatcms/flatcms/pkg/flatcms/store/memory"
)

// stubSchema declares unique fields per type without touching disk.
type stubSchema struct {
	unique map[string][]string
}

func (s *stubSchema) UniqueFields(contentType string) ([]string, error) {
	return s.unique[contentType], nil
}

func setupTestService(t *testing.T, options ...flatcms.Option) flatcms.Service {
	t.Helper()
	st := memorystore.New()
	opts := append([]flatcms.Option{
		flatcms.WithStore(st),
		flatcms.WithVersionStore(st),
	}, options...)

	svc, err := flatcms.New(opts...)
	require.NoError(t, err)
	require.NotNil(t, svc)
	return svc
}

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []flatcms.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []flatcms.Option{},
			expectError: true,
		},
		{
			name: "with store should succeed",
			options: []flatcms.Option{
				flatcms.WithStore(memorystore.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := flatcms.New(tt.options...)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestCreateAndGet(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"title": "Hello", "tags": []any{"go"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID, "an id is assigned when none is supplied")
	assert.Equal(t, flatcms.StatusDraft, item.Status)
	assert.False(t, item.CreatedAt.IsZero())
	assert.False(t, item.UpdatedAt.IsZero())
	assert.Nil(t, item.PublishedAt)

	got, err := svc.GetItem(ctx, "posts", item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, "Hello", got.Fields["title"])
	assert.Equal(t, []any{"go"}, got.Fields["tags"])
}

func TestCreateWithExplicitID(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"id": "my-post"},
	})
	require.NoError(t, err)
	assert.Equal(t, "my-post", item.ID)

	_, err = svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"id": "my-post"},
	})
	assert.ErrorIs(t, err, flatcms.ErrItemExists)
}

func TestCreatePublishedSetsPublishedAt(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"status": "published"},
	})
	require.NoError(t, err)
	assert.Equal(t, flatcms.StatusPublished, item.Status)
	require.NotNil(t, item.PublishedAt)
}

func TestCreateRejectsInvalidStatus(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.CreateItem(context.Background(), flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"status": "bogus"},
	})
	assert.ErrorIs(t, err, flatcms.ErrInvalidStatus)
}

func TestUpdateNotFound(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.UpdateItem(context.Background(), flatcms.UpdateItemRequest{
		Type: "posts",
		ID:   "missing",
		Data: flatcms.Fields{"title": "x"},
	})
	assert.ErrorIs(t, err, flatcms.ErrItemNotFound)
}

func TestDeleteNotFound(t *testing.T) {
	svc := setupTestService(t)

	existed, err := svc.DeleteItem(context.Background(), "posts", "missing")
	require.NoError(t, err, "deleting a missing item is not an error")
	assert.False(t, existed)
}

func TestUpdateMergesAndKeepsTimestamps(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"title": "Original", "body": "text"},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateItem(ctx, flatcms.UpdateItemRequest{
		Type: "posts",
		ID:   item.ID,
		Data: flatcms.Fields{"title": "Changed"},
	})
	require.NoError(t, err)

	assert.Equal(t, item.ID, updated.ID)
	assert.Equal(t, "Changed", updated.Fields["title"])
	assert.Equal(t, "text", updated.Fields["body"], "unmentioned fields are retained")
	assert.True(t, updated.CreatedAt.Equal(item.CreatedAt), "createdAt never changes")
	assert.False(t, updated.UpdatedAt.Before(item.UpdatedAt), "updatedAt is monotonic")
}

func TestPublishTransitionSetsPublishedAtOnce(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{Type: "posts", Data: flatcms.Fields{}})
	require.NoError(t, err)
	require.Nil(t, item.PublishedAt)

	published, err := svc.UpdateItem(ctx, flatcms.UpdateItemRequest{
		Type: "posts", ID: item.ID,
		Data: flatcms.Fields{"status": "published"},
	})
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	firstPublished := *published.PublishedAt

	// Further non-status updates never alter an already-set publishedAt.
	later, err := svc.UpdateItem(ctx, flatcms.UpdateItemRequest{
		Type: "posts", ID: item.ID,
		Data: flatcms.Fields{"title": "edit"},
	})
	require.NoError(t, err)
	require.NotNil(t, later.PublishedAt)
	assert.True(t, later.PublishedAt.Equal(firstPublished))

	// An explicitly supplied publishedAt wins outright.
	explicit := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	overridden, err := svc.UpdateItem(ctx, flatcms.UpdateItemRequest{
		Type: "posts", ID: item.ID,
		Data: flatcms.Fields{"publishedAt": explicit.Format(time.RFC3339)},
	})
	require.NoError(t, err)
	require.NotNil(t, overridden.PublishedAt)
	assert.True(t, overridden.PublishedAt.Equal(explicit))
}

func TestDeleteCascadesToVersions(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{Type: "posts", Data: flatcms.Fields{"title": "v1"}})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, flatcms.UpdateItemRequest{
		Type: "posts", ID: item.ID, Data: flatcms.Fields{"title": "v2"},
	})
	require.NoError(t, err)

	versions, err := svc.ListVersions(ctx, "posts", item.ID)
	require.NoError(t, err)
	require.NotEmpty(t, versions)

	existed, err := svc.DeleteItem(ctx, "posts", item.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = svc.GetItem(ctx, "posts", item.ID)
	assert.ErrorIs(t, err, flatcms.ErrItemNotFound)

	versions, err = svc.ListVersions(ctx, "posts", item.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestVersionRetention(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{Type: "posts", Data: flatcms.Fields{"n": float64(0)}})
	require.NoError(t, err)

	for i := 1; i <= 12; i++ {
		_, err := svc.UpdateItem(ctx, flatcms.UpdateItemRequest{
			Type: "posts", ID: item.ID,
			Data: flatcms.Fields{"n": float64(i)},
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond) // distinct snapshot timestamps
	}

	versions, err := svc.ListVersions(ctx, "posts", item.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(versions), 10)

	// Newest first, and the survivors are the most recent states.
	for i := 1; i < len(versions); i++ {
		assert.False(t, versions[i-1].VersionedAt.Before(versions[i].VersionedAt))
	}
	assert.Equal(t, float64(11), versions[0].Item.Fields["n"])
}

func TestRestoreVersion(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{Type: "posts", Data: flatcms.Fields{"title": "first"}})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, flatcms.UpdateItemRequest{
		Type: "posts", ID: item.ID, Data: flatcms.Fields{"title": "second"},
	})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	versions, err := svc.ListVersions(ctx, "posts", item.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	target := versions[0]
	assert.Equal(t, "first", target.Item.Fields["title"])

	restored, err := svc.RestoreVersion(ctx, "posts", item.ID, target.VersionID)
	require.NoError(t, err)
	assert.Equal(t, "first", restored.Fields["title"])
	assert.Equal(t, target.Item.Status, restored.Status)

	// Restoring snapshots the pre-restore state: history grows, never shrinks.
	versions, err = svc.ListVersions(ctx, "posts", item.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "second", versions[0].Item.Fields["title"])
}

func TestRestoreUnknownVersion(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{Type: "posts", Data: flatcms.Fields{}})
	require.NoError(t, err)

	_, err = svc.RestoreVersion(ctx, "posts", item.ID, "v2000-01-01T00-00-00-000Z")
	assert.ErrorIs(t, err, flatcms.ErrVersionNotFound)
}

func TestUniquenessEnforcement(t *testing.T) {
	schema := &stubSchema{unique: map[string][]string{"posts": {"slug"}}}
	svc := setupTestService(t, flatcms.WithSchemaProvider(schema))
	ctx := context.Background()

	first, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"slug": "Slug-A"},
	})
	require.NoError(t, err)

	// Case-insensitive collision on create.
	_, err = svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"slug": "slug-a"},
	})
	require.ErrorIs(t, err, flatcms.ErrUniquenessViolation)

	var uniqErr *flatcms.UniquenessError
	require.ErrorAs(t, err, &uniqErr)
	require.Len(t, uniqErr.Report.Violations, 1)
	assert.Equal(t, "slug", uniqErr.Report.Violations[0].Field)

	// Collision on update of a different item.
	other, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"slug": "slug-b"},
	})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, flatcms.UpdateItemRequest{
		Type: "posts", ID: other.ID,
		Data: flatcms.Fields{"slug": "SLUG-A"},
	})
	assert.ErrorIs(t, err, flatcms.ErrUniquenessViolation)

	// An item keeps its own value on update (excludeId).
	_, err = svc.UpdateItem(ctx, flatcms.UpdateItemRequest{
		Type: "posts", ID: first.ID,
		Data: flatcms.Fields{"slug": "Slug-A", "title": "edited"},
	})
	assert.NoError(t, err)
}

func TestCheckUniquenessSkipsAbsentValues(t *testing.T) {
	schema := &stubSchema{unique: map[string][]string{"posts": {"slug"}}}
	svc := setupTestService(t, flatcms.WithSchemaProvider(schema))
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts", Data: flatcms.Fields{"slug": "taken"},
	})
	require.NoError(t, err)

	report, err := svc.CheckUniqueness(ctx, "posts", flatcms.Fields{"slug": nil}, "")
	require.NoError(t, err)
	assert.True(t, report.Valid, "null candidate values are skipped")

	report, err = svc.CheckUniqueness(ctx, "posts", flatcms.Fields{"title": "anything"}, "")
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestGetRelatedScoring(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	target, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{
			"id":       "target",
			"tags":     []any{"a", "b"},
			"category": "X",
		},
	})
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{
			"id":       "cand-a",
			"tags":     []any{"a", "b"},
			"category": "X",
		},
	})
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{
			"id":   "cand-b",
			"tags": []any{"a"},
		},
	})
	require.NoError(t, err)

	result, err := svc.GetRelated(ctx, "posts", target.ID, flatcms.RelatedOptions{})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	assert.Equal(t, "cand-a", result.Items[0].Item.ID)
	assert.Equal(t, 3, result.Items[0].Score, "two shared tags plus category match")
	assert.Equal(t, "cand-b", result.Items[1].Item.ID)
	assert.Equal(t, 1, result.Items[1].Score)
}

func TestGetRelatedBackReferences(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts", Data: flatcms.Fields{"id": "target"},
	})
	require.NoError(t, err)

	// Scalar id, list of ids, and embedded object references all count.
	_, err = svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"id": "by-scalar", "related": "target"},
	})
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"id": "by-list", "references": []any{"other", "target"}},
	})
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"id": "by-object", "links": map[string]any{"id": "target"}},
	})
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts",
		Data: flatcms.Fields{"id": "unrelated", "related": "someone-else"},
	})
	require.NoError(t, err)

	result, err := svc.GetRelated(ctx, "posts", "target", flatcms.RelatedOptions{})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	for _, rel := range result.Items {
		assert.Equal(t, 1, rel.Score)
	}
	// Ties keep the stable listing order (ascending id).
	assert.Equal(t, "by-list", result.Items[0].Item.ID)
	assert.Equal(t, "by-object", result.Items[1].Item.ID)
	assert.Equal(t, "by-scalar", result.Items[2].Item.ID)
}

func TestGetRelatedMissingTarget(t *testing.T) {
	svc := setupTestService(t)

	result, err := svc.GetRelated(context.Background(), "posts", "missing", flatcms.RelatedOptions{})
	require.NoError(t, err, "an absent target yields an empty result, not an error")
	assert.Empty(t, result.Items)
	assert.Equal(t, 0, result.Total)
}

func TestGetRelatedPagination(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
		Type: "posts", Data: flatcms.Fields{"id": "target", "tags": []any{"t"}},
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
			Type: "posts",
			Data: flatcms.Fields{"id": fmt.Sprintf("cand-%d", i), "tags": []any{"t"}},
		})
		require.NoError(t, err)
	}

	result, err := svc.GetRelated(ctx, "posts", "target", flatcms.RelatedOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 5, result.Total)
	assert.True(t, result.HasMore)
}

func TestQueryItems(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	for i, price := range []float64{5, 15, 25} {
		_, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
			Type: "products",
			Data: flatcms.Fields{"id": fmt.Sprintf("p-%d", i), "price": price},
		})
		require.NoError(t, err)
	}

	result, err := svc.QueryItems(ctx, "products", url.Values{"price__gt": {"10"}})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, 2, result.Total)
}

func TestListItemsStableOrder(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		_, err := svc.CreateItem(ctx, flatcms.CreateItemRequest{
			Type: "posts", Data: flatcms.Fields{"id": id},
		})
		require.NoError(t, err)
	}

	items, err := svc.ListItems(ctx, "posts")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "alpha", items[0].ID)
	assert.Equal(t, "bravo", items[1].ID)
	assert.Equal(t, "charlie", items[2].ID)
}

func TestEventSinkFailuresAreSwallowed(t *testing.T) {
	svc := setupTestService(t, flatcms.WithEventSink(&failingSink{}))

	item, err := svc.CreateItem(context.Background(), flatcms.CreateItemRequest{
		Type: "posts", Data: flatcms.Fields{},
	})
	require.NoError(t, err, "sink failures never fail the operation")
	assert.NotNil(t, item)
}

type failingSink struct{}

func (f *failingSink) ItemCreated(ctx context.Context, contentType string, item *flatcms.ContentItem) error {
	return errors.New("sink down")
}

func (f *failingSink) ItemUpdated(ctx context.Context, contentType string, item *flatcms.ContentItem) error {
	return errors.New("sink down")
}

func (f *failingSink) ItemDeleted(ctx context.Context, contentType, id string) error {
	return errors.New("sink down")
}

func (f *failingSink) VersionCreated(ctx context.Context, contentType, id, versionID string) error {
	return errors.New("sink down")
}

func (f *failingSink) QueryExecuted(ctx context.Context, contentType string, total int) error {
	return errors.New("sink down")
}
